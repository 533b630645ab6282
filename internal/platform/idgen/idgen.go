// Package idgen 生成随机数字编号 (卡号、CVV、投资账号后缀)，
// 并在注入的唯一性检查下有限次重试。
package idgen

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
)

// Source 随机数来源，*rand.Rand 满足该接口
type Source interface {
	IntN(n int) int
}

// Generator 并发安全的随机编号生成器
type Generator struct {
	mu  sync.Mutex
	src Source
}

// New 使用给定随机源创建生成器 (测试里可注入固定种子)
func New(src Source) *Generator {
	return &Generator{src: src}
}

// NewDefault 使用随机种子的 PCG 源
func NewDefault() *Generator {
	return New(rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())))
}

// Digits 返回 n 位十进制数字串，每位均匀取 0-9
func (g *Generator) Digits(n int) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		b.WriteByte(byte('0' + g.src.IntN(10)))
	}
	return b.String()
}

// IntRange 返回 [lo, hi] 闭区间内的均匀随机整数
func (g *Generator) IntRange(lo, hi int) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return lo + g.src.IntN(hi-lo+1)
}

// TakenFunc 判断候选编号是否已被占用
type TakenFunc func(ctx context.Context, candidate string) (bool, error)

// ErrExhausted 在 maxAttempts 次候选都冲突时返回
var ErrExhausted = errors.New("idgen: attempts exhausted")

// Unique 反复调用 next 直到 taken 返回 false
// 最多尝试 maxAttempts 次，之后返回 ErrExhausted
func Unique(ctx context.Context, maxAttempts int, next func() string, taken TakenFunc) (string, error) {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	for i := 0; i < maxAttempts; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		candidate := next()
		used, err := taken(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check candidate: %w", err)
		}
		if !used {
			return candidate, nil
		}
	}
	return "", ErrExhausted
}
