package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/xxz807/betikbank/internal/ledger/domain"
	"github.com/xxz807/betikbank/internal/platform/idgen"
	"github.com/xxz807/betikbank/internal/platform/metrics"
)

// Repositories 聚合所有仓储端口
type Repositories struct {
	Identities   domain.IdentityRepository
	Accounts     domain.AccountRepository
	Transactions domain.TransactionRepository
	Cards        domain.CardRepository
	Investments  domain.InvestmentRepository
}

// Options 各 service 共享的依赖与参数
type Options struct {
	Logger  *zap.Logger
	Metrics metrics.Recorder
	IDs     *idgen.Generator
	Now     func() time.Time

	// MaxRetries 乐观锁冲突时整个事务的最大尝试次数
	MaxRetries int
	// MaxGenerationAttempts 随机编号碰撞的最大尝试次数
	MaxGenerationAttempts int
	// DefaultCreditLimit 信用卡默认额度，nil 时为 10000；显式的 0 保持为 0
	DefaultCreditLimit *decimal.Decimal
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Metrics == nil {
		o.Metrics = metrics.NoOp{}
	}
	if o.IDs == nil {
		o.IDs = idgen.NewDefault()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = 5
	}
	if o.MaxGenerationAttempts <= 0 {
		o.MaxGenerationAttempts = 32
	}
	if o.DefaultCreditLimit == nil {
		limit := decimal.NewFromInt(10000)
		o.DefaultCreditLimit = &limit
	}
	return o
}

// unitOfWork 在一个数据库事务中执行 fn：
// fn 返回 nil 则提交，返回错误或 panic 则回滚。
// 乐观锁冲突 (ErrStaleVersion) 时整体重试，fn 必须重新读取所有状态。
func unitOfWork(ctx context.Context, db *gorm.DB, opts Options, op string, fn func(tx *gorm.DB) error) error {
	for attempt := 1; ; attempt++ {
		err := db.WithContext(ctx).Transaction(fn)
		if !errors.Is(err, domain.ErrStaleVersion) {
			return err
		}
		if attempt >= opts.MaxRetries {
			return fmt.Errorf("%s: %w (after %d attempts)", op, domain.ErrConcurrentUpdate, attempt)
		}
		opts.Metrics.ObserveRetry(op)
		opts.Logger.Debug("optimistic lock conflict, retrying",
			zap.String("operation", op),
			zap.Int("attempt", attempt),
		)
	}
}

// uniqueNumber 包装 idgen.Unique，把耗尽翻译为领域错误
func uniqueNumber(ctx context.Context, opts Options, next func() string, taken idgen.TakenFunc) (string, error) {
	n, err := idgen.Unique(ctx, opts.MaxGenerationAttempts, next, taken)
	if errors.Is(err, idgen.ErrExhausted) {
		return "", domain.ErrGenerationExhausted
	}
	return n, err
}

// finish 记录指标与日志
// 业务拒绝记 Warn，基础设施错误记 Error
func finish(opts Options, op string, start time.Time, err error, fields ...zap.Field) {
	elapsed := time.Since(start)
	fields = append(fields, zap.String("operation", op), zap.Duration("cost", elapsed))

	switch {
	case err == nil:
		opts.Metrics.ObserveOperation(op, metrics.OutcomeCommitted, elapsed)
		opts.Logger.Info("ledger operation committed", fields...)
	case domain.KindOf(err) != domain.KindInternal:
		opts.Metrics.ObserveOperation(op, metrics.OutcomeRejected, elapsed)
		opts.Logger.Warn("ledger operation rejected", append(fields, zap.String("code", domain.CodeOf(err)))...)
	default:
		opts.Metrics.ObserveOperation(op, metrics.OutcomeFailed, elapsed)
		opts.Logger.Error("ledger operation failed", append(fields, zap.Error(err))...)
	}
}
