package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/xxz807/betikbank/internal/ledger/domain"
)

const (
	accountNumberLen   = 16
	cardNumberLen      = 16
	securityCodeLen    = 3
	investmentPrefix   = "Y"
	investmentIDSuffix = 8
)

// derivedAccountNumber 身份证号 + 5 位补零的用户 id，截断到 16 位
func derivedAccountNumber(nationalID string, identityID int64) string {
	n := fmt.Sprintf("%s%05d", nationalID, identityID)
	if len(n) > accountNumberLen {
		n = n[:accountNumberLen]
	}
	return n
}

// investmentNumber Y + 身份证号后 8 位 + [1000, 9999] 随机数
func investmentNumber(opts Options, nationalID string) string {
	tail := nationalID
	if len(tail) > investmentIDSuffix {
		tail = tail[len(tail)-investmentIDSuffix:]
	}
	return investmentPrefix + tail + strconv.Itoa(opts.IDs.IntRange(1000, 9999))
}

// openCheckingAccount 为用户开立活期账户
// 优先使用推导账号；被占用时改为 身份证号 + 随机数字 并做碰撞重试
func openCheckingAccount(ctx context.Context, tx *gorm.DB, repos Repositories, opts Options,
	identity *domain.Identity, balance decimal.Decimal) (*domain.Account, error) {

	taken := func(ctx context.Context, n string) (bool, error) {
		return repos.Accounts.ExistsByNumber(ctx, tx, n)
	}

	number := derivedAccountNumber(identity.NationalID, identity.ID)
	used, err := taken(ctx, number)
	if err != nil {
		return nil, err
	}
	if used {
		pad := accountNumberLen - len(identity.NationalID)
		if pad < 1 {
			pad = 1
		}
		number, err = uniqueNumber(ctx, opts, func() string {
			n := identity.NationalID + opts.IDs.Digits(pad)
			if len(n) > accountNumberLen {
				n = n[len(n)-accountNumberLen:]
			}
			return n
		}, taken)
		if err != nil {
			return nil, err
		}
	}

	account := &domain.Account{
		AccountNumber: number,
		IdentityID:    identity.ID,
		Balance:       balance,
		Kind:          domain.Checking,
	}
	if err := repos.Accounts.Create(ctx, tx, account); err != nil {
		return nil, err
	}
	return account, nil
}
