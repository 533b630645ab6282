package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/xxz807/betikbank/internal/ledger/domain"
)

const (
	maxDescriptionLen    = 200
	maxInvestmentKindLen = 50
)

// TransferRequest 转账请求 (Input)
type TransferRequest struct {
	IdentityID               int64 // 发起人
	SourceAccountID          int64
	DestinationAccountNumber string
	Amount                   decimal.Decimal
	Description              string
}

// LedgerService 核心服务：所有改变余额的操作都经过这里
type LedgerService struct {
	db    *gorm.DB // 用于开启事务
	repos Repositories
	opts  Options
}

func NewLedgerService(db *gorm.DB, repos Repositories, opts Options) *LedgerService {
	return &LedgerService{
		db:    db,
		repos: repos,
		opts:  opts.withDefaults(),
	}
}

// Transfer 执行转账 (ACID Transaction Script)
// 校验顺序固定，每一步对应一种失败：
// 来源账户归属 -> 收款账户存在 -> 非同一账户 -> 金额为正且精度合法 -> 余额充足
func (s *LedgerService) Transfer(ctx context.Context, req TransferRequest) (_ *domain.Transaction, err error) {
	start := time.Now()
	defer func() {
		finish(s.opts, "transfer", start, err,
			zap.Int64("identity_id", req.IdentityID),
			zap.Int64("source_account_id", req.SourceAccountID),
			zap.String("destination", req.DestinationAccountNumber),
			zap.String("amount", req.Amount.String()),
		)
	}()

	if utf8.RuneCountInString(req.Description) > maxDescriptionLen {
		return nil, domain.ErrDescriptionTooLong
	}

	var record *domain.Transaction
	err = unitOfWork(ctx, s.db, s.opts, "transfer", func(tx *gorm.DB) error {
		// 1. 来源账户存在且属于发起人
		src, err := s.repos.Accounts.FindByID(ctx, tx, req.SourceAccountID)
		if err != nil {
			return err
		}
		if src.IdentityID != req.IdentityID {
			return domain.ErrAccountNotOwned
		}

		// 2. 收款账户按对外账号查找
		dst, err := s.repos.Accounts.FindByNumber(ctx, tx, req.DestinationAccountNumber)
		if errors.Is(err, domain.ErrAccountNotFound) {
			return domain.ErrDestinationNotFound
		}
		if err != nil {
			return err
		}

		// 3. 不能转给自己
		if src.ID == dst.ID {
			return domain.ErrSelfTransfer
		}

		// 4. 金额必须 > 0 且不超过 4 位小数
		if !req.Amount.IsPositive() || !domain.FitsMoneyScale(req.Amount) {
			return domain.ErrInvalidAmount
		}

		// 5. 余额检查
		if src.Balance.LessThan(req.Amount) {
			return domain.ErrInsufficientFunds
		}

		// 按账户 id 升序写入，借记与贷记净额为零
		changes := []balanceChange{
			{account: src, balance: src.Balance.Sub(req.Amount)},
			{account: dst, balance: dst.Balance.Add(req.Amount)},
		}
		if err := s.applyChanges(ctx, tx, changes); err != nil {
			return err
		}

		rec := &domain.Transaction{
			SourceAccountID:      src.ID,
			DestinationAccountID: dst.ID,
			Amount:               req.Amount,
			Description:          req.Description,
			Kind:                 domain.KindTransfer,
			PostedAt:             s.opts.Now(),
		}
		if err := s.repos.Transactions.Create(ctx, tx, rec); err != nil {
			return err
		}
		record = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// FundInvestment 开立投资账户，可选从活期账户划转初始金额
// 划转记录为同一账户的 InvestmentFunding 流水；扣款、流水、开户在同一事务中提交
func (s *LedgerService) FundInvestment(ctx context.Context, identityID int64, kind string, initialAmount decimal.Decimal) (_ *domain.InvestmentAccount, _ *domain.Transaction, err error) {
	start := time.Now()
	defer func() {
		finish(s.opts, "fund_investment", start, err,
			zap.Int64("identity_id", identityID),
			zap.String("kind", kind),
			zap.String("amount", initialAmount.String()),
		)
	}()

	kind = strings.TrimSpace(kind)
	if kind == "" || utf8.RuneCountInString(kind) > maxInvestmentKindLen {
		return nil, nil, domain.ErrInvalidInvestmentKind
	}
	if initialAmount.IsNegative() || !domain.FitsMoneyScale(initialAmount) {
		return nil, nil, domain.ErrInvalidAmount
	}

	var (
		investment *domain.InvestmentAccount
		record     *domain.Transaction
	)
	err = unitOfWork(ctx, s.db, s.opts, "fund_investment", func(tx *gorm.DB) error {
		investment, record = nil, nil

		identity, err := s.repos.Identities.FindByID(ctx, tx, identityID)
		if err != nil {
			return err
		}

		number, err := uniqueNumber(ctx, s.opts,
			func() string { return investmentNumber(s.opts, identity.NationalID) },
			func(ctx context.Context, n string) (bool, error) {
				return s.repos.Investments.ExistsByNumber(ctx, tx, n)
			})
		if err != nil {
			return err
		}

		if initialAmount.IsPositive() {
			checking, err := s.repos.Accounts.FirstByKind(ctx, tx, identityID, domain.Checking)
			if err != nil {
				return err
			}
			if checking.Balance.LessThan(initialAmount) {
				return fmt.Errorf("%w: the investment account can be opened without an initial amount", domain.ErrInsufficientFunds)
			}
			if err := s.applyChanges(ctx, tx, []balanceChange{
				{account: checking, balance: checking.Balance.Sub(initialAmount)},
			}); err != nil {
				return err
			}

			rec := &domain.Transaction{
				SourceAccountID:      checking.ID,
				DestinationAccountID: checking.ID,
				Amount:               initialAmount,
				Description:          "Investment account opening - " + kind,
				Kind:                 domain.KindInvestmentFunding,
				PostedAt:             s.opts.Now(),
			}
			if err := s.repos.Transactions.Create(ctx, tx, rec); err != nil {
				return err
			}
			record = rec
		}

		inv := &domain.InvestmentAccount{
			AccountNumber: number,
			IdentityID:    identityID,
			Kind:          kind,
			TotalBalance:  initialAmount,
			ProfitLoss:    decimal.Zero,
			Status:        domain.StatusActive,
		}
		if err := s.repos.Investments.Create(ctx, tx, inv); err != nil {
			return err
		}
		investment = inv
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return investment, record, nil
}

// Deposit 测试充值：加到用户第一个活期账户，没有则新开一个
func (s *LedgerService) Deposit(ctx context.Context, identityID int64, amount decimal.Decimal) (_ *domain.Account, err error) {
	start := time.Now()
	defer func() {
		finish(s.opts, "deposit", start, err,
			zap.Int64("identity_id", identityID),
			zap.String("amount", amount.String()),
		)
	}()

	if !amount.IsPositive() || !domain.FitsMoneyScale(amount) {
		return nil, domain.ErrInvalidAmount
	}

	var credited *domain.Account
	err = unitOfWork(ctx, s.db, s.opts, "deposit", func(tx *gorm.DB) error {
		identity, err := s.repos.Identities.FindByID(ctx, tx, identityID)
		if err != nil {
			return err
		}

		account, err := s.repos.Accounts.FirstByKind(ctx, tx, identityID, domain.Checking)
		switch {
		case errors.Is(err, domain.ErrNoCheckingAccount):
			account, err = openCheckingAccount(ctx, tx, s.repos, s.opts, identity, amount)
			if err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			newBalance := account.Balance.Add(amount)
			if err := s.applyChanges(ctx, tx, []balanceChange{{account: account, balance: newBalance}}); err != nil {
				return err
			}
			account.Balance = newBalance
			account.Version++
		}

		rec := &domain.Transaction{
			SourceAccountID:      account.ID,
			DestinationAccountID: account.ID,
			Amount:               amount,
			Description:          "Test deposit",
			Kind:                 domain.KindDeposit,
			PostedAt:             s.opts.Now(),
		}
		if err := s.repos.Transactions.Create(ctx, tx, rec); err != nil {
			return err
		}
		credited = account
		return nil
	})
	if err != nil {
		return nil, err
	}
	return credited, nil
}

// SeedAll 给每个用户充值 amount，返回成功的用户数
func (s *LedgerService) SeedAll(ctx context.Context, amount decimal.Decimal) (int, error) {
	ids, err := s.repos.Identities.ListIDs(ctx, s.db)
	if err != nil {
		return 0, err
	}

	credited := 0
	for _, id := range ids {
		if _, err := s.Deposit(ctx, id, amount); err != nil {
			return credited, fmt.Errorf("seed identity %d: %w", id, err)
		}
		credited++
	}
	return credited, nil
}

// ListTransactions 某账户的收支流水 (最新在前)，limit <= 0 表示不限
func (s *LedgerService) ListTransactions(ctx context.Context, identityID, accountID int64, limit int) ([]domain.Transaction, error) {
	account, err := s.repos.Accounts.FindByID(ctx, s.db, accountID)
	if err != nil {
		return nil, err
	}
	if account.IdentityID != identityID {
		return nil, domain.ErrAccountNotOwned
	}
	return s.repos.Transactions.ListByAccounts(ctx, s.db, []int64{account.ID}, limit)
}

// RecentTransactions 用户所有账户的流水 (最新在前)
func (s *LedgerService) RecentTransactions(ctx context.Context, identityID int64, limit int) ([]domain.Transaction, error) {
	accounts, err := s.repos.Accounts.ListByIdentity(ctx, s.db, identityID)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(accounts))
	for i, a := range accounts {
		ids[i] = a.ID
	}
	return s.repos.Transactions.ListByAccounts(ctx, s.db, ids, limit)
}

type balanceChange struct {
	account *domain.Account
	balance decimal.Decimal
}

// applyChanges 按账户 id 升序执行乐观锁更新
func (s *LedgerService) applyChanges(ctx context.Context, tx *gorm.DB, changes []balanceChange) error {
	sort.Slice(changes, func(i, j int) bool { return changes[i].account.ID < changes[j].account.ID })
	for _, c := range changes {
		if c.balance.IsNegative() {
			return domain.ErrInsufficientFunds
		}
		if err := s.repos.Accounts.UpdateBalance(ctx, tx, c.account.ID, c.balance, c.account.Version); err != nil {
			return err
		}
	}
	return nil
}
