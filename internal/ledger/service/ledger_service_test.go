package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/xxz807/betikbank/internal/ledger/domain"
	"github.com/xxz807/betikbank/internal/platform/idgen"
	"github.com/xxz807/betikbank/internal/platform/metrics"
)

func transfer(f *fixture, identityID, sourceID int64, dest string, amount int64, desc string) (*domain.Transaction, error) {
	return f.ledger.Transfer(context.Background(), TransferRequest{
		IdentityID:               identityID,
		SourceAccountID:          sourceID,
		DestinationAccountNumber: dest,
		Amount:                   decimal.NewFromInt(amount),
		Description:              desc,
	})
}

func TestTransferRentScenario(t *testing.T) {
	f := newFixture(t)
	a, accA := f.register(t, "12345678901", "a@example.com")
	_, accB := f.register(t, "10987654321", "b@example.com")

	requireBalance(t, f, accA.ID, 0)
	f.deposit(t, a.ID, 10000)

	rec, err := transfer(f, a.ID, accA.ID, accB.AccountNumber, 2500, "rent")
	require.NoError(t, err)

	requireBalance(t, f, accA.ID, 7500)
	requireBalance(t, f, accB.ID, 2500)
	assert.Equal(t, int64(1), f.countTransactions(t, domain.KindTransfer))

	assert.Equal(t, accA.ID, rec.SourceAccountID)
	assert.Equal(t, accB.ID, rec.DestinationAccountID)
	assert.True(t, rec.Amount.Equal(decimal.NewFromInt(2500)))
	assert.Equal(t, "rent", rec.Description)
	assert.Equal(t, domain.KindTransfer, rec.Kind)
}

func TestTransferInsufficientFundsLeavesBalances(t *testing.T) {
	f := newFixture(t)
	a, accA := f.register(t, "12345678901", "a@example.com")
	_, accB := f.register(t, "10987654321", "b@example.com")
	f.deposit(t, a.ID, 100)

	_, err := transfer(f, a.ID, accA.ID, accB.AccountNumber, 150, "")
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	requireBalance(t, f, accA.ID, 100)
	requireBalance(t, f, accB.ID, 0)
	assert.Equal(t, int64(0), f.countTransactions(t, domain.KindTransfer))
}

func TestTransferSelfRejectedRegardlessOfBalance(t *testing.T) {
	f := newFixture(t)
	a, accA := f.register(t, "12345678901", "a@example.com")

	_, err := transfer(f, a.ID, accA.ID, accA.AccountNumber, 50, "")
	assert.ErrorIs(t, err, domain.ErrSelfTransfer)

	f.deposit(t, a.ID, 1000)
	_, err = transfer(f, a.ID, accA.ID, accA.AccountNumber, 50, "")
	assert.ErrorIs(t, err, domain.ErrSelfTransfer)
	requireBalance(t, f, accA.ID, 1000)
}

func TestTransferInvalidAmount(t *testing.T) {
	f := newFixture(t)
	a, accA := f.register(t, "12345678901", "a@example.com")
	_, accB := f.register(t, "10987654321", "b@example.com")
	f.deposit(t, a.ID, 100)

	for _, amt := range []string{"0", "-5", "0.00005", "0.00004", "1.23456"} {
		_, err := f.ledger.Transfer(context.Background(), TransferRequest{
			IdentityID:               a.ID,
			SourceAccountID:          accA.ID,
			DestinationAccountNumber: accB.AccountNumber,
			Amount:                   decimal.RequireFromString(amt),
		})
		assert.ErrorIs(t, err, domain.ErrInvalidAmount, "amount=%s", amt)
	}
	requireBalance(t, f, accA.ID, 100)
	requireBalance(t, f, accB.ID, 0)
	assert.Equal(t, int64(0), f.countTransactions(t, domain.KindTransfer))
}

func TestTransferAcceptsFourDecimalPlaces(t *testing.T) {
	f := newFixture(t)
	a, accA := f.register(t, "12345678901", "a@example.com")
	_, accB := f.register(t, "10987654321", "b@example.com")
	f.deposit(t, a.ID, 100)

	for _, amt := range []string{"0.0001", "1.23450"} {
		_, err := f.ledger.Transfer(context.Background(), TransferRequest{
			IdentityID:               a.ID,
			SourceAccountID:          accA.ID,
			DestinationAccountNumber: accB.AccountNumber,
			Amount:                   decimal.RequireFromString(amt),
		})
		require.NoError(t, err, "amount=%s", amt)
	}

	total := f.balance(t, accA.ID).Add(f.balance(t, accB.ID))
	assert.True(t, total.Equal(decimal.NewFromInt(100)), "total=%s", total)
	assert.True(t, f.balance(t, accB.ID).Equal(decimal.RequireFromString("1.2346")))
}

func TestTransferCheckOrder(t *testing.T) {
	f := newFixture(t)
	a, accA := f.register(t, "12345678901", "a@example.com")
	b, accB := f.register(t, "10987654321", "b@example.com")

	cases := []struct {
		name     string
		identity int64
		source   int64
		dest     string
		amount   int64
		want     error
	}{
		{"missing source", a.ID, 9999, accB.AccountNumber, 0, domain.ErrAccountNotFound},
		{"foreign source", b.ID, accA.ID, accB.AccountNumber, 0, domain.ErrAccountNotOwned},
		{"missing destination before amount", a.ID, accA.ID, "0000000000000000", 0, domain.ErrDestinationNotFound},
		{"self before amount", a.ID, accA.ID, accA.AccountNumber, 0, domain.ErrSelfTransfer},
		{"amount before balance", a.ID, accA.ID, accB.AccountNumber, -1, domain.ErrInvalidAmount},
		{"balance last", a.ID, accA.ID, accB.AccountNumber, 1, domain.ErrInsufficientFunds},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := transfer(f, c.identity, c.source, c.dest, c.amount, "")
			assert.ErrorIs(t, err, c.want)
		})
	}
}

func TestTransferDescriptionTooLong(t *testing.T) {
	f := newFixture(t)
	a, accA := f.register(t, "12345678901", "a@example.com")
	_, accB := f.register(t, "10987654321", "b@example.com")
	f.deposit(t, a.ID, 100)

	_, err := transfer(f, a.ID, accA.ID, accB.AccountNumber, 1, strings.Repeat("x", 201))
	assert.ErrorIs(t, err, domain.ErrDescriptionTooLong)
	requireBalance(t, f, accA.ID, 100)
}

func TestTransferConservesTotal(t *testing.T) {
	f := newFixture(t)
	a, accA := f.register(t, "12345678901", "a@example.com")
	b, accB := f.register(t, "10987654321", "b@example.com")
	f.deposit(t, a.ID, 1000)
	f.deposit(t, b.ID, 500)

	for i := 0; i < 10; i++ {
		_, err := transfer(f, a.ID, accA.ID, accB.AccountNumber, 70, "a->b")
		require.NoError(t, err)
		_, err = transfer(f, b.ID, accB.ID, accA.AccountNumber, 30, "b->a")
		require.NoError(t, err)
	}

	total := f.balance(t, accA.ID).Add(f.balance(t, accB.ID))
	assert.True(t, total.Equal(decimal.NewFromInt(1500)), "total=%s", total)
	requireBalance(t, f, accA.ID, 600)
	requireBalance(t, f, accB.ID, 900)
}

// 测试库只有一个连接，20 个 goroutine 的事务实际上串行执行：
// 这里验证的是并发调用下不会透支；版本冲突与重试由下面的 interleavedAccounts 和 staleAccounts 覆盖
func TestTransferConcurrentNeverOverdraws(t *testing.T) {
	f := newFixture(t)
	a, accA := f.register(t, "12345678901", "a@example.com")
	_, accB := f.register(t, "10987654321", "b@example.com")
	f.deposit(t, a.ID, 100)

	const workers = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_, err := transfer(f, a.ID, accA.ID, accB.AccountNumber, 10, "")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, domain.ErrInsufficientFunds):
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, succeeded)
	requireBalance(t, f, accA.ID, 0)
	requireBalance(t, f, accB.ID, 100)
	assert.Equal(t, int64(10), f.countTransactions(t, domain.KindTransfer))
}

// staleAccounts 前 failures 次 UpdateBalance 模拟乐观锁冲突
type staleAccounts struct {
	domain.AccountRepository
	mu       sync.Mutex
	failures int
}

func (s *staleAccounts) UpdateBalance(ctx context.Context, db *gorm.DB, id int64, balance decimal.Decimal, version int64) error {
	s.mu.Lock()
	if s.failures > 0 {
		s.failures--
		s.mu.Unlock()
		return domain.ErrStaleVersion
	}
	s.mu.Unlock()
	return s.AccountRepository.UpdateBalance(ctx, db, id, balance, version)
}

// interleavedAccounts 在 FindByID 读到账户后立刻改写该行的 version，
// 模拟读与写之间另一笔事务已提交；冲突由真实的 UPDATE ... WHERE version = ? 检出
type interleavedAccounts struct {
	domain.AccountRepository
	interfere int
}

func (s *interleavedAccounts) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Account, error) {
	account, err := s.AccountRepository.FindByID(ctx, db, id)
	if err != nil || s.interfere == 0 {
		return account, err
	}
	s.interfere--
	if err := db.WithContext(ctx).Exec("UPDATE accounts SET version = version + 1 WHERE id = ?", id).Error; err != nil {
		return nil, err
	}
	return account, nil
}

type retryCounter struct {
	metrics.NoOp
	retries int
}

func (r *retryCounter) ObserveRetry(string) { r.retries++ }

func TestTransferRetriesAfterRealVersionConflict(t *testing.T) {
	counter := &retryCounter{}
	interleaved := &interleavedAccounts{}
	f := newFixture(t, func(r *Repositories, o *Options) {
		interleaved.AccountRepository = r.Accounts
		r.Accounts = interleaved
		o.Metrics = counter
	})
	a, accA := f.register(t, "12345678901", "a@example.com")
	_, accB := f.register(t, "10987654321", "b@example.com")
	f.deposit(t, a.ID, 100)

	interleaved.interfere = 1
	_, err := transfer(f, a.ID, accA.ID, accB.AccountNumber, 40, "")
	require.NoError(t, err)

	assert.Equal(t, 1, counter.retries)
	requireBalance(t, f, accA.ID, 60)
	requireBalance(t, f, accB.ID, 40)
	assert.Equal(t, int64(1), f.countTransactions(t, domain.KindTransfer))
}

func withStaleAccounts(failures int) fixtureOption {
	return func(r *Repositories, _ *Options) {
		r.Accounts = &staleAccounts{AccountRepository: r.Accounts, failures: failures}
	}
}

func TestTransferRetriesAfterStaleVersion(t *testing.T) {
	f := newFixture(t)
	a, accA := f.register(t, "12345678901", "a@example.com")
	_, accB := f.register(t, "10987654321", "b@example.com")
	f.deposit(t, a.ID, 100)

	// 同一数据库上换一个会冲突两次的仓储
	stale := &staleAccounts{AccountRepository: f.repos.Accounts, failures: 2}
	repos := f.repos
	repos.Accounts = stale
	ledger := NewLedgerService(f.db, repos, f.opts)

	_, err := ledger.Transfer(context.Background(), TransferRequest{
		IdentityID: a.ID, SourceAccountID: accA.ID,
		DestinationAccountNumber: accB.AccountNumber, Amount: decimal.NewFromInt(40),
	})
	require.NoError(t, err)

	requireBalance(t, f, accA.ID, 60)
	requireBalance(t, f, accB.ID, 40)
	assert.Equal(t, int64(1), f.countTransactions(t, domain.KindTransfer))
}

func TestTransferRetriesExhausted(t *testing.T) {
	f := newFixture(t, withStaleAccounts(0))
	a, accA := f.register(t, "12345678901", "a@example.com")
	_, accB := f.register(t, "10987654321", "b@example.com")
	f.deposit(t, a.ID, 100)

	f.repos.Accounts.(*staleAccounts).failures = 100

	_, err := transfer(f, a.ID, accA.ID, accB.AccountNumber, 40, "")
	require.ErrorIs(t, err, domain.ErrConcurrentUpdate)
	assert.Equal(t, domain.KindExhausted, domain.KindOf(err))

	f.repos.Accounts.(*staleAccounts).failures = 0
	requireBalance(t, f, accA.ID, 100)
	requireBalance(t, f, accB.ID, 0)
	assert.Equal(t, int64(0), f.countTransactions(t, domain.KindTransfer))
}

func TestFundInvestmentZeroAmount(t *testing.T) {
	f := newFixture(t)
	a, accA := f.register(t, "12345678901", "a@example.com")
	f.deposit(t, a.ID, 500)

	inv, rec, err := f.ledger.FundInvestment(context.Background(), a.ID, "Gold", decimal.Zero)
	require.NoError(t, err)

	assert.Nil(t, rec)
	assert.True(t, inv.TotalBalance.IsZero())
	assert.True(t, inv.ProfitLoss.IsZero())
	assert.Equal(t, domain.StatusActive, inv.Status)
	assert.Equal(t, "Gold", inv.Kind)
	assert.Regexp(t, regexp.MustCompile(`^Y45678901[1-9]\d{3}$`), inv.AccountNumber)

	requireBalance(t, f, accA.ID, 500)
	assert.Equal(t, int64(0), f.countTransactions(t, domain.KindInvestmentFunding))
}

func TestFundInvestmentDebitsChecking(t *testing.T) {
	f := newFixture(t)
	a, accA := f.register(t, "12345678901", "a@example.com")
	f.deposit(t, a.ID, 1000)

	inv, rec, err := f.ledger.FundInvestment(context.Background(), a.ID, "Crypto", decimal.NewFromInt(400))
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.True(t, inv.TotalBalance.Equal(decimal.NewFromInt(400)))
	requireBalance(t, f, accA.ID, 600)

	assert.Equal(t, accA.ID, rec.SourceAccountID)
	assert.Equal(t, accA.ID, rec.DestinationAccountID)
	assert.Equal(t, domain.KindInvestmentFunding, rec.Kind)
	assert.Equal(t, "Investment account opening - Crypto", rec.Description)
	assert.Equal(t, int64(1), f.countTransactions(t, domain.KindInvestmentFunding))
}

func TestFundInvestmentInsufficientFundsCreatesNothing(t *testing.T) {
	f := newFixture(t)
	a, accA := f.register(t, "12345678901", "a@example.com")
	f.deposit(t, a.ID, 100)

	_, _, err := f.ledger.FundInvestment(context.Background(), a.ID, "Fund", decimal.NewFromInt(101))
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assert.Contains(t, err.Error(), "without an initial amount")

	requireBalance(t, f, accA.ID, 100)
	list, err := f.accounts.ListInvestmentAccounts(context.Background(), a.ID, false)
	require.NoError(t, err)
	assert.Empty(t, list)

	// 用 0 金额重试仍可开户
	_, _, err = f.ledger.FundInvestment(context.Background(), a.ID, "Fund", decimal.Zero)
	assert.NoError(t, err)
}

func TestFundInvestmentNoCheckingAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	identity := &domain.Identity{
		NationalID: "11111111111", FirstName: "No", LastName: "Account",
		Email: "none@example.com", Phone: "1", PasswordHash: "x",
	}
	require.NoError(t, f.repos.Identities.Create(ctx, f.db, identity))

	_, _, err := f.ledger.FundInvestment(ctx, identity.ID, "Equity", decimal.NewFromInt(1))
	assert.ErrorIs(t, err, domain.ErrNoCheckingAccount)

	inv, _, err := f.ledger.FundInvestment(ctx, identity.ID, "Equity", decimal.Zero)
	require.NoError(t, err)
	assert.True(t, inv.TotalBalance.IsZero())
}

func TestFundInvestmentValidation(t *testing.T) {
	f := newFixture(t)
	a, _ := f.register(t, "12345678901", "a@example.com")
	ctx := context.Background()

	_, _, err := f.ledger.FundInvestment(ctx, a.ID, "   ", decimal.Zero)
	assert.ErrorIs(t, err, domain.ErrInvalidInvestmentKind)

	for _, amt := range []string{"-1", "0.00001", "1.23456"} {
		_, _, err = f.ledger.FundInvestment(ctx, a.ID, "Gold", decimal.RequireFromString(amt))
		assert.ErrorIs(t, err, domain.ErrInvalidAmount, "amount=%s", amt)
	}
	list, err := f.accounts.ListInvestmentAccounts(ctx, a.ID, false)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, _, err = f.ledger.FundInvestment(ctx, 4242, "Gold", decimal.Zero)
	assert.ErrorIs(t, err, domain.ErrIdentityNotFound)
}

func TestFundInvestmentNumbersUnique(t *testing.T) {
	f := newFixture(t)
	a, _ := f.register(t, "12345678901", "a@example.com")
	ctx := context.Background()

	const n = 1000
	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		inv, _, err := f.ledger.FundInvestment(ctx, a.ID, "Fund", decimal.Zero)
		require.NoError(t, err)
		_, dup := seen[inv.AccountNumber]
		require.False(t, dup, "duplicate investment number %s", inv.AccountNumber)
		seen[inv.AccountNumber] = struct{}{}
	}
	assert.Len(t, seen, n)
}

func TestFundInvestmentGenerationExhausted(t *testing.T) {
	f := newFixture(t, withIDs(idgen.New(constSource{})))
	a, _ := f.register(t, "12345678901", "a@example.com")
	ctx := context.Background()

	first, _, err := f.ledger.FundInvestment(ctx, a.ID, "Gold", decimal.Zero)
	require.NoError(t, err)
	assert.Equal(t, "Y456789011000", first.AccountNumber)

	_, _, err = f.ledger.FundInvestment(ctx, a.ID, "Gold", decimal.Zero)
	assert.ErrorIs(t, err, domain.ErrGenerationExhausted)
}

func TestDepositCreatesCheckingWhenMissing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	identity := &domain.Identity{
		NationalID: "22222222222", FirstName: "Late", LastName: "Comer",
		Email: "late@example.com", Phone: "1", PasswordHash: "x",
	}
	require.NoError(t, f.repos.Identities.Create(ctx, f.db, identity))

	account, err := f.ledger.Deposit(ctx, identity.ID, decimal.NewFromInt(250))
	require.NoError(t, err)
	assert.Equal(t, domain.Checking, account.Kind)
	assert.Equal(t, derivedAccountNumber(identity.NationalID, identity.ID), account.AccountNumber)
	requireBalance(t, f, account.ID, 250)

	for _, amt := range []string{"0", "0.00005"} {
		_, err = f.ledger.Deposit(ctx, identity.ID, decimal.RequireFromString(amt))
		assert.ErrorIs(t, err, domain.ErrInvalidAmount, "amount=%s", amt)
	}
	requireBalance(t, f, account.ID, 250)
}

func TestSeedAll(t *testing.T) {
	f := newFixture(t)
	_, accA := f.register(t, "12345678901", "a@example.com")
	_, accB := f.register(t, "10987654321", "b@example.com")

	n, err := f.ledger.SeedAll(context.Background(), decimal.NewFromInt(10000))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	requireBalance(t, f, accA.ID, 10000)
	requireBalance(t, f, accB.ID, 10000)
}

func TestListTransactions(t *testing.T) {
	f := newFixture(t)
	a, accA := f.register(t, "12345678901", "a@example.com")
	b, accB := f.register(t, "10987654321", "b@example.com")
	f.deposit(t, a.ID, 1000)
	ctx := context.Background()

	for _, amt := range []int64{10, 20, 30} {
		_, err := transfer(f, a.ID, accA.ID, accB.AccountNumber, amt, "")
		require.NoError(t, err)
	}

	all, err := f.ledger.ListTransactions(ctx, a.ID, accA.ID, 0)
	require.NoError(t, err)
	require.Len(t, all, 4) // 充值 + 3 笔转账
	assert.True(t, all[0].Amount.Equal(decimal.NewFromInt(30)))
	assert.Equal(t, domain.KindDeposit, all[3].Kind)
	for i := 1; i < len(all); i++ {
		assert.False(t, all[i].PostedAt.After(all[i-1].PostedAt))
	}

	limited, err := f.ledger.ListTransactions(ctx, b.ID, accB.ID, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.True(t, limited[0].Amount.Equal(decimal.NewFromInt(30)))
	assert.True(t, limited[1].Amount.Equal(decimal.NewFromInt(20)))

	_, err = f.ledger.ListTransactions(ctx, b.ID, accA.ID, 0)
	assert.ErrorIs(t, err, domain.ErrAccountNotOwned)
}
