package service

import (
	"context"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/xxz807/betikbank/internal/ledger/adapter/repo"
	"github.com/xxz807/betikbank/internal/ledger/domain"
	"github.com/xxz807/betikbank/internal/platform/config"
	"github.com/xxz807/betikbank/internal/platform/database"
	"github.com/xxz807/betikbank/internal/platform/idgen"
)

// fakeClock 每次调用前进一秒，保证流水时间严格递增
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

var testEpoch = time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

type fixture struct {
	db         *gorm.DB
	repos      Repositories
	opts       Options
	ledger     *LedgerService
	identities *IdentityService
	cards      *CardService
	accounts   *AccountService
}

type fixtureOption func(*Repositories, *Options)

func withIDs(g *idgen.Generator) fixtureOption {
	return func(_ *Repositories, o *Options) { o.IDs = g }
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.NewDB(config.DatabaseConfig{
		Driver:       "sqlite",
		DSN:          "file:" + uuid.NewString() + "?mode=memory&cache=shared",
		MaxOpenConns: 1,
		LogLevel:     "silent",
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func newFixture(t *testing.T, options ...fixtureOption) *fixture {
	t.Helper()
	db := newTestDB(t)

	repos := Repositories{
		Identities:   repo.NewIdentityRepo(),
		Accounts:     repo.NewAccountRepo(),
		Transactions: repo.NewTransactionRepo(),
		Cards:        repo.NewCardRepo(),
		Investments:  repo.NewInvestmentRepo(),
	}
	clock := &fakeClock{t: testEpoch}
	opts := Options{
		IDs:        idgen.New(rand.New(rand.NewPCG(7, 11))),
		Now:        clock.Now,
		MaxRetries: 3,
	}
	for _, o := range options {
		o(&repos, &opts)
	}

	ledger := NewLedgerService(db, repos, opts)
	return &fixture{
		db:         db,
		repos:      repos,
		opts:       opts,
		ledger:     ledger,
		identities: NewIdentityService(db, repos, opts),
		cards:      NewCardService(db, repos, opts),
		accounts:   NewAccountService(db, repos, ledger),
	}
}

// register 注册用户并返回其活期账户
func (f *fixture) register(t *testing.T, nationalID, email string) (*domain.Identity, *domain.Account) {
	t.Helper()
	ctx := context.Background()
	identity, err := f.identities.Register(ctx, RegisterRequest{
		NationalID:      nationalID,
		FirstName:       "Ayse",
		LastName:        "Yilmaz",
		Email:           email,
		Phone:           "5551234567",
		Password:        "secret",
		PasswordConfirm: "secret",
	})
	require.NoError(t, err)

	account, err := f.repos.Accounts.FirstByKind(ctx, f.db, identity.ID, domain.Checking)
	require.NoError(t, err)
	return identity, account
}

func (f *fixture) deposit(t *testing.T, identityID int64, amount int64) {
	t.Helper()
	_, err := f.ledger.Deposit(context.Background(), identityID, decimal.NewFromInt(amount))
	require.NoError(t, err)
}

func (f *fixture) balance(t *testing.T, accountID int64) decimal.Decimal {
	t.Helper()
	account, err := f.repos.Accounts.FindByID(context.Background(), f.db, accountID)
	require.NoError(t, err)
	return account.Balance
}

func (f *fixture) countTransactions(t *testing.T, kind domain.TransactionKind) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&domain.Transaction{}).Where("kind = ?", kind).Count(&n).Error)
	return n
}

func requireBalance(t *testing.T, f *fixture, accountID int64, want int64) {
	t.Helper()
	got := f.balance(t, accountID)
	require.Truef(t, got.Equal(decimal.NewFromInt(want)), "account %d balance=%s want=%d", accountID, got, want)
}

// constSource 始终返回 0，用于制造编号碰撞
type constSource struct{}

func (constSource) IntN(int) int { return 0 }
