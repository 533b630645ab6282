package service

import (
	"context"

	"gorm.io/gorm"

	"github.com/xxz807/betikbank/internal/ledger/domain"
)

// dashboardTransactions 首页展示的最近流水条数
const dashboardTransactions = 10

// Dashboard 首页数据
type Dashboard struct {
	Accounts           []domain.Account           `json:"accounts"`
	Cards              []domain.Card              `json:"cards"`
	InvestmentAccounts []domain.InvestmentAccount `json:"investment_accounts"`
	RecentTransactions []domain.Transaction       `json:"recent_transactions"`
}

// AccountService 账户、投资账户的只读查询
type AccountService struct {
	db     *gorm.DB
	repos  Repositories
	ledger *LedgerService
}

func NewAccountService(db *gorm.DB, repos Repositories, ledger *LedgerService) *AccountService {
	return &AccountService{db: db, repos: repos, ledger: ledger}
}

func (s *AccountService) ListAccounts(ctx context.Context, identityID int64) ([]domain.Account, error) {
	return s.repos.Accounts.ListByIdentity(ctx, s.db, identityID)
}

func (s *AccountService) GetAccount(ctx context.Context, identityID, accountID int64) (*domain.Account, error) {
	account, err := s.repos.Accounts.FindByID(ctx, s.db, accountID)
	if err != nil {
		return nil, err
	}
	if account.IdentityID != identityID {
		return nil, domain.ErrAccountNotOwned
	}
	return account, nil
}

func (s *AccountService) ListInvestmentAccounts(ctx context.Context, identityID int64, activeOnly bool) ([]domain.InvestmentAccount, error) {
	return s.repos.Investments.ListByIdentity(ctx, s.db, identityID, activeOnly)
}

func (s *AccountService) GetInvestmentAccount(ctx context.Context, identityID, id int64) (*domain.InvestmentAccount, error) {
	inv, err := s.repos.Investments.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if inv.IdentityID != identityID {
		return nil, domain.ErrInvestmentAccountNotOwned
	}
	return inv, nil
}

// Dashboard 账户、有效卡片、有效投资账户与最近 10 条流水
func (s *AccountService) Dashboard(ctx context.Context, identityID int64) (*Dashboard, error) {
	accounts, err := s.ListAccounts(ctx, identityID)
	if err != nil {
		return nil, err
	}
	cards, err := s.repos.Cards.ListByIdentity(ctx, s.db, identityID, true)
	if err != nil {
		return nil, err
	}
	investments, err := s.ListInvestmentAccounts(ctx, identityID, true)
	if err != nil {
		return nil, err
	}
	recent, err := s.ledger.RecentTransactions(ctx, identityID, dashboardTransactions)
	if err != nil {
		return nil, err
	}

	return &Dashboard{
		Accounts:           accounts,
		Cards:              cards,
		InvestmentAccounts: investments,
		RecentTransactions: recent,
	}, nil
}
