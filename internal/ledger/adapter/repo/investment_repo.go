package repo

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/xxz807/betikbank/internal/ledger/domain"
)

type InvestmentRepo struct{}

func NewInvestmentRepo() *InvestmentRepo {
	return &InvestmentRepo{}
}

func (r *InvestmentRepo) Create(ctx context.Context, db *gorm.DB, account *domain.InvestmentAccount) error {
	if err := db.WithContext(ctx).Create(account).Error; err != nil {
		return fmt.Errorf("create investment account: %w", err)
	}
	return nil
}

func (r *InvestmentRepo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.InvestmentAccount, error) {
	var account domain.InvestmentAccount
	if err := db.WithContext(ctx).First(&account, id).Error; err != nil {
		return nil, notFound(err, domain.ErrInvestmentAccountNotFound)
	}
	return &account, nil
}

func (r *InvestmentRepo) ExistsByNumber(ctx context.Context, db *gorm.DB, number string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Model(&domain.InvestmentAccount{}).Where("account_number = ?", number).Count(&count).Error
	return count > 0, err
}

func (r *InvestmentRepo) ListByIdentity(ctx context.Context, db *gorm.DB, identityID int64, activeOnly bool) ([]domain.InvestmentAccount, error) {
	q := db.WithContext(ctx).Where("identity_id = ?", identityID)
	if activeOnly {
		q = q.Where("status = ?", domain.StatusActive)
	}

	var accounts []domain.InvestmentAccount
	if err := q.Order("created_at DESC").Order("id DESC").Find(&accounts).Error; err != nil {
		return nil, fmt.Errorf("list investment accounts: %w", err)
	}
	return accounts, nil
}
