package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/xxz807/betikbank/internal/ledger/domain"
)

type AccountRepo struct{}

func NewAccountRepo() *AccountRepo {
	return &AccountRepo{}
}

func (r *AccountRepo) Create(ctx context.Context, db *gorm.DB, account *domain.Account) error {
	if account.Version == 0 {
		account.Version = 1
	}
	if err := db.WithContext(ctx).Create(account).Error; err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

func (r *AccountRepo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Account, error) {
	var account domain.Account
	if err := db.WithContext(ctx).First(&account, id).Error; err != nil {
		return nil, notFound(err, domain.ErrAccountNotFound)
	}
	return &account, nil
}

func (r *AccountRepo) FindByNumber(ctx context.Context, db *gorm.DB, number string) (*domain.Account, error) {
	var account domain.Account
	// 注意：这里不做 Select For Update，并发由 version 乐观锁保证
	if err := db.WithContext(ctx).Where("account_number = ?", number).First(&account).Error; err != nil {
		return nil, notFound(err, domain.ErrAccountNotFound)
	}
	return &account, nil
}

func (r *AccountRepo) FirstByKind(ctx context.Context, db *gorm.DB, identityID int64, kind domain.AccountKind) (*domain.Account, error) {
	var account domain.Account
	err := db.WithContext(ctx).
		Where("identity_id = ? AND kind = ?", identityID, kind).
		Order("id ASC").
		First(&account).Error
	if err != nil {
		return nil, notFound(err, domain.ErrNoCheckingAccount)
	}
	return &account, nil
}

func (r *AccountRepo) ListByIdentity(ctx context.Context, db *gorm.DB, identityID int64) ([]domain.Account, error) {
	var accounts []domain.Account
	err := db.WithContext(ctx).Where("identity_id = ?", identityID).Order("id ASC").Find(&accounts).Error
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return accounts, nil
}

func (r *AccountRepo) ExistsByNumber(ctx context.Context, db *gorm.DB, number string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Model(&domain.Account{}).Where("account_number = ?", number).Count(&count).Error
	return count > 0, err
}

// UpdateBalance 实现乐观锁更新
// SQL: UPDATE accounts SET balance = ?, version = version + 1 WHERE id = ? AND version = ?
func (r *AccountRepo) UpdateBalance(ctx context.Context, db *gorm.DB, id int64, balance decimal.Decimal, version int64) error {
	// 注意：必须使用传入的 tx (事务会话)
	result := db.WithContext(ctx).Model(&domain.Account{}).
		Where("id = ? AND version = ?", id, version).
		Updates(map[string]interface{}{
			"balance": balance,
			"version": gorm.Expr("version + 1"),
		})

	if result.Error != nil {
		return fmt.Errorf("update balance of account %d: %w", id, result.Error)
	}

	// 关键点：如果没有行被更新，说明 version 不匹配（被别人改过了）
	if result.RowsAffected == 0 {
		return domain.ErrStaleVersion
	}

	return nil
}

// notFound 把 gorm.ErrRecordNotFound 翻译为领域错误
func notFound(err error, domainErr error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domainErr
	}
	return err
}
