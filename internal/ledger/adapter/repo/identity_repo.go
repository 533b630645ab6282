package repo

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/xxz807/betikbank/internal/ledger/domain"
)

type IdentityRepo struct{}

func NewIdentityRepo() *IdentityRepo {
	return &IdentityRepo{}
}

func (r *IdentityRepo) Create(ctx context.Context, db *gorm.DB, identity *domain.Identity) error {
	if err := db.WithContext(ctx).Create(identity).Error; err != nil {
		return fmt.Errorf("create identity: %w", err)
	}
	return nil
}

func (r *IdentityRepo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Identity, error) {
	var identity domain.Identity
	if err := db.WithContext(ctx).First(&identity, id).Error; err != nil {
		return nil, notFound(err, domain.ErrIdentityNotFound)
	}
	return &identity, nil
}

func (r *IdentityRepo) FindByNationalID(ctx context.Context, db *gorm.DB, nationalID string) (*domain.Identity, error) {
	var identity domain.Identity
	if err := db.WithContext(ctx).Where("national_id = ?", nationalID).First(&identity).Error; err != nil {
		return nil, notFound(err, domain.ErrIdentityNotFound)
	}
	return &identity, nil
}

func (r *IdentityRepo) ExistsByNationalID(ctx context.Context, db *gorm.DB, nationalID string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Model(&domain.Identity{}).Where("national_id = ?", nationalID).Count(&count).Error
	return count > 0, err
}

func (r *IdentityRepo) ExistsByEmail(ctx context.Context, db *gorm.DB, email string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Model(&domain.Identity{}).Where("email = ?", email).Count(&count).Error
	return count > 0, err
}

func (r *IdentityRepo) ListIDs(ctx context.Context, db *gorm.DB) ([]int64, error) {
	var ids []int64
	if err := db.WithContext(ctx).Model(&domain.Identity{}).Order("id ASC").Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}
	return ids, nil
}
