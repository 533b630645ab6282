package repo

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/xxz807/betikbank/internal/ledger/domain"
)

type CardRepo struct{}

func NewCardRepo() *CardRepo {
	return &CardRepo{}
}

func (r *CardRepo) Create(ctx context.Context, db *gorm.DB, card *domain.Card) error {
	if err := db.WithContext(ctx).Create(card).Error; err != nil {
		return fmt.Errorf("create card: %w", err)
	}
	return nil
}

func (r *CardRepo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Card, error) {
	var card domain.Card
	if err := db.WithContext(ctx).First(&card, id).Error; err != nil {
		return nil, notFound(err, domain.ErrCardNotFound)
	}
	return &card, nil
}

func (r *CardRepo) ExistsByNumber(ctx context.Context, db *gorm.DB, number string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Model(&domain.Card{}).Where("card_number = ?", number).Count(&count).Error
	return count > 0, err
}

func (r *CardRepo) ListByIdentity(ctx context.Context, db *gorm.DB, identityID int64, activeOnly bool) ([]domain.Card, error) {
	q := db.WithContext(ctx).Where("identity_id = ?", identityID)
	if activeOnly {
		q = q.Where("status = ?", domain.StatusActive)
	}

	var cards []domain.Card
	if err := q.Order("created_at DESC").Order("id DESC").Find(&cards).Error; err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	return cards, nil
}
