package repo

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/xxz807/betikbank/internal/ledger/domain"
)

type TransactionRepo struct{}

func NewTransactionRepo() *TransactionRepo {
	return &TransactionRepo{}
}

func (r *TransactionRepo) Create(ctx context.Context, db *gorm.DB, t *domain.Transaction) error {
	if err := db.WithContext(ctx).Create(t).Error; err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}
	return nil
}

func (r *TransactionRepo) ListByAccounts(ctx context.Context, db *gorm.DB, accountIDs []int64, limit int) ([]domain.Transaction, error) {
	if len(accountIDs) == 0 {
		return nil, nil
	}

	q := db.WithContext(ctx).
		Where("source_account_id IN ? OR destination_account_id IN ?", accountIDs, accountIDs).
		Order("posted_at DESC").
		Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var txs []domain.Transaction
	if err := q.Find(&txs).Error; err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}
