package repositories

import (
	"context"
	"fmt"

	"boltcard/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RefundRepository defines refund persistence. Create is idempotent per
// settlement: the refund's payment id carries a unique index and conflicts
// are dropped rather than erroring, so a redelivered event cannot produce a
// duplicate row.
type RefundRepository interface {
	Create(ctx context.Context, refund *models.Refund) (created bool, err error)
	ListByHits(ctx context.Context, hitIDs []uint) ([]models.Refund, error)
}

type refundRepository struct {
	db *gorm.DB
}

func NewRefundRepository(db *gorm.DB) RefundRepository {
	return &refundRepository{db: db}
}

func (r *refundRepository) Create(ctx context.Context, refund *models.Refund) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "payment_id"}},
			DoNothing: true,
		}).
		Create(refund)
	if result.Error != nil {
		return false, fmt.Errorf("failed to create refund: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *refundRepository) ListByHits(ctx context.Context, hitIDs []uint) ([]models.Refund, error) {
	if len(hitIDs) == 0 {
		return nil, nil
	}
	var refunds []models.Refund
	if err := r.db.WithContext(ctx).Where("hit_id IN ?", hitIDs).Order("created_at DESC").Find(&refunds).Error; err != nil {
		return nil, fmt.Errorf("failed to list refunds: %w", err)
	}
	return refunds, nil
}
