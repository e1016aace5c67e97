package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"boltcard/internal/models"

	"gorm.io/gorm"
)

type hitRepository struct {
	db *gorm.DB
}

func NewHitRepository(db *gorm.DB) HitRepository {
	return &hitRepository{db: db}
}

func (r *hitRepository) Create(ctx context.Context, hit *models.Hit) error {
	if err := r.db.WithContext(ctx).Create(hit).Error; err != nil {
		return fmt.Errorf("failed to create hit: %w", err)
	}
	return nil
}

func (r *hitRepository) GetByExternalID(ctx context.Context, externalID string) (*models.Hit, error) {
	var hit models.Hit
	if err := r.db.WithContext(ctx).Where("external_id = ?", externalID).First(&hit).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrHitNotFound
		}
		return nil, fmt.Errorf("failed to get hit: %w", err)
	}
	return &hit, nil
}

func (r *hitRepository) ListByCards(ctx context.Context, cardIDs []uint) ([]models.Hit, error) {
	if len(cardIDs) == 0 {
		return nil, nil
	}
	var hits []models.Hit
	if err := r.db.WithContext(ctx).Where("card_id IN ?", cardIDs).Order("created_at DESC").Find(&hits).Error; err != nil {
		return nil, fmt.Errorf("failed to list hits: %w", err)
	}
	return hits, nil
}

func (r *hitRepository) Spend(ctx context.Context, id uint, amountSat int64, amountFiat float64) error {
	result := r.db.WithContext(ctx).
		Model(&models.Hit{}).
		Where("id = ? AND spent = ?", id, false).
		Updates(map[string]interface{}{
			"spent":       true,
			"amount":      amountSat,
			"amount_fiat": amountFiat,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to spend hit: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrHitSpent
	}
	return nil
}

func (r *hitRepository) LinkPayment(ctx context.Context, id uint, paymentID string) error {
	result := r.db.WithContext(ctx).
		Model(&models.Hit{}).
		Where("id = ?", id).
		Update("payment_id", paymentID)
	if result.Error != nil {
		return fmt.Errorf("failed to link payment: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrHitNotFound
	}
	return nil
}

func (r *hitRepository) DailyTotals(ctx context.Context, cardID uint, now time.Time) (SpendTotals, error) {
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return r.totalsSince(ctx, cardID, start, start.AddDate(0, 0, 1))
}

func (r *hitRepository) MonthlyTotals(ctx context.Context, cardID uint, now time.Time) (SpendTotals, error) {
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return r.totalsSince(ctx, cardID, start, start.AddDate(0, 1, 0))
}

func (r *hitRepository) totalsSince(ctx context.Context, cardID uint, start, end time.Time) (SpendTotals, error) {
	var totals SpendTotals
	err := r.db.WithContext(ctx).
		Model(&models.Hit{}).
		Where("card_id = ? AND spent = ? AND created_at >= ? AND created_at < ?", cardID, true, start, end).
		Select("COALESCE(SUM(amount), 0) AS sats, COALESCE(SUM(amount_fiat), 0) AS fiat").
		Scan(&totals).Error
	if err != nil {
		return SpendTotals{}, fmt.Errorf("failed to aggregate hits: %w", err)
	}
	return totals, nil
}
