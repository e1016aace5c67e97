package repositories

import (
	"context"
	"time"

	"boltcard/internal/models"
)

// SpendTotals aggregates accepted hit amounts in both denominations; the
// limit evaluator picks the column matching the card's limit type.
type SpendTotals struct {
	Sats int64
	Fiat float64
}

// HitRepository defines hit persistence. Spend is the single-winner claim
// for the spent-flag transition.
type HitRepository interface {
	Create(ctx context.Context, hit *models.Hit) error
	GetByExternalID(ctx context.Context, externalID string) (*models.Hit, error)
	ListByCards(ctx context.Context, cardIDs []uint) ([]models.Hit, error)

	// Spend atomically transitions spent=false to spent=true, recording the
	// settled amounts. A hit can be spent exactly once; losers of a race
	// get ErrHitSpent.
	Spend(ctx context.Context, id uint, amountSat int64, amountFiat float64) error

	LinkPayment(ctx context.Context, id uint, paymentID string) error

	DailyTotals(ctx context.Context, cardID uint, now time.Time) (SpendTotals, error)
	MonthlyTotals(ctx context.Context, cardID uint, now time.Time) (SpendTotals, error)
}
