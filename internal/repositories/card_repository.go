package repositories

import (
	"context"
	"errors"

	"boltcard/internal/models"
)

var (
	ErrCardNotFound   = errors.New("card not found")
	ErrDuplicateCard  = errors.New("card already exists")
	ErrCounterStale   = errors.New("counter not strictly increasing")
	ErrHitNotFound    = errors.New("hit not found")
	ErrHitSpent       = errors.New("hit already spent")
	ErrRefundNotFound = errors.New("refund not found")
)

// CardRepository defines card persistence. Narrow mutators (counter, enable,
// OTP, pin tries) are single-row single-statement updates; AdvanceCounter is
// the serialization point for tap acceptance.
type CardRepository interface {
	Create(ctx context.Context, card *models.Card) error
	GetByID(ctx context.Context, id uint) (*models.Card, error)
	GetByExternalID(ctx context.Context, externalID string) (*models.Card, error)
	GetByUID(ctx context.Context, uid string) (*models.Card, error)
	GetByOTP(ctx context.Context, otp string) (*models.Card, error)
	ListByWallets(ctx context.Context, walletIDs []string) ([]models.Card, error)
	Update(ctx context.Context, card *models.Card) error

	// DeleteCascading removes the card with its hits and their refunds.
	DeleteCascading(ctx context.Context, id uint) error

	// AdvanceCounter atomically claims newCounter for the card. It returns
	// ErrCounterStale unless newCounter is strictly greater than the stored
	// counter at claim time; at most one of any set of racing claims wins.
	AdvanceCounter(ctx context.Context, id uint, newCounter uint32) error

	// SetEnabled flips the lifecycle flag. Re-enabling resets the pin
	// try-count to zero.
	SetEnabled(ctx context.Context, id uint, enabled bool) error

	RotateOTP(ctx context.Context, id uint, otp string) error
	SetPinTries(ctx context.Context, id uint, tries int) error
}
