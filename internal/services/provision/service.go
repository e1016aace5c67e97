// Package provision implements the device-bootstrap handshake: a card's
// one-time token is redeemed for its key material and immediately rotated,
// so each token works exactly once.
package provision

import (
	"context"
	"errors"

	"boltcard/internal/models"
	"boltcard/internal/repositories"
	"boltcard/internal/utils"
)

// ZeroToken is the hardcoded all-zero token that returns a fixed diagnostic
// key triple for device self-test, unrelated to any card.
const ZeroToken = models.ZeroKey

var ErrUnknownToken = errors.New("card does not exist")

// DiagnosticKeys is the fixed triple served for ZeroToken.
type DiagnosticKeys struct {
	K0, K1, K2 string
}

func Diagnostic() DiagnosticKeys {
	return DiagnosticKeys{
		K0: "00000000000000000000000000000000",
		K1: "11111111111111111111111111111111",
		K2: "22222222222222222222222222222222",
	}
}

type Service interface {
	// Redeem exchanges a current OTP for its card, rotating the OTP.
	Redeem(ctx context.Context, otp string) (*models.Card, error)

	// RedeemByUID is the setup variant addressed by tag hardware id; it
	// also rotates the card's OTP.
	RedeemByUID(ctx context.Context, uid string) (*models.Card, error)
}

type service struct {
	cards repositories.CardRepository
}

func NewService(cards repositories.CardRepository) Service {
	if cards == nil {
		panic("card repository is required")
	}
	return &service{cards: cards}
}

func (s *service) Redeem(ctx context.Context, otp string) (*models.Card, error) {
	card, err := s.cards.GetByOTP(ctx, otp)
	if err != nil {
		if errors.Is(err, repositories.ErrCardNotFound) {
			return nil, ErrUnknownToken
		}
		return nil, err
	}
	return s.rotate(ctx, card)
}

func (s *service) RedeemByUID(ctx context.Context, uid string) (*models.Card, error) {
	card, err := s.cards.GetByUID(ctx, uid)
	if err != nil {
		if errors.Is(err, repositories.ErrCardNotFound) {
			return nil, ErrUnknownToken
		}
		return nil, err
	}
	return s.rotate(ctx, card)
}

func (s *service) rotate(ctx context.Context, card *models.Card) (*models.Card, error) {
	otp, err := utils.RandomHex(16)
	if err != nil {
		return nil, err
	}
	if err := s.cards.RotateOTP(ctx, card.ID, otp); err != nil {
		return nil, err
	}
	card.OTP = otp
	return card, nil
}
