// Package limits implements the spend-limit evaluator: per-transaction,
// daily and monthly ceilings in the card's configured denomination, plus
// the optional pin-gated high-value tier with try-counting and lockout.
package limits

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	"boltcard/internal/lightning"
	"boltcard/internal/models"
	"boltcard/internal/repositories"
)

// MaxPinTries is the number of consecutive wrong pins that locks a card.
const MaxPinTries = 2

// Service evaluates candidate spends against a card's configured ceilings.
// It is consulted twice per payment: at offer time with a zero candidate
// (aggregate ceilings only) and at callback time with the exact invoice
// amount. Both evaluations are independent because the payer chooses the
// final amount.
type Service interface {
	// Convert resolves a sat amount into both denominations, using the
	// payment engine's fiat rate as of now for fiat-denominated cards.
	Convert(ctx context.Context, card *models.Card, amountSat int64) (Amount, error)

	// Check enforces the per-transaction ceiling and the aggregates.
	Check(ctx context.Context, card *models.Card, candidate Amount) error

	// CheckAggregate enforces the daily and monthly ceilings only.
	CheckAggregate(ctx context.Context, card *models.Card, candidate Amount) error

	// CheckPin enforces the pin tier for the candidate amount, counting
	// failures and disabling the card once MaxPinTries is reached.
	CheckPin(ctx context.Context, card *models.Card, candidate Amount, pin string) error
}

type service struct {
	cards  repositories.CardRepository
	hits   repositories.HitRepository
	engine lightning.Engine
	now    func() time.Time
}

func NewService(cards repositories.CardRepository, hits repositories.HitRepository, engine lightning.Engine) Service {
	if cards == nil {
		panic("card repository is required")
	}
	if hits == nil {
		panic("hit repository is required")
	}
	return &service{
		cards:  cards,
		hits:   hits,
		engine: engine,
		now:    time.Now,
	}
}

func (s *service) Convert(ctx context.Context, card *models.Card, amountSat int64) (Amount, error) {
	amount := Amount{Sats: amountSat}
	if card.LimitType != models.LimitTypeFiat {
		return amount, nil
	}

	fiat, err := s.engine.FiatEquivalent(ctx, card.WalletID, amountSat)
	if err != nil {
		return Amount{}, fmt.Errorf("fiat conversion: %w", err)
	}
	amount.Fiat = fiat
	return amount, nil
}

func (s *service) Check(ctx context.Context, card *models.Card, candidate Amount) error {
	if card.TxLimit > 0 && candidate.In(card.LimitType) > float64(card.TxLimit) {
		return ErrTxLimitExceeded
	}
	return s.CheckAggregate(ctx, card, candidate)
}

// CheckAggregate enforces the daily and monthly ceilings. A ceiling of
// zero is not configured and passes everything.
func (s *service) CheckAggregate(ctx context.Context, card *models.Card, candidate Amount) error {
	now := s.now()

	if card.DailyLimit > 0 {
		daily, err := s.hits.DailyTotals(ctx, card.ID, now)
		if err != nil {
			return err
		}
		if s.total(card, daily, candidate) > float64(card.DailyLimit) {
			return ErrDailyLimitExceeded
		}
	}

	if card.MonthlyLimit > 0 {
		monthly, err := s.hits.MonthlyTotals(ctx, card.ID, now)
		if err != nil {
			return err
		}
		if s.total(card, monthly, candidate) > float64(card.MonthlyLimit) {
			return ErrMonthlyLimitExceeded
		}
	}
	return nil
}

func (s *service) total(card *models.Card, prior repositories.SpendTotals, candidate Amount) float64 {
	if card.LimitType == models.LimitTypeFiat {
		return prior.Fiat + candidate.Fiat
	}
	return float64(prior.Sats) + float64(candidate.Sats)
}

func (s *service) CheckPin(ctx context.Context, card *models.Card, candidate Amount, pin string) error {
	if !card.PinEnabled || candidate.In(card.LimitType) < float64(card.PinLimit) {
		return nil
	}
	if pin == "" {
		return ErrPinRequired
	}

	if subtle.ConstantTimeCompare([]byte(pin), []byte(card.Pin)) != 1 {
		tries := card.PinTries + 1
		if tries >= MaxPinTries {
			if err := s.cards.SetEnabled(ctx, card.ID, false); err != nil {
				return err
			}
			return ErrCardLocked
		}
		if err := s.cards.SetPinTries(ctx, card.ID, tries); err != nil {
			return err
		}
		return &PinError{TriesLeft: MaxPinTries - tries}
	}

	if card.PinTries != 0 {
		if err := s.cards.SetPinTries(ctx, card.ID, 0); err != nil {
			return err
		}
	}
	return nil
}
