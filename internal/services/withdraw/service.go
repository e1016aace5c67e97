// Package withdraw orchestrates the two-leg protocol that turns one
// verified tap into one settled payment, and the reverse pay leg used to
// refund a payer. The hit acts as a single-use capability token: its spent
// transition is claimed before any payment execution is requested, so a
// hit can be claimed exactly once even under racing callbacks.
package withdraw

import (
	"context"
	"errors"
	"fmt"

	"boltcard/internal/lightning"
	"boltcard/internal/models"
	"boltcard/internal/repositories"
	"boltcard/internal/services/limits"
	"boltcard/internal/services/tap"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type Service interface {
	// CreateOffer records a hit for a verified tap and returns the offer.
	// Only the aggregate ceilings are checked here; the final amount is
	// unknown until the callback.
	CreateOffer(ctx context.Context, result *tap.Result, clientIP, userAgent string) (*Offer, error)

	// Claim settles the offer: validates the invoice, re-evaluates every
	// limit with the exact amount, wins the spent transition, then requests
	// payment execution. A failed execution leaves the hit spent.
	Claim(ctx context.Context, req ClaimRequest) error

	// RefundOffer resolves the reverse pay leg for an accepted hit.
	RefundOffer(ctx context.Context, hitExternalID string) (*RefundOffer, error)

	// RefundInvoice creates an invoice returning funds toward a hit,
	// bounded by [1 sat, card tx limit].
	RefundInvoice(ctx context.Context, hitExternalID string, amountMsat int64) (bolt11 string, err error)
}

type service struct {
	cards   repositories.CardRepository
	hits    repositories.HitRepository
	limiter limits.Service
	engine  lightning.Engine
	log     *logrus.Entry
	decode  func(bolt11 string) (int64, error)
}

func NewService(
	cards repositories.CardRepository,
	hits repositories.HitRepository,
	limiter limits.Service,
	engine lightning.Engine,
	log *logrus.Logger,
) Service {
	if cards == nil || hits == nil {
		panic("repositories are required")
	}
	if limiter == nil {
		panic("limit evaluator is required")
	}
	if engine == nil {
		panic("payment engine is required")
	}
	return &service{
		cards:   cards,
		hits:    hits,
		limiter: limiter,
		engine:  engine,
		log:     log.WithField("component", "withdraw"),
		decode:  lightning.DecodeInvoiceAmount,
	}
}

func (s *service) CreateOffer(ctx context.Context, result *tap.Result, clientIP, userAgent string) (*Offer, error) {
	card := result.Card

	if err := s.limiter.CheckAggregate(ctx, card, limits.Zero); err != nil {
		return nil, err
	}

	hit := &models.Hit{
		ExternalID: uuid.NewString(),
		CardID:     card.ID,
		IP:         clientIP,
		UserAgent:  userAgent,
		OldCounter: result.OldCounter,
		NewCounter: result.NewCounter,
	}
	if err := s.hits.Create(ctx, hit); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"card": card.ExternalID,
		"hit":  hit.ExternalID,
		"ctr":  hit.NewCounter,
	}).Info("withdraw offer created")

	return &Offer{Card: card, Hit: hit}, nil
}

func (s *service) Claim(ctx context.Context, req ClaimRequest) error {
	if req.K1 == "" {
		return ErrMissingK1
	}
	if req.K1 != req.HitExternalID {
		return ErrK1Mismatch
	}

	hit, err := s.hits.GetByExternalID(ctx, req.HitExternalID)
	if err != nil {
		if errors.Is(err, repositories.ErrHitNotFound) {
			return ErrHitNotFound
		}
		return err
	}
	if hit.Spent {
		return ErrAlreadyClaimed
	}
	if req.PaymentRequest == "" {
		return ErrMissingPaymentRequest
	}

	msat, err := s.decode(req.PaymentRequest)
	if err != nil {
		return err
	}
	amountSat := msat / 1000

	card, err := s.cards.GetByID(ctx, hit.CardID)
	if err != nil {
		if errors.Is(err, repositories.ErrCardNotFound) {
			return ErrCardNotFound
		}
		return err
	}

	// The invoice amount is chosen by the payer, so every ceiling is
	// re-checked here regardless of what the offer-time evaluation saw.
	amount, err := s.limiter.Convert(ctx, card, amountSat)
	if err != nil {
		return err
	}
	if err := s.limiter.Check(ctx, card, amount); err != nil {
		return err
	}
	if err := s.limiter.CheckPin(ctx, card, amount, req.Pin); err != nil {
		return err
	}

	// Single-winner gate: whoever loses this claim gets ErrAlreadyClaimed
	// and no payment is requested on their behalf.
	if err := s.hits.Spend(ctx, hit.ID, amountSat, amount.Fiat); err != nil {
		if errors.Is(err, repositories.ErrHitSpent) {
			return ErrAlreadyClaimed
		}
		return err
	}

	paymentID, err := s.engine.PayInvoice(ctx, card.WalletID, req.PaymentRequest, card.TxLimit, map[string]any{
		"tag": "boltcard",
		"hit": hit.ExternalID,
	})
	if err != nil {
		// The hit stays spent: reversing it could double-pay if a slow
		// payment eventually succeeds. Recovery is the refund path.
		s.log.WithError(err).WithField("hit", hit.ExternalID).Error("forward payment failed")
		return fmt.Errorf("%w: %v", ErrPaymentFailed, err)
	}

	if err := s.hits.LinkPayment(ctx, hit.ID, paymentID); err != nil {
		s.log.WithError(err).WithField("hit", hit.ExternalID).Warn("could not link payment to hit")
	}
	return nil
}

func (s *service) RefundOffer(ctx context.Context, hitExternalID string) (*RefundOffer, error) {
	hit, err := s.hits.GetByExternalID(ctx, hitExternalID)
	if err != nil {
		if errors.Is(err, repositories.ErrHitNotFound) {
			return nil, ErrHitNotFound
		}
		return nil, err
	}

	card, err := s.cards.GetByID(ctx, hit.CardID)
	if err != nil {
		if errors.Is(err, repositories.ErrCardNotFound) {
			return nil, ErrCardNotFound
		}
		return nil, err
	}
	if !card.Enabled {
		return nil, ErrCardDisabled
	}

	return &RefundOffer{Card: card, Hit: hit}, nil
}

func (s *service) RefundInvoice(ctx context.Context, hitExternalID string, amountMsat int64) (string, error) {
	offer, err := s.RefundOffer(ctx, hitExternalID)
	if err != nil {
		return "", err
	}

	if amountMsat == 0 {
		return "", ErrMissingAmount
	}
	if amountMsat < MinWithdrawableMsat {
		return "", ErrAmountTooLow
	}
	if amountMsat > offer.Card.TxLimit*1000 {
		return "", ErrAmountTooHigh
	}

	invoice, err := s.engine.CreateInvoice(ctx,
		offer.Card.WalletID,
		amountMsat/1000,
		fmt.Sprintf("Refund %s", offer.Hit.ExternalID),
		refundMetadata(),
		map[string]any{"refund": offer.Hit.ExternalID},
	)
	if err != nil {
		return "", err
	}
	return invoice.Bolt11, nil
}

// refundMetadata is the LNURL-pay metadata served on the refund leg.
func refundMetadata() string {
	return `[["text/plain","Refund"]]`
}
