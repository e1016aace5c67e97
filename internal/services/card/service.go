// Package card implements the card registry's administrative surface:
// create, list, update, enable/disable, and cascading delete, plus the
// wallet-scoped hit and refund listings backing the dashboard API.
package card

import (
	"context"
	"encoding/hex"
	"errors"
	"strings"

	"boltcard/internal/models"
	"boltcard/internal/repositories"
	"boltcard/internal/utils"

	"github.com/google/uuid"
)

type Service interface {
	List(ctx context.Context, walletIDs []string) ([]models.Card, error)
	Get(ctx context.Context, id uint) (*models.Card, error)
	Create(ctx context.Context, walletID string, in Input) (*models.Card, error)
	Update(ctx context.Context, id uint, in Input) (*models.Card, error)
	SetEnabled(ctx context.Context, id uint, enabled bool) (*models.Card, error)
	Delete(ctx context.Context, id uint) error

	Hits(ctx context.Context, walletIDs []string) ([]models.Hit, error)
	Refunds(ctx context.Context, walletIDs []string) ([]models.Refund, error)
}

type service struct {
	cards   repositories.CardRepository
	hits    repositories.HitRepository
	refunds repositories.RefundRepository
}

func NewService(
	cards repositories.CardRepository,
	hits repositories.HitRepository,
	refunds repositories.RefundRepository,
) Service {
	if cards == nil || hits == nil || refunds == nil {
		panic("repositories are required")
	}
	return &service{
		cards:   cards,
		hits:    hits,
		refunds: refunds,
	}
}

func normalizeUID(uid string) string {
	return strings.ToUpper(strings.TrimSpace(uid))
}

// validate checks the hex material: a 7-byte UID and 16-byte keys.
func validate(in Input) error {
	raw, err := hex.DecodeString(in.UID)
	if err != nil || len(raw) != 7 {
		return ErrInvalidUID
	}
	for _, k := range []string{in.K0, in.K1, in.K2, in.PrevK0, in.PrevK1, in.PrevK2} {
		if k == "" {
			continue
		}
		raw, err := hex.DecodeString(k)
		if err != nil || len(raw) != 16 {
			return ErrInvalidKey
		}
	}
	return nil
}

func (s *service) List(ctx context.Context, walletIDs []string) ([]models.Card, error) {
	return s.cards.ListByWallets(ctx, walletIDs)
}

func (s *service) Get(ctx context.Context, id uint) (*models.Card, error) {
	card, err := s.cards.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrCardNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return card, nil
}

func (s *service) Create(ctx context.Context, walletID string, in Input) (*models.Card, error) {
	if err := validate(in); err != nil {
		return nil, err
	}

	if existing, err := s.cards.GetByUID(ctx, normalizeUID(in.UID)); err == nil && existing != nil {
		return nil, ErrDuplicateUID
	}

	otp, err := utils.RandomHex(16)
	if err != nil {
		return nil, err
	}

	card := &models.Card{
		WalletID:   walletID,
		ExternalID: uuid.NewString(),
		OTP:        otp,
	}
	in.apply(card)

	if err := s.cards.Create(ctx, card); err != nil {
		if errors.Is(err, repositories.ErrDuplicateCard) {
			return nil, ErrDuplicateUID
		}
		return nil, err
	}
	return card, nil
}

func (s *service) Update(ctx context.Context, id uint, in Input) (*models.Card, error) {
	if err := validate(in); err != nil {
		return nil, err
	}

	card, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if existing, err := s.cards.GetByUID(ctx, normalizeUID(in.UID)); err == nil && existing.ID != card.ID {
		return nil, ErrDuplicateUID
	}

	in.apply(card)
	if err := s.cards.Update(ctx, card); err != nil {
		return nil, err
	}
	return card, nil
}

func (s *service) SetEnabled(ctx context.Context, id uint, enabled bool) (*models.Card, error) {
	if err := s.cards.SetEnabled(ctx, id, enabled); err != nil {
		if errors.Is(err, repositories.ErrCardNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *service) Delete(ctx context.Context, id uint) error {
	if err := s.cards.DeleteCascading(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrCardNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (s *service) Hits(ctx context.Context, walletIDs []string) ([]models.Hit, error) {
	cards, err := s.cards.ListByWallets(ctx, walletIDs)
	if err != nil {
		return nil, err
	}
	return s.hits.ListByCards(ctx, cardIDs(cards))
}

func (s *service) Refunds(ctx context.Context, walletIDs []string) ([]models.Refund, error) {
	hits, err := s.Hits(ctx, walletIDs)
	if err != nil {
		return nil, err
	}
	hitIDs := make([]uint, 0, len(hits))
	for _, h := range hits {
		hitIDs = append(hitIDs, h.ID)
	}
	return s.refunds.ListByHits(ctx, hitIDs)
}

func cardIDs(cards []models.Card) []uint {
	ids := make([]uint, 0, len(cards))
	for _, c := range cards {
		ids = append(ids, c.ID)
	}
	return ids
}
