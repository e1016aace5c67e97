// Package tap implements the tap verification state machine: payload
// decryption, UID and MAC validation, and the anti-replay counter claim.
package tap

import (
	"context"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"boltcard/internal/models"
	"boltcard/internal/repositories"
	"boltcard/internal/sun"
)

// Request is one raw tap as presented by the card firmware. Payload and Tag
// arrive as hex; some wallets lowercase everything, so both are normalized
// before use.
type Request struct {
	ExternalCardID string
	Payload        string // p parameter, encrypted PICC data
	Tag            string // c parameter, truncated CMAC
}

// Result is an accepted tap. Card carries the already-advanced counter.
type Result struct {
	Card       *models.Card
	OldCounter uint32
	NewCounter uint32
}

type Service interface {
	Verify(ctx context.Context, req Request) (*Result, error)
}

type service struct {
	cards repositories.CardRepository
	now   func() time.Time
}

func NewService(cards repositories.CardRepository) Service {
	if cards == nil {
		panic("card repository is required")
	}
	return &service{
		cards: cards,
		now:   time.Now,
	}
}

func (s *service) Verify(ctx context.Context, req Request) (*Result, error) {
	payloadHex := strings.ToUpper(req.Payload)
	tagHex := strings.ToUpper(req.Tag)

	card, err := s.cards.GetByExternalID(ctx, req.ExternalCardID)
	if err != nil {
		if errors.Is(err, repositories.ErrCardNotFound) {
			return nil, ErrCardNotFound
		}
		return nil, err
	}

	if !card.Enabled {
		return nil, ErrCardDisabled
	}
	if card.Expired(s.now()) {
		return nil, ErrCardExpired
	}

	// Decode failures never surface details: the payload is attacker
	// controlled and the error reaches the caller verbatim.
	payload, err := hex.DecodeString(payloadHex)
	if err != nil {
		return nil, ErrDecrypt
	}
	k1, err := hex.DecodeString(card.K1)
	if err != nil {
		return nil, ErrDecrypt
	}
	uid, counter, err := sun.Decrypt(payload, k1)
	if err != nil {
		return nil, ErrDecrypt
	}

	if !strings.EqualFold(card.UID, hex.EncodeToString(uid)) {
		return nil, ErrUIDMismatch
	}

	k2, err := hex.DecodeString(card.K2)
	if err != nil {
		return nil, ErrDecrypt
	}
	mac, err := sun.Tag(uid, counter, k2)
	if err != nil {
		return nil, ErrDecrypt
	}
	if tagHex != strings.ToUpper(hex.EncodeToString(mac)) {
		return nil, ErrMACMismatch
	}

	newCounter := sun.CounterValue(counter)
	if newCounter <= card.Counter {
		return nil, ErrReplay
	}

	// The single-row claim below is the serialization point: of any racing
	// requests carrying this counter, exactly one advances it. The counter
	// is persisted before any further work proceeds.
	if err := s.cards.AdvanceCounter(ctx, card.ID, newCounter); err != nil {
		if errors.Is(err, repositories.ErrCounterStale) {
			return nil, ErrReplay
		}
		return nil, err
	}

	oldCounter := card.Counter
	card.Counter = newCounter
	return &Result{
		Card:       card,
		OldCounter: oldCounter,
		NewCounter: newCounter,
	}, nil
}
