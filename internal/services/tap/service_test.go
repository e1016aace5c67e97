package tap

import (
	"context"
	"testing"
	"time"

	"boltcard/internal/mocks"
	"boltcard/internal/models"
	"boltcard/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// Payload/tag pair for uid 01020304050607, counter 1, all-zero k1 and k2.
const (
	testExternalID = "5d1a0bca-2f9e-4a83-9b6c-67f6f5f6a001"
	testPayload    = "40F82631D4E312CCCF457D55C8CD2B1F"
	testTag        = "F9708EBC6814C248"
)

func zeroKeyCard() *models.Card {
	return &models.Card{
		ID:         7,
		ExternalID: testExternalID,
		UID:        "01020304050607",
		Counter:    0,
		Enabled:    true,
		K1:         models.ZeroKey,
		K2:         models.ZeroKey,
	}
}

func TestVerify_Accepts(t *testing.T) {
	card := zeroKeyCard()
	cards := new(mocks.CardRepository)
	cards.On("GetByExternalID", mock.Anything, testExternalID).Return(card, nil)
	cards.On("AdvanceCounter", mock.Anything, card.ID, uint32(1)).Return(nil)

	s := NewService(cards)
	result, err := s.Verify(context.Background(), Request{
		ExternalCardID: testExternalID,
		Payload:        testPayload,
		Tag:            testTag,
	})

	require.NoError(t, err)
	assert.Equal(t, uint32(0), result.OldCounter)
	assert.Equal(t, uint32(1), result.NewCounter)
	assert.Equal(t, uint32(1), result.Card.Counter)
	cards.AssertExpectations(t)
}

func TestVerify_LowercaseParamsAccepted(t *testing.T) {
	card := zeroKeyCard()
	cards := new(mocks.CardRepository)
	cards.On("GetByExternalID", mock.Anything, testExternalID).Return(card, nil)
	cards.On("AdvanceCounter", mock.Anything, card.ID, uint32(1)).Return(nil)

	s := NewService(cards)
	_, err := s.Verify(context.Background(), Request{
		ExternalCardID: testExternalID,
		Payload:        "40f82631d4e312cccf457d55c8cd2b1f",
		Tag:            "f9708ebc6814c248",
	})
	require.NoError(t, err)
}

func TestVerify_Rejections(t *testing.T) {
	expired := time.Now().Add(-time.Hour)

	tests := []struct {
		name    string
		card    *models.Card
		cardErr error
		payload string
		tag     string
		wantErr error
	}{
		{
			name:    "unknown card",
			cardErr: repositories.ErrCardNotFound,
			payload: testPayload,
			tag:     testTag,
			wantErr: ErrCardNotFound,
		},
		{
			name: "disabled card",
			card: func() *models.Card {
				c := zeroKeyCard()
				c.Enabled = false
				return c
			}(),
			payload: testPayload,
			tag:     testTag,
			wantErr: ErrCardDisabled,
		},
		{
			name: "expired card",
			card: func() *models.Card {
				c := zeroKeyCard()
				c.ExpiresAt = &expired
				return c
			}(),
			payload: testPayload,
			tag:     testTag,
			wantErr: ErrCardExpired,
		},
		{
			name:    "non-hex payload",
			card:    zeroKeyCard(),
			payload: "zz" + testPayload[2:],
			tag:     testTag,
			wantErr: ErrDecrypt,
		},
		{
			name:    "short payload",
			card:    zeroKeyCard(),
			payload: testPayload[:30],
			tag:     testTag,
			wantErr: ErrDecrypt,
		},
		{
			name: "uid mismatch",
			card: func() *models.Card {
				c := zeroKeyCard()
				c.UID = "aaaaaaaaaaaaaa"
				return c
			}(),
			payload: testPayload,
			tag:     testTag,
			wantErr: ErrUIDMismatch,
		},
		{
			name:    "tampered tag",
			card:    zeroKeyCard(),
			payload: testPayload,
			tag:     "F9708EBC6814C249",
			wantErr: ErrMACMismatch,
		},
		{
			name: "counter already used",
			card: func() *models.Card {
				c := zeroKeyCard()
				c.Counter = 1
				return c
			}(),
			payload: testPayload,
			tag:     testTag,
			wantErr: ErrReplay,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cards := new(mocks.CardRepository)
			cards.On("GetByExternalID", mock.Anything, testExternalID).Return(tt.card, tt.cardErr)

			s := NewService(cards)
			_, err := s.Verify(context.Background(), Request{
				ExternalCardID: testExternalID,
				Payload:        tt.payload,
				Tag:            tt.tag,
			})

			assert.ErrorIs(t, err, tt.wantErr)
			cards.AssertNotCalled(t, "AdvanceCounter", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

// A byte-identical resubmission races the counter claim; the loser of the
// claim reads a stale card row but still must be rejected.
func TestVerify_RaceLoserRejected(t *testing.T) {
	card := zeroKeyCard()
	cards := new(mocks.CardRepository)
	cards.On("GetByExternalID", mock.Anything, testExternalID).Return(card, nil)
	cards.On("AdvanceCounter", mock.Anything, card.ID, uint32(1)).Return(repositories.ErrCounterStale)

	s := NewService(cards)
	_, err := s.Verify(context.Background(), Request{
		ExternalCardID: testExternalID,
		Payload:        testPayload,
		Tag:            testTag,
	})
	assert.ErrorIs(t, err, ErrReplay)
}
