package withdraw

import (
	"context"
	"errors"
	"testing"

	"boltcard/internal/lightning"
	"boltcard/internal/mocks"
	"boltcard/internal/models"
	"boltcard/internal/repositories"
	"boltcard/internal/services/limits"
	"boltcard/internal/services/tap"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const hitID = "0b6a52bc-9f1a-4a4f-8f36-1f8a9b3f0c11"

type fixture struct {
	cards   *mocks.CardRepository
	hits    *mocks.HitRepository
	limiter *mocks.LimitService
	engine  *mocks.Engine
	svc     *service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		cards:   new(mocks.CardRepository),
		hits:    new(mocks.HitRepository),
		limiter: new(mocks.LimitService),
		engine:  new(mocks.Engine),
	}
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	f.svc = NewService(f.cards, f.hits, f.limiter, f.engine, log).(*service)
	f.svc.decode = func(string) (int64, error) { return 5_000_000, nil } // 5000 sat
	return f
}

func testCard() *models.Card {
	return &models.Card{
		ID:         3,
		WalletID:   "w1",
		ExternalID: "card-ext",
		TxLimit:    10_000,
		LimitType:  models.LimitTypeSats,
		Enabled:    true,
	}
}

func testHit() *models.Hit {
	return &models.Hit{
		ID:         11,
		ExternalID: hitID,
		CardID:     3,
		OldCounter: 4,
		NewCounter: 5,
	}
}

func TestCreateOffer(t *testing.T) {
	t.Run("mints a single-use hit", func(t *testing.T) {
		f := newFixture(t)
		card := testCard()
		f.limiter.On("CheckAggregate", mock.Anything, card, limits.Zero).Return(nil)
		f.hits.On("Create", mock.Anything, mock.MatchedBy(func(h *models.Hit) bool {
			return h.CardID == card.ID && h.ExternalID != "" && h.OldCounter == 4 && h.NewCounter == 5
		})).Return(nil)

		offer, err := f.svc.CreateOffer(context.Background(), &tap.Result{
			Card:       card,
			OldCounter: 4,
			NewCounter: 5,
		}, "10.0.0.1", "wallet/1.0")

		require.NoError(t, err)
		assert.Equal(t, int64(10_000_000), offer.MaxWithdrawableMsat())
		f.hits.AssertExpectations(t)
	})

	t.Run("aggregate ceiling blocks the offer", func(t *testing.T) {
		f := newFixture(t)
		card := testCard()
		f.limiter.On("CheckAggregate", mock.Anything, card, limits.Zero).Return(limits.ErrDailyLimitExceeded)

		_, err := f.svc.CreateOffer(context.Background(), &tap.Result{Card: card}, "", "")
		assert.ErrorIs(t, err, limits.ErrDailyLimitExceeded)
		f.hits.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestClaim(t *testing.T) {
	amount := limits.Amount{Sats: 5000}

	t.Run("happy path pays exactly once", func(t *testing.T) {
		f := newFixture(t)
		card := testCard()
		f.hits.On("GetByExternalID", mock.Anything, hitID).Return(testHit(), nil)
		f.cards.On("GetByID", mock.Anything, card.ID).Return(card, nil)
		f.limiter.On("Convert", mock.Anything, card, int64(5000)).Return(amount, nil)
		f.limiter.On("Check", mock.Anything, card, amount).Return(nil)
		f.limiter.On("CheckPin", mock.Anything, card, amount, "").Return(nil)
		f.hits.On("Spend", mock.Anything, uint(11), int64(5000), 0.0).Return(nil)
		f.engine.On("PayInvoice", mock.Anything, "w1", "lnbc...", int64(10_000), mock.Anything).
			Return("pay-1", nil).Once()
		f.hits.On("LinkPayment", mock.Anything, uint(11), "pay-1").Return(nil)

		err := f.svc.Claim(context.Background(), ClaimRequest{
			HitExternalID:  hitID,
			K1:             hitID,
			PaymentRequest: "lnbc...",
		})

		require.NoError(t, err)
		f.engine.AssertExpectations(t)
		f.hits.AssertExpectations(t)
	})

	t.Run("missing k1", func(t *testing.T) {
		f := newFixture(t)
		err := f.svc.Claim(context.Background(), ClaimRequest{HitExternalID: hitID})
		assert.ErrorIs(t, err, ErrMissingK1)
	})

	t.Run("k1 mismatch", func(t *testing.T) {
		f := newFixture(t)
		err := f.svc.Claim(context.Background(), ClaimRequest{HitExternalID: hitID, K1: "other"})
		assert.ErrorIs(t, err, ErrK1Mismatch)
	})

	t.Run("already spent hit", func(t *testing.T) {
		f := newFixture(t)
		hit := testHit()
		hit.Spent = true
		f.hits.On("GetByExternalID", mock.Anything, hitID).Return(hit, nil)

		err := f.svc.Claim(context.Background(), ClaimRequest{
			HitExternalID:  hitID,
			K1:             hitID,
			PaymentRequest: "lnbc...",
		})
		assert.ErrorIs(t, err, ErrAlreadyClaimed)
	})

	t.Run("limit rejection stops before the spend claim", func(t *testing.T) {
		f := newFixture(t)
		card := testCard()
		f.hits.On("GetByExternalID", mock.Anything, hitID).Return(testHit(), nil)
		f.cards.On("GetByID", mock.Anything, card.ID).Return(card, nil)
		f.limiter.On("Convert", mock.Anything, card, int64(5000)).Return(amount, nil)
		f.limiter.On("Check", mock.Anything, card, amount).Return(limits.ErrTxLimitExceeded)

		err := f.svc.Claim(context.Background(), ClaimRequest{
			HitExternalID:  hitID,
			K1:             hitID,
			PaymentRequest: "lnbc...",
		})

		assert.ErrorIs(t, err, limits.ErrTxLimitExceeded)
		f.hits.AssertNotCalled(t, "Spend", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		f.engine.AssertNotCalled(t, "PayInvoice", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("race loser never triggers a payment", func(t *testing.T) {
		f := newFixture(t)
		card := testCard()
		f.hits.On("GetByExternalID", mock.Anything, hitID).Return(testHit(), nil)
		f.cards.On("GetByID", mock.Anything, card.ID).Return(card, nil)
		f.limiter.On("Convert", mock.Anything, card, int64(5000)).Return(amount, nil)
		f.limiter.On("Check", mock.Anything, card, amount).Return(nil)
		f.limiter.On("CheckPin", mock.Anything, card, amount, "").Return(nil)
		f.hits.On("Spend", mock.Anything, uint(11), int64(5000), 0.0).Return(repositories.ErrHitSpent)

		err := f.svc.Claim(context.Background(), ClaimRequest{
			HitExternalID:  hitID,
			K1:             hitID,
			PaymentRequest: "lnbc...",
		})

		assert.ErrorIs(t, err, ErrAlreadyClaimed)
		f.engine.AssertNotCalled(t, "PayInvoice", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("engine failure leaves the hit spent", func(t *testing.T) {
		f := newFixture(t)
		card := testCard()
		f.hits.On("GetByExternalID", mock.Anything, hitID).Return(testHit(), nil)
		f.cards.On("GetByID", mock.Anything, card.ID).Return(card, nil)
		f.limiter.On("Convert", mock.Anything, card, int64(5000)).Return(amount, nil)
		f.limiter.On("Check", mock.Anything, card, amount).Return(nil)
		f.limiter.On("CheckPin", mock.Anything, card, amount, "").Return(nil)
		f.hits.On("Spend", mock.Anything, uint(11), int64(5000), 0.0).Return(nil)
		f.engine.On("PayInvoice", mock.Anything, "w1", "lnbc...", int64(10_000), mock.Anything).
			Return("", errors.New("route not found"))

		err := f.svc.Claim(context.Background(), ClaimRequest{
			HitExternalID:  hitID,
			K1:             hitID,
			PaymentRequest: "lnbc...",
		})

		assert.ErrorIs(t, err, ErrPaymentFailed)
		// No compensating write: the spent flag is not reversed.
		f.hits.AssertNotCalled(t, "LinkPayment", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("invoice without amount", func(t *testing.T) {
		f := newFixture(t)
		f.hits.On("GetByExternalID", mock.Anything, hitID).Return(testHit(), nil)
		f.svc.decode = func(string) (int64, error) { return 0, lightning.ErrNoAmount }

		err := f.svc.Claim(context.Background(), ClaimRequest{
			HitExternalID:  hitID,
			K1:             hitID,
			PaymentRequest: "lnbc...",
		})
		assert.ErrorIs(t, err, lightning.ErrNoAmount)
	})
}

func TestRefundOffer(t *testing.T) {
	t.Run("disabled card refuses the pay leg", func(t *testing.T) {
		f := newFixture(t)
		card := testCard()
		card.Enabled = false
		f.hits.On("GetByExternalID", mock.Anything, hitID).Return(testHit(), nil)
		f.cards.On("GetByID", mock.Anything, card.ID).Return(card, nil)

		_, err := f.svc.RefundOffer(context.Background(), hitID)
		assert.ErrorIs(t, err, ErrCardDisabled)
	})

	t.Run("unknown hit", func(t *testing.T) {
		f := newFixture(t)
		f.hits.On("GetByExternalID", mock.Anything, hitID).Return(nil, repositories.ErrHitNotFound)

		_, err := f.svc.RefundOffer(context.Background(), hitID)
		assert.ErrorIs(t, err, ErrHitNotFound)
	})
}

func TestRefundInvoice(t *testing.T) {
	setup := func(f *fixture) {
		f.hits.On("GetByExternalID", mock.Anything, hitID).Return(testHit(), nil)
		f.cards.On("GetByID", mock.Anything, uint(3)).Return(testCard(), nil)
	}

	t.Run("bounds", func(t *testing.T) {
		tests := []struct {
			name       string
			amountMsat int64
			wantErr    error
		}{
			{"zero amount", 0, ErrMissingAmount},
			{"below one sat", 999, ErrAmountTooLow},
			{"above tx limit", 10_000_001, ErrAmountTooHigh},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				f := newFixture(t)
				setup(f)
				_, err := f.svc.RefundInvoice(context.Background(), hitID, tt.amountMsat)
				assert.ErrorIs(t, err, tt.wantErr)
				f.engine.AssertNotCalled(t, "CreateInvoice",
					mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			})
		}
	})

	t.Run("mints a refund-tagged invoice", func(t *testing.T) {
		f := newFixture(t)
		setup(f)
		f.engine.On("CreateInvoice", mock.Anything, "w1", int64(2500), mock.Anything, mock.Anything,
			map[string]any{"refund": hitID}).
			Return(lightning.Invoice{Bolt11: "lnbc-refund"}, nil)

		bolt11, err := f.svc.RefundInvoice(context.Background(), hitID, 2_500_000)
		require.NoError(t, err)
		assert.Equal(t, "lnbc-refund", bolt11)
		f.engine.AssertExpectations(t)
	})
}
