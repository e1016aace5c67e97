package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"boltcard/internal/mocks"
	"boltcard/internal/models"
	"boltcard/internal/services/limits"
	"boltcard/internal/services/provision"
	"boltcard/internal/services/tap"
	"boltcard/internal/services/withdraw"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockTapService struct {
	mock.Mock
}

func (m *mockTapService) Verify(ctx context.Context, req tap.Request) (*tap.Result, error) {
	args := m.Called(ctx, req)
	result, _ := args.Get(0).(*tap.Result)
	return result, args.Error(1)
}

type mockWithdrawService struct {
	mock.Mock
}

func (m *mockWithdrawService) CreateOffer(ctx context.Context, result *tap.Result, clientIP, userAgent string) (*withdraw.Offer, error) {
	args := m.Called(ctx, result, clientIP, userAgent)
	offer, _ := args.Get(0).(*withdraw.Offer)
	return offer, args.Error(1)
}

func (m *mockWithdrawService) Claim(ctx context.Context, req withdraw.ClaimRequest) error {
	return m.Called(ctx, req).Error(0)
}

func (m *mockWithdrawService) RefundOffer(ctx context.Context, hitExternalID string) (*withdraw.RefundOffer, error) {
	args := m.Called(ctx, hitExternalID)
	offer, _ := args.Get(0).(*withdraw.RefundOffer)
	return offer, args.Error(1)
}

func (m *mockWithdrawService) RefundInvoice(ctx context.Context, hitExternalID string, amountMsat int64) (string, error) {
	args := m.Called(ctx, hitExternalID, amountMsat)
	return args.String(0), args.Error(1)
}

type mockProvisionService struct {
	mock.Mock
}

func (m *mockProvisionService) Redeem(ctx context.Context, otp string) (*models.Card, error) {
	args := m.Called(ctx, otp)
	card, _ := args.Get(0).(*models.Card)
	return card, args.Error(1)
}

func (m *mockProvisionService) RedeemByUID(ctx context.Context, uid string) (*models.Card, error) {
	args := m.Called(ctx, uid)
	card, _ := args.Get(0).(*models.Card)
	return card, args.Error(1)
}

func doRequest(t *testing.T, app *fiber.App, method, target string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	return resp.StatusCode, body
}

func TestScan(t *testing.T) {
	t.Run("service errors answer HTTP 200 with a typed body", func(t *testing.T) {
		tapSvc := new(mockTapService)
		tapSvc.On("Verify", mock.Anything, mock.Anything).Return(nil, tap.ErrCardNotFound)

		h := NewLNURLHandler(tapSvc, new(mockWithdrawService), new(mocks.Engine))
		app := fiber.New()
		app.Get("/api/v1/scan/:external_id", h.Scan)

		status, body := doRequest(t, app, http.MethodGet, "/api/v1/scan/ext-1?p=AA&c=BB")
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "ERROR", body["status"])
		assert.Equal(t, "No card.", body["reason"])
	})

	t.Run("accepted tap returns a withdraw offer", func(t *testing.T) {
		card := &models.Card{ID: 1, ExternalID: "ext-1", TxLimit: 1000, Enabled: true}
		result := &tap.Result{Card: card, OldCounter: 0, NewCounter: 1}
		hit := &models.Hit{ID: 2, ExternalID: "hit-1", CardID: 1}

		tapSvc := new(mockTapService)
		tapSvc.On("Verify", mock.Anything, tap.Request{
			ExternalCardID: "ext-1",
			Payload:        "AA",
			Tag:            "BB",
		}).Return(result, nil)

		withdrawSvc := new(mockWithdrawService)
		withdrawSvc.On("CreateOffer", mock.Anything, result, mock.Anything, mock.Anything).
			Return(&withdraw.Offer{Card: card, Hit: hit}, nil)

		h := NewLNURLHandler(tapSvc, withdrawSvc, new(mocks.Engine))
		app := fiber.New()
		app.Get("/api/v1/scan/:external_id", h.Scan)

		status, body := doRequest(t, app, http.MethodGet, "/api/v1/scan/ext-1?p=AA&c=BB")
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "withdrawRequest", body["tag"])
		assert.Equal(t, "hit-1", body["k1"])
		assert.Equal(t, float64(1_000_000), body["maxWithdrawable"])
		assert.Contains(t, body["callback"], "/api/v1/lnurl/cb/hit-1")
		assert.Contains(t, body["payLink"], "lnurlp://")
	})
}

func TestCallback(t *testing.T) {
	t.Run("claim accepted", func(t *testing.T) {
		withdrawSvc := new(mockWithdrawService)
		withdrawSvc.On("Claim", mock.Anything, withdraw.ClaimRequest{
			HitExternalID:  "hit-1",
			K1:             "hit-1",
			PaymentRequest: "lnbc1",
		}).Return(nil)

		h := NewLNURLHandler(new(mockTapService), withdrawSvc, new(mocks.Engine))
		app := fiber.New()
		app.Get("/api/v1/lnurl/cb/:hit_id", h.Callback)

		status, body := doRequest(t, app, http.MethodGet, "/api/v1/lnurl/cb/hit-1?k1=hit-1&pr=lnbc1")
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "OK", body["status"])
	})

	t.Run("wrong pin carries the remaining tries", func(t *testing.T) {
		withdrawSvc := new(mockWithdrawService)
		withdrawSvc.On("Claim", mock.Anything, mock.Anything).Return(&limits.PinError{TriesLeft: 1})

		h := NewLNURLHandler(new(mockTapService), withdrawSvc, new(mocks.Engine))
		app := fiber.New()
		app.Get("/api/v1/lnurl/cb/:hit_id", h.Callback)

		status, body := doRequest(t, app, http.MethodGet, "/api/v1/lnurl/cb/hit-1?k1=hit-1&pr=lnbc1&pin=9999")
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "ERROR", body["status"])
		assert.Equal(t, "Wrong pin. 1 tries left.", body["reason"])
	})
}

func TestPayCallback(t *testing.T) {
	withdrawSvc := new(mockWithdrawService)
	withdrawSvc.On("RefundInvoice", mock.Anything, "hit-1", int64(2_500_000)).Return("lnbc-refund", nil)

	h := NewLNURLHandler(new(mockTapService), withdrawSvc, new(mocks.Engine))
	app := fiber.New()
	app.Get("/api/v1/lnurlp/cb/:hit_id", h.PayCallback)

	status, body := doRequest(t, app, http.MethodGet, "/api/v1/lnurlp/cb/hit-1?amount=2500000")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "lnbc-refund", body["pr"])

	action, ok := body["successAction"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Refunded!", action["message"])
}

func TestProvisionAuth(t *testing.T) {
	newApp := func(svc provision.Service) *fiber.App {
		h := NewProvisionHandler(svc)
		app := fiber.New()
		app.Get("/api/v1/auth", h.Auth)
		app.Post("/api/v1/auth", h.AuthPost)
		return app
	}

	t.Run("zero token serves the diagnostic triple", func(t *testing.T) {
		app := newApp(new(mockProvisionService))

		status, body := doRequest(t, app, http.MethodGet, "/api/v1/auth?a="+provision.ZeroToken)
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "00000000000000000000000000000000", body["k0"])
		assert.Equal(t, "11111111111111111111111111111111", body["k1"])
		assert.Equal(t, "22222222222222222222222222222222", body["k2"])
	})

	t.Run("unknown token is a 404", func(t *testing.T) {
		svc := new(mockProvisionService)
		svc.On("Redeem", mock.Anything, "nope").Return(nil, provision.ErrUnknownToken)

		status, _ := doRequest(t, newApp(svc), http.MethodGet, "/api/v1/auth?a=nope")
		assert.Equal(t, http.StatusNotFound, status)
	})

	t.Run("wipe responds with uppercase keys and the wipe action", func(t *testing.T) {
		card := &models.Card{
			Name:       "office card",
			ExternalID: "ext-1",
			K0:         "aa000000000000000000000000000000",
			K1:         "bb000000000000000000000000000000",
			K2:         "cc000000000000000000000000000000",
		}
		svc := new(mockProvisionService)
		svc.On("Redeem", mock.Anything, "tok").Return(card, nil)

		status, body := doRequest(t, newApp(svc), http.MethodPost, "/api/v1/auth?a=tok&wipe=true")
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "wipe", body["action"])
		assert.Equal(t, card.K0, body["K0"])
		assert.Equal(t, card.K1, body["K3"], "k3 mirrors k1 for the programming app")
		assert.Contains(t, body["LNURLW_BASE"], "LNURLW://")
	})
}
