package handlers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"boltcard/internal/lightning"
	"boltcard/internal/services/limits"
	"boltcard/internal/services/tap"
	"boltcard/internal/services/withdraw"

	"github.com/fiatjaf/go-lnurl"
	"github.com/gofiber/fiber/v2"
)

// LNURLHandler serves the card-facing protocol endpoints. Every outcome is
// HTTP 200 with a typed body: the calling hardware cannot interpret status
// codes, so errors travel as {"status":"ERROR","reason":...}.
type LNURLHandler struct {
	tapService      tap.Service
	withdrawService withdraw.Service
	engine          lightning.Engine
}

func NewLNURLHandler(tapService tap.Service, withdrawService withdraw.Service, engine lightning.Engine) *LNURLHandler {
	return &LNURLHandler{
		tapService:      tapService,
		withdrawService: withdrawService,
		engine:          engine,
	}
}

// withdrawOfferResponse extends the standard withdraw response with the
// LUD-19 payLink used as the refund address.
type withdrawOfferResponse struct {
	lnurl.LNURLWithdrawResponse
	PayLink string `json:"payLink,omitempty"`
}

type payOfferResponse struct {
	Tag         string `json:"tag"`
	Callback    string `json:"callback"`
	MinSendable int64  `json:"minSendable"`
	MaxSendable int64  `json:"maxSendable"`
	Metadata    string `json:"metadata"`
}

type payCallbackResponse struct {
	PR            string               `json:"pr"`
	Routes        []string             `json:"routes"`
	SuccessAction *lnurl.SuccessAction `json:"successAction,omitempty"`
}

// Scan handles a tap: GET /api/v1/scan/:external_id?p=..&c=..
func (h *LNURLHandler) Scan(c *fiber.Ctx) error {
	result, err := h.tapService.Verify(c.Context(), tap.Request{
		ExternalCardID: c.Params("external_id"),
		Payload:        c.Query("p"),
		Tag:            c.Query("c"),
	})
	if err != nil {
		return c.JSON(lnurl.ErrorResponse(reason(err)))
	}

	offer, err := h.withdrawService.CreateOffer(c.Context(), result, clientIP(c), c.Get("User-Agent"))
	if err != nil {
		return c.JSON(lnurl.ErrorResponse(reason(err)))
	}

	payURL := fmt.Sprintf("%s/api/v1/lnurlp/%s", c.BaseURL(), offer.Hit.ExternalID)
	payLink := strings.NewReplacer("https://", "lnurlp://", "http://", "lnurlp://").Replace(payURL)

	description := "Boltcard (refund address " + payLink + ")"
	if encoded, err := lnurl.LNURLEncode(payURL); err == nil {
		description = "Boltcard (refund address lnurl://" + encoded + ")"
	}

	return c.JSON(withdrawOfferResponse{
		LNURLWithdrawResponse: lnurl.LNURLWithdrawResponse{
			Tag:                "withdrawRequest",
			K1:                 offer.Hit.ExternalID,
			Callback:           fmt.Sprintf("%s/api/v1/lnurl/cb/%s", c.BaseURL(), offer.Hit.ExternalID),
			MinWithdrawable:    withdraw.MinWithdrawableMsat,
			MaxWithdrawable:    offer.MaxWithdrawableMsat(),
			DefaultDescription: description,
		},
		PayLink: payLink,
	})
}

// Balance is the tap-authenticated wallet balance probe. A probe consumes
// the tap counter like any other tap.
func (h *LNURLHandler) Balance(c *fiber.Ctx) error {
	result, err := h.tapService.Verify(c.Context(), tap.Request{
		ExternalCardID: c.Params("external_id"),
		Payload:        c.Query("p"),
		Tag:            c.Query("c"),
	})
	if err != nil {
		return c.JSON(lnurl.ErrorResponse(reason(err)))
	}

	balance, err := h.engine.WalletBalance(c.Context(), result.Card.WalletID)
	if err != nil {
		return c.JSON(lnurl.ErrorResponse("Could not get balance."))
	}
	return c.JSON(fiber.Map{"balance": balance})
}

// Callback settles a withdraw offer: GET /api/v1/lnurl/cb/:hit_id?k1=..&pr=..&pin=..
func (h *LNURLHandler) Callback(c *fiber.Ctx) error {
	err := h.withdrawService.Claim(c.Context(), withdraw.ClaimRequest{
		HitExternalID:  c.Params("hit_id"),
		K1:             c.Query("k1"),
		PaymentRequest: c.Query("pr"),
		Pin:            c.Query("pin"),
	})
	if err != nil {
		return c.JSON(lnurl.ErrorResponse(reason(err)))
	}
	return c.JSON(lnurl.OkResponse())
}

// PayOffer serves the refund pay-request parameters for an accepted hit.
func (h *LNURLHandler) PayOffer(c *fiber.Ctx) error {
	offer, err := h.withdrawService.RefundOffer(c.Context(), c.Params("hit_id"))
	if err != nil {
		return c.JSON(lnurl.ErrorResponse(reason(err)))
	}

	return c.JSON(payOfferResponse{
		Tag:         "payRequest",
		Callback:    fmt.Sprintf("%s/api/v1/lnurlp/cb/%s", c.BaseURL(), offer.Hit.ExternalID),
		MinSendable: withdraw.MinWithdrawableMsat,
		MaxSendable: offer.Card.TxLimit * 1000,
		Metadata:    `[["text/plain","Refund"]]`,
	})
}

// PayCallback creates the refund invoice: GET /api/v1/lnurlp/cb/:hit_id?amount=<msat>
func (h *LNURLHandler) PayCallback(c *fiber.Ctx) error {
	amountMsat, _ := strconv.ParseInt(c.Query("amount"), 10, 64)

	pr, err := h.withdrawService.RefundInvoice(c.Context(), c.Params("hit_id"), amountMsat)
	if err != nil {
		return c.JSON(lnurl.ErrorResponse(reason(err)))
	}

	return c.JSON(payCallbackResponse{
		PR:     pr,
		Routes: []string{},
		SuccessAction: &lnurl.SuccessAction{
			Tag:     "message",
			Message: "Refunded!",
		},
	})
}

func clientIP(c *fiber.Ctx) string {
	if ip := c.Get("X-Real-Ip"); ip != "" {
		return ip
	}
	if ip := c.Get("X-Forwarded-For"); ip != "" {
		return ip
	}
	return c.IP()
}

// reason maps service errors onto the wire reasons the card wallets show.
func reason(err error) string {
	var pinErr *limits.PinError
	if errors.As(err, &pinErr) {
		return fmt.Sprintf("Wrong pin. %d tries left.", pinErr.TriesLeft)
	}

	switch {
	case errors.Is(err, tap.ErrCardNotFound):
		return "No card."
	case errors.Is(err, tap.ErrCardDisabled), errors.Is(err, withdraw.ErrCardDisabled):
		return "Card is disabled."
	case errors.Is(err, tap.ErrCardExpired):
		return "Card is expired."
	case errors.Is(err, tap.ErrDecrypt):
		return "Error decrypting card."
	case errors.Is(err, tap.ErrUIDMismatch):
		return "Card UID mis-match."
	case errors.Is(err, tap.ErrMACMismatch):
		return "CMAC does not check."
	case errors.Is(err, tap.ErrReplay):
		return "This link is already used."
	case errors.Is(err, limits.ErrTxLimitExceeded):
		return "Max transaction limit exceeded."
	case errors.Is(err, limits.ErrDailyLimitExceeded):
		return "Max daily limit spent."
	case errors.Is(err, limits.ErrMonthlyLimitExceeded):
		return "Max monthly limit spent."
	case errors.Is(err, limits.ErrPinRequired):
		return "Pin required."
	case errors.Is(err, limits.ErrCardLocked):
		return "Card locked. Wrong pin entered too many times."
	case errors.Is(err, withdraw.ErrHitNotFound):
		return "Record not found for this charge."
	case errors.Is(err, withdraw.ErrAlreadyClaimed):
		return "Payment already claimed."
	case errors.Is(err, withdraw.ErrMissingK1):
		return "Missing K1 token."
	case errors.Is(err, withdraw.ErrK1Mismatch):
		return "K1 token does not match."
	case errors.Is(err, withdraw.ErrMissingPaymentRequest):
		return "Missing payment request."
	case errors.Is(err, withdraw.ErrCardNotFound):
		return "Card not found."
	case errors.Is(err, withdraw.ErrMissingAmount):
		return "Missing amount."
	case errors.Is(err, withdraw.ErrAmountTooLow):
		return "Amount too low."
	case errors.Is(err, withdraw.ErrAmountTooHigh):
		return "Amount too high."
	case errors.Is(err, lightning.ErrInvalidInvoice):
		return "Failed to decode payment request."
	case errors.Is(err, lightning.ErrNoAmount):
		return "Invoice has no amount."
	case errors.Is(err, withdraw.ErrPaymentFailed):
		return "Payment failed - " + err.Error()
	default:
		return "Unexpected error."
	}
}
