// Package lightning defines the interface this service needs from the
// payment execution engine, plus an LNbits-backed implementation.
package lightning

import (
	"context"
	"errors"
)

var (
	ErrInvalidInvoice = errors.New("lightning: invalid payment request")
	ErrNoAmount       = errors.New("lightning: invoice has no amount")
	ErrPaymentFailed  = errors.New("lightning: payment failed")
)

// Invoice is a freshly created incoming payment request.
type Invoice struct {
	PaymentHash string
	Bolt11      string
}

// Payment is one settled payment delivered on the settlement stream.
type Payment struct {
	ID        string
	AmountSat int64
	Extra     map[string]any
	// Processed is true when a consumer already acknowledged this payment.
	Processed bool
}

// RefundMarker returns the refund-correlation hit id carried in the
// payment's extra data, or "" when the payment is not refund-tagged.
func (p Payment) RefundMarker() string {
	v, ok := p.Extra["refund"].(string)
	if !ok {
		return ""
	}
	return v
}

// Engine is the external payment execution engine. Implementations must
// treat PayInvoice as atomic: it either returns a payment id or an error,
// never a partial state the caller has to reconcile.
type Engine interface {
	CreateInvoice(ctx context.Context, walletID string, amountSat int64, memo, unhashedDescription string, extra map[string]any) (Invoice, error)
	PayInvoice(ctx context.Context, walletID, bolt11 string, maxSat int64, extra map[string]any) (paymentID string, err error)
	WalletBalance(ctx context.Context, walletID string) (int64, error)
	FiatEquivalent(ctx context.Context, walletID string, amountSat int64) (float64, error)

	// SubscribeSettlements delivers one Payment per settlement until ctx is
	// cancelled. Redelivery is allowed; consumers must be idempotent.
	SubscribeSettlements(ctx context.Context, consumerTag string) (<-chan Payment, error)

	// MarkSettlementProcessed acknowledges a settlement so redeliveries
	// arrive with Processed set.
	MarkSettlementProcessed(ctx context.Context, paymentID string) error
}
