package withdraw

import "boltcard/internal/models"

// MinWithdrawableMsat is the floor of every withdraw offer: 1 sat.
const MinWithdrawableMsat = 1000

// Offer is one single-use withdraw capability minted for a verified tap.
// The hit's external id is the k1 token the callback must echo.
type Offer struct {
	Card *models.Card
	Hit  *models.Hit
}

// MaxWithdrawableMsat is the offer ceiling: the card's per-transaction
// limit, in msat.
func (o *Offer) MaxWithdrawableMsat() int64 {
	return o.Card.TxLimit * 1000
}

// ClaimRequest is the callback leg's input.
type ClaimRequest struct {
	HitExternalID  string
	K1             string
	PaymentRequest string
	Pin            string
}

// RefundOffer describes the reverse (pay) leg for an accepted hit.
type RefundOffer struct {
	Card *models.Card
	Hit  *models.Hit
}
