package lightning

import (
	decodepay "github.com/nbd-wtf/ln-decodepay"
)

// DecodeInvoiceAmount decodes a bolt11 payment request and returns its
// amount in millisats. Amountless invoices are rejected: the callback leg
// needs an exact amount to evaluate limits against.
func DecodeInvoiceAmount(bolt11 string) (int64, error) {
	inv, err := decodepay.Decodepay(bolt11)
	if err != nil {
		return 0, ErrInvalidInvoice
	}
	if inv.MSatoshi <= 0 {
		return 0, ErrNoAmount
	}
	return inv.MSatoshi, nil
}
