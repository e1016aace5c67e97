package withdraw

import "errors"

var (
	ErrHitNotFound           = errors.New("withdraw record not found")
	ErrAlreadyClaimed        = errors.New("payment already claimed")
	ErrMissingK1             = errors.New("missing k1 token")
	ErrK1Mismatch            = errors.New("k1 token does not match")
	ErrMissingPaymentRequest = errors.New("missing payment request")
	ErrCardNotFound          = errors.New("card not found")
	ErrCardDisabled          = errors.New("card is disabled")
	ErrMissingAmount         = errors.New("missing amount")
	ErrAmountTooLow          = errors.New("amount too low")
	ErrAmountTooHigh         = errors.New("amount too high")
	ErrPaymentFailed         = errors.New("payment failed")
)
