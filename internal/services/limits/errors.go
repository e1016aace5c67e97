package limits

import (
	"errors"
	"fmt"
)

var (
	ErrTxLimitExceeded      = errors.New("transaction limit exceeded")
	ErrDailyLimitExceeded   = errors.New("max daily limit spent")
	ErrMonthlyLimitExceeded = errors.New("max monthly limit spent")
	ErrPinRequired          = errors.New("pin required")
	ErrCardLocked           = errors.New("card locked after too many wrong pins")
)

// PinError reports a wrong pin that has not yet locked the card.
type PinError struct {
	TriesLeft int
}

func (e *PinError) Error() string {
	return fmt.Sprintf("wrong pin, %d tries left", e.TriesLeft)
}
