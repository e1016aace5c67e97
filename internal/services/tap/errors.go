package tap

import "errors"

var (
	ErrCardNotFound = errors.New("card not found")
	ErrCardDisabled = errors.New("card is disabled")
	ErrCardExpired  = errors.New("card is expired")
	ErrDecrypt      = errors.New("error decrypting card")
	ErrUIDMismatch  = errors.New("card uid mismatch")
	ErrMACMismatch  = errors.New("cmac does not check")
	ErrReplay       = errors.New("tap counter already used")
)
