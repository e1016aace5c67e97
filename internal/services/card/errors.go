package card

import "errors"

var (
	ErrNotFound     = errors.New("card does not exist")
	ErrDuplicateUID = errors.New("uid already registered")
	ErrInvalidUID   = errors.New("invalid bytes for card uid")
	ErrInvalidKey   = errors.New("invalid bytes for card key")
)
