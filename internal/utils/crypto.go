package utils

import (
	"crypto/rand"
	"encoding/hex"
)

// RandomHex returns n random bytes hex-encoded (2n characters).
func RandomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// MustRandomHex is RandomHex for callers that cannot proceed without
// entropy anyway.
func MustRandomHex(n int) string {
	s, err := RandomHex(n)
	if err != nil {
		panic("failed to generate random hex: " + err.Error())
	}
	return s
}
