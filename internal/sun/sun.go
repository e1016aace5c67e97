// Package sun implements the NXP DNA 424 SUN (Secure Unique NFC) message
// codec per application note AN12196: AES-CBC decryption of the tap payload
// and the two-stage CMAC tag derivation used to authenticate it.
package sun

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/aead/cmac"
)

const (
	// PayloadSize is the size of the encrypted PICC data blob.
	PayloadSize = 16
	// KeySize is the AES-128 key size used throughout.
	KeySize = 16
	// UIDSize is the tag hardware id size.
	UIDSize = 7
	// CounterSize is the tap counter size.
	CounterSize = 3
	// TagSize is the size of the truncated session MAC.
	TagSize = 8
)

// sv2Prefix is the fixed session-vector prefix for SV2 derivation (AN12196
// §4.3.2). It is part of the wire protocol, not a tunable.
var sv2Prefix = []byte{0x3C, 0xC3, 0x00, 0x01, 0x00, 0x80}

var (
	ErrBadPayloadSize = errors.New("sun: payload must be 16 bytes")
	ErrBadKeySize     = errors.New("sun: key must be 16 bytes")
)

// Decrypt opens an encrypted SUN payload with the card's k1 and returns the
// 7-byte UID and the 3-byte little-endian tap counter. The plaintext layout
// is [1 reserved][7 uid][3 counter][5 reserved].
func Decrypt(payload, key []byte) (uid, counter []byte, err error) {
	if len(payload) != PayloadSize {
		return nil, nil, ErrBadPayloadSize
	}
	if len(key) != KeySize {
		return nil, nil, ErrBadKeySize
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, fmt.Errorf("sun: %w", err)
	}

	plain := make([]byte, PayloadSize)
	iv := make([]byte, aes.BlockSize)
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, payload)

	return plain[1 : 1+UIDSize], plain[1+UIDSize : 1+UIDSize+CounterSize], nil
}

// Tag derives the truncated session MAC for a decoded UID and counter with
// the card's k2. AN12196 specifies CMAC(SV2) as a session key, a second
// CMAC over the empty message under that session key, and the odd-indexed
// bytes of the result as the 8-byte wire tag.
func Tag(uid, counter, key []byte) ([]byte, error) {
	if len(key) != KeySize {
		return nil, ErrBadKeySize
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("sun: %w", err)
	}

	sv2 := make([]byte, 0, len(sv2Prefix)+len(uid)+len(counter))
	sv2 = append(sv2, sv2Prefix...)
	sv2 = append(sv2, uid...)
	sv2 = append(sv2, counter...)

	sessionKey, err := cmac.Sum(sv2, block, block.BlockSize())
	if err != nil {
		return nil, fmt.Errorf("sun: %w", err)
	}

	sessionBlock, err := aes.NewCipher(sessionKey)
	if err != nil {
		return nil, fmt.Errorf("sun: %w", err)
	}
	full, err := cmac.Sum(nil, sessionBlock, sessionBlock.BlockSize())
	if err != nil {
		return nil, fmt.Errorf("sun: %w", err)
	}

	tag := make([]byte, 0, TagSize)
	for i := 1; i < len(full); i += 2 {
		tag = append(tag, full[i])
	}
	return tag, nil
}

// CounterValue converts the 3-byte wire counter to its integer value.
func CounterValue(counter []byte) uint32 {
	var buf [4]byte
	copy(buf[:], counter)
	return binary.LittleEndian.Uint32(buf[:])
}
