package models

import "time"

// ZeroKey is the factory default for all three card keys.
const ZeroKey = "00000000000000000000000000000000"

// LimitType selects the denomination card ceilings are evaluated in.
type LimitType string

const (
	LimitTypeSats LimitType = "sats"
	LimitTypeFiat LimitType = "fiat"
)

// Card represents one physical NFC tag and its spend policy.
//
// K0 is the tag authentication key, K1 decrypts the SUN payload and K2
// derives the SUN CMAC. The previous-generation keys are retained so a
// half-rotated tag keeps working until re-provisioned.
type Card struct {
	ID         uint   `gorm:"primarykey" json:"-"`
	WalletID   string `gorm:"not null;index" json:"wallet"`
	Name       string `gorm:"not null" json:"card_name"`
	UID        string `gorm:"uniqueIndex;not null" json:"uid"`
	ExternalID string `gorm:"uniqueIndex;not null" json:"external_id"`

	// Counter is the last accepted tap counter. It only ever grows.
	Counter uint32 `gorm:"not null;default:0" json:"counter"`

	TxLimit      int64     `gorm:"not null;default:0" json:"tx_limit"`
	DailyLimit   int64     `gorm:"not null;default:0" json:"daily_limit"`
	MonthlyLimit int64     `gorm:"not null;default:0" json:"monthly_limit"`
	LimitType    LimitType `gorm:"not null;default:'sats'" json:"limit_type"`

	PinEnabled bool   `gorm:"not null;default:false" json:"pin_enable"`
	Pin        string `json:"-"`
	PinLimit   int64  `gorm:"not null;default:0" json:"pin_limit"`
	PinTries   int    `gorm:"not null;default:0" json:"pin_try"`

	Enabled   bool       `gorm:"not null;default:true" json:"enable"`
	ExpiresAt *time.Time `json:"expiration_date,omitempty"`

	K0     string `gorm:"not null" json:"k0"`
	K1     string `gorm:"not null" json:"k1"`
	K2     string `gorm:"not null" json:"k2"`
	PrevK0 string `gorm:"not null" json:"prev_k0"`
	PrevK1 string `gorm:"not null" json:"prev_k1"`
	PrevK2 string `gorm:"not null" json:"prev_k2"`

	// OTP is the single-use provisioning bootstrap token. Redeeming it
	// rotates it.
	OTP string `gorm:"index" json:"otp"`

	CreatedAt time.Time `json:"time"`
	UpdatedAt time.Time `json:"-"`
}

// Expired reports whether the card is past its optional expiration date.
func (c *Card) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && c.ExpiresAt.Before(now)
}
