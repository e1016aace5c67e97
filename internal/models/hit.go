package models

import "time"

// Hit records one accepted tap. A hit is immutable except for its single
// spent transition, which also records the settled amount and links the
// resulting payment.
type Hit struct {
	ID uint `gorm:"primarykey" json:"-"`

	// ExternalID doubles as the single-use capability token the withdraw
	// callback and refund endpoints are keyed by.
	ExternalID string `gorm:"uniqueIndex;not null" json:"id"`

	CardID uint `gorm:"not null;index" json:"card_id"`

	IP        string `json:"ip"`
	UserAgent string `json:"useragent"`

	OldCounter uint32 `gorm:"not null;default:0" json:"old_ctr"`
	NewCounter uint32 `gorm:"not null;default:0" json:"new_ctr"`

	Spent bool `gorm:"not null;default:false" json:"spent"`

	// Amount is the settled amount in sats, zero until spent. AmountFiat
	// is the fiat equivalent captured at spend time, so fiat-denominated
	// aggregation does not need historical rate lookups.
	Amount     int64   `gorm:"not null;default:0" json:"amount"`
	AmountFiat float64 `gorm:"not null;default:0" json:"amount_fiat"`

	// PaymentID links the forwarded payment once it has been requested.
	PaymentID string `gorm:"index" json:"payment_hash,omitempty"`

	CreatedAt time.Time `json:"time"`
	UpdatedAt time.Time `json:"-"`
}
