package models

import "time"

// Refund records one completed return of a forwarded payment.
type Refund struct {
	ID    uint `gorm:"primarykey" json:"-"`
	HitID uint `gorm:"not null;index" json:"hit_id"`

	// PaymentID is the settled refund payment. The unique index is the
	// idempotency guard against redelivered settlement events.
	PaymentID string `gorm:"uniqueIndex;not null" json:"payment_id"`

	Amount    int64     `gorm:"not null" json:"refund_amount"`
	CreatedAt time.Time `json:"time"`
}
