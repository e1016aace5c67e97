package card

import (
	"time"

	"boltcard/internal/models"
)

// Input is the whitelisted field set an operator may submit for a card.
// Merging it onto a stored card only ever touches these fields, so an
// update payload cannot smuggle state like wallet ownership or the tap
// counter into the record.
type Input struct {
	Name         string            `json:"card_name"`
	UID          string            `json:"uid"`
	TxLimit      int64             `json:"tx_limit"`
	DailyLimit   int64             `json:"daily_limit"`
	MonthlyLimit int64             `json:"monthly_limit"`
	LimitType    models.LimitType  `json:"limit_type"`
	Enabled      bool              `json:"enable"`
	ExpiresAt    *time.Time        `json:"expiration_date"`
	Pin          string            `json:"pin"`
	PinLimit     int64             `json:"pin_limit"`
	PinEnabled   bool              `json:"pin_enable"`
	K0           string            `json:"k0"`
	K1           string            `json:"k1"`
	K2           string            `json:"k2"`
	PrevK0       string            `json:"prev_k0"`
	PrevK1       string            `json:"prev_k1"`
	PrevK2       string            `json:"prev_k2"`
}

// apply merges the whitelisted fields onto the stored card.
func (in Input) apply(c *models.Card) {
	c.Name = in.Name
	c.UID = normalizeUID(in.UID)
	c.TxLimit = in.TxLimit
	c.DailyLimit = in.DailyLimit
	c.MonthlyLimit = in.MonthlyLimit
	c.LimitType = in.limitType()
	c.Enabled = in.Enabled
	c.ExpiresAt = in.ExpiresAt
	c.Pin = in.Pin
	c.PinLimit = in.PinLimit
	c.PinEnabled = in.PinEnabled
	c.K0 = in.key(in.K0)
	c.K1 = in.key(in.K1)
	c.K2 = in.key(in.K2)
	c.PrevK0 = in.key(in.PrevK0)
	c.PrevK1 = in.key(in.PrevK1)
	c.PrevK2 = in.key(in.PrevK2)
}

func (in Input) limitType() models.LimitType {
	if in.LimitType == models.LimitTypeFiat {
		return models.LimitTypeFiat
	}
	return models.LimitTypeSats
}

func (in Input) key(k string) string {
	if k == "" {
		return models.ZeroKey
	}
	return k
}
