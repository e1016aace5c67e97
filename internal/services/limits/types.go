package limits

import "boltcard/internal/models"

// Amount carries a candidate spend in both denominations so every limit
// comparison happens in one place, against whichever denomination the card
// is configured for.
type Amount struct {
	Sats int64
	Fiat float64
}

// In returns the amount in the given denomination.
func (a Amount) In(d models.LimitType) float64 {
	if d == models.LimitTypeFiat {
		return a.Fiat
	}
	return float64(a.Sats)
}

// Zero is the placeholder candidate used at offer time, when the final
// invoice amount is not known yet.
var Zero = Amount{}
