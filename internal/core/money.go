// Package core provides money handling utilities.
//
// Amounts are kept as integer cents everywhere; decimal values only appear at
// the edges (exports, percentages) and are produced with shopspring/decimal so
// no float rounding leaks into rendered figures.
package core

import (
	"github.com/shopspring/decimal"
)

// Decimal returns the amount in currency units (1299 -> 12.99).
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// String renders the amount with exactly two fractional digits.
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// Percentage returns part/total*100 rounded half-up to one decimal place.
// A non-positive total yields zero.
func Percentage(part, total int64) float64 {
	if total <= 0 {
		return 0
	}
	pct := decimal.NewFromInt(part).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(total)).
		Round(1)
	f, _ := pct.Float64()
	return f
}
