// Package proportion converts between a minor/major ratio ("proportion") and
// the minor contributor's share of the whole ("fraction"), and computes the
// target and actual ratios reported for shared spending.
//
// NaN is returned whenever a ratio cannot be computed. It is a value, not an
// error: callers render it as "not available".
package proportion

import (
	"math"

	"github.com/shopspring/decimal"
)

// Share is one category's total spend (both contributors) and its target
// proportion.
type Share struct {
	Amount     decimal.Decimal
	Proportion decimal.Decimal
}

// ToFraction converts a minor:major proportion into the minor fraction of
// the whole: p / (1 + p).
func ToFraction(p float64) float64 {
	return p / (1 + p)
}

// ToProportion is the inverse of ToFraction: f / (1 - f).
func ToProportion(f float64) float64 {
	return f / (1 - f)
}

// Actual returns minor / major. A minor contributor with no spend yields 0,
// a major contributor with no spend yields NaN.
func Actual(minor, major decimal.NullDecimal) float64 {
	if !minor.Valid || minor.Decimal.IsZero() {
		return 0
	}
	if !major.Valid || major.Decimal.IsZero() {
		return math.NaN()
	}
	return minor.Decimal.Div(major.Decimal).InexactFloat64()
}

// Target weights each category's target fraction by its total amount and
// converts the weighted fraction back into a proportion. No spend at all
// yields NaN.
func Target(shares []Share) float64 {
	weighted := 0.0
	total := decimal.Zero
	for _, s := range shares {
		amount := s.Amount.InexactFloat64()
		weighted += ToFraction(s.Proportion.InexactFloat64()) * amount
		total = total.Add(s.Amount)
	}
	if total.IsZero() {
		return math.NaN()
	}
	return ToProportion(weighted / total.InexactFloat64())
}
