// Package core provides money parsing and handling utilities.
//
// Amounts are carried as decimal.Decimal end to end. Storage keeps them as
// integer cents so that sums computed by the database stay exact.
package core

import (
	"math"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// thousandsSep matches a comma used as a thousands separator ("1,000").
var thousandsSep = regexp.MustCompile(`,(\d\d\d)`)

// ParseAmount converts a numeric token as found in a chat message into a
// decimal. Thousands separators are dropped, sign and exponent are kept.
//
// Examples:
//
//	ParseAmount("500")       -> 500
//	ParseAmount("1,250.50")  -> 1250.5
//	ParseAmount("-.5")       -> -0.5
//	ParseAmount("1.5e3")     -> 1500
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = thousandsSep.ReplaceAllString(s, "$1")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// maxAmount is the largest magnitude whose cents fit in an int64.
var maxAmount = decimal.New(math.MaxInt64/100, 0)

// ToCents rounds d half away from zero to two places and returns it as
// cents. Amounts beyond ±maxAmount return ErrInvalidAmount.
func ToCents(d decimal.Decimal) (int64, error) {
	rounded := d.Round(2)
	if rounded.Abs().GreaterThan(maxAmount) {
		return 0, ErrInvalidAmount
	}
	return rounded.Shift(2).IntPart(), nil
}

// FromCents converts integer cents back into a decimal amount.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// FormatAmount renders an amount for chat replies without trailing zeros.
func FormatAmount(d decimal.Decimal) string {
	return d.Round(2).String()
}
