package core

import (
	"math"

	"github.com/shopspring/decimal"
)

// UserAmount is a pre-aggregated total for one user over a period.
type UserAmount struct {
	UserID   int64
	Username string
	Amount   decimal.Decimal
}

// CategoryAmount is a pre-aggregated total for one category over a period,
// summed across users, with the category's target proportion.
type CategoryAmount struct {
	Code       string
	Name       string
	Amount     decimal.Decimal
	Proportion decimal.Decimal
	Budget     decimal.NullDecimal
}

// ProportionSnapshot holds target and actual minor/major ratios. NaN means
// the value could not be computed for the period.
type ProportionSnapshot struct {
	Target float64
	Actual float64
}

// SummaryOverPeriod is the report unit for a month or a year.
type SummaryOverPeriod struct {
	ByUser      []UserAmount
	ByCategory  []CategoryAmount
	Proportions ProportionSnapshot
}

func (p ProportionSnapshot) HasTarget() bool { return !math.IsNaN(p.Target) }
func (p ProportionSnapshot) HasActual() bool { return !math.IsNaN(p.Actual) }

// Total sums the by-user breakdown.
func (s SummaryOverPeriod) Total() decimal.Decimal {
	total := decimal.Zero
	for _, u := range s.ByUser {
		total = total.Add(u.Amount)
	}
	return total
}

// IsEmpty reports whether nothing was recorded in the period.
func (s SummaryOverPeriod) IsEmpty() bool {
	return len(s.ByUser) == 0 && len(s.ByCategory) == 0
}

// OverBudget reports whether the category spent more than its limit.
func (c CategoryAmount) OverBudget() bool {
	return c.Budget.Valid && c.Amount.GreaterThan(c.Budget.Decimal)
}
