// Package intent turns raw chat text into a fill candidate, a month
// selection, or nothing.
package intent

import (
	"regexp"
	"strings"
	"time"

	"cardfill/internal/core"

	"github.com/shopspring/decimal"
)

// Intent is one of NoMatch, FillCandidate or MonthSelection.
type Intent interface {
	intent()
}

type (
	// NoMatch means the text is neither a fill nor a month query.
	NoMatch struct{}

	// FillCandidate is a message with exactly one number in it.
	FillCandidate struct {
		Amount      string // the numeric token exactly as written
		Description string
	}

	// MonthSelection lists the months named in a message, calendar order.
	MonthSelection struct {
		Months []time.Month
	}
)

func (NoMatch) intent()        {}
func (FillCandidate) intent()  {}
func (MonthSelection) intent() {}

// numberPattern accepts an optional sign, an optional leading point,
// thousands separators, a decimal point and an exponent.
var numberPattern = regexp.MustCompile(`[-+]?[.]?\d+(?:,\d\d\d)*[.]?\d*(?:[eE][-+]?\d+)?`)

// Parse tries text as a fill first and as a month query second.
func Parse(text string) Intent {
	if fill, ok := ParseFill(text); ok {
		return fill
	}
	if months, ok := ParseMonths(text); ok {
		return months
	}
	return NoMatch{}
}

// ParseFill succeeds only when text holds exactly one number. Messages with
// several numbers are rejected rather than guessed at.
func ParseFill(text string) (FillCandidate, bool) {
	loc := numberPattern.FindAllStringIndex(text, 2)
	if len(loc) != 1 {
		return FillCandidate{}, false
	}
	start, end := loc[0][0], loc[0][1]
	before := strings.TrimSpace(text[:start])
	after := strings.TrimSpace(text[end:])

	description := before + after
	if before != "" && after != "" {
		description = before + " " + after
	}
	return FillCandidate{Amount: text[start:end], Description: description}, true
}

// ParseMonths splits text on single spaces and collects every month whose
// pattern matches one of the words. The result follows calendar order, not
// the order of words in the message.
func ParseMonths(text string) (MonthSelection, bool) {
	if text == "" {
		return MonthSelection{}, false
	}
	words := strings.Split(text, " ")
	var months []time.Month
	for _, m := range core.Months {
		for _, w := range words {
			if m.Pattern.MatchString(w) {
				months = append(months, m.Month)
				break
			}
		}
	}
	if len(months) == 0 {
		return MonthSelection{}, false
	}
	return MonthSelection{Months: months}, true
}

// Decimal returns the amount as a decimal with separators removed.
func (c FillCandidate) Decimal() (decimal.Decimal, error) {
	return core.ParseAmount(c.Amount)
}
