package archive

import (
	"time"

	"cardfill/internal/core"
)

// Document is the archived JSON shape of a yearly summary. Amounts are
// decimal strings; ratios that cannot be computed are null.
type Document struct {
	ScopeID     int64         `json:"scope_id"`
	ScopeType   string        `json:"scope_type"`
	Year        int           `json:"year"`
	GeneratedAt time.Time     `json:"generated_at"`
	Total       string        `json:"total"`
	ByUser      []UserRow     `json:"by_user"`
	ByCategory  []CategoryRow `json:"by_category"`
	Target      *float64      `json:"target_proportion,omitempty"`
	Actual      *float64      `json:"actual_proportion,omitempty"`
}

type UserRow struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Amount   string `json:"amount"`
}

type CategoryRow struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	Amount     string `json:"amount"`
	Proportion string `json:"proportion"`
}

// NewDocument converts a summary. Proportions are included for group
// scopes only.
func NewDocument(scope core.FillScope, year int, s core.SummaryOverPeriod, now time.Time) Document {
	doc := Document{
		ScopeID:     scope.ID,
		ScopeType:   string(scope.Type),
		Year:        year,
		GeneratedAt: now.UTC(),
		Total:       s.Total().StringFixed(2),
		ByUser:      make([]UserRow, 0, len(s.ByUser)),
		ByCategory:  make([]CategoryRow, 0, len(s.ByCategory)),
	}
	for _, u := range s.ByUser {
		doc.ByUser = append(doc.ByUser, UserRow{UserID: u.UserID, Username: u.Username, Amount: u.Amount.StringFixed(2)})
	}
	for _, c := range s.ByCategory {
		doc.ByCategory = append(doc.ByCategory, CategoryRow{
			Code:       c.Code,
			Name:       c.Name,
			Amount:     c.Amount.StringFixed(2),
			Proportion: c.Proportion.String(),
		})
	}
	if scope.IsGroup() {
		if s.Proportions.HasTarget() {
			v := s.Proportions.Target
			doc.Target = &v
		}
		if s.Proportions.HasActual() {
			v := s.Proportions.Actual
			doc.Actual = &v
		}
	}
	return doc
}
