package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	ScopePrivate ScopeType = "PRIVATE"
	ScopeGroup   ScopeType = "GROUP"
)

// DefaultCategoryCode is the "uncategorized" bucket. Alias search never
// returns it; it is assigned when nothing else matches.
const DefaultCategoryCode = "OTHER"

type (
	ScopeType string

	// Fill is one recorded expense or contribution.
	Fill struct {
		ID           int64 // assigned on persist
		UserID       int64
		Date         time.Time
		Amount       decimal.Decimal
		Description  string
		CategoryCode string
		ScopeID      int64
	}

	// StoredFill is a persisted fill together with its resolved category.
	StoredFill struct {
		Fill
		Category Category
	}

	Category struct {
		Code       string
		Name       string
		Aliases    []string
		Proportion decimal.Decimal     // target minor/major ratio for shared spend
		Budget     decimal.NullDecimal // optional monthly limit
	}

	// FillScope is the chat context a fill belongs to.
	FillScope struct {
		ID     int64
		Type   ScopeType
		ChatID int64
	}

	User struct {
		ID           int64
		IsBot        bool
		FirstName    string
		LastName     string
		Username     string
		LanguageCode string
	}
)

var (
	ErrNotFound = errors.New("not found")
	// ErrScopeNotConfigured is returned for chats with no registered scope.
	// It matches ErrNotFound under errors.Is.
	ErrScopeNotConfigured = fmt.Errorf("fill scope not configured for chat: %w", ErrNotFound)
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidCategory    = errors.New("invalid category")
	ErrInvalidUser        = errors.New("invalid user")
)

func (t ScopeType) IsValid() bool {
	return t == ScopePrivate || t == ScopeGroup
}

// IsGroup reports whether proportion analytics apply to the scope.
func (s FillScope) IsGroup() bool {
	return s.Type == ScopeGroup
}

func (f Fill) Validate() error {
	if f.UserID == 0 {
		return ErrInvalidUser
	}
	if f.Date.IsZero() {
		return errors.New("fill date cannot be zero")
	}
	// Storage keeps cents, so the amount must survive the conversion.
	if cents, err := ToCents(f.Amount); err != nil || cents == 0 {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(f.CategoryCode) == "" {
		return ErrInvalidCategory
	}
	return nil
}

// HasDescription reports whether the fill carries any free text.
func (f Fill) HasDescription() bool {
	return strings.TrimSpace(f.Description) != ""
}

// IsDefault reports whether c is the uncategorized bucket.
func (c Category) IsDefault() bool {
	return c.Code == DefaultCategoryCode
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Code) == "" {
		return errors.New("empty category code")
	}
	if strings.ContainsAny(c.Code, "/ ") {
		return errors.New("category code cannot contain spaces or slashes")
	}
	if strings.TrimSpace(c.Name) == "" {
		return errors.New("empty category name")
	}
	if c.Proportion.IsNegative() {
		return errors.New("category proportion cannot be negative")
	}
	if c.Budget.Valid && c.Budget.Decimal.IsNegative() {
		return errors.New("category budget cannot be negative")
	}
	return nil
}

// DisplayName returns the best human handle for the user.
func (u User) DisplayName() string {
	if u.Username != "" {
		return u.Username
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}
