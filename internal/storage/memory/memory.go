// Package memory is an in-process store implementing every persistence
// port. It backs DATA_BACKEND=memory and the package tests.
package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"cardfill/internal/core"
	"cardfill/internal/ports"

	"github.com/shopspring/decimal"
)

var _ ports.Store = (*Store)(nil)

type budgetKey struct {
	code    string
	scopeID int64
}

type Store struct {
	mu         sync.RWMutex
	categories []core.Category
	budgets    map[budgetKey]decimal.Decimal
	fills      []core.Fill
	scopes     map[int64]core.FillScope
	users      map[int64]core.User
}

// New returns a store holding only the default category plus cats.
func New(cats ...core.Category) *Store {
	s := &Store{
		budgets: map[budgetKey]decimal.Decimal{},
		scopes:  map[int64]core.FillScope{},
		users:   map[int64]core.User{},
	}
	s.categories = append(s.categories, core.Category{Code: core.DefaultCategoryCode, Name: "Прочее"})
	for _, c := range cats {
		if c.IsDefault() {
			s.categories[0] = cloneCategory(c)
			continue
		}
		s.categories = append(s.categories, cloneCategory(c))
	}
	return s
}

// NewFromFiles seeds categories from <base>/seed_categories.txt. Each line is
// "CODE;Name;proportion;alias|alias". Missing files yield an empty store.
func NewFromFiles(base string) *Store {
	var cats []core.Category
	for _, line := range readLines(filepath.Join(base, "seed_categories.txt")) {
		c, err := parseSeedCategory(line)
		if err != nil {
			continue
		}
		cats = append(cats, c)
	}
	return New(cats...)
}

// AddScope registers the scope for a chat.
func (s *Store) AddScope(scope core.FillScope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if scope.ID == 0 {
		scope.ID = int64(len(s.scopes) + 1)
	}
	s.scopes[scope.ChatID] = scope
}

// CreateScope binds chatID to a new scope.
func (s *Store) CreateScope(_ context.Context, scopeType core.ScopeType, chatID int64) (core.FillScope, error) {
	if !scopeType.IsValid() {
		return core.FillScope{}, fmt.Errorf("invalid scope type %q", scopeType)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.scopes[chatID]; ok {
		return core.FillScope{}, fmt.Errorf("scope for chat %d already exists", chatID)
	}
	scope := core.FillScope{ID: int64(len(s.scopes) + 1), Type: scopeType, ChatID: chatID}
	s.scopes[chatID] = scope
	return scope, nil
}

// SetBudget sets the monthly limit for a category in a scope.
func (s *Store) SetBudget(_ context.Context, code string, scopeID int64, limit decimal.Decimal) error {
	if limit.IsNegative() {
		return fmt.Errorf("budget for %s cannot be negative", code)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.budgets[budgetKey{code, scopeID}] = limit
	return nil
}

func (s *Store) ListCategories(_ context.Context) ([]core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Category, len(s.categories))
	for i, c := range s.categories {
		out[i] = cloneCategory(c)
	}
	return out, nil
}

func (s *Store) GetCategory(_ context.Context, code string) (core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.categoryIndex(code); i >= 0 {
		return cloneCategory(s.categories[i]), nil
	}
	return core.Category{}, fmt.Errorf("category %q: %w", code, core.ErrNotFound)
}

func (s *Store) AddAlias(_ context.Context, code, alias string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.categoryIndex(code)
	if i < 0 {
		return fmt.Errorf("category %q: %w", code, core.ErrNotFound)
	}
	if slices.Contains(s.categories[i].Aliases, alias) {
		return nil
	}
	s.categories[i].Aliases = append(s.categories[i].Aliases, alias)
	return nil
}

func (s *Store) GetBudget(_ context.Context, code string, scope core.FillScope) (decimal.NullDecimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if b, ok := s.budgets[budgetKey{code, scope.ID}]; ok {
		return decimal.NewNullDecimal(b), nil
	}
	return decimal.NullDecimal{}, nil
}

func (s *Store) CreateCategory(_ context.Context, c core.Category) error {
	if err := c.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.categoryIndex(c.Code) >= 0 {
		return fmt.Errorf("category %q already exists", c.Code)
	}
	s.categories = append(s.categories, cloneCategory(c))
	return nil
}

func (s *Store) InsertFill(_ context.Context, f core.Fill) (int64, error) {
	if err := f.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.categoryIndex(f.CategoryCode) < 0 {
		return 0, fmt.Errorf("category %q: %w", f.CategoryCode, core.ErrNotFound)
	}
	f.ID = int64(len(s.fills) + 1)
	f.Amount = f.Amount.Round(2)
	s.fills = append(s.fills, f)
	return f.ID, nil
}

func (s *Store) GetFill(_ context.Context, id int64) (core.Fill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id < 1 || id > int64(len(s.fills)) {
		return core.Fill{}, fmt.Errorf("fill %d: %w", id, core.ErrNotFound)
	}
	return s.fills[id-1], nil
}

func (s *Store) UpdateFillCategory(_ context.Context, id int64, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id < 1 || id > int64(len(s.fills)) {
		return fmt.Errorf("fill %d: %w", id, core.ErrNotFound)
	}
	if s.categoryIndex(code) < 0 {
		return fmt.Errorf("category %q: %w", code, core.ErrNotFound)
	}
	s.fills[id-1].CategoryCode = code
	return nil
}

func (s *Store) ListUserFills(_ context.Context, userID int64, months []time.Month, year int, scope core.FillScope) ([]core.Fill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Fill
	for _, f := range s.fills {
		if f.UserID != userID || f.ScopeID != scope.ID || f.Date.Year() != year {
			continue
		}
		if !slices.Contains(months, f.Date.Month()) {
			continue
		}
		out = append(out, f)
	}
	return out, nil
}

func (s *Store) GetScopeByChatID(_ context.Context, chatID int64) (core.FillScope, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if scope, ok := s.scopes[chatID]; ok {
		return scope, nil
	}
	return core.FillScope{}, fmt.Errorf("scope for chat %d: %w", chatID, core.ErrNotFound)
}

func (s *Store) GetUser(_ context.Context, id int64) (core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return core.User{}, fmt.Errorf("user %d: %w", id, core.ErrNotFound)
}

func (s *Store) CreateUser(_ context.Context, u core.User) error {
	if u.ID == 0 {
		return core.ErrInvalidUser
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
	return nil
}

func (s *Store) MonthlyByUser(_ context.Context, months []time.Month, year int, scope core.FillScope) (map[time.Month][]core.UserAmount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[time.Month][]core.UserAmount, len(months))
	for _, m := range months {
		out[m] = s.sumByUser(func(f core.Fill) bool {
			return f.ScopeID == scope.ID && f.Date.Year() == year && f.Date.Month() == m
		})
	}
	return out, nil
}

func (s *Store) MonthlyByCategory(_ context.Context, months []time.Month, year int, scope core.FillScope) (map[time.Month][]core.CategoryAmount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[time.Month][]core.CategoryAmount, len(months))
	for _, m := range months {
		out[m] = s.sumByCategory(func(f core.Fill) bool {
			return f.ScopeID == scope.ID && f.Date.Year() == year && f.Date.Month() == m
		})
	}
	return out, nil
}

func (s *Store) YearlyByUser(_ context.Context, year int, scope core.FillScope) ([]core.UserAmount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sumByUser(func(f core.Fill) bool {
		return f.ScopeID == scope.ID && f.Date.Year() == year
	}), nil
}

func (s *Store) YearlyByCategory(_ context.Context, year int, scope core.FillScope) ([]core.CategoryAmount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sumByCategory(func(f core.Fill) bool {
		return f.ScopeID == scope.ID && f.Date.Year() == year
	}), nil
}

func (s *Store) TotalByUser(_ context.Context, scope core.FillScope) ([]core.UserAmount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sumByUser(func(f core.Fill) bool { return f.ScopeID == scope.ID }), nil
}

// sumByUser must be called with s.mu held.
func (s *Store) sumByUser(keep func(core.Fill) bool) []core.UserAmount {
	totals := map[int64]decimal.Decimal{}
	for _, f := range s.fills {
		if keep(f) {
			totals[f.UserID] = totals[f.UserID].Add(f.Amount)
		}
	}
	out := make([]core.UserAmount, 0, len(totals))
	for id, amount := range totals {
		out = append(out, core.UserAmount{UserID: id, Username: s.users[id].DisplayName(), Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		return out[i].UserID < out[j].UserID
	})
	return out
}

// sumByCategory must be called with s.mu held.
func (s *Store) sumByCategory(keep func(core.Fill) bool) []core.CategoryAmount {
	totals := map[string]decimal.Decimal{}
	for _, f := range s.fills {
		if keep(f) {
			totals[f.CategoryCode] = totals[f.CategoryCode].Add(f.Amount)
		}
	}
	out := make([]core.CategoryAmount, 0, len(totals))
	for code, amount := range totals {
		ca := core.CategoryAmount{Code: code, Amount: amount}
		if i := s.categoryIndex(code); i >= 0 {
			ca.Name = s.categories[i].Name
			ca.Proportion = s.categories[i].Proportion
		}
		out = append(out, ca)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		return out[i].Code < out[j].Code
	})
	return out
}

func (s *Store) categoryIndex(code string) int {
	for i, c := range s.categories {
		if c.Code == code {
			return i
		}
	}
	return -1
}

func cloneCategory(c core.Category) core.Category {
	c.Aliases = slices.Clone(c.Aliases)
	return c
}

func parseSeedCategory(line string) (core.Category, error) {
	parts := strings.Split(line, ";")
	if len(parts) < 2 {
		return core.Category{}, fmt.Errorf("seed line %q: want CODE;Name[;proportion[;aliases]]", line)
	}
	c := core.Category{Code: strings.TrimSpace(parts[0]), Name: strings.TrimSpace(parts[1])}
	if len(parts) > 2 && strings.TrimSpace(parts[2]) != "" {
		p, err := decimal.NewFromString(strings.TrimSpace(parts[2]))
		if err != nil {
			return core.Category{}, fmt.Errorf("seed line %q: proportion: %w", line, err)
		}
		c.Proportion = p
	}
	if len(parts) > 3 {
		for _, a := range strings.Split(parts[3], "|") {
			if a = strings.TrimSpace(a); a != "" {
				c.Aliases = append(c.Aliases, a)
			}
		}
	}
	return c, c.Validate()
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}
