// Package ledger records fills and moves them between categories.
//
// Repository errors are returned to the caller exactly as the repository
// produced them. Nothing here retries.
package ledger

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"cardfill/internal/classify"
	"cardfill/internal/core"
	"cardfill/internal/intent"
	"cardfill/internal/ports"

	"github.com/shopspring/decimal"
)

type Ledger struct {
	fills      ports.FillRepository
	categories ports.CategoryRepository
	users      ports.UserRepository
	classifier *classify.Classifier
	events     ports.FillEventPublisher
	now        func() time.Time
}

type Option func(*Ledger)

// WithClock overrides the timestamp source for new fills.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithPublisher announces persisted fills. Without it no events are sent.
func WithPublisher(p ports.FillEventPublisher) Option {
	return func(l *Ledger) { l.events = p }
}

func New(fills ports.FillRepository, categories ports.CategoryRepository, users ports.UserRepository, classifier *classify.Classifier, opts ...Option) *Ledger {
	l := &Ledger{
		fills:      fills,
		categories: categories,
		users:      users,
		classifier: classifier,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// RecordFill classifies the candidate's description and persists it for
// user in scope, stamped with the current time. Unknown users are created.
func (l *Ledger) RecordFill(ctx context.Context, c intent.FillCandidate, user core.User, scope core.FillScope) (core.StoredFill, error) {
	amount, err := c.Decimal()
	if err != nil {
		return core.StoredFill{}, err
	}
	if cents, err := core.ToCents(amount); err != nil || cents == 0 {
		return core.StoredFill{}, core.ErrInvalidAmount
	}
	amount = amount.Round(2)
	if err := l.EnsureUser(ctx, user); err != nil {
		return core.StoredFill{}, err
	}
	cat, err := l.classifier.Classify(ctx, c.Description)
	if err != nil {
		return core.StoredFill{}, err
	}

	f := core.Fill{
		UserID:       user.ID,
		Date:         l.now(),
		Amount:       amount,
		Description:  c.Description,
		CategoryCode: cat.Code,
		ScopeID:      scope.ID,
	}
	if err := f.Validate(); err != nil {
		return core.StoredFill{}, err
	}
	id, err := l.fills.InsertFill(ctx, f)
	if err != nil {
		return core.StoredFill{}, err
	}
	f.ID = id

	slog.InfoContext(ctx, "Fill recorded",
		"component", "ledger",
		"fill_id", id,
		"user_id", user.ID,
		"scope_id", scope.ID,
		"category", cat.Code,
		"amount", amount.String())

	if l.events != nil {
		if err := l.events.PublishFillRecorded(ctx, id); err != nil {
			slog.ErrorContext(ctx, "Failed to publish fill event",
				"component", "ledger", "fill_id", id, "error", err)
		}
	}
	return core.StoredFill{Fill: f, Category: cat}, nil
}

// ReassignCategory moves a fill to the category with code. When the fill
// was uncategorized and has a description, the description is learned as
// an alias of the new category. A missing category leaves the fill as is.
func (l *Ledger) ReassignCategory(ctx context.Context, fillID int64, code string) (core.StoredFill, error) {
	f, err := l.fills.GetFill(ctx, fillID)
	if err != nil {
		return core.StoredFill{}, err
	}
	cat, err := l.categories.GetCategory(ctx, code)
	if err != nil {
		return core.StoredFill{}, err
	}
	return l.move(ctx, f, cat, true)
}

// CreateCategoryForFill creates a category seeded with the fill's
// description as its first alias and moves the fill into it.
func (l *Ledger) CreateCategoryForFill(ctx context.Context, fillID int64, name, code string, proportion decimal.Decimal) (core.StoredFill, error) {
	f, err := l.fills.GetFill(ctx, fillID)
	if err != nil {
		return core.StoredFill{}, err
	}
	cat := core.Category{Code: code, Name: name, Proportion: proportion}
	if alias := strings.ToLower(strings.TrimSpace(f.Description)); alias != "" {
		cat.Aliases = []string{alias}
	}
	if err := cat.Validate(); err != nil {
		return core.StoredFill{}, errors.Join(core.ErrInvalidCategory, err)
	}
	if err := l.categories.CreateCategory(ctx, cat); err != nil {
		return core.StoredFill{}, err
	}
	slog.InfoContext(ctx, "Category created",
		"component", "ledger", "category", code, "fill_id", fillID)
	return l.move(ctx, f, cat, false)
}

// EnsureUser creates the user record on first sight.
func (l *Ledger) EnsureUser(ctx context.Context, u core.User) error {
	if u.ID == 0 {
		return core.ErrInvalidUser
	}
	_, err := l.users.GetUser(ctx, u.ID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return err
	}
	if err := l.users.CreateUser(ctx, u); err != nil {
		return err
	}
	slog.InfoContext(ctx, "User registered",
		"component", "ledger", "user_id", u.ID, "username", u.Username)
	return nil
}

// UserFills lists a user's fills in months of year with their categories.
func (l *Ledger) UserFills(ctx context.Context, userID int64, months []time.Month, year int, scope core.FillScope) ([]core.StoredFill, error) {
	fills, err := l.fills.ListUserFills(ctx, userID, months, year, scope)
	if err != nil {
		return nil, err
	}
	if len(fills) == 0 {
		return nil, nil
	}
	cats, err := l.categories.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	byCode := make(map[string]core.Category, len(cats))
	for _, c := range cats {
		byCode[c.Code] = c
	}
	out := make([]core.StoredFill, len(fills))
	for i, f := range fills {
		cat, ok := byCode[f.CategoryCode]
		if !ok {
			cat = core.Category{Code: f.CategoryCode, Name: f.CategoryCode}
		}
		out[i] = core.StoredFill{Fill: f, Category: cat}
	}
	return out, nil
}

func (l *Ledger) move(ctx context.Context, f core.Fill, to core.Category, learn bool) (core.StoredFill, error) {
	from := f.CategoryCode
	if from == to.Code {
		return core.StoredFill{Fill: f, Category: to}, nil
	}
	if err := l.fills.UpdateFillCategory(ctx, f.ID, to.Code); err != nil {
		return core.StoredFill{}, err
	}
	f.CategoryCode = to.Code

	if learn && from == core.DefaultCategoryCode && f.HasDescription() {
		if err := l.classifier.LearnAlias(ctx, to.Code, f.Description); err != nil {
			return core.StoredFill{}, err
		}
	}

	slog.InfoContext(ctx, "Fill recategorized",
		"component", "ledger", "fill_id", f.ID, "from", from, "to", to.Code)

	if l.events != nil {
		if err := l.events.PublishFillRecategorized(ctx, f.ID, from, to.Code); err != nil {
			slog.ErrorContext(ctx, "Failed to publish fill event",
				"component", "ledger", "fill_id", f.ID, "error", err)
		}
	}
	return core.StoredFill{Fill: f, Category: to}, nil
}
