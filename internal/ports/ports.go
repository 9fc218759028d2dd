package ports

import (
	"context"
	"time"

	"cardfill/internal/core"

	"github.com/shopspring/decimal"
)

// Ports for outbound adapters. Implementations own persistence, retries and
// deadlines; callers pass the context they want enforced.
type (
	CategoryRepository interface {
		// ListCategories returns every category, default included, in
		// repository order.
		ListCategories(ctx context.Context) ([]core.Category, error)
		GetCategory(ctx context.Context, code string) (core.Category, error)
		// AddAlias appends alias to the category. Aliases are never removed.
		AddAlias(ctx context.Context, code, alias string) error
		GetBudget(ctx context.Context, code string, scope core.FillScope) (decimal.NullDecimal, error)
		CreateCategory(ctx context.Context, c core.Category) error
	}

	FillRepository interface {
		InsertFill(ctx context.Context, f core.Fill) (id int64, err error)
		GetFill(ctx context.Context, id int64) (core.Fill, error)
		UpdateFillCategory(ctx context.Context, id int64, code string) error
		// ListUserFills returns a user's fills in the given months of year,
		// oldest first.
		ListUserFills(ctx context.Context, userID int64, months []time.Month, year int, scope core.FillScope) ([]core.Fill, error)
	}

	ScopeRepository interface {
		GetScopeByChatID(ctx context.Context, chatID int64) (core.FillScope, error)
	}

	UserRepository interface {
		GetUser(ctx context.Context, id int64) (core.User, error)
		CreateUser(ctx context.Context, u core.User) error
	}

	// AggregateReader returns sums already aggregated by the store.
	AggregateReader interface {
		MonthlyByUser(ctx context.Context, months []time.Month, year int, scope core.FillScope) (map[time.Month][]core.UserAmount, error)
		MonthlyByCategory(ctx context.Context, months []time.Month, year int, scope core.FillScope) (map[time.Month][]core.CategoryAmount, error)
		YearlyByUser(ctx context.Context, year int, scope core.FillScope) ([]core.UserAmount, error)
		YearlyByCategory(ctx context.Context, year int, scope core.FillScope) ([]core.CategoryAmount, error)
		TotalByUser(ctx context.Context, scope core.FillScope) ([]core.UserAmount, error)
	}

	// Store is the full persistence surface a backend provides.
	Store interface {
		CategoryRepository
		FillRepository
		ScopeRepository
		UserRepository
		AggregateReader
	}

	// FillEventPublisher announces persisted fills to downstream consumers.
	FillEventPublisher interface {
		PublishFillRecorded(ctx context.Context, fillID int64) error
		PublishFillRecategorized(ctx context.Context, fillID int64, from, to string) error
	}

	// FillExporter mirrors fills into an external sheet.
	FillExporter interface {
		AppendFill(ctx context.Context, f core.StoredFill, user core.User) (rowRef string, err error)
	}
)
