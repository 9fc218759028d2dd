package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"cardfill/internal/core"
	"cardfill/internal/ports"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

var _ ports.Store = (*SQLiteRepository)(nil)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, queries: New(db)}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the database connection for health checks.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func notFound(err error, what string, key any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %v: %w", what, key, core.ErrNotFound)
	}
	return fmt.Errorf("get %s %v: %w", what, key, err)
}

// ListCategories returns categories in insertion order with their aliases.
func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.queries.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	aliases, err := r.queries.ListAliases(ctx)
	if err != nil {
		return nil, fmt.Errorf("list aliases: %w", err)
	}
	byCode := make(map[string][]string, len(rows))
	for _, a := range aliases {
		byCode[a.CategoryCode] = append(byCode[a.CategoryCode], a.Alias)
	}
	out := make([]core.Category, 0, len(rows))
	for _, row := range rows {
		out = append(out, toCategory(row, byCode[row.Code]))
	}
	return out, nil
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, code string) (core.Category, error) {
	row, err := r.queries.GetCategory(ctx, code)
	if err != nil {
		return core.Category{}, notFound(err, "category", code)
	}
	aliases, err := r.queries.ListAliasesByCategory(ctx, code)
	if err != nil {
		return core.Category{}, fmt.Errorf("list aliases of %s: %w", code, err)
	}
	return toCategory(row, aliases), nil
}

func (r *SQLiteRepository) AddAlias(ctx context.Context, code, alias string) error {
	if _, err := r.queries.GetCategory(ctx, code); err != nil {
		return notFound(err, "category", code)
	}
	if err := r.queries.AddAlias(ctx, CategoryAlias{CategoryCode: code, Alias: alias}); err != nil {
		return fmt.Errorf("add alias to %s: %w", code, err)
	}
	return nil
}

func (r *SQLiteRepository) GetBudget(ctx context.Context, code string, scope core.FillScope) (decimal.NullDecimal, error) {
	cents, err := r.queries.GetBudget(ctx, code, scope.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.NullDecimal{}, nil
	}
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("get budget %s: %w", code, err)
	}
	return decimal.NewNullDecimal(core.FromCents(cents)), nil
}

// SetBudget sets the monthly limit of a category in a scope.
func (r *SQLiteRepository) SetBudget(ctx context.Context, code string, scopeID int64, limit decimal.Decimal) error {
	if limit.IsNegative() {
		return fmt.Errorf("budget for %s cannot be negative", code)
	}
	cents, err := core.ToCents(limit)
	if err != nil {
		return fmt.Errorf("budget for %s: %w", code, err)
	}
	if err := r.queries.UpsertBudget(ctx, code, scopeID, cents); err != nil {
		return fmt.Errorf("set budget %s: %w", code, err)
	}
	return nil
}

// CreateCategory inserts the category and its initial aliases atomically.
func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) error {
	if err := c.Validate(); err != nil {
		return err
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	if err := q.CreateCategory(ctx, Category{Code: c.Code, Name: c.Name, Proportion: c.Proportion.String()}); err != nil {
		return fmt.Errorf("create category %s: %w", c.Code, err)
	}
	for _, a := range c.Aliases {
		if err := q.AddAlias(ctx, CategoryAlias{CategoryCode: c.Code, Alias: a}); err != nil {
			return fmt.Errorf("add alias to %s: %w", c.Code, err)
		}
	}
	if c.Budget.Valid {
		slog.WarnContext(ctx, "Category budget ignored, budgets are set per scope",
			"component", "storage", "category", c.Code)
	}
	return tx.Commit()
}

func (r *SQLiteRepository) InsertFill(ctx context.Context, f core.Fill) (int64, error) {
	if err := f.Validate(); err != nil {
		return 0, err
	}
	cents, err := core.ToCents(f.Amount)
	if err != nil {
		return 0, err
	}
	date := f.Date.UTC()
	id, err := r.queries.CreateFill(ctx, CardFill{
		UserID:       f.UserID,
		FillDate:     date.Format(time.RFC3339Nano),
		FillYear:     int64(date.Year()),
		FillMonth:    int64(date.Month()),
		AmountCents:  cents,
		Description:  f.Description,
		CategoryCode: f.CategoryCode,
		ScopeID:      f.ScopeID,
	})
	if err != nil {
		return 0, fmt.Errorf("create fill: %w", err)
	}

	slog.InfoContext(ctx, "Fill saved to SQLite",
		"component", "storage",
		"id", id,
		"amount_cents", cents,
		"category", f.CategoryCode)
	return id, nil
}

func (r *SQLiteRepository) GetFill(ctx context.Context, id int64) (core.Fill, error) {
	row, err := r.queries.GetFill(ctx, id)
	if err != nil {
		return core.Fill{}, notFound(err, "fill", id)
	}
	return toFill(row)
}

func (r *SQLiteRepository) UpdateFillCategory(ctx context.Context, id int64, code string) error {
	if _, err := r.queries.GetCategory(ctx, code); err != nil {
		return notFound(err, "category", code)
	}
	n, err := r.queries.UpdateFillCategory(ctx, id, code)
	if err != nil {
		return fmt.Errorf("update fill %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("fill %d: %w", id, core.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) ListUserFills(ctx context.Context, userID int64, months []time.Month, year int, scope core.FillScope) ([]core.Fill, error) {
	rows, err := r.queries.ListUserFills(ctx, userID, scope.ID, int64(year))
	if err != nil {
		return nil, fmt.Errorf("list fills of user %d: %w", userID, err)
	}
	var out []core.Fill
	for _, row := range rows {
		if !slices.Contains(months, time.Month(row.FillMonth)) {
			continue
		}
		f, err := toFill(row)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func (r *SQLiteRepository) GetScopeByChatID(ctx context.Context, chatID int64) (core.FillScope, error) {
	row, err := r.queries.GetScopeByChatID(ctx, chatID)
	if err != nil {
		return core.FillScope{}, notFound(err, "scope for chat", chatID)
	}
	return core.FillScope{ID: row.ID, Type: core.ScopeType(row.ScopeType), ChatID: row.ChatID}, nil
}

// CreateScope binds a chat to a new scope. Scopes are provisioned by an
// operator, never by the bot.
func (r *SQLiteRepository) CreateScope(ctx context.Context, scopeType core.ScopeType, chatID int64) (core.FillScope, error) {
	if !scopeType.IsValid() {
		return core.FillScope{}, fmt.Errorf("invalid scope type %q", scopeType)
	}
	id, err := r.queries.CreateScope(ctx, string(scopeType), chatID)
	if err != nil {
		return core.FillScope{}, fmt.Errorf("create scope for chat %d: %w", chatID, err)
	}
	return core.FillScope{ID: id, Type: scopeType, ChatID: chatID}, nil
}

func (r *SQLiteRepository) GetUser(ctx context.Context, id int64) (core.User, error) {
	row, err := r.queries.GetUser(ctx, id)
	if err != nil {
		return core.User{}, notFound(err, "user", id)
	}
	return core.User{
		ID:           row.ID,
		IsBot:        row.IsBot,
		FirstName:    row.FirstName,
		LastName:     row.LastName,
		Username:     row.Username,
		LanguageCode: row.LanguageCode,
	}, nil
}

func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) error {
	if u.ID == 0 {
		return core.ErrInvalidUser
	}
	err := r.queries.CreateUser(ctx, TelegramUser{
		ID:           u.ID,
		IsBot:        u.IsBot,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Username:     u.Username,
		LanguageCode: u.LanguageCode,
	})
	if err != nil {
		return fmt.Errorf("create user %d: %w", u.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) MonthlyByUser(ctx context.Context, months []time.Month, year int, scope core.FillScope) (map[time.Month][]core.UserAmount, error) {
	rows, err := r.queries.SumByUserMonthly(ctx, scope.ID, int64(year))
	if err != nil {
		return nil, fmt.Errorf("sum by user monthly: %w", err)
	}
	out := make(map[time.Month][]core.UserAmount, len(months))
	for _, m := range months {
		out[m] = nil
	}
	for _, row := range rows {
		m := time.Month(row.FillMonth)
		if _, ok := out[m]; ok {
			out[m] = append(out[m], toUserAmount(row))
		}
	}
	return out, nil
}

func (r *SQLiteRepository) MonthlyByCategory(ctx context.Context, months []time.Month, year int, scope core.FillScope) (map[time.Month][]core.CategoryAmount, error) {
	rows, err := r.queries.SumByCategoryMonthly(ctx, scope.ID, int64(year))
	if err != nil {
		return nil, fmt.Errorf("sum by category monthly: %w", err)
	}
	out := make(map[time.Month][]core.CategoryAmount, len(months))
	for _, m := range months {
		out[m] = nil
	}
	for _, row := range rows {
		m := time.Month(row.FillMonth)
		if _, ok := out[m]; !ok {
			continue
		}
		ca, err := toCategoryAmount(row)
		if err != nil {
			return nil, err
		}
		out[m] = append(out[m], ca)
	}
	return out, nil
}

func (r *SQLiteRepository) YearlyByUser(ctx context.Context, year int, scope core.FillScope) ([]core.UserAmount, error) {
	rows, err := r.queries.SumByUserYearly(ctx, scope.ID, int64(year))
	if err != nil {
		return nil, fmt.Errorf("sum by user yearly: %w", err)
	}
	return toUserAmounts(rows), nil
}

func (r *SQLiteRepository) YearlyByCategory(ctx context.Context, year int, scope core.FillScope) ([]core.CategoryAmount, error) {
	rows, err := r.queries.SumByCategoryYearly(ctx, scope.ID, int64(year))
	if err != nil {
		return nil, fmt.Errorf("sum by category yearly: %w", err)
	}
	out := make([]core.CategoryAmount, 0, len(rows))
	for _, row := range rows {
		ca, err := toCategoryAmount(row)
		if err != nil {
			return nil, err
		}
		out = append(out, ca)
	}
	return out, nil
}

func (r *SQLiteRepository) TotalByUser(ctx context.Context, scope core.FillScope) ([]core.UserAmount, error) {
	rows, err := r.queries.SumByUserTotal(ctx, scope.ID)
	if err != nil {
		return nil, fmt.Errorf("sum by user total: %w", err)
	}
	return toUserAmounts(rows), nil
}

func toCategory(row Category, aliases []string) core.Category {
	p, err := decimal.NewFromString(row.Proportion)
	if err != nil {
		slog.Warn("Invalid category proportion, using 0",
			"component", "storage", "category", row.Code, "proportion", row.Proportion)
		p = decimal.Zero
	}
	return core.Category{Code: row.Code, Name: row.Name, Aliases: aliases, Proportion: p}
}

func toFill(row CardFill) (core.Fill, error) {
	date, err := time.Parse(time.RFC3339Nano, row.FillDate)
	if err != nil {
		return core.Fill{}, fmt.Errorf("parse date of fill %d: %w", row.ID, err)
	}
	return core.Fill{
		ID:           row.ID,
		UserID:       row.UserID,
		Date:         date,
		Amount:       core.FromCents(row.AmountCents),
		Description:  row.Description,
		CategoryCode: row.CategoryCode,
		ScopeID:      row.ScopeID,
	}, nil
}

func toUserAmount(row UserSumRow) core.UserAmount {
	u := core.User{Username: row.Username, FirstName: row.FirstName, LastName: row.LastName}
	return core.UserAmount{UserID: row.UserID, Username: u.DisplayName(), Amount: core.FromCents(row.AmountCents)}
}

func toUserAmounts(rows []UserSumRow) []core.UserAmount {
	out := make([]core.UserAmount, 0, len(rows))
	for _, row := range rows {
		out = append(out, toUserAmount(row))
	}
	return out
}

func toCategoryAmount(row CategorySumRow) (core.CategoryAmount, error) {
	p, err := decimal.NewFromString(row.Proportion)
	if err != nil {
		return core.CategoryAmount{}, fmt.Errorf("category %s proportion %q: %w", row.Code, row.Proportion, err)
	}
	return core.CategoryAmount{
		Code:       row.Code,
		Name:       row.Name,
		Amount:     core.FromCents(row.AmountCents),
		Proportion: p,
	}, nil
}
