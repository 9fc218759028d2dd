package storage

import "context"

const listCategories = `SELECT code, name, proportion FROM category ORDER BY rowid`

func (q *Queries) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := q.db.QueryContext(ctx, listCategories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Category
	for rows.Next() {
		var i Category
		if err := rows.Scan(&i.Code, &i.Name, &i.Proportion); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const listAliases = `SELECT category_code, alias FROM category_alias ORDER BY id`

func (q *Queries) ListAliases(ctx context.Context) ([]CategoryAlias, error) {
	rows, err := q.db.QueryContext(ctx, listAliases)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CategoryAlias
	for rows.Next() {
		var i CategoryAlias
		if err := rows.Scan(&i.CategoryCode, &i.Alias); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const getCategory = `SELECT code, name, proportion FROM category WHERE code = ?`

func (q *Queries) GetCategory(ctx context.Context, code string) (Category, error) {
	var i Category
	err := q.db.QueryRowContext(ctx, getCategory, code).Scan(&i.Code, &i.Name, &i.Proportion)
	return i, err
}

const listAliasesByCategory = `SELECT alias FROM category_alias WHERE category_code = ? ORDER BY id`

func (q *Queries) ListAliasesByCategory(ctx context.Context, code string) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listAliasesByCategory, code)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var alias string
		if err := rows.Scan(&alias); err != nil {
			return nil, err
		}
		items = append(items, alias)
	}
	return items, rows.Err()
}

const createCategory = `INSERT INTO category (code, name, proportion) VALUES (?, ?, ?)`

func (q *Queries) CreateCategory(ctx context.Context, arg Category) error {
	_, err := q.db.ExecContext(ctx, createCategory, arg.Code, arg.Name, arg.Proportion)
	return err
}

const addAlias = `INSERT OR IGNORE INTO category_alias (category_code, alias) VALUES (?, ?)`

func (q *Queries) AddAlias(ctx context.Context, arg CategoryAlias) error {
	_, err := q.db.ExecContext(ctx, addAlias, arg.CategoryCode, arg.Alias)
	return err
}

const getBudget = `SELECT limit_cents FROM category_budget WHERE category_code = ? AND scope_id = ?`

func (q *Queries) GetBudget(ctx context.Context, code string, scopeID int64) (int64, error) {
	var limit int64
	err := q.db.QueryRowContext(ctx, getBudget, code, scopeID).Scan(&limit)
	return limit, err
}

const upsertBudget = `
INSERT INTO category_budget (category_code, scope_id, limit_cents) VALUES (?, ?, ?)
ON CONFLICT (category_code, scope_id) DO UPDATE SET limit_cents = excluded.limit_cents`

func (q *Queries) UpsertBudget(ctx context.Context, code string, scopeID, limitCents int64) error {
	_, err := q.db.ExecContext(ctx, upsertBudget, code, scopeID, limitCents)
	return err
}

const createFill = `
INSERT INTO card_fill (user_id, fill_date, fill_year, fill_month, amount_cents, description, category_code, scope_id)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id`

func (q *Queries) CreateFill(ctx context.Context, arg CardFill) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, createFill,
		arg.UserID, arg.FillDate, arg.FillYear, arg.FillMonth,
		arg.AmountCents, arg.Description, arg.CategoryCode, arg.ScopeID,
	).Scan(&id)
	return id, err
}

const fillColumns = `id, user_id, fill_date, fill_year, fill_month, amount_cents, description, category_code, scope_id`

func scanFill(row interface{ Scan(...any) error }) (CardFill, error) {
	var i CardFill
	err := row.Scan(&i.ID, &i.UserID, &i.FillDate, &i.FillYear, &i.FillMonth,
		&i.AmountCents, &i.Description, &i.CategoryCode, &i.ScopeID)
	return i, err
}

const getFill = `SELECT ` + fillColumns + ` FROM card_fill WHERE id = ?`

func (q *Queries) GetFill(ctx context.Context, id int64) (CardFill, error) {
	return scanFill(q.db.QueryRowContext(ctx, getFill, id))
}

const updateFillCategory = `UPDATE card_fill SET category_code = ? WHERE id = ?`

func (q *Queries) UpdateFillCategory(ctx context.Context, id int64, code string) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateFillCategory, code, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const listUserFills = `
SELECT ` + fillColumns + ` FROM card_fill
WHERE user_id = ? AND scope_id = ? AND fill_year = ?
ORDER BY fill_date, id`

func (q *Queries) ListUserFills(ctx context.Context, userID, scopeID int64, year int64) ([]CardFill, error) {
	rows, err := q.db.QueryContext(ctx, listUserFills, userID, scopeID, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CardFill
	for rows.Next() {
		i, err := scanFill(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const getScopeByChatID = `SELECT id, scope_type, chat_id FROM fill_scope WHERE chat_id = ?`

func (q *Queries) GetScopeByChatID(ctx context.Context, chatID int64) (FillScope, error) {
	var i FillScope
	err := q.db.QueryRowContext(ctx, getScopeByChatID, chatID).Scan(&i.ID, &i.ScopeType, &i.ChatID)
	return i, err
}

const createScope = `INSERT INTO fill_scope (scope_type, chat_id) VALUES (?, ?) RETURNING id`

func (q *Queries) CreateScope(ctx context.Context, scopeType string, chatID int64) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, createScope, scopeType, chatID).Scan(&id)
	return id, err
}

const getUser = `
SELECT id, is_bot, first_name, last_name, username, language_code
FROM telegram_user WHERE id = ?`

func (q *Queries) GetUser(ctx context.Context, id int64) (TelegramUser, error) {
	var i TelegramUser
	err := q.db.QueryRowContext(ctx, getUser, id).Scan(
		&i.ID, &i.IsBot, &i.FirstName, &i.LastName, &i.Username, &i.LanguageCode)
	return i, err
}

const createUser = `
INSERT INTO telegram_user (id, is_bot, first_name, last_name, username, language_code)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO NOTHING`

func (q *Queries) CreateUser(ctx context.Context, arg TelegramUser) error {
	_, err := q.db.ExecContext(ctx, createUser,
		arg.ID, arg.IsBot, arg.FirstName, arg.LastName, arg.Username, arg.LanguageCode)
	return err
}

// Aggregates. A month of 0 in the result rows means the whole period.

const sumByUserMonthly = `
SELECT f.fill_month, f.user_id, COALESCE(u.username, ''), COALESCE(u.first_name, ''), COALESCE(u.last_name, ''),
       SUM(f.amount_cents) AS total
FROM card_fill f LEFT JOIN telegram_user u ON u.id = f.user_id
WHERE f.scope_id = ? AND f.fill_year = ?
GROUP BY f.fill_month, f.user_id
ORDER BY f.fill_month, total DESC, f.user_id`

const sumByUserYearly = `
SELECT 0, f.user_id, COALESCE(u.username, ''), COALESCE(u.first_name, ''), COALESCE(u.last_name, ''),
       SUM(f.amount_cents) AS total
FROM card_fill f LEFT JOIN telegram_user u ON u.id = f.user_id
WHERE f.scope_id = ? AND f.fill_year = ?
GROUP BY f.user_id
ORDER BY total DESC, f.user_id`

const sumByUserTotal = `
SELECT 0, f.user_id, COALESCE(u.username, ''), COALESCE(u.first_name, ''), COALESCE(u.last_name, ''),
       SUM(f.amount_cents) AS total
FROM card_fill f LEFT JOIN telegram_user u ON u.id = f.user_id
WHERE f.scope_id = ?
GROUP BY f.user_id
ORDER BY total DESC, f.user_id`

func (q *Queries) SumByUserMonthly(ctx context.Context, scopeID, year int64) ([]UserSumRow, error) {
	return q.userSums(ctx, sumByUserMonthly, scopeID, year)
}

func (q *Queries) SumByUserYearly(ctx context.Context, scopeID, year int64) ([]UserSumRow, error) {
	return q.userSums(ctx, sumByUserYearly, scopeID, year)
}

func (q *Queries) SumByUserTotal(ctx context.Context, scopeID int64) ([]UserSumRow, error) {
	return q.userSums(ctx, sumByUserTotal, scopeID)
}

func (q *Queries) userSums(ctx context.Context, query string, args ...any) ([]UserSumRow, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []UserSumRow
	for rows.Next() {
		var i UserSumRow
		if err := rows.Scan(&i.FillMonth, &i.UserID, &i.Username, &i.FirstName, &i.LastName, &i.AmountCents); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const sumByCategoryMonthly = `
SELECT f.fill_month, c.code, c.name, c.proportion, SUM(f.amount_cents) AS total
FROM card_fill f JOIN category c ON c.code = f.category_code
WHERE f.scope_id = ? AND f.fill_year = ?
GROUP BY f.fill_month, c.code
ORDER BY f.fill_month, total DESC, c.code`

const sumByCategoryYearly = `
SELECT 0, c.code, c.name, c.proportion, SUM(f.amount_cents) AS total
FROM card_fill f JOIN category c ON c.code = f.category_code
WHERE f.scope_id = ? AND f.fill_year = ?
GROUP BY c.code
ORDER BY total DESC, c.code`

func (q *Queries) SumByCategoryMonthly(ctx context.Context, scopeID, year int64) ([]CategorySumRow, error) {
	return q.categorySums(ctx, sumByCategoryMonthly, scopeID, year)
}

func (q *Queries) SumByCategoryYearly(ctx context.Context, scopeID, year int64) ([]CategorySumRow, error) {
	return q.categorySums(ctx, sumByCategoryYearly, scopeID, year)
}

func (q *Queries) categorySums(ctx context.Context, query string, args ...any) ([]CategorySumRow, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CategorySumRow
	for rows.Next() {
		var i CategorySumRow
		if err := rows.Scan(&i.FillMonth, &i.Code, &i.Name, &i.Proportion, &i.AmountCents); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}
