package storage

type Category struct {
	Code       string
	Name       string
	Proportion string
}

type CategoryAlias struct {
	CategoryCode string
	Alias        string
}

type CardFill struct {
	ID           int64
	UserID       int64
	FillDate     string
	FillYear     int64
	FillMonth    int64
	AmountCents  int64
	Description  string
	CategoryCode string
	ScopeID      int64
}

type FillScope struct {
	ID        int64
	ScopeType string
	ChatID    int64
}

type TelegramUser struct {
	ID           int64
	IsBot        bool
	FirstName    string
	LastName     string
	Username     string
	LanguageCode string
}

type UserSumRow struct {
	FillMonth   int64
	UserID      int64
	Username    string
	FirstName   string
	LastName    string
	AmountCents int64
}

type CategorySumRow struct {
	FillMonth   int64
	Code        string
	Name        string
	Proportion  string
	AmountCents int64
}
