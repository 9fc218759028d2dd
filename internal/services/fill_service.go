package services

import (
	"context"
	"time"

	"cardfill/internal/classify"
	"cardfill/internal/core"
	"cardfill/internal/intent"
	"cardfill/internal/ledger"
	"cardfill/internal/ports"
	"cardfill/internal/report"
	"cardfill/internal/scope"

	"github.com/shopspring/decimal"
)

// FillService is the single entry point the chat front end talks to. It
// wires the classifier, ledger, report aggregator and scope resolver over
// one store.
type FillService struct {
	store      ports.Store
	classifier *classify.Classifier
	ledger     *ledger.Ledger
	reports    *report.Aggregator
	scopes     *scope.Resolver
}

type options struct {
	publisher ports.FillEventPublisher
	now       func() time.Time
}

type Option func(*options)

// WithPublisher sends fill events after every successful write.
func WithPublisher(p ports.FillEventPublisher) Option {
	return func(o *options) { o.publisher = p }
}

func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func NewFillService(store ports.Store, contributors report.Contributors, opts ...Option) *FillService {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	classifier := classify.New(store)
	ledgerOpts := []ledger.Option{ledger.WithClock(o.now)}
	if o.publisher != nil {
		ledgerOpts = append(ledgerOpts, ledger.WithPublisher(o.publisher))
	}

	return &FillService{
		store:      store,
		classifier: classifier,
		ledger:     ledger.New(store, store, store, classifier, ledgerOpts...),
		reports:    report.New(store, store, contributors, report.WithClock(o.now)),
		scopes:     scope.NewResolver(store),
	}
}

// ParseIntent classifies raw chat text.
func (s *FillService) ParseIntent(text string) intent.Intent {
	return intent.Parse(text)
}

// ResolveScope returns core.ErrScopeNotConfigured for unknown chats.
func (s *FillService) ResolveScope(ctx context.Context, chatID int64) (core.FillScope, error) {
	return s.scopes.Resolve(ctx, chatID)
}

func (s *FillService) RecordFill(ctx context.Context, c intent.FillCandidate, user core.User, scope core.FillScope) (core.StoredFill, error) {
	return s.ledger.RecordFill(ctx, c, user, scope)
}

// GetFill loads a fill together with its category.
func (s *FillService) GetFill(ctx context.Context, id int64) (core.StoredFill, error) {
	f, err := s.store.GetFill(ctx, id)
	if err != nil {
		return core.StoredFill{}, err
	}
	cat, err := s.store.GetCategory(ctx, f.CategoryCode)
	if err != nil {
		return core.StoredFill{}, err
	}
	return core.StoredFill{Fill: f, Category: cat}, nil
}

func (s *FillService) ReassignCategory(ctx context.Context, fillID int64, code string) (core.StoredFill, error) {
	return s.ledger.ReassignCategory(ctx, fillID, code)
}

func (s *FillService) CreateCategoryForFill(ctx context.Context, fillID int64, name, code string, proportion decimal.Decimal) (core.StoredFill, error) {
	return s.ledger.CreateCategoryForFill(ctx, fillID, name, code, proportion)
}

func (s *FillService) ListCategories(ctx context.Context) ([]core.Category, error) {
	return s.store.ListCategories(ctx)
}

func (s *FillService) UserFills(ctx context.Context, userID int64, months []time.Month, year int, scope core.FillScope) ([]core.StoredFill, error) {
	return s.ledger.UserFills(ctx, userID, months, year, scope)
}

func (s *FillService) MonthlyReport(ctx context.Context, months []time.Month, year int, scope core.FillScope) (map[time.Month]core.SummaryOverPeriod, error) {
	return s.reports.MonthlyReport(ctx, months, year, scope)
}

func (s *FillService) MonthlyReportPreviousYear(ctx context.Context, months []time.Month, scope core.FillScope) (map[time.Month]core.SummaryOverPeriod, error) {
	return s.reports.MonthlyReportPreviousYear(ctx, months, scope)
}

func (s *FillService) YearlyReport(ctx context.Context, year int, scope core.FillScope) (core.SummaryOverPeriod, error) {
	return s.reports.YearlyReport(ctx, year, scope)
}

func (s *FillService) YearlyReportPreviousYear(ctx context.Context, scope core.FillScope) (core.SummaryOverPeriod, error) {
	return s.reports.YearlyReportPreviousYear(ctx, scope)
}

func (s *FillService) TotalReport(ctx context.Context, scope core.FillScope) ([]core.UserAmount, error) {
	return s.reports.TotalReport(ctx, scope)
}

func (s *FillService) CurrentYear() int  { return s.reports.CurrentYear() }
func (s *FillService) PreviousYear() int { return s.reports.PreviousYear() }
