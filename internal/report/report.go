// Package report shapes pre-aggregated totals into per-month and per-year
// summaries with the minor/major proportion snapshot.
package report

import (
	"context"
	"time"

	"cardfill/internal/core"
	"cardfill/internal/ports"
	"cardfill/internal/proportion"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Contributors names the two users whose spend ratio is reported.
type Contributors struct {
	MinorUserID int64
	MajorUserID int64
}

type Aggregator struct {
	reader  ports.AggregateReader
	budgets ports.CategoryRepository
	users   Contributors
	now     func() time.Time
}

type Option func(*Aggregator)

func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

func New(reader ports.AggregateReader, budgets ports.CategoryRepository, users Contributors, opts ...Option) *Aggregator {
	a := &Aggregator{reader: reader, budgets: budgets, users: users, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// PreviousYear is the year before the current one, evaluated per call.
func (a *Aggregator) PreviousYear() int {
	return a.now().Year() - 1
}

// CurrentYear is the current calendar year, evaluated per call.
func (a *Aggregator) CurrentYear() int {
	return a.now().Year()
}

// MonthlyReport returns one summary per requested month. Months without
// fills map to an empty summary.
func (a *Aggregator) MonthlyReport(ctx context.Context, months []time.Month, year int, scope core.FillScope) (map[time.Month]core.SummaryOverPeriod, error) {
	var (
		byUser map[time.Month][]core.UserAmount
		byCat  map[time.Month][]core.CategoryAmount
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		byUser, err = a.reader.MonthlyByUser(gctx, months, year, scope)
		return err
	})
	g.Go(func() error {
		var err error
		byCat, err = a.reader.MonthlyByCategory(gctx, months, year, scope)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	budgets := map[string]decimal.NullDecimal{}
	out := make(map[time.Month]core.SummaryOverPeriod, len(months))
	for _, m := range months {
		cats := byCat[m]
		for i := range cats {
			b, ok := budgets[cats[i].Code]
			if !ok {
				var err error
				b, err = a.budgets.GetBudget(ctx, cats[i].Code, scope)
				if err != nil {
					return nil, err
				}
				budgets[cats[i].Code] = b
			}
			cats[i].Budget = b
		}
		out[m] = a.summarize(byUser[m], cats)
	}
	return out, nil
}

// YearlyReport summarizes all fills of year in scope.
func (a *Aggregator) YearlyReport(ctx context.Context, year int, scope core.FillScope) (core.SummaryOverPeriod, error) {
	var (
		byUser []core.UserAmount
		byCat  []core.CategoryAmount
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		byUser, err = a.reader.YearlyByUser(gctx, year, scope)
		return err
	})
	g.Go(func() error {
		var err error
		byCat, err = a.reader.YearlyByCategory(gctx, year, scope)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.SummaryOverPeriod{}, err
	}
	return a.summarize(byUser, byCat), nil
}

func (a *Aggregator) MonthlyReportPreviousYear(ctx context.Context, months []time.Month, scope core.FillScope) (map[time.Month]core.SummaryOverPeriod, error) {
	return a.MonthlyReport(ctx, months, a.PreviousYear(), scope)
}

func (a *Aggregator) YearlyReportPreviousYear(ctx context.Context, scope core.FillScope) (core.SummaryOverPeriod, error) {
	return a.YearlyReport(ctx, a.PreviousYear(), scope)
}

// TotalReport sums every fill in scope per user, all time.
func (a *Aggregator) TotalReport(ctx context.Context, scope core.FillScope) ([]core.UserAmount, error) {
	return a.reader.TotalByUser(ctx, scope)
}

func (a *Aggregator) summarize(byUser []core.UserAmount, byCat []core.CategoryAmount) core.SummaryOverPeriod {
	var minor, major decimal.NullDecimal
	for _, u := range byUser {
		switch u.UserID {
		case a.users.MinorUserID:
			minor = decimal.NewNullDecimal(u.Amount)
		case a.users.MajorUserID:
			major = decimal.NewNullDecimal(u.Amount)
		}
	}
	shares := make([]proportion.Share, len(byCat))
	for i, c := range byCat {
		shares[i] = proportion.Share{Amount: c.Amount, Proportion: c.Proportion}
	}
	return core.SummaryOverPeriod{
		ByUser:     byUser,
		ByCategory: byCat,
		Proportions: core.ProportionSnapshot{
			Target: proportion.Target(shares),
			Actual: proportion.Actual(minor, major),
		},
	}
}
