package report

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"cardfill/internal/core"
	"cardfill/internal/ports"
	"cardfill/internal/storage/memory"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	minorID = 1
	majorID = 2
)

var group = core.FillScope{ID: 1, Type: core.ScopeGroup, ChatID: -100}

func fixture(t *testing.T) *memory.Store {
	t.Helper()
	ctx := context.Background()
	store := memory.New(
		core.Category{Code: "FOOD", Name: "Еда", Proportion: decimal.RequireFromString("0.5")},
		core.Category{Code: "RENT", Name: "Аренда", Proportion: decimal.RequireFromString("1")},
	)
	store.AddScope(group)
	require.NoError(t, store.SetBudget(ctx, "FOOD", group.ID, decimal.NewFromInt(1000)))
	require.NoError(t, store.CreateUser(ctx, core.User{ID: minorID, Username: "minor"}))
	require.NoError(t, store.CreateUser(ctx, core.User{ID: majorID, Username: "major"}))

	add := func(user int64, date time.Time, amount int64, code string) {
		t.Helper()
		_, err := store.InsertFill(ctx, core.Fill{UserID: user, Date: date, Amount: decimal.NewFromInt(amount), CategoryCode: code, ScopeID: group.ID})
		require.NoError(t, err)
	}
	add(minorID, time.Date(2023, time.March, 3, 0, 0, 0, 0, time.UTC), 300, "FOOD")
	add(majorID, time.Date(2023, time.March, 4, 0, 0, 0, 0, time.UTC), 900, "FOOD")
	add(majorID, time.Date(2023, time.April, 4, 0, 0, 0, 0, time.UTC), 500, "RENT")
	add(minorID, time.Date(2024, time.January, 4, 0, 0, 0, 0, time.UTC), 100, "FOOD")
	return store
}

func newAggregator(store *memory.Store, now time.Time) *Aggregator {
	return New(store, store, Contributors{MinorUserID: minorID, MajorUserID: majorID},
		WithClock(func() time.Time { return now }))
}

func TestMonthlyReportActualProportion(t *testing.T) {
	store := fixture(t)
	a := newAggregator(store, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))

	got, err := a.MonthlyReport(context.Background(), []time.Month{time.March}, 2023, group)
	require.NoError(t, err)
	require.Contains(t, got, time.March)

	march := got[time.March]
	assert.InDelta(t, 300.0/900.0, march.Proportions.Actual, 1e-9)
	assert.InDelta(t, 0.5, march.Proportions.Target, 1e-9)
	assert.True(t, march.Total().Equal(decimal.NewFromInt(1200)))

	require.Len(t, march.ByCategory, 1)
	food := march.ByCategory[0]
	assert.True(t, food.Budget.Valid)
	assert.True(t, food.Budget.Decimal.Equal(decimal.NewFromInt(1000)))
	assert.True(t, food.OverBudget())
}

func TestMonthlyReportNonComputable(t *testing.T) {
	store := fixture(t)
	a := newAggregator(store, time.Now())

	got, err := a.MonthlyReport(context.Background(), []time.Month{time.April, time.May}, 2023, group)
	require.NoError(t, err)

	april := got[time.April]
	assert.Equal(t, 0.0, april.Proportions.Actual, "minor without spend")
	assert.InDelta(t, 1.0, april.Proportions.Target, 1e-9)
	assert.False(t, april.ByCategory[0].Budget.Valid)

	may := got[time.May]
	assert.True(t, may.IsEmpty())
	assert.True(t, math.IsNaN(may.Proportions.Target))
	assert.Equal(t, 0.0, may.Proportions.Actual)
}

func TestMonthlyReportMajorAbsent(t *testing.T) {
	store := fixture(t)
	a := newAggregator(store, time.Now())

	got, err := a.MonthlyReport(context.Background(), []time.Month{time.January}, 2024, group)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(got[time.January].Proportions.Actual))
	assert.False(t, got[time.January].Proportions.HasActual())
}

func TestYearlyReport(t *testing.T) {
	store := fixture(t)
	a := newAggregator(store, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))

	got, err := a.YearlyReport(context.Background(), 2023, group)
	require.NoError(t, err)
	assert.True(t, got.Total().Equal(decimal.NewFromInt(1700)))
	assert.InDelta(t, 300.0/1400.0, got.Proportions.Actual, 1e-9)
	// (0.5/1.5*1200 + 0.5*500) / 1700 as a fraction, back to a proportion.
	frac := (1.0/3.0*1200 + 0.5*500) / 1700
	assert.InDelta(t, frac/(1-frac), got.Proportions.Target, 1e-9)

	prev, err := a.YearlyReportPreviousYear(context.Background(), group)
	require.NoError(t, err)
	assert.Equal(t, got, prev)
}

func TestPreviousYearFollowsClock(t *testing.T) {
	now := time.Date(2024, 12, 31, 23, 0, 0, 0, time.UTC)
	a := New(nil, nil, Contributors{}, WithClock(func() time.Time { return now }))
	assert.Equal(t, 2023, a.PreviousYear())
	now = now.Add(2 * time.Hour)
	assert.Equal(t, 2024, a.PreviousYear())
	assert.Equal(t, 2025, a.CurrentYear())
}

func TestMonthlyReportPreviousYear(t *testing.T) {
	store := fixture(t)
	a := newAggregator(store, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	got, err := a.MonthlyReportPreviousYear(context.Background(), []time.Month{time.March}, group)
	require.NoError(t, err)
	assert.InDelta(t, 300.0/900.0, got[time.March].Proportions.Actual, 1e-9)
}

func TestTotalReport(t *testing.T) {
	store := fixture(t)
	a := newAggregator(store, time.Now())
	got, err := a.TotalReport(context.Background(), group)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(majorID), got[0].UserID)
	assert.True(t, got[0].Amount.Equal(decimal.NewFromInt(1400)))
}

type failingReader struct {
	ports.AggregateReader
	err error
}

func (f failingReader) MonthlyByUser(context.Context, []time.Month, int, core.FillScope) (map[time.Month][]core.UserAmount, error) {
	return nil, f.err
}

func (f failingReader) MonthlyByCategory(context.Context, []time.Month, int, core.FillScope) (map[time.Month][]core.CategoryAmount, error) {
	return map[time.Month][]core.CategoryAmount{}, nil
}

func (f failingReader) YearlyByUser(context.Context, int, core.FillScope) ([]core.UserAmount, error) {
	return nil, nil
}

func (f failingReader) YearlyByCategory(context.Context, int, core.FillScope) ([]core.CategoryAmount, error) {
	return nil, f.err
}

func TestReaderErrorsReturnedUnmodified(t *testing.T) {
	boom := errors.New("db down")
	a := New(failingReader{err: boom}, memory.New(), Contributors{})

	_, err := a.MonthlyReport(context.Background(), []time.Month{time.March}, 2023, group)
	assert.Same(t, boom, err)

	_, err = a.YearlyReport(context.Background(), 2023, group)
	assert.Same(t, boom, err)
}
