package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"cardfill/internal/amqp"
	"cardfill/internal/core"
	"cardfill/internal/storage/memory"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockExporter struct {
	AppendFillFunc func(ctx context.Context, f core.StoredFill, u core.User) (string, error)
	calls          []core.StoredFill
}

func (m *mockExporter) AppendFill(ctx context.Context, f core.StoredFill, u core.User) (string, error) {
	m.calls = append(m.calls, f)
	if m.AppendFillFunc != nil {
		return m.AppendFillFunc(ctx, f, u)
	}
	return "Fills!A1:H1", nil
}

type fakeSource struct {
	events []*amqp.FillEvent
	errs   []error
}

func (s *fakeSource) ConsumeFillEvents(ctx context.Context, handler func(context.Context, *amqp.FillEvent) error) error {
	for _, e := range s.events {
		s.errs = append(s.errs, handler(ctx, e))
	}
	return context.Canceled
}

func seeded(t *testing.T) (*memory.Store, int64) {
	t.Helper()
	ctx := context.Background()
	store := memory.New(core.Category{Code: "FOOD", Name: "Еда"})
	require.NoError(t, store.CreateUser(ctx, core.User{ID: 7, Username: "vasya"}))
	id, err := store.InsertFill(ctx, core.Fill{
		UserID: 7, Date: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		Amount: decimal.NewFromInt(100), Description: "lunch", CategoryCode: "FOOD", ScopeID: 1,
	})
	require.NoError(t, err)
	return store, id
}

func TestHandleFillEvent(t *testing.T) {
	store, id := seeded(t)
	exp := &mockExporter{}
	var gotUser core.User
	exp.AppendFillFunc = func(_ context.Context, _ core.StoredFill, u core.User) (string, error) {
		gotUser = u
		return "ok", nil
	}
	w := NewExportWorker(store, store, store, exp)

	require.NoError(t, w.HandleFillEvent(context.Background(), amqp.NewFillRecordedEvent(id)))
	require.Len(t, exp.calls, 1)
	assert.Equal(t, "Еда", exp.calls[0].Category.Name)
	assert.Equal(t, "vasya", gotUser.Username)
}

func TestHandleFillEventDropsMissingFill(t *testing.T) {
	store, _ := seeded(t)
	exp := &mockExporter{}
	w := NewExportWorker(store, store, store, exp)

	assert.NoError(t, w.HandleFillEvent(context.Background(), amqp.NewFillRecordedEvent(999)))
	assert.Empty(t, exp.calls)
}

func TestHandleFillEventExportFailureIsReturned(t *testing.T) {
	store, id := seeded(t)
	exp := &mockExporter{AppendFillFunc: func(context.Context, core.StoredFill, core.User) (string, error) {
		return "", errors.New("quota exceeded")
	}}
	w := NewExportWorker(store, store, store, exp)

	err := w.HandleFillEvent(context.Background(), amqp.NewFillRecategorizedEvent(id, "OTHER", "FOOD"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestRun(t *testing.T) {
	store, id := seeded(t)
	exp := &mockExporter{}
	w := NewExportWorker(store, store, store, exp)
	src := &fakeSource{events: []*amqp.FillEvent{amqp.NewFillRecordedEvent(id), amqp.NewFillRecordedEvent(404)}}

	require.NoError(t, w.Run(context.Background(), src))
	assert.Equal(t, []error{nil, nil}, src.errs)
	assert.Len(t, exp.calls, 1)
}
