package scope

import (
	"context"
	"errors"
	"testing"

	"cardfill/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockScopes struct {
	GetScopeByChatIDFunc func(ctx context.Context, chatID int64) (core.FillScope, error)
	calls                int
}

func (m *mockScopes) GetScopeByChatID(ctx context.Context, chatID int64) (core.FillScope, error) {
	m.calls++
	return m.GetScopeByChatIDFunc(ctx, chatID)
}

func TestResolveCachesHits(t *testing.T) {
	want := core.FillScope{ID: 3, Type: core.ScopeGroup, ChatID: -100}
	repo := &mockScopes{GetScopeByChatIDFunc: func(_ context.Context, chatID int64) (core.FillScope, error) {
		if chatID == want.ChatID {
			return want, nil
		}
		return core.FillScope{}, core.ErrNotFound
	}}
	r := NewResolver(repo)

	for range 3 {
		got, err := r.Resolve(context.Background(), -100)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	assert.Equal(t, 1, repo.calls)
}

func TestResolveMissingScope(t *testing.T) {
	repo := &mockScopes{GetScopeByChatIDFunc: func(context.Context, int64) (core.FillScope, error) {
		return core.FillScope{}, core.ErrNotFound
	}}
	r := NewResolver(repo)

	_, err := r.Resolve(context.Background(), 42)
	assert.ErrorIs(t, err, core.ErrScopeNotConfigured)
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = r.Resolve(context.Background(), 42)
	require.Error(t, err)
	assert.Equal(t, 2, repo.calls, "misses are not cached")
}

func TestResolvePropagatesRepositoryErrors(t *testing.T) {
	boom := errors.New("db down")
	repo := &mockScopes{GetScopeByChatIDFunc: func(context.Context, int64) (core.FillScope, error) {
		return core.FillScope{}, boom
	}}
	_, err := NewResolver(repo).Resolve(context.Background(), 1)
	assert.Same(t, boom, err)
}
