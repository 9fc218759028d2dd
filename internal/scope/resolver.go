// Package scope maps Telegram chats to the fill scope they record into.
package scope

import (
	"context"
	"errors"
	"strconv"

	"cardfill/internal/cache"
	"cardfill/internal/core"
	"cardfill/internal/ports"
)

const scopeCacheSize = 512

// Resolver looks up scopes by chat id. Scopes are provisioned out of band
// and never change once created, so hits are cached without expiry.
type Resolver struct {
	repo  ports.ScopeRepository
	cache *cache.LRUCache[core.FillScope]
}

func NewResolver(repo ports.ScopeRepository) *Resolver {
	return &Resolver{
		repo:  repo,
		cache: cache.NewLRUCache[core.FillScope](scopeCacheSize, 0),
	}
}

// Resolve returns the scope bound to chatID. A chat without a scope yields
// core.ErrScopeNotConfigured; other repository errors are returned as is.
func (r *Resolver) Resolve(ctx context.Context, chatID int64) (core.FillScope, error) {
	key := strconv.FormatInt(chatID, 10)
	if s, ok := r.cache.Get(key); ok {
		return s, nil
	}
	s, err := r.repo.GetScopeByChatID(ctx, chatID)
	if errors.Is(err, core.ErrNotFound) {
		return core.FillScope{}, core.ErrScopeNotConfigured
	}
	if err != nil {
		return core.FillScope{}, err
	}
	r.cache.Set(key, s)
	return s, nil
}

