// Package backend opens the configured data store.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"cardfill/internal/config"
	"cardfill/internal/core"
	"cardfill/internal/ports"
	"cardfill/internal/storage"
	"cardfill/internal/storage/memory"

	"github.com/shopspring/decimal"
)

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = config.BackendSQLite
	MemoryBackend BackendType = config.BackendMemory
)

func (bt BackendType) String() string { return string(bt) }

func (bt BackendType) IsValid() bool {
	return bt == SQLiteBackend || bt == MemoryBackend
}

// Admin provisions scopes and budgets. The bot never calls it; operators
// do through the CLI.
type Admin interface {
	CreateScope(ctx context.Context, scopeType core.ScopeType, chatID int64) (core.FillScope, error)
	SetBudget(ctx context.Context, code string, scopeID int64, limit decimal.Decimal) error
}

// Store is what every backend provides.
type Store interface {
	ports.Store
	Admin
}

// CleanupFunc releases backend resources.
type CleanupFunc func() error

type Result struct {
	Store   Store
	Cleanup CleanupFunc
}

// Open creates the store selected by cfg.DataBackend.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Result, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app config is nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	switch bt := BackendType(cfg.DataBackend); bt {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", cfg.SQLiteDBPath)
		return &Result{Store: repo, Cleanup: repo.Close}, nil

	case MemoryBackend:
		dataDir := cfg.DataDir
		if dataDir == "" {
			dataDir = "data"
		}
		store := memory.NewFromFiles(dataDir)
		logger.InfoContext(ctx, "Initialized memory backend", "data_dir", dataDir)
		return &Result{Store: store}, nil

	default:
		return nil, fmt.Errorf("unsupported backend type: %s", bt)
	}
}
