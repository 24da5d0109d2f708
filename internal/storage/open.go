package storage

import (
	"context"
	"fmt"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/vector"
)

// Backend names accepted by Open.
const (
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendMemory   = "memory"
)

// Open creates the vector store selected by cfg.Backend for vectors of the given dimension.
func Open(ctx context.Context, cfg *config.StoreConfig, dimensions int) (vector.Store, error) {
	switch cfg.Backend {
	case BackendPostgres:
		return NewPostgresStore(ctx, cfg.DatabaseURL, cfg.Table, dimensions, cfg.EnsureSchema, WithOpTimeout(cfg.Timeout))
	case BackendSQLite, "":
		return NewSQLiteStore(cfg.SQLitePath, dimensions)
	case BackendMemory:
		return vector.NewMemoryStore(dimensions)
	default:
		return nil, fmt.Errorf("%w: unknown store backend %q (supported: postgres, sqlite, memory)",
			models.ErrConfiguration, cfg.Backend)
	}
}
