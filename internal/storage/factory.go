package storage

import (
	"context"
	"fmt"

	"github.com/yourname/inkjournal/internal"
	"github.com/yourname/inkjournal/internal/config"
)

// Open builds the backend named by cfg.StorageBackend.
func Open(ctx context.Context, cfg *config.Config, logger internal.Logger) (Store, error) {
	switch cfg.StorageBackend {
	case "postgres":
		return NewPostgresStorage(ctx, cfg.PostgresDSN, logger)
	case "sqlite":
		return NewSQLiteStorage(ctx, cfg.SQLitePath, logger)
	case "file", "":
		return NewFileStorage(cfg.EntriesFile, cfg.InsightCacheFile, logger)
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", cfg.StorageBackend)
	}
}
