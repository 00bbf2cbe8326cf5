package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/soundprediction/recall/pkg/config"
)

// Open creates a SQLStore for the configured driver.
//   - sqlite: URI is a file path (":memory:" for a private in-memory database)
//   - postgres: URI is a PostgreSQL DSN
//
// If Driver is empty, defaults to sqlite.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*SQLStore, error) {
	switch Dialect(cfg.Driver) {
	case DialectSQLite, "":
		return OpenSQLite(ctx, cfg.URI, logger)

	case DialectPostgres:
		if cfg.URI == "" {
			return nil, fmt.Errorf("connection string is required")
		}
		pool := DefaultPoolConfig()
		if cfg.MaxOpenConns > 0 {
			pool.MaxOpenConns = cfg.MaxOpenConns
		}
		if cfg.MaxIdleConns > 0 {
			pool.MaxIdleConns = cfg.MaxIdleConns
		}
		if cfg.ConnMaxLifetime > 0 {
			pool.ConnMaxLifetime = cfg.ConnMaxLifetime
		}
		return OpenPostgres(ctx, cfg.URI, pool, logger)

	default:
		return nil, fmt.Errorf("unsupported database driver: %s (supported: sqlite, postgres)", cfg.Driver)
	}
}
