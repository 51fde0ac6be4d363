// Package store opens the storage backend selected by configuration.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/JonMunkholm/orderimport/internal/config"
	"github.com/JonMunkholm/orderimport/internal/core"
	"github.com/JonMunkholm/orderimport/internal/store/memory"
	"github.com/JonMunkholm/orderimport/internal/store/postgres"
	"github.com/JonMunkholm/orderimport/internal/store/sqlite"
)

// Backend is a core.Store with lifecycle operations.
type Backend interface {
	core.Store

	// Migrate creates missing tables. It is idempotent.
	Migrate(ctx context.Context) error

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	Close() error
}

var (
	_ Backend = (*memory.Store)(nil)
	_ Backend = (*sqlite.Store)(nil)
	_ Backend = (*postgres.Store)(nil)
)

// Open connects to the backend named by cfg.Driver and applies the schema
// when cfg.AutoMigrate is set.
func Open(ctx context.Context, cfg config.DatabaseConfig) (Backend, error) {
	var (
		b   Backend
		err error
	)

	switch strings.ToLower(cfg.Driver) {
	case config.DriverPostgres:
		b, err = postgres.Open(ctx, cfg.URL, postgres.PoolConfig{
			MaxConns:        cfg.MaxConns,
			MinConns:        cfg.MinConns,
			MaxConnLifetime: cfg.MaxConnLifetime,
			MaxConnIdleTime: cfg.MaxConnIdleTime,
		})
	case config.DriverSQLite:
		b, err = sqlite.Open(cfg.URL)
	case config.DriverMemory:
		b = memory.New()
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Driver, err)
	}

	if cfg.AutoMigrate {
		if err := b.Migrate(ctx); err != nil {
			b.Close()
			return nil, fmt.Errorf("migrate %s store: %w", cfg.Driver, err)
		}
	}

	return b, nil
}
