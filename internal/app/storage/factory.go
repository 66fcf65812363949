// Package storage selects the platform data backend. Each Factory returns a
// store together with the transaction manager that matches it.
package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/omprussia/weblate-omp/internal/config"
	"github.com/omprussia/weblate-omp/internal/store"
	"github.com/omprussia/weblate-omp/internal/store/db"
	"github.com/omprussia/weblate-omp/internal/store/inmemory"
	"github.com/omprussia/weblate-omp/internal/txn"
)

// Factory provides the storage-dependent components as a family.
type Factory interface {
	// Store returns the platform store.
	Store() store.Store

	// Transactions returns the transaction manager of Store.
	Transactions() txn.Manager

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	// Cleanup releases any resources held by this factory.
	Cleanup()
}

// NewStorageFactory creates the factory for the configured storage type.
func NewStorageFactory(ctx context.Context, cfg *config.Config) (Factory, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	switch cfg.Storage.Type {
	case config.StorageTypeDatabase:
		return NewDatabaseFactory(ctx, cfg.Database)
	case config.StorageTypeMemory, "":
		return NewMemoryFactory(inmemory.New()), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Storage.Type)
	}
}

// MemoryFactory keeps everything in process memory. Transactions only
// defer on-commit hooks.
type MemoryFactory struct {
	store *inmemory.Store
}

var _ Factory = (*MemoryFactory)(nil)

// NewMemoryFactory wraps s.
func NewMemoryFactory(s *inmemory.Store) *MemoryFactory {
	slog.Info("Using in-memory storage")
	return &MemoryFactory{store: s}
}

// Store implements Factory
func (m *MemoryFactory) Store() store.Store { return m.store }

// Transactions implements Factory
func (*MemoryFactory) Transactions() txn.Manager { return txn.NewMemoryManager() }

// Ping implements Factory
func (*MemoryFactory) Ping(context.Context) error { return nil }

// Cleanup implements Factory
func (*MemoryFactory) Cleanup() {}

// DatabaseFactory stores everything in PostgreSQL.
type DatabaseFactory struct {
	pool  *pgxpool.Pool
	store *db.Store
}

var _ Factory = (*DatabaseFactory)(nil)

// NewDatabaseFactory opens the connection pool described by cfg.
func NewDatabaseFactory(ctx context.Context, cfg *config.DatabaseConfig) (*DatabaseFactory, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration is required for database storage type")
	}
	slog.Info("Creating database-backed storage factory")

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection pool: %w", err)
	}
	return &DatabaseFactory{pool: pool, store: db.New(pool)}, nil
}

// Store implements Factory
func (d *DatabaseFactory) Store() store.Store { return d.store }

// Transactions implements Factory
func (d *DatabaseFactory) Transactions() txn.Manager { return txn.NewPgxManager(d.pool) }

// Ping implements Factory
func (d *DatabaseFactory) Ping(ctx context.Context) error { return d.pool.Ping(ctx) }

// Cleanup implements Factory
func (d *DatabaseFactory) Cleanup() {
	slog.Debug("Closing database connection pool")
	d.pool.Close()
}
