package core

import (
	"context"
	"fmt"
	"time"

	"programhub/internal/infra/persistence/memory"
	"programhub/internal/infra/persistence/mongo"
	"programhub/internal/infra/persistence/postgres"
	"programhub/internal/infra/persistence/sqlite"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
	StorageMongo    StorageDriver = "mongo"    // MongoDB deployment
)

// StorageConfig selects and parameterises the backend.
type StorageConfig struct {
	Driver      StorageDriver
	SQLitePath  string
	PostgresDSN string
	Mongo       mongo.Config
	// Clock overrides the store clock used for record timestamps.
	Clock func() time.Time
}

// Closer is implemented by stores holding external resources.
type Closer interface {
	Close(ctx context.Context) error
}

type closeFunc func(ctx context.Context) error

func (f closeFunc) Close(ctx context.Context) error { return f(ctx) }

// OpenPersistentStore opens the configured backend. The driver defaults to
// sqlite. The returned Closer releases connections and files.
func OpenPersistentStore(ctx context.Context, cfg StorageConfig, engine *RulesEngine) (PersistentStore, Closer, error) {
	var opts []memory.Option
	if cfg.Clock != nil {
		opts = append(opts, memory.WithClock(cfg.Clock))
	}
	driver := cfg.Driver
	if driver == "" {
		driver = StorageSQLite
	}
	noop := closeFunc(func(context.Context) error { return nil })
	switch driver {
	case StorageMemory:
		return memory.NewStore(engine, opts...), noop, nil
	case StorageSQLite:
		path := cfg.SQLitePath
		if path == "" {
			path = sqlite.DefaultPath
		}
		store, err := sqlite.NewStore(ctx, path, engine, opts...)
		if err != nil {
			return nil, nil, err
		}
		return store, closeFunc(func(context.Context) error { return store.Close() }), nil
	case StoragePostgres:
		dsn := cfg.PostgresDSN
		if dsn == "" {
			dsn = postgres.DefaultDSN
		}
		store, err := postgres.NewStore(ctx, dsn, engine, opts...)
		if err != nil {
			return nil, nil, err
		}
		return store, closeFunc(func(context.Context) error { return store.Close() }), nil
	case StorageMongo:
		store, err := mongo.Open(ctx, cfg.Mongo, engine, opts...)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}
