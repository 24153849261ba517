package components

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"offer-relay/internal/infra/db"
	"offer-relay/internal/infra/lock"
	"offer-relay/internal/infra/uow"
	"offer-relay/internal/pkg/config"
	"offer-relay/internal/pkg/errs"
	"offer-relay/internal/usecase/shared"

	"go.uber.org/fx"
)

const (
	connectTimeout   = 15 * time.Second
	advisoryLockName = "offer-relay/ingestion"
	lockFileSuffix   = ".ingest.lock"
	memoryLockFile   = "offer-relay-ingest.lock"
	sqliteMemoryPath = ":memory:"
)

// Store bundles the persisted offer store with the ingestion lock that fits its driver.
type Store struct {
	UoW     shared.UnitOfWork
	Lock    shared.CycleLock
	Driver  string
	Migrate func(ctx context.Context) error
}

// NewStore connects to the configured driver and applies the schema.
func NewStore(lc fx.Lifecycle, cfg config.Config, loc *time.Location, logger *slog.Logger) (*Store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	var (
		store   *Store
		cleanup func()
	)
	switch cfg.Store.Driver {
	case config.StoreDriverSQLite:
		sqlDB, closeDB, err := db.OpenSQLite(cfg.Store.SQLitePath, logger)
		if err != nil {
			return nil, err
		}
		cleanup = closeDB
		store = &Store{
			UoW:     uow.NewSQLiteUoW(sqlDB, loc, logger),
			Lock:    lock.NewFileCycleLock(lockFilePath(cfg.Store.SQLitePath), cfg.Ingest.LockTTL, logger),
			Driver:  config.StoreDriverSQLite,
			Migrate: func(ctx context.Context) error { return db.MigrateSQLite(ctx, sqlDB) },
		}
	default:
		pool, closePool, err := db.ConnectPostgres(ctx, cfg.DB, logger)
		if err != nil {
			return nil, err
		}
		cleanup = closePool
		store = &Store{
			UoW:     uow.NewPostgresUoW(pool, loc, logger),
			Lock:    lock.NewPostgresCycleLock(pool, advisoryLockName, logger),
			Driver:  config.StoreDriverPostgres,
			Migrate: func(ctx context.Context) error { return db.MigratePostgres(ctx, pool) },
		}
	}

	if err := store.Migrate(ctx); err != nil {
		cleanup()
		return nil, errs.Wrap(err, "apply schema")
	}
	logger.Info("offer store ready", "driver", store.Driver)

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			cleanup()
			return nil
		},
	})
	return store, nil
}

func lockFilePath(sqlitePath string) string {
	if sqlitePath == "" || sqlitePath == sqliteMemoryPath {
		return filepath.Join(os.TempDir(), memoryLockFile)
	}
	return sqlitePath + lockFileSuffix
}
