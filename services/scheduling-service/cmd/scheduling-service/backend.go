package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/md-rashed-zaman/clinicagenda/libs/config"
	"github.com/md-rashed-zaman/clinicagenda/libs/db"
	"github.com/md-rashed-zaman/clinicagenda/libs/runtime"
	"github.com/md-rashed-zaman/clinicagenda/services/scheduling-service/internal/consumer"
	"github.com/md-rashed-zaman/clinicagenda/services/scheduling-service/internal/outbox"
	"github.com/md-rashed-zaman/clinicagenda/services/scheduling-service/internal/storage"
	"github.com/md-rashed-zaman/clinicagenda/services/scheduling-service/internal/storage/postgres"
	"github.com/md-rashed-zaman/clinicagenda/services/scheduling-service/internal/storage/sqlite"
)

// backend is the storage selected by STORE_DRIVER together with the outbox
// and inbox views of it.
type backend struct {
	store  storage.Store
	outbox outbox.Source
	inbox  consumer.Inbox
	ready  runtime.ReadyCheck
	pool   *db.Pool
	close  func()
}

func openBackend(ctx context.Context, logger *slog.Logger, autoMigrate bool) (*backend, error) {
	switch driver := strings.ToLower(config.String("STORE_DRIVER", "postgres")); driver {
	case "postgres":
		dbURL, err := config.RequiredString("DATABASE_URL")
		if err != nil {
			return nil, err
		}
		pool, err := db.Open(ctx, dbURL, db.PoolOptions{
			MaxConns:        int32(config.Int("DB_MAX_CONNS", 10)),
			MinConns:        int32(config.Int("DB_MIN_CONNS", 1)),
			MaxConnLifetime: config.Duration("DB_MAX_CONN_LIFETIME", 0),
			MaxConnIdleTime: config.Duration("DB_MAX_CONN_IDLE_TIME", 0),
		})
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if autoMigrate {
			if _, err := migratePostgres(ctx, pool, logger); err != nil {
				pool.Close()
				return nil, err
			}
		}
		store := postgres.New(pool)
		return &backend{
			store:  store,
			outbox: store.Outbox(),
			inbox:  store,
			ready:  runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
			pool:   pool,
			close:  pool.Close,
		}, nil
	case "sqlite":
		store, err := sqlite.Open(config.String("SQLITE_DSN", "clinicagenda.db"))
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		return &backend{
			store:  store,
			outbox: store,
			inbox:  store,
			ready:  runtime.ReadyCheck{Name: "db", Check: store.Ping},
			close: func() {
				if err := store.Close(); err != nil {
					logger.Warn("sqlite close failed", "err", err)
				}
			},
		}, nil
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", driver)
	}
}

func migratePostgres(ctx context.Context, pool *db.Pool, logger *slog.Logger) (int, error) {
	migrations, err := postgres.Migrations()
	if err != nil {
		return 0, err
	}
	n, err := db.Migrate(ctx, pool, migrations, logger)
	if err != nil {
		return n, fmt.Errorf("migrate: %w", err)
	}
	return n, nil
}
