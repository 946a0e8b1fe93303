package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/eslsoft/vocsync/internal/infrastructure/config"
	"github.com/eslsoft/vocsync/internal/infrastructure/logging"
)

const connectTimeout = 5 * time.Second

// NewPool creates a pgx connection pool for the remote document store.
func NewPool(ctx context.Context, cfg *config.Config, logger logrus.FieldLogger) (*pgxpool.Pool, func(), error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.RemoteURL())
	if err != nil {
		return nil, nil, fmt.Errorf("parse pool config: %w", err)
	}
	poolCfg.MaxConns = 10
	if cfg.Remote.MaxConns > 0 {
		poolCfg.MaxConns = cfg.Remote.MaxConns
	}
	if cfg.Remote.LogSQL {
		poolCfg.ConnConfig.Tracer = logging.PgxTracer(logger)
	}

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping db: %w", err)
	}

	return pool, pool.Close, nil
}

// OpenLocal opens the on-device word store database.
func OpenLocal(cfg *config.Config) (*sql.DB, func(), error) {
	switch cfg.DatabaseDriver() {
	case "postgres":
		return openPostgres(cfg.DatabaseURL())
	case "sqlite3":
		return openSQLite(cfg.DatabaseURL())
	default:
		return nil, nil, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver())
	}
}

func openPostgres(dsn string) (*sql.DB, func(), error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open postgres db: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("ping postgres db: %w", err)
	}
	return db, func() { _ = db.Close() }, nil
}

func openSQLite(dsn string) (*sql.DB, func(), error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON;"); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("enable sqlite foreign keys: %w", err)
	}
	return db, func() { _ = db.Close() }, nil
}
