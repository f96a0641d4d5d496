// Package db owns the Postgres schema and connection pool setup.
package db

import (
	"context"
	"embed"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// MigrationFS holds the SQL migrations applied by the migrate subpackage.
//
//go:embed migrations/*.sql
var MigrationFS embed.FS

// PoolConfig tunes the pgx pool.
type PoolConfig struct {
	URL         string
	MaxConns    int32
	MinConns    int32
	PingTimeout time.Duration
}

// NewPool builds a pgxpool and validates connectivity. It does not run
// migrations.
func NewPool(ctx context.Context, cfg PoolConfig) (*pgxpool.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, err
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pcfg.MinConns = cfg.MinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, err
	}

	timeout := cfg.PingTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	if err := Ping(ctx, pool, timeout); err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}

// Ping checks that a connection can be acquired within timeout.
func Ping(parent context.Context, pool *pgxpool.Pool, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return err
	}
	conn.Release()
	return nil
}
