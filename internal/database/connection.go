package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Config holds optional pool sizing on top of the connection URL.
type Config struct {
	URL      string
	MaxConns int32
	MinConns int32
}

// Connect creates a pgx connection pool from a database URL and verifies it
// with a ping.
func Connect(ctx context.Context, url string) (*pgxpool.Pool, error) {
	return ConnectWithConfig(ctx, Config{URL: url})
}

// ConnectWithConfig creates a pgx connection pool with explicit pool sizing.
func ConnectWithConfig(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = cfg.MinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}
