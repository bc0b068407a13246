package postgres

import (
	"context"
	"fmt"

	"github.com/chrisdamba/prepcast/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPool connects to the database described by config and checks the connection.
func NewPool(ctx context.Context, config models.DatabaseConfig) (*pgxpool.Pool, error) {
	if config.URL == "" {
		return nil, fmt.Errorf("database url is not configured")
	}
	poolConfig, err := pgxpool.ParseConfig(config.URL)
	if err != nil {
		return nil, fmt.Errorf("error parsing database url: %w", err)
	}
	if config.MaxConns > 0 {
		poolConfig.MaxConns = config.MaxConns
	}
	if config.ConnectTimeout > 0 {
		poolConfig.ConnConfig.ConnectTimeout = config.ConnectTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("error pinging database: %w", err)
	}
	return pool, nil
}
