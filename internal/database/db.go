package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps the PostgreSQL connection pool.
type DB struct {
	Pool *pgxpool.Pool
}

// Config holds database configuration.
type Config struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"ssl_mode"`
}

// NewDB creates a new database connection pool and verifies connectivity.
func NewDB(cfg Config) (*DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Close closes the connection pool.
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}

// Migrate creates the schema if it does not exist.
func (db *DB) Migrate(ctx context.Context) error {
	_, err := db.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS recommendations (
			id               UUID PRIMARY KEY,
			symbol           TEXT NOT NULL,
			style            TEXT NOT NULL,
			action           TEXT NOT NULL,
			confidence       DOUBLE PRECISION NOT NULL,
			signal_consensus DOUBLE PRECISION NOT NULL,
			entry_min        DOUBLE PRECISION NOT NULL,
			entry_max        DOUBLE PRECISION NOT NULL,
			stop_loss        DOUBLE PRECISION NOT NULL,
			take_profit      DOUBLE PRECISION NOT NULL,
			risk_reward      DOUBLE PRECISION NOT NULL,
			position_units   DOUBLE PRECISION NOT NULL,
			position_pct     DOUBLE PRECISION NOT NULL,
			justification    TEXT NOT NULL,
			details          JSONB,
			created_at       TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_recommendations_symbol_created
			ON recommendations (symbol, created_at DESC);
	`)
	if err != nil {
		return fmt.Errorf("failed to migrate recommendations schema: %w", err)
	}
	return nil
}
