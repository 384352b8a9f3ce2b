package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// DB stores run history in PostgreSQL
type DB struct {
	conn   *sql.DB
	logger logrus.FieldLogger
}

// NewDB connects to PostgreSQL and creates the tables if they don't exist.
// An empty connStr is built from the DB_* environment variables.
func NewDB(ctx context.Context, connStr string, logger logrus.FieldLogger) (*DB, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if connStr == "" {
		connStr = connStringFromEnv()
	}

	conn, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{conn: conn, logger: logger}
	if err := db.initSchema(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

func connStringFromEnv() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		getEnvOrDefault("DB_HOST", "localhost"),
		getEnvOrDefault("DB_PORT", "5432"),
		getEnvOrDefault("DB_USER", "netflix_pricing"),
		getEnvOrDefault("DB_PASSWORD", ""),
		getEnvOrDefault("DB_NAME", "netflix_pricing"),
		getEnvOrDefault("DB_SSLMODE", "disable"),
	)
}

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) initSchema(ctx context.Context) error {
	_, err := db.conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS pricing_runs (
			id SERIAL PRIMARY KEY,
			started_at TIMESTAMPTZ NOT NULL,
			finished_at TIMESTAMPTZ NOT NULL,
			countries INTEGER NOT NULL DEFAULT 0,
			records INTEGER NOT NULL DEFAULT 0,
			ok_countries INTEGER NOT NULL DEFAULT 0,
			na_countries INTEGER NOT NULL DEFAULT 0,
			error_countries INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create pricing_runs table: %w", err)
	}

	_, err = db.conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS price_records (
			id SERIAL PRIMARY KEY,
			run_id INTEGER NOT NULL REFERENCES pricing_runs(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			country TEXT NOT NULL,
			plan TEXT NOT NULL,
			price TEXT NOT NULL,
			currency TEXT NOT NULL DEFAULT '',
			amount_text TEXT NOT NULL DEFAULT '',
			amount NUMERIC,
			note TEXT NOT NULL DEFAULT ''
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create price_records table: %w", err)
	}

	_, err = db.conn.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS idx_price_records_run_id ON price_records(run_id)
	`)
	if err != nil {
		return fmt.Errorf("failed to create price_records index: %w", err)
	}

	_, err = db.conn.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS idx_price_records_country ON price_records(country)
	`)
	if err != nil {
		return fmt.Errorf("failed to create country index: %w", err)
	}

	return nil
}
