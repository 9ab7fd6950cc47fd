// Package postgres stores crawl output and failed tasks in PostgreSQL.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS crawl_records (
	id           BIGSERIAL PRIMARY KEY,
	page_type    TEXT NOT NULL,
	record_key   TEXT NOT NULL,
	business_id  TEXT,
	payload      JSONB NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS crawl_records_business_id_idx ON crawl_records (business_id);

CREATE TABLE IF NOT EXISTS failed_tasks (
	id                     BIGSERIAL PRIMARY KEY,
	identity               TEXT NOT NULL UNIQUE,
	method                 TEXT NOT NULL,
	url                    TEXT NOT NULL,
	purpose                TEXT NOT NULL,
	failure_reason         TEXT NOT NULL,
	http_status_code       INTEGER NOT NULL DEFAULT 0,
	attempts               INTEGER NOT NULL DEFAULT 0,
	last_attempt_timestamp TIMESTAMPTZ NOT NULL
);`

// Connect opens a pool and verifies it with a ping.
func Connect(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}
	return pool, nil
}

// EnsureSchema creates the tables used by this package if they are missing.
func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
