package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS customers (
		id             TEXT PRIMARY KEY,
		name           TEXT NOT NULL,
		wallet_address TEXT NOT NULL,
		tag            TEXT NOT NULL DEFAULT '',
		chains         TEXT,
		protocols      TEXT,
		total_value    DOUBLE PRECISION NOT NULL DEFAULT 0,
		total_debt     DOUBLE PRECISION NOT NULL DEFAULT 0,
		health_factor  DOUBLE PRECISION NOT NULL DEFAULT 0,
		status         TEXT NOT NULL DEFAULT 'unknown',
		last_update    TIMESTAMPTZ,
		email          TEXT,
		btc_wallet     TEXT,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS customers_wallet_address_key ON customers (wallet_address)`,
	`CREATE INDEX IF NOT EXISTS customers_created_at_idx ON customers (created_at DESC)`,
}

// Migrate applies the customer table DDL. Every statement is idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
