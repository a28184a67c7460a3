package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Timestamps are stored as unix nanoseconds so the optimistic updated_at
// comparison is exact on both SQLite and Postgres.
var schemaStatements = []string{
	`
	CREATE TABLE IF NOT EXISTS packages (
		tracking_number TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		description TEXT NOT NULL,
		weight DOUBLE PRECISION NOT NULL,
		length DOUBLE PRECISION NOT NULL,
		width DOUBLE PRECISION NOT NULL,
		height DOUBLE PRECISION NOT NULL,
		sender TEXT NOT NULL,
		recipient TEXT NOT NULL,
		payment_amount TEXT NOT NULL,
		payment_currency TEXT NOT NULL,
		payment_is_paid BOOLEAN NOT NULL,
		payment_method TEXT NOT NULL,
		payment_is_visible BOOLEAN NOT NULL,
		location_address TEXT,
		location_lat DOUBLE PRECISION,
		location_lng DOUBLE PRECISION,
		admin_id TEXT NOT NULL,
		package_type TEXT NOT NULL,
		date_shipped BIGINT,
		estimated_delivery BIGINT,
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL
	);
	`,
	`
	CREATE TABLE IF NOT EXISTS checkpoints (
		tracking_number TEXT NOT NULL REFERENCES packages(tracking_number) ON DELETE CASCADE,
		id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		status TEXT NOT NULL,
		location TEXT NOT NULL,
		lat DOUBLE PRECISION,
		lng DOUBLE PRECISION,
		occurred_at BIGINT NOT NULL,
		description TEXT NOT NULL,
		custom_date BOOLEAN NOT NULL,
		custom_time BOOLEAN NOT NULL,
		PRIMARY KEY (tracking_number, id)
	);
	`,
	`
	CREATE TABLE IF NOT EXISTS package_files (
		tracking_number TEXT NOT NULL REFERENCES packages(tracking_number) ON DELETE CASCADE,
		kind TEXT NOT NULL,
		position INTEGER NOT NULL,
		url TEXT NOT NULL,
		PRIMARY KEY (tracking_number, kind, position)
	);
	`,
	`
	CREATE TABLE IF NOT EXISTS geocode_cache (
		address TEXT PRIMARY KEY,
		lat DOUBLE PRECISION NOT NULL,
		lng DOUBLE PRECISION NOT NULL
	);
	`,
	`
	CREATE INDEX IF NOT EXISTS idx_packages_admin_created
	ON packages(admin_id, created_at);
	`,
	`
	CREATE INDEX IF NOT EXISTS idx_checkpoints_seq
	ON checkpoints(tracking_number, seq);
	`,
}

// InitSchema creates the tables used by the repository and the geocode cache.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i, stmt := range schemaStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}
