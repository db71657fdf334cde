package repositories

import (
	"database/sql"
	"errors"
	"fmt"
)

// Initialize the Postgres database schema. Run by cmd/dbtool against the
// deployment database; the server assumes the schema already exists.
func InitPostgresSchema(db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createSamplesQuery := `
	CREATE TABLE IF NOT EXISTS tracking_samples (
		id BIGSERIAL PRIMARY KEY,
		order_id TEXT NOT NULL,
		driver_id TEXT NOT NULL,
		latitude DOUBLE PRECISION NOT NULL,
		longitude DOUBLE PRECISION NOT NULL,
		speed DOUBLE PRECISION,
		heading DOUBLE PRECISION,
		recorded_at TIMESTAMPTZ NOT NULL
	);
	`

	createSamplesOrderIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_tracking_samples_order_recorded
	ON tracking_samples(order_id, recorded_at DESC, id DESC);
	`

	createSamplesDriverIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_tracking_samples_driver_recorded
	ON tracking_samples(driver_id, recorded_at DESC, id DESC);
	`

	createPlansQuery := `
	CREATE TABLE IF NOT EXISTS route_plans (
		id BIGSERIAL PRIMARY KEY,
		driver_id TEXT NOT NULL,
		order_ids JSONB NOT NULL,
		stops JSONB NOT NULL,
		sequence JSONB NOT NULL,
		polyline TEXT NOT NULL DEFAULT '',
		total_distance_km DOUBLE PRECISION NOT NULL DEFAULT 0,
		estimated_duration_sec INTEGER NOT NULL DEFAULT 0,
		eta_per_stop JSONB,
		status TEXT NOT NULL,
		provider TEXT NOT NULL,
		raw_response JSONB,
		created_at TIMESTAMPTZ NOT NULL
	);
	`

	createPlansIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_route_plans_driver_created
	ON route_plans(driver_id, created_at DESC, id DESC);
	`

	createDriversQuery := `
	CREATE TABLE IF NOT EXISTS drivers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'active'
	);
	`

	createOrdersQuery := `
	CREATE TABLE IF NOT EXISTS orders (
		id TEXT PRIMARY KEY,
		driver_id TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		pickup_lat DOUBLE PRECISION NOT NULL,
		pickup_lng DOUBLE PRECISION NOT NULL,
		dropoff_lat DOUBLE PRECISION NOT NULL,
		dropoff_lng DOUBLE PRECISION NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	);
	`

	createOrdersIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_orders_driver_status
	ON orders(driver_id, status);
	`

	statements := []string{
		createSamplesQuery,
		createSamplesOrderIndexQuery,
		createSamplesDriverIndexQuery,
		createPlansQuery,
		createPlansIndexQuery,
		createDriversQuery,
		createOrdersQuery,
		createOrdersIndexQuery,
	}

	for i, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}
