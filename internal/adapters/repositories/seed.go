package repositories

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

type DriverSeed struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

type OrderSeed struct {
	ID         string    `json:"id"`
	DriverID   string    `json:"driver_id"`
	Category   string    `json:"category"`
	Status     string    `json:"status"`
	PickupLat  float64   `json:"pickup_lat"`
	PickupLng  float64   `json:"pickup_lng"`
	DropoffLat float64   `json:"dropoff_lat"`
	DropoffLng float64   `json:"dropoff_lng"`
	CreatedAt  time.Time `json:"created_at"`
}

type SeedFile struct {
	Drivers []DriverSeed `json:"drivers"`
	Orders  []OrderSeed  `json:"orders"`
}

// Populate the registry tables with driver and order data from a JSON file.
// The dialect selects placeholder and upsert syntax ("postgres" or "sqlite").
func SeedFromJSON(db *sql.DB, jsonPath string, dialect string) error {
	bytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return fmt.Errorf("seed registry: read %q: %w", jsonPath, err)
	}

	var data SeedFile
	if err := json.Unmarshal(bytes, &data); err != nil {
		return fmt.Errorf("seed registry: parse json: %w", err)
	}

	for i, d := range data.Drivers {
		if strings.TrimSpace(d.ID) == "" {
			return fmt.Errorf("seed registry: driver at index %d has empty id", i+1)
		}
	}
	for i, o := range data.Orders {
		if strings.TrimSpace(o.ID) == "" || strings.TrimSpace(o.DriverID) == "" {
			return fmt.Errorf("seed registry: order at index %d missing id or driver_id", i+1)
		}
	}

	var driverQuery, orderQuery string
	switch dialect {
	case "postgres":
		driverQuery = `
		INSERT INTO drivers (id, name, status) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, status = EXCLUDED.status;
		`
		orderQuery = `
		INSERT INTO orders (id, driver_id, category, status, pickup_lat, pickup_lng, dropoff_lat, dropoff_lng, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			driver_id = EXCLUDED.driver_id,
			category = EXCLUDED.category,
			status = EXCLUDED.status,
			pickup_lat = EXCLUDED.pickup_lat,
			pickup_lng = EXCLUDED.pickup_lng,
			dropoff_lat = EXCLUDED.dropoff_lat,
			dropoff_lng = EXCLUDED.dropoff_lng,
			created_at = EXCLUDED.created_at;
		`
	case "sqlite":
		driverQuery = `INSERT OR REPLACE INTO drivers (id, name, status) VALUES (?, ?, ?);`
		orderQuery = `
		INSERT OR REPLACE INTO orders (id, driver_id, category, status, pickup_lat, pickup_lng, dropoff_lat, dropoff_lng, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);
		`
	default:
		return fmt.Errorf("seed registry: unknown dialect %q", dialect)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("seed registry: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	driverStmt, err := tx.Prepare(driverQuery)
	if err != nil {
		return fmt.Errorf("seed registry: prepare driver insert: %w", err)
	}
	defer driverStmt.Close()

	for _, d := range data.Drivers {
		status := d.Status
		if status == "" {
			status = "active"
		}
		if _, err := driverStmt.Exec(d.ID, d.Name, status); err != nil {
			return fmt.Errorf("seed registry: insert driver %q: %w", d.ID, err)
		}
	}

	orderStmt, err := tx.Prepare(orderQuery)
	if err != nil {
		return fmt.Errorf("seed registry: prepare order insert: %w", err)
	}
	defer orderStmt.Close()

	for _, o := range data.Orders {
		createdAt := o.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		if _, err := orderStmt.Exec(
			o.ID, o.DriverID, o.Category, o.Status,
			o.PickupLat, o.PickupLng, o.DropoffLat, o.DropoffLng, createdAt,
		); err != nil {
			return fmt.Errorf("seed registry: insert order %q: %w", o.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed registry: commit tx: %w", err)
	}

	return nil
}
