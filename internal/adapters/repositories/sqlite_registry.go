package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"delivery-tracking-service/internal/domain"
)

// SQLite-backed implementation of the Registry port (local runs, tests).
type SqliteRegistry struct {
	DB *sql.DB
}

func NewSqliteRegistry(db *sql.DB) *SqliteRegistry {
	return &SqliteRegistry{DB: db}
}

// FindDriver returns the driver row or nil when unknown.
func (r *SqliteRegistry) FindDriver(ctx context.Context, driverID string) (*domain.Driver, error) {
	if r.DB == nil {
		return nil, errors.New("registry: DB is nil")
	}

	query := `SELECT id, name, status FROM drivers WHERE id = ?;`

	var driver domain.Driver
	err := r.DB.QueryRowContext(ctx, query, driverID).Scan(&driver.ID, &driver.Name, &driver.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find driver %q: %w", driverID, err)
	}

	return &driver, nil
}

// ActiveOrdersForDriver returns the driver's non-terminal orders, oldest first.
func (r *SqliteRegistry) ActiveOrdersForDriver(ctx context.Context, driverID string) ([]*domain.Order, error) {
	if r.DB == nil {
		return nil, errors.New("registry: DB is nil")
	}

	query := `
	SELECT id, driver_id, category, status, pickup_lat, pickup_lng, dropoff_lat, dropoff_lng, created_at
	FROM orders
	WHERE driver_id = ? AND status NOT IN ('delivered', 'cancelled')
	ORDER BY created_at ASC, id ASC;
	`

	rows, err := r.DB.QueryContext(ctx, query, driverID)
	if err != nil {
		return nil, fmt.Errorf("active orders for driver %q: query: %w", driverID, err)
	}
	defer rows.Close()

	return scanOrders(rows)
}
