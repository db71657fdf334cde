package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"delivery-tracking-service/internal/domain"
)

// Postgres-backed implementation of the Registry port.
type SQLRegistry struct {
	DB *sql.DB
}

func NewSQLRegistry(db *sql.DB) *SQLRegistry {
	return &SQLRegistry{DB: db}
}

// FindDriver returns the driver row or nil when unknown.
func (r *SQLRegistry) FindDriver(ctx context.Context, driverID string) (*domain.Driver, error) {
	if r.DB == nil {
		return nil, errors.New("registry: DB is nil")
	}

	query := `SELECT id, name, status FROM drivers WHERE id = $1;`

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
func (r *SQLRegistry) ActiveOrdersForDriver(ctx context.Context, driverID string) ([]*domain.Order, error) {
	if r.DB == nil {
		return nil, errors.New("registry: DB is nil")
	}

	query := `
	SELECT id, driver_id, category, status, pickup_lat, pickup_lng, dropoff_lat, dropoff_lng, created_at
	FROM orders
	WHERE driver_id = $1 AND status NOT IN ('delivered', 'cancelled')
	ORDER BY created_at ASC, id ASC;
	`

	rows, err := r.DB.QueryContext(ctx, query, driverID)
	if err != nil {
		return nil, fmt.Errorf("active orders for driver %q: query: %w", driverID, err)
	}
	defer rows.Close()

	return scanOrders(rows)
}

func scanOrders(rows *sql.Rows) ([]*domain.Order, error) {
	orders := make([]*domain.Order, 0, 8)
	for rows.Next() {
		var (
			order  domain.Order
			status string
		)

		err := rows.Scan(
			&order.ID,
			&order.DriverID,
			&order.Category,
			&status,
			&order.Pickup.Lat,
			&order.Pickup.Lng,
			&order.Dropoff.Lat,
			&order.Dropoff.Lng,
			&order.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}

		order.Status = domain.OrderStatus(status)
		orders = append(orders, &order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("order row iteration: %w", err)
	}

	return orders, nil
}
