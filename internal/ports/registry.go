package ports

import (
	"context"

	"delivery-tracking-service/internal/domain"
)

// Port: order/driver registry lookups consumed by route planning.
//
// The tracking core depends on these capabilities instead of the services
// that own orders and drivers, which keeps the dependency graph acyclic.
type Registry interface {
	// FindDriver returns the driver or nil when unknown.
	FindDriver(ctx context.Context, driverID string) (*domain.Driver, error)

	// ActiveOrdersForDriver returns the driver's non-terminal orders with
	// pickup/dropoff coordinates, oldest first.
	ActiveOrdersForDriver(ctx context.Context, driverID string) ([]*domain.Order, error)
}
