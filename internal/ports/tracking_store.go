package ports

import (
	"context"

	"delivery-tracking-service/internal/domain"
)

// Port: append-only persistence of tracking samples.
type TrackingStore interface {
	// Append persists a sample and assigns its IngestSequence.
	// The store must not enforce referential integrity against order/driver
	// registries; a sample for an unknown order is still a valid sample.
	Append(ctx context.Context, sample *domain.TrackingSample) (*domain.TrackingSample, error)

	// ListRecent returns up to limit samples for an order, most recent first
	// (ordered by RecordedAt, ties broken by IngestSequence).
	ListRecent(ctx context.Context, orderID string, limit int) ([]*domain.TrackingSample, error)

	// LatestForDriver returns the driver's most recent sample across all
	// orders, or nil when the driver has never reported a position.
	LatestForDriver(ctx context.Context, driverID string) (*domain.TrackingSample, error)
}
