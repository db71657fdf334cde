package ports

import (
	"context"

	"delivery-tracking-service/internal/domain"
)

// Port: persistence of computed route plans.
//
// Plans are superseded, never mutated: Save always inserts and LatestFor picks
// the newest CreatedAt. LatestFor sits on the ingestion hot path (deviation
// checks), so implementations keep it indexed.
type RoutePlanStore interface {
	Save(ctx context.Context, plan *domain.RoutePlan) (*domain.RoutePlan, error)
	LatestFor(ctx context.Context, driverID string) (*domain.RoutePlan, error)
}
