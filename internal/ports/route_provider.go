package ports

import (
	"context"
	"encoding/json"

	"delivery-tracking-service/internal/domain"
)

// OptimizedRoute is a normalized response from the optimization provider.
type OptimizedRoute struct {
	// Sequence is the visiting order as a permutation of stop indices.
	Sequence []int
	// ETASeconds holds the estimated arrival offset per stop, aligned with
	// the input stop indices.
	ETASeconds           []float64
	TotalDistanceKm      float64
	EstimatedDurationSec int
	Polyline             string
	Raw                  json.RawMessage
}

// Contract for the external route optimization provider.
//
// The provider is untrusted: it may be slow, unavailable, or return a
// sequence that is not a valid permutation. Callers own the fallback.
type RouteProvider interface {
	Optimize(ctx context.Context, stops []domain.Stop) (*OptimizedRoute, error)

	// Name identifies the provider in persisted plans.
	Name() string
}
