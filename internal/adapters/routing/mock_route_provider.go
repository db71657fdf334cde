package routing

import (
	"context"
	"encoding/json"
	"errors"

	"delivery-tracking-service/internal/domain"
	"delivery-tracking-service/internal/ports"
)

// MockRouteProvider returns canned responses for tests.
type MockRouteProvider struct {
	Route *ports.OptimizedRoute
	Err   error
	// Calls records every stop list the provider was asked to optimize.
	Calls [][]domain.Stop
}

func (m *MockRouteProvider) Name() string { return "mock" }

func (m *MockRouteProvider) Optimize(_ context.Context, stops []domain.Stop) (*ports.OptimizedRoute, error) {
	m.Calls = append(m.Calls, stops)

	if m.Err != nil {
		return nil, m.Err
	}
	if m.Route != nil {
		return m.Route, nil
	}

	// Default: identity sequence with trivial metrics.
	seq := make([]int, len(stops))
	etas := make([]float64, len(stops))
	for i := range stops {
		seq[i] = i
		etas[i] = float64(i * 60)
	}

	return &ports.OptimizedRoute{
		Sequence:             seq,
		ETASeconds:           etas,
		TotalDistanceKm:      1,
		EstimatedDurationSec: len(stops) * 60,
		Raw:                  json.RawMessage(`{"source":"mock"}`),
	}, nil
}

// ErrProviderDown is a convenience error for failure-path tests.
var ErrProviderDown = errors.New("route provider unavailable")
