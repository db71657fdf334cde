package services

import (
	"context"
	"testing"
	"time"

	"delivery-tracking-service/internal/adapters/routing"
	"delivery-tracking-service/internal/domain"
	"delivery-tracking-service/internal/ports"
	"delivery-tracking-service/pkg/logger"
)

func newTestPlanner(registry *fakeRegistry, tracking *fakeTrackingStore, plans *fakePlanStore, provider *routing.MockRouteProvider) *Planner {
	return NewPlanner(registry, tracking, plans, provider, PlannerConfig{}, logger.NewNop())
}

func twoOrderRegistry() *fakeRegistry {
	registry := newFakeRegistry()
	registry.drivers["drv-1"] = &domain.Driver{ID: "drv-1", Name: "Mo"}
	registry.orders["drv-1"] = []*domain.Order{
		{
			ID: "ord-1", DriverID: "drv-1", Status: domain.OrderAccepted,
			Pickup:  domain.Coordinates{Lat: 40.0, Lng: -3.0},
			Dropoff: domain.Coordinates{Lat: 40.1, Lng: -3.1},
		},
		{
			ID: "ord-2", DriverID: "drv-1", Status: domain.OrderCreated,
			Pickup:  domain.Coordinates{Lat: 40.2, Lng: -3.2},
			Dropoff: domain.Coordinates{Lat: 40.3, Lng: -3.3},
		},
	}
	return registry
}

func TestPlanForExpandsActiveOrders(t *testing.T) {
	registry := twoOrderRegistry()
	provider := &routing.MockRouteProvider{}
	planner := newTestPlanner(registry, &fakeTrackingStore{}, &fakePlanStore{}, provider)

	plan, err := planner.PlanFor(context.Background(), "drv-1", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(provider.Calls) != 1 {
		t.Fatalf("provider called %d times, want 1", len(provider.Calls))
	}
	stops := provider.Calls[0]
	if len(stops) != 4 {
		t.Fatalf("provider asked to optimize %d stops, want 4", len(stops))
	}

	// Order preserved: P1, D1, P2, D2.
	wantKinds := []domain.StopKind{domain.StopPickup, domain.StopDropoff, domain.StopPickup, domain.StopDropoff}
	wantOrders := []string{"ord-1", "ord-1", "ord-2", "ord-2"}
	for i, s := range stops {
		if s.Kind != wantKinds[i] || s.OrderID != wantOrders[i] {
			t.Fatalf("stop %d = {%s %s}, want {%s %s}", i, s.OrderID, s.Kind, wantOrders[i], wantKinds[i])
		}
	}

	if len(plan.Sequence) != 4 {
		t.Fatalf("sequence length = %d, want 4", len(plan.Sequence))
	}
	if err := plan.ValidateSequence(); err != nil {
		t.Fatalf("stored plan has invalid sequence: %v", err)
	}
	if plan.Degraded() {
		t.Fatal("provider-backed plan must not be degraded")
	}
	if plan.ID == 0 {
		t.Fatal("plan was not persisted")
	}
}

func TestPlanForFallsBackWhenProviderErrors(t *testing.T) {
	registry := twoOrderRegistry()
	provider := &routing.MockRouteProvider{Err: routing.ErrProviderDown}
	planner := newTestPlanner(registry, &fakeTrackingStore{}, &fakePlanStore{}, provider)

	plan, err := planner.PlanFor(context.Background(), "drv-1", nil)
	if err != nil {
		t.Fatalf("provider failure must not surface: %v", err)
	}

	if !plan.Degraded() {
		t.Fatal("fallback plan must be degraded")
	}
	if err := plan.ValidateSequence(); err != nil {
		t.Fatalf("fallback sequence invalid: %v", err)
	}
	if plan.TotalDistanceKm != 0 {
		t.Fatalf("fallback distance = %v, want 0", plan.TotalDistanceKm)
	}

	// Insertion order guarantees each pickup precedes its own dropoff.
	ordered := plan.OrderedStops()
	pickupSeen := map[string]bool{}
	for _, s := range ordered {
		switch s.Kind {
		case domain.StopPickup:
			pickupSeen[s.OrderID] = true
		case domain.StopDropoff:
			if !pickupSeen[s.OrderID] {
				t.Fatalf("dropoff for %q before its pickup", s.OrderID)
			}
		}
	}
}

func TestPlanForFallsBackOnInvalidSequence(t *testing.T) {
	registry := twoOrderRegistry()
	provider := &routing.MockRouteProvider{
		Route: &ports.OptimizedRoute{
			// Not a permutation: index 0 repeated, index 3 missing.
			Sequence:        []int{0, 0, 1, 2},
			TotalDistanceKm: 9.9,
		},
	}
	planner := newTestPlanner(registry, &fakeTrackingStore{}, &fakePlanStore{}, provider)

	plan, err := planner.PlanFor(context.Background(), "drv-1", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !plan.Degraded() {
		t.Fatal("invalid provider sequence must degrade the plan")
	}
	if err := plan.ValidateSequence(); err != nil {
		t.Fatalf("fallback sequence invalid: %v", err)
	}
}

func TestPlanForUsesOverrideStops(t *testing.T) {
	registry := twoOrderRegistry()
	provider := &routing.MockRouteProvider{}
	planner := newTestPlanner(registry, &fakeTrackingStore{}, &fakePlanStore{}, provider)

	override := []domain.Stop{
		{Lat: 1, Lng: 1, OrderID: "ord-9", Kind: domain.StopPickup},
		{Lat: 2, Lng: 2, OrderID: "ord-9", Kind: domain.StopDropoff},
	}

	plan, err := planner.PlanFor(context.Background(), "drv-1", override)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(provider.Calls[0]) != 2 {
		t.Fatalf("override ignored: provider got %d stops", len(provider.Calls[0]))
	}
	if len(plan.OrderIDs) != 1 || plan.OrderIDs[0] != "ord-9" {
		t.Fatalf("plan order ids = %v, want [ord-9]", plan.OrderIDs)
	}
}

func TestPlanForZeroStopsUsesLastKnownPosition(t *testing.T) {
	registry := newFakeRegistry()
	registry.drivers["drv-1"] = &domain.Driver{ID: "drv-1"}

	tracking := &fakeTrackingStore{}
	_, err := tracking.Append(context.Background(), &domain.TrackingSample{
		OrderID: "ord-old", DriverID: "drv-1",
		Latitude: 48.85, Longitude: 2.35,
		RecordedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("seed sample: %v", err)
	}

	provider := &routing.MockRouteProvider{}
	planner := newTestPlanner(registry, tracking, &fakePlanStore{}, provider)

	plan, err := planner.PlanFor(context.Background(), "drv-1", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(plan.Stops) != 1 {
		t.Fatalf("plan has %d stops, want 1 waypoint", len(plan.Stops))
	}
	if plan.Stops[0].Kind != domain.StopWaypoint {
		t.Fatalf("stop kind = %s, want waypoint", plan.Stops[0].Kind)
	}
	if plan.Stops[0].Lat != 48.85 {
		t.Fatalf("waypoint lat = %v, want last known 48.85", plan.Stops[0].Lat)
	}
}

func TestPlanForZeroStopsNoPositionReturnsEmptyDegradedPlan(t *testing.T) {
	registry := newFakeRegistry()
	registry.drivers["drv-1"] = &domain.Driver{ID: "drv-1"}

	provider := &routing.MockRouteProvider{}
	planner := newTestPlanner(registry, &fakeTrackingStore{}, &fakePlanStore{}, provider)

	plan, err := planner.PlanFor(context.Background(), "drv-1", nil)
	if err != nil {
		t.Fatalf("nothing to optimize must not error: %v", err)
	}

	if len(plan.Stops) != 0 || len(plan.Sequence) != 0 {
		t.Fatalf("expected empty plan, got %d stops", len(plan.Stops))
	}
	if !plan.Degraded() {
		t.Fatal("empty plan must be degraded")
	}
	if len(provider.Calls) != 0 {
		t.Fatal("provider must not be called with zero stops")
	}
}

func TestPlanForUnknownDriver(t *testing.T) {
	provider := &routing.MockRouteProvider{}
	planner := newTestPlanner(newFakeRegistry(), &fakeTrackingStore{}, &fakePlanStore{}, provider)

	if _, err := planner.PlanFor(context.Background(), "ghost", nil); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
