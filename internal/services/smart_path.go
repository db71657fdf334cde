package services

import (
	"context"
	"fmt"
	"time"

	"delivery-tracking-service/internal/domain"
)

// SmartRoute is one bulk-pickup group with its dropoffs in visiting order.
// Smart paths are computed, not persisted: they are a pure, deterministic
// view over the driver's current workload.
type SmartRoute struct {
	OrderIDs        []string      `json:"order_ids"`
	Pickup          domain.Stop   `json:"pickup"`
	Dropoffs        []domain.Stop `json:"dropoffs"`
	TotalDistanceKm float64       `json:"total_distance_km"`
}

// SmartPath groups the driver's today's-and-accepted orders by pickup
// proximity and computes, per group, the route: last known position ->
// shared pickup -> dropoffs by a greedy nearest-neighbor walk.
//
// No external call is made. The walk minimizes the immediate next leg at
// each step; when two remaining dropoffs are equidistant, the first one in
// input order wins, so the output is stable across runs.
func (p *Planner) SmartPath(ctx context.Context, driverID string) ([]SmartRoute, error) {
	driver, err := p.registry.FindDriver(ctx, driverID)
	if err != nil {
		return nil, fmt.Errorf("smart path for driver %q: find driver: %w", driverID, err)
	}
	if driver == nil {
		return nil, fmt.Errorf("smart path for driver %q: %w", driverID, ErrUnknownDriver)
	}

	orders, err := p.registry.ActiveOrdersForDriver(ctx, driverID)
	if err != nil {
		return nil, fmt.Errorf("smart path for driver %q: list active orders: %w", driverID, err)
	}

	today := p.now().UTC().Truncate(24 * time.Hour)
	eligible := make([]*domain.Order, 0, len(orders))
	for _, order := range orders {
		if order.Status == domain.OrderAccepted || !order.CreatedAt.UTC().Before(today) {
			eligible = append(eligible, order)
		}
	}
	if len(eligible) == 0 {
		return []SmartRoute{}, nil
	}

	var origin *domain.Coordinates
	last, err := p.tracking.LatestForDriver(ctx, driverID)
	if err != nil {
		return nil, fmt.Errorf("smart path for driver %q: last position: %w", driverID, err)
	}
	if last != nil {
		pos := last.Position()
		origin = &pos
	}

	groups := groupByPickup(eligible, p.smartPathToleranceM)

	routes := make([]SmartRoute, 0, len(groups))
	for _, group := range groups {
		routes = append(routes, buildSmartRoute(group, origin))
	}
	return routes, nil
}

// groupByPickup assigns each order to the first existing group whose
// representative pickup lies within toleranceM, or starts a new group.
// Input order is preserved at every level.
func groupByPickup(orders []*domain.Order, toleranceM float64) [][]*domain.Order {
	groups := make([][]*domain.Order, 0, len(orders))

	for _, order := range orders {
		placed := false
		for i, group := range groups {
			if domain.WithinMeters(group[0].Pickup, order.Pickup, toleranceM) {
				groups[i] = append(groups[i], order)
				placed = true
				break
			}
		}
		if !placed {
			groups = append(groups, []*domain.Order{order})
		}
	}

	return groups
}

func buildSmartRoute(group []*domain.Order, origin *domain.Coordinates) SmartRoute {
	pickup := domain.Stop{
		Lat:  group[0].Pickup.Lat,
		Lng:  group[0].Pickup.Lng,
		Kind: domain.StopPickup,
	}

	orderIDs := make([]string, 0, len(group))
	remaining := make([]domain.Stop, 0, len(group))
	for _, order := range group {
		orderIDs = append(orderIDs, order.ID)
		remaining = append(remaining, domain.Stop{
			Lat:     order.Dropoff.Lat,
			Lng:     order.Dropoff.Lng,
			OrderID: order.ID,
			Kind:    domain.StopDropoff,
		})
	}

	total := 0.0
	if origin != nil {
		total += domain.HaversineKm(*origin, pickup.Position())
	}

	current := pickup.Position()
	ordered := make([]domain.Stop, 0, len(remaining))

	for len(remaining) > 0 {
		best := 0
		bestDist := domain.HaversineKm(current, remaining[0].Position())

		// Strict less-than keeps the first encountered on equal distance.
		for i := 1; i < len(remaining); i++ {
			if d := domain.HaversineKm(current, remaining[i].Position()); d < bestDist {
				best = i
				bestDist = d
			}
		}

		total += bestDist
		current = remaining[best].Position()
		ordered = append(ordered, remaining[best])
		remaining = append(remaining[:best], remaining[best+1:]...)
	}

	return SmartRoute{
		OrderIDs:        orderIDs,
		Pickup:          pickup,
		Dropoffs:        ordered,
		TotalDistanceKm: total,
	}
}
