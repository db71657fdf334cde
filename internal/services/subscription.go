package services

import (
	"context"
	"fmt"
	"math"

	"delivery-tracking-service/internal/domain"
)

// PlanForSubscriptionOrders plans a route over the driver's active orders of
// one category, collapsing pickups that share a small geographic cell into a
// single bulk-pickup stop.
//
// The most-populated cell wins (ties broken by first appearance in registry
// order); its orders share one pickup stop followed by their dropoffs, and
// every other order keeps its own pickup/dropoff pair. Stop-count parity with
// the provider's scheduling response depends on this exact construction, so
// the grouping is deliberately deterministic.
func (p *Planner) PlanForSubscriptionOrders(ctx context.Context, driverID, category string) (*domain.RoutePlan, error) {
	driver, err := p.registry.FindDriver(ctx, driverID)
	if err != nil {
		return nil, fmt.Errorf("subscription plan for driver %q: find driver: %w", driverID, err)
	}
	if driver == nil {
		return nil, fmt.Errorf("subscription plan for driver %q: %w", driverID, ErrUnknownDriver)
	}

	orders, err := p.registry.ActiveOrdersForDriver(ctx, driverID)
	if err != nil {
		return nil, fmt.Errorf("subscription plan for driver %q: list active orders: %w", driverID, err)
	}

	filtered := make([]*domain.Order, 0, len(orders))
	for _, order := range orders {
		if order.Category == category {
			filtered = append(filtered, order)
		}
	}

	if len(filtered) == 0 {
		return p.persist(ctx, p.fallbackPlan(driverID, nil, nil))
	}

	stops, orderIDs := collapsePickups(filtered, p.subscriptionToleranceM)
	return p.optimizeAndPersist(ctx, driverID, orderIDs, stops)
}

// collapsePickups builds the stop list with the winning pickup cluster
// merged into one shared stop.
func collapsePickups(orders []*domain.Order, toleranceM float64) ([]domain.Stop, []string) {
	type cluster struct {
		firstSeen int
		orders    []*domain.Order
	}

	clusters := make(map[string]*cluster)
	for i, order := range orders {
		key := gridCell(order.Pickup, toleranceM)
		c, ok := clusters[key]
		if !ok {
			c = &cluster{firstSeen: i}
			clusters[key] = c
		}
		c.orders = append(c.orders, order)
	}

	// Most orders sharing a cell wins; ties broken by first-seen.
	var winner *cluster
	for _, c := range clusters {
		if winner == nil ||
			len(c.orders) > len(winner.orders) ||
			(len(c.orders) == len(winner.orders) && c.firstSeen < winner.firstSeen) {
			winner = c
		}
	}

	inWinner := make(map[string]struct{}, len(winner.orders))
	for _, order := range winner.orders {
		inWinner[order.ID] = struct{}{}
	}

	stops := make([]domain.Stop, 0, len(orders)*2)
	orderIDs := make([]string, 0, len(orders))

	// Shared pickup at the cluster's first pickup location, then the
	// dropoffs it serves.
	shared := winner.orders[0]
	stops = append(stops, domain.Stop{
		Lat:  shared.Pickup.Lat,
		Lng:  shared.Pickup.Lng,
		Kind: domain.StopPickup,
	})
	for _, order := range winner.orders {
		stops = append(stops, domain.Stop{
			Lat:     order.Dropoff.Lat,
			Lng:     order.Dropoff.Lng,
			OrderID: order.ID,
			Kind:    domain.StopDropoff,
		})
	}

	// Remaining orders keep their own pickup/dropoff pair, input order.
	for _, order := range orders {
		orderIDs = append(orderIDs, order.ID)
		if _, ok := inWinner[order.ID]; ok {
			continue
		}
		stops = append(stops,
			domain.Stop{Lat: order.Pickup.Lat, Lng: order.Pickup.Lng, OrderID: order.ID, Kind: domain.StopPickup},
			domain.Stop{Lat: order.Dropoff.Lat, Lng: order.Dropoff.Lng, OrderID: order.ID, Kind: domain.StopDropoff},
		)
	}

	return stops, orderIDs
}

// gridCell maps coordinates onto a square grid of roughly toleranceM meters.
// Pickups in the same cell are considered the same physical location.
func gridCell(c domain.Coordinates, toleranceM float64) string {
	// One degree of latitude is ~111.32 km; longitude cells use the same
	// size, which narrows slightly toward the poles but stays deterministic.
	cellDeg := toleranceM / 111320.0
	return fmt.Sprintf("%d:%d",
		int64(math.Floor(c.Lat/cellDeg)),
		int64(math.Floor(c.Lng/cellDeg)),
	)
}
