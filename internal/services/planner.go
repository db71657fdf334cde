package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"delivery-tracking-service/internal/domain"
	"delivery-tracking-service/internal/ports"
	"delivery-tracking-service/pkg/logger"
)

var ErrUnknownDriver = errors.New("unknown driver")

// Planner orchestrates route optimization for a driver: it builds the stop
// list from active orders, calls the external provider, normalizes the
// response, and persists the resulting plan.
//
// Provider failures never reach the caller. The worst outcome is a degraded
// plan in insertion order (pickup immediately before its own dropoff) with
// zero distance metrics, marked with {"mock": true} in the raw payload.
type Planner struct {
	registry ports.Registry
	tracking ports.TrackingStore
	plans    ports.RoutePlanStore
	provider ports.RouteProvider
	logger   *logger.Logger

	subscriptionToleranceM float64
	smartPathToleranceM    float64

	now func() time.Time
}

type PlannerConfig struct {
	// SubscriptionPickupToleranceM is the bulk-pickup clustering grid size.
	SubscriptionPickupToleranceM float64
	// SmartPathToleranceM is the pickup grouping radius for smart paths.
	SmartPathToleranceM float64
}

func NewPlanner(
	registry ports.Registry,
	tracking ports.TrackingStore,
	plans ports.RoutePlanStore,
	provider ports.RouteProvider,
	cfg PlannerConfig,
	log *logger.Logger,
) *Planner {
	if cfg.SubscriptionPickupToleranceM <= 0 {
		cfg.SubscriptionPickupToleranceM = 10
	}
	if cfg.SmartPathToleranceM <= 0 {
		cfg.SmartPathToleranceM = 100
	}

	return &Planner{
		registry:               registry,
		tracking:               tracking,
		plans:                  plans,
		provider:               provider,
		logger:                 log.Named("planner"),
		subscriptionToleranceM: cfg.SubscriptionPickupToleranceM,
		smartPathToleranceM:    cfg.SmartPathToleranceM,
		now:                    time.Now,
	}
}

// PlanFor computes and persists a new route plan for a driver.
//
// When stopsOverride is empty the driver's active orders are expanded into a
// pickup stop followed by its own dropoff stop, in registry order. A driver
// with nothing to do still gets a plan: a single waypoint at the last known
// position, or an empty degraded plan when no position was ever reported.
func (p *Planner) PlanFor(ctx context.Context, driverID string, stopsOverride []domain.Stop) (*domain.RoutePlan, error) {
	driver, err := p.registry.FindDriver(ctx, driverID)
	if err != nil {
		return nil, fmt.Errorf("plan for driver %q: find driver: %w", driverID, err)
	}
	if driver == nil {
		return nil, fmt.Errorf("plan for driver %q: %w", driverID, ErrUnknownDriver)
	}

	stops := stopsOverride
	var orderIDs []string

	if len(stops) == 0 {
		orders, err := p.registry.ActiveOrdersForDriver(ctx, driverID)
		if err != nil {
			return nil, fmt.Errorf("plan for driver %q: list active orders: %w", driverID, err)
		}
		stops, orderIDs = expandOrders(orders)
	} else {
		orderIDs = orderIDsFromStops(stops)
	}

	if len(stops) == 0 {
		last, err := p.tracking.LatestForDriver(ctx, driverID)
		if err != nil {
			p.logger.Warn("last position lookup failed, planning without one",
				logger.String("driver_id", driverID),
				logger.Error(err),
			)
		}
		if last != nil {
			stops = []domain.Stop{{
				Lat:  last.Latitude,
				Lng:  last.Longitude,
				Kind: domain.StopWaypoint,
			}}
		}
	}

	// Nothing to optimize must never become an error: persist an explicit
	// empty degraded plan so UI consumers always have a plan object.
	if len(stops) == 0 {
		return p.persist(ctx, p.fallbackPlan(driverID, nil, nil))
	}

	return p.optimizeAndPersist(ctx, driverID, orderIDs, stops)
}

// optimizeAndPersist runs the provider call with fallback and saves the plan.
func (p *Planner) optimizeAndPersist(ctx context.Context, driverID string, orderIDs []string, stops []domain.Stop) (*domain.RoutePlan, error) {
	route, err := p.provider.Optimize(ctx, stops)
	if err != nil {
		p.logger.Warn("provider optimization failed, using fallback plan",
			logger.String("driver_id", driverID),
			logger.Int("stops", len(stops)),
			logger.Error(err),
		)
		return p.persist(ctx, p.fallbackPlan(driverID, orderIDs, stops))
	}

	plan := &domain.RoutePlan{
		DriverID:             driverID,
		OrderIDs:             orderIDs,
		Stops:                stops,
		Sequence:             route.Sequence,
		Polyline:             route.Polyline,
		TotalDistanceKm:      route.TotalDistanceKm,
		EstimatedDurationSec: route.EstimatedDurationSec,
		ETAPerStop:           route.ETASeconds,
		Status:               domain.PlanPlanned,
		Provider:             p.provider.Name(),
		RawResponse:          route.Raw,
	}

	if err := plan.ValidateSequence(); err != nil {
		p.logger.Warn("provider returned invalid sequence, using fallback plan",
			logger.String("driver_id", driverID),
			logger.Error(err),
		)
		return p.persist(ctx, p.fallbackPlan(driverID, orderIDs, stops))
	}

	if plan.Polyline == "" {
		plan.Polyline = derivePolyline(plan.OrderedStops())
	}

	return p.persist(ctx, plan)
}

func (p *Planner) persist(ctx context.Context, plan *domain.RoutePlan) (*domain.RoutePlan, error) {
	stored, err := p.plans.Save(ctx, plan)
	if err != nil {
		return nil, fmt.Errorf("persist plan for driver %q: %w", plan.DriverID, err)
	}
	return stored, nil
}

// fallbackPlan keeps the stops in insertion order, which already guarantees
// pickup-before-own-dropoff, and zeroes the metrics the provider would have
// computed.
func (p *Planner) fallbackPlan(driverID string, orderIDs []string, stops []domain.Stop) *domain.RoutePlan {
	sequence := make([]int, len(stops))
	for i := range stops {
		sequence[i] = i
	}
	if orderIDs == nil {
		orderIDs = []string{}
	}
	if stops == nil {
		stops = []domain.Stop{}
	}

	return &domain.RoutePlan{
		DriverID:    driverID,
		OrderIDs:    orderIDs,
		Stops:       stops,
		Sequence:    sequence,
		Status:      domain.PlanPlanned,
		Provider:    p.provider.Name(),
		RawResponse: json.RawMessage(`{"mock":true}`),
	}
}

// expandOrders turns orders into stops, each pickup immediately followed by
// its own dropoff, preserving registry order.
func expandOrders(orders []*domain.Order) ([]domain.Stop, []string) {
	stops := make([]domain.Stop, 0, len(orders)*2)
	orderIDs := make([]string, 0, len(orders))

	for _, order := range orders {
		stops = append(stops,
			domain.Stop{Lat: order.Pickup.Lat, Lng: order.Pickup.Lng, OrderID: order.ID, Kind: domain.StopPickup},
			domain.Stop{Lat: order.Dropoff.Lat, Lng: order.Dropoff.Lng, OrderID: order.ID, Kind: domain.StopDropoff},
		)
		orderIDs = append(orderIDs, order.ID)
	}

	return stops, orderIDs
}

func orderIDsFromStops(stops []domain.Stop) []string {
	seen := make(map[string]struct{}, len(stops))
	out := make([]string, 0, len(stops))
	for _, s := range stops {
		if s.OrderID == "" {
			continue
		}
		if _, ok := seen[s.OrderID]; ok {
			continue
		}
		seen[s.OrderID] = struct{}{}
		out = append(out, s.OrderID)
	}
	return out
}

// derivePolyline renders the visiting path as "lat,lng" pairs joined by
// semicolons, for consumers that only need a drawable path.
func derivePolyline(orderedStops []domain.Stop) string {
	if len(orderedStops) == 0 {
		return ""
	}

	parts := make([]string, 0, len(orderedStops))
	for _, s := range orderedStops {
		parts = append(parts,
			strconv.FormatFloat(s.Lat, 'f', -1, 64)+","+strconv.FormatFloat(s.Lng, 'f', -1, 64))
	}
	return strings.Join(parts, ";")
}
