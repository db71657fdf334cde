package services

import (
	"context"
	"time"

	"delivery-tracking-service/internal/domain"
	"delivery-tracking-service/internal/ports"
	"delivery-tracking-service/pkg/logger"
)

const replanTimeout = 30 * time.Second

// Replanner triggers a route recomputation for a driver.
type Replanner interface {
	PlanFor(ctx context.Context, driverID string, stopsOverride []domain.Stop) (*domain.RoutePlan, error)
}

// DeviationMonitor compares each ingested position against the driver's
// current plan and triggers re-optimization when the driver strays too far
// from the next stop. Only the first stop matters: near-term re-planning
// does not care about later legs.
type DeviationMonitor struct {
	plans       ports.RoutePlanStore
	planner     Replanner
	thresholdKm float64
	logger      *logger.Logger

	// launch runs the replan task; tests replace it to run synchronously.
	launch func(task func())
}

func NewDeviationMonitor(plans ports.RoutePlanStore, planner Replanner, thresholdKm float64, log *logger.Logger) *DeviationMonitor {
	if thresholdKm <= 0 {
		thresholdKm = 0.5
	}

	return &DeviationMonitor{
		plans:       plans,
		planner:     planner,
		thresholdKm: thresholdKm,
		logger:      log.Named("deviation"),
		launch:      func(task func()) { go task() },
	}
}

// CheckDeviation runs synchronously on the ingestion path but never fails it:
// lookup errors are logged, and the replan itself is fire-and-forget with its
// own timeout, detached from the ingestion request's cancellation.
func (m *DeviationMonitor) CheckDeviation(ctx context.Context, driverID string, lat, lng float64) {
	plan, err := m.plans.LatestFor(ctx, driverID)
	if err != nil {
		m.logger.Warn("deviation check skipped, plan lookup failed",
			logger.String("driver_id", driverID),
			logger.Error(err),
		)
		return
	}
	if plan == nil || len(plan.Stops) == 0 {
		return
	}

	position := domain.Coordinates{Lat: lat, Lng: lng}
	distanceKm := domain.HaversineKm(position, plan.Stops[0].Position())
	if distanceKm <= m.thresholdKm {
		return
	}

	m.logger.Info("driver deviated from route, triggering re-optimization",
		logger.String("driver_id", driverID),
		logger.Float64("distance_km", distanceKm),
	)

	m.launch(func() {
		replanCtx, cancel := context.WithTimeout(context.Background(), replanTimeout)
		defer cancel()

		if _, err := m.planner.PlanFor(replanCtx, driverID, nil); err != nil {
			m.logger.Error("deviation-triggered replan failed",
				logger.String("driver_id", driverID),
				logger.Error(err),
			)
		}
	})
}
