package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"delivery-tracking-service/internal/domain"
)

// Postgres-backed implementation of the RoutePlanStore port.
//
// Plans are history: Save always inserts, and "latest" rides the
// (driver_id, created_at DESC) index because the deviation monitor reads it
// on every ingested sample.
type SQLPlanStore struct {
	DB *sql.DB
}

func NewSQLPlanStore(db *sql.DB) *SQLPlanStore {
	return &SQLPlanStore{DB: db}
}

func (s *SQLPlanStore) Save(ctx context.Context, plan *domain.RoutePlan) (*domain.RoutePlan, error) {
	if s.DB == nil {
		return nil, errors.New("plan store: DB is nil")
	}

	record, err := encodePlan(plan)
	if err != nil {
		return nil, fmt.Errorf("save plan: %w", err)
	}

	createdAt := plan.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query := `
	INSERT INTO route_plans (
		driver_id, order_ids, stops, sequence, polyline,
		total_distance_km, estimated_duration_sec, eta_per_stop,
		status, provider, raw_response, created_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	RETURNING id;
	`

	var id int64
	err = s.DB.QueryRowContext(ctx, query,
		plan.DriverID,
		record.orderIDs,
		record.stops,
		record.sequence,
		plan.Polyline,
		plan.TotalDistanceKm,
		plan.EstimatedDurationSec,
		nullableBytes(record.etaPerStop),
		string(plan.Status),
		plan.Provider,
		nullableBytes(record.raw),
		createdAt,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("save plan: insert: %w", err)
	}

	stored := *plan
	stored.ID = id
	stored.CreatedAt = createdAt
	return &stored, nil
}

// LatestFor returns the newest plan for a driver, or nil when none exists.
func (s *SQLPlanStore) LatestFor(ctx context.Context, driverID string) (*domain.RoutePlan, error) {
	if s.DB == nil {
		return nil, errors.New("plan store: DB is nil")
	}

	query := `
	SELECT id, driver_id, order_ids, stops, sequence, polyline,
		total_distance_km, estimated_duration_sec, eta_per_stop,
		status, provider, raw_response, created_at
	FROM route_plans
	WHERE driver_id = $1
	ORDER BY created_at DESC, id DESC
	LIMIT 1;
	`

	rows, err := s.DB.QueryContext(ctx, query, driverID)
	if err != nil {
		return nil, fmt.Errorf("latest plan: query: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("latest plan: row iteration: %w", err)
		}
		return nil, nil
	}

	plan, err := scanPlan(rows)
	if err != nil {
		return nil, fmt.Errorf("latest plan: %w", err)
	}
	return plan, nil
}

func nullableBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}
