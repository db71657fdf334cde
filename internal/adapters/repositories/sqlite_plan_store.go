package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"delivery-tracking-service/internal/domain"
)

// SQLite-backed implementation of the RoutePlanStore port (local runs, tests).
type SqlitePlanStore struct {
	DB *sql.DB
}

func NewSqlitePlanStore(db *sql.DB) *SqlitePlanStore {
	return &SqlitePlanStore{DB: db}
}

func (s *SqlitePlanStore) Save(ctx context.Context, plan *domain.RoutePlan) (*domain.RoutePlan, error) {
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
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
	`

	result, err := s.DB.ExecContext(ctx, query,
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
	)
	if err != nil {
		return nil, fmt.Errorf("save plan: insert: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("save plan: last insert id: %w", err)
	}

	stored := *plan
	stored.ID = id
	stored.CreatedAt = createdAt
	return &stored, nil
}

// LatestFor returns the newest plan for a driver, or nil when none exists.
func (s *SqlitePlanStore) LatestFor(ctx context.Context, driverID string) (*domain.RoutePlan, error) {
	if s.DB == nil {
		return nil, errors.New("plan store: DB is nil")
	}

	query := `
	SELECT id, driver_id, order_ids, stops, sequence, polyline,
		total_distance_km, estimated_duration_sec, eta_per_stop,
		status, provider, raw_response, created_at
	FROM route_plans
	WHERE driver_id = ?
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
