package repositories

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"delivery-tracking-service/internal/domain"
)

// planRecord is the serialized form shared by both plan store dialects:
// structured fields become JSON columns, scalars map directly.
type planRecord struct {
	orderIDs   []byte
	stops      []byte
	sequence   []byte
	etaPerStop []byte
	raw        []byte
}

func encodePlan(plan *domain.RoutePlan) (*planRecord, error) {
	orderIDs, err := json.Marshal(plan.OrderIDs)
	if err != nil {
		return nil, fmt.Errorf("encode plan: order ids: %w", err)
	}

	stops, err := json.Marshal(plan.Stops)
	if err != nil {
		return nil, fmt.Errorf("encode plan: stops: %w", err)
	}

	sequence, err := json.Marshal(plan.Sequence)
	if err != nil {
		return nil, fmt.Errorf("encode plan: sequence: %w", err)
	}

	var etas []byte
	if plan.ETAPerStop != nil {
		etas, err = json.Marshal(plan.ETAPerStop)
		if err != nil {
			return nil, fmt.Errorf("encode plan: etas: %w", err)
		}
	}

	return &planRecord{
		orderIDs:   orderIDs,
		stops:      stops,
		sequence:   sequence,
		etaPerStop: etas,
		raw:        plan.RawResponse,
	}, nil
}

func scanPlan(rows *sql.Rows) (*domain.RoutePlan, error) {
	var (
		plan                       domain.RoutePlan
		orderIDs, stops, sequence  []byte
		etaPerStop, raw            []byte
		status, provider, polyline string
	)

	err := rows.Scan(
		&plan.ID,
		&plan.DriverID,
		&orderIDs,
		&stops,
		&sequence,
		&polyline,
		&plan.TotalDistanceKm,
		&plan.EstimatedDurationSec,
		&etaPerStop,
		&status,
		&provider,
		&raw,
		&plan.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan plan row: %w", err)
	}

	plan.Polyline = polyline
	plan.Status = domain.PlanStatus(status)
	plan.Provider = provider
	plan.RawResponse = raw

	if err := json.Unmarshal(orderIDs, &plan.OrderIDs); err != nil {
		return nil, fmt.Errorf("scan plan row: order ids: %w", err)
	}
	if err := json.Unmarshal(stops, &plan.Stops); err != nil {
		return nil, fmt.Errorf("scan plan row: stops: %w", err)
	}
	if err := json.Unmarshal(sequence, &plan.Sequence); err != nil {
		return nil, fmt.Errorf("scan plan row: sequence: %w", err)
	}
	if len(etaPerStop) > 0 {
		if err := json.Unmarshal(etaPerStop, &plan.ETAPerStop); err != nil {
			return nil, fmt.Errorf("scan plan row: etas: %w", err)
		}
	}

	return &plan, nil
}
