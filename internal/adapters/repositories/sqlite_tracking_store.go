package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"delivery-tracking-service/internal/domain"
)

// SQLite-backed implementation of the TrackingStore port (local runs, tests).
type SqliteTrackingStore struct {
	DB *sql.DB
}

func NewSqliteTrackingStore(db *sql.DB) *SqliteTrackingStore {
	return &SqliteTrackingStore{DB: db}
}

// Append inserts the sample and assigns its ingest sequence from the row id.
func (s *SqliteTrackingStore) Append(ctx context.Context, sample *domain.TrackingSample) (*domain.TrackingSample, error) {
	if s.DB == nil {
		return nil, errors.New("tracking store: DB is nil")
	}

	query := `
	INSERT INTO tracking_samples (order_id, driver_id, latitude, longitude, speed, heading, recorded_at)
	VALUES (?, ?, ?, ?, ?, ?, ?);
	`

	result, err := s.DB.ExecContext(ctx, query,
		sample.OrderID,
		sample.DriverID,
		sample.Latitude,
		sample.Longitude,
		nullableFloat(sample.Speed),
		nullableFloat(sample.Heading),
		sample.RecordedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("append sample: insert: %w", err)
	}

	seq, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("append sample: last insert id: %w", err)
	}

	stored := *sample
	stored.ID = strconv.FormatInt(seq, 10)
	stored.IngestSequence = seq
	return &stored, nil
}

// ListRecent returns up to limit samples for an order, most recent first.
func (s *SqliteTrackingStore) ListRecent(ctx context.Context, orderID string, limit int) ([]*domain.TrackingSample, error) {
	if s.DB == nil {
		return nil, errors.New("tracking store: DB is nil")
	}
	if limit <= 0 {
		return []*domain.TrackingSample{}, nil
	}

	query := `
	SELECT id, order_id, driver_id, latitude, longitude, speed, heading, recorded_at
	FROM tracking_samples
	WHERE order_id = ?
	ORDER BY recorded_at DESC, id DESC
	LIMIT ?;
	`

	rows, err := s.DB.QueryContext(ctx, query, orderID, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent samples: query: %w", err)
	}
	defer rows.Close()

	return scanSamples(rows)
}

// LatestForDriver returns the driver's most recent sample across all orders.
func (s *SqliteTrackingStore) LatestForDriver(ctx context.Context, driverID string) (*domain.TrackingSample, error) {
	if s.DB == nil {
		return nil, errors.New("tracking store: DB is nil")
	}

	query := `
	SELECT id, order_id, driver_id, latitude, longitude, speed, heading, recorded_at
	FROM tracking_samples
	WHERE driver_id = ?
	ORDER BY recorded_at DESC, id DESC
	LIMIT 1;
	`

	rows, err := s.DB.QueryContext(ctx, query, driverID)
	if err != nil {
		return nil, fmt.Errorf("latest sample for driver: query: %w", err)
	}
	defer rows.Close()

	samples, err := scanSamples(rows)
	if err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, nil
	}
	return samples[0], nil
}
