package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"delivery-tracking-service/internal/domain"
)

// Postgres-backed implementation of the TrackingStore port.
//
// tracking_samples has no foreign keys on purpose: a location ping must never
// be rejected because the order registry lags behind in a distributed
// deployment.
type SQLTrackingStore struct {
	DB *sql.DB
}

func NewSQLTrackingStore(db *sql.DB) *SQLTrackingStore {
	return &SQLTrackingStore{DB: db}
}

// Append inserts the sample and assigns its ingest sequence from the row id.
func (s *SQLTrackingStore) Append(ctx context.Context, sample *domain.TrackingSample) (*domain.TrackingSample, error) {
	if s.DB == nil {
		return nil, errors.New("tracking store: DB is nil")
	}

	query := `
	INSERT INTO tracking_samples (order_id, driver_id, latitude, longitude, speed, heading, recorded_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	RETURNING id;
	`

	var seq int64
	err := s.DB.QueryRowContext(ctx, query,
		sample.OrderID,
		sample.DriverID,
		sample.Latitude,
		sample.Longitude,
		nullableFloat(sample.Speed),
		nullableFloat(sample.Heading),
		sample.RecordedAt,
	).Scan(&seq)
	if err != nil {
		return nil, fmt.Errorf("append sample: insert: %w", err)
	}

	stored := *sample
	stored.ID = strconv.FormatInt(seq, 10)
	stored.IngestSequence = seq
	return &stored, nil
}

// ListRecent returns up to limit samples for an order, most recent first.
func (s *SQLTrackingStore) ListRecent(ctx context.Context, orderID string, limit int) ([]*domain.TrackingSample, error) {
	if s.DB == nil {
		return nil, errors.New("tracking store: DB is nil")
	}
	if limit <= 0 {
		return []*domain.TrackingSample{}, nil
	}

	query := `
	SELECT id, order_id, driver_id, latitude, longitude, speed, heading, recorded_at
	FROM tracking_samples
	WHERE order_id = $1
	ORDER BY recorded_at DESC, id DESC
	LIMIT $2;
	`

	rows, err := s.DB.QueryContext(ctx, query, orderID, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent samples: query: %w", err)
	}
	defer rows.Close()

	return scanSamples(rows)
}

// LatestForDriver returns the driver's most recent sample across all orders.
func (s *SQLTrackingStore) LatestForDriver(ctx context.Context, driverID string) (*domain.TrackingSample, error) {
	if s.DB == nil {
		return nil, errors.New("tracking store: DB is nil")
	}

	query := `
	SELECT id, order_id, driver_id, latitude, longitude, speed, heading, recorded_at
	FROM tracking_samples
	WHERE driver_id = $1
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

func nullableFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func scanSamples(rows *sql.Rows) ([]*domain.TrackingSample, error) {
	samples := make([]*domain.TrackingSample, 0, 8)
	for rows.Next() {
		var (
			sample         domain.TrackingSample
			seq            int64
			speed, heading sql.NullFloat64
		)

		err := rows.Scan(
			&seq,
			&sample.OrderID,
			&sample.DriverID,
			&sample.Latitude,
			&sample.Longitude,
			&speed,
			&heading,
			&sample.RecordedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan sample row: %w", err)
		}

		sample.ID = strconv.FormatInt(seq, 10)
		sample.IngestSequence = seq
		if speed.Valid {
			v := speed.Float64
			sample.Speed = &v
		}
		if heading.Valid {
			v := heading.Float64
			sample.Heading = &v
		}

		samples = append(samples, &sample)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sample row iteration: %w", err)
	}

	return samples, nil
}
