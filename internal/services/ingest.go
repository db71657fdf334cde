package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"delivery-tracking-service/internal/domain"
	"delivery-tracking-service/internal/ports"
	"delivery-tracking-service/pkg/logger"
)

var (
	ErrMissingIdentity    = errors.New("order id and driver id are required")
	ErrInvalidCoordinates = errors.New("latitude must be in [-90,90] and longitude in [-180,180]")
)

// IngestRequest is one driver location report.
type IngestRequest struct {
	OrderID        string
	DriverID       string
	Latitude       float64
	Longitude      float64
	Speed          *float64
	Heading        *float64
	RecordedAt     *time.Time
	IdempotencyKey string
}

// IngestResult carries the stored (or ephemeral) sample plus the flags
// callers need to reason about what actually happened. Degraded means the
// sample was not persisted; Duplicate means an idempotency-key replay was
// short-circuited (no new append, no republish).
type IngestResult struct {
	Sample    *domain.TrackingSample
	Degraded  bool
	Duplicate bool
}

// PositionEvent is the payload published on the broadcast bus and forwarded
// verbatim to streaming clients. Its shape matches the ingestion response.
type PositionEvent struct {
	ID         string    `json:"id"`
	OrderID    string    `json:"order_id"`
	DriverID   string    `json:"driver_id"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Speed      *float64  `json:"speed"`
	Heading    *float64  `json:"heading"`
	RecordedAt time.Time `json:"recorded_at"`
}

// EventFromSample converts a sample into its broadcast payload.
func EventFromSample(sample *domain.TrackingSample) *PositionEvent {
	return &PositionEvent{
		ID:         sample.ID,
		OrderID:    sample.OrderID,
		DriverID:   sample.DriverID,
		Latitude:   sample.Latitude,
		Longitude:  sample.Longitude,
		Speed:      sample.Speed,
		Heading:    sample.Heading,
		RecordedAt: sample.RecordedAt,
	}
}

// Ingestor is the tracking ingestion pipeline: deduplicate, persist,
// broadcast, then check for route deviation.
//
// The pipeline fails open end to end. A storage rejection produces an
// ephemeral sample that is still broadcast; a dead idempotency backend
// admits every request; a publish failure is logged and swallowed. The only
// hard errors are malformed inputs, rejected before any side effect.
type Ingestor struct {
	store   ports.TrackingStore
	guard   ports.IdempotencyGuard
	bus     ports.BroadcastBus
	monitor *DeviationMonitor
	ttl     time.Duration
	logger  *logger.Logger
}

func NewIngestor(
	store ports.TrackingStore,
	guard ports.IdempotencyGuard,
	bus ports.BroadcastBus,
	monitor *DeviationMonitor,
	idempotencyTTL time.Duration,
	log *logger.Logger,
) *Ingestor {
	if idempotencyTTL <= 0 {
		idempotencyTTL = 60 * time.Second
	}

	return &Ingestor{
		store:   store,
		guard:   guard,
		bus:     bus,
		monitor: monitor,
		ttl:     idempotencyTTL,
		logger:  log.Named("ingest"),
	}
}

func (ing *Ingestor) Ingest(ctx context.Context, req *IngestRequest) (*IngestResult, error) {
	if req.OrderID == "" || req.DriverID == "" {
		return nil, ErrMissingIdentity
	}
	if !domain.ValidCoordinates(req.Latitude, req.Longitude) {
		return nil, ErrInvalidCoordinates
	}

	recordedAt := time.Now().UTC()
	if req.RecordedAt != nil {
		recordedAt = req.RecordedAt.UTC()
	}

	sample := &domain.TrackingSample{
		OrderID:    req.OrderID,
		DriverID:   req.DriverID,
		Latitude:   req.Latitude,
		Longitude:  req.Longitude,
		Speed:      req.Speed,
		Heading:    req.Heading,
		RecordedAt: recordedAt,
	}

	if req.IdempotencyKey != "" {
		first, err := ing.guard.Claim(ctx, claimKey(req.OrderID, req.IdempotencyKey), ing.ttl)
		if err != nil {
			// Guards fail open themselves; a surfaced error still must not
			// block the ping.
			ing.logger.Warn("idempotency claim errored, treating as first",
				logger.String("order_id", req.OrderID),
				logger.Error(err),
			)
			first = true
		}
		if !first {
			return ing.duplicateResult(ctx, sample)
		}
	}

	stored, err := ing.store.Append(ctx, sample)
	degraded := false
	if err != nil {
		// Visibility of the driver's position is never sacrificed for
		// persistence: respond and broadcast an ephemeral sample instead.
		ing.logger.Error("sample append failed, serving ephemeral sample",
			logger.String("order_id", req.OrderID),
			logger.String("driver_id", req.DriverID),
			logger.Error(err),
		)
		ephemeral := *sample
		ephemeral.ID = "eph-" + uuid.NewString()
		ephemeral.Ephemeral = true
		stored = &ephemeral
		degraded = true
	}

	ing.publish(ctx, stored)

	if ing.monitor != nil {
		ing.monitor.CheckDeviation(ctx, stored.DriverID, stored.Latitude, stored.Longitude)
	}

	return &IngestResult{Sample: stored, Degraded: degraded}, nil
}

// duplicateResult short-circuits a replayed request with the last known
// position, avoiding a second append and a redundant fan-out.
func (ing *Ingestor) duplicateResult(ctx context.Context, incoming *domain.TrackingSample) (*IngestResult, error) {
	recent, err := ing.store.ListRecent(ctx, incoming.OrderID, 1)
	if err != nil {
		ing.logger.Warn("duplicate lookup failed, echoing request",
			logger.String("order_id", incoming.OrderID),
			logger.Error(err),
		)
	}
	if len(recent) > 0 {
		return &IngestResult{Sample: recent[0], Duplicate: true}, nil
	}

	// Nothing stored yet (e.g. the first attempt degraded): echo the request
	// as an ephemeral sample, still without republishing.
	echo := *incoming
	echo.ID = "eph-" + uuid.NewString()
	echo.Ephemeral = true
	return &IngestResult{Sample: &echo, Duplicate: true, Degraded: true}, nil
}

func (ing *Ingestor) publish(ctx context.Context, sample *domain.TrackingSample) {
	payload, err := json.Marshal(EventFromSample(sample))
	if err != nil {
		ing.logger.Error("position event marshal failed", logger.Error(err))
		return
	}

	if err := ing.bus.Publish(ctx, sample.OrderID, payload); err != nil {
		ing.logger.Warn("position broadcast failed",
			logger.String("order_id", sample.OrderID),
			logger.Error(err),
		)
	}
}

func claimKey(orderID, idempotencyKey string) string {
	return "track:" + orderID + ":" + idempotencyKey
}
