package handlers

import (
	"errors"
	"net/http"

	"delivery-tracking-service/internal/api/dto"
	"delivery-tracking-service/internal/ident"
	"delivery-tracking-service/internal/services"
	"delivery-tracking-service/pkg/logger"
)

// TrackingHandler accepts driver location reports.
type TrackingHandler struct {
	Ingestor *services.Ingestor
	Log      *logger.Logger
}

// Ingest handles POST /tracking. Replayed idempotency keys return the stored
// position with 200 instead of 202, so senders can tell a no-op apart from a
// fresh accept.
func (h *TrackingHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req dto.TrackingRequest
	if err := decodeStrict(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json body", h.Log)
		return
	}

	idempotencyKey := r.Header.Get("Idempotency-Key")
	if idempotencyKey == "" {
		idempotencyKey = req.IdempotencyKey
	}

	res, err := h.Ingestor.Ingest(r.Context(), &services.IngestRequest{
		OrderID:        req.OrderID,
		DriverID:       req.DriverID,
		Latitude:       req.Latitude,
		Longitude:      req.Longitude,
		Speed:          req.Speed,
		Heading:        req.Heading,
		RecordedAt:     req.RecordedAt,
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		if errors.Is(err, services.ErrMissingIdentity) || errors.Is(err, services.ErrInvalidCoordinates) {
			writeError(w, r, http.StatusBadRequest, err.Error(), h.Log)
			return
		}
		h.Log.Error("tracking ingest failed", logger.Error(err))
		writeError(w, r, http.StatusInternalServerError, "internal server error", h.Log)
		return
	}

	status := http.StatusAccepted
	if res.Duplicate {
		status = http.StatusOK
	}

	sample := res.Sample
	writeJSON(w, r, status, dto.TrackingResponse{
		ID:         sample.ID,
		OrderID:    sample.OrderID,
		DriverID:   sample.DriverID,
		OrderRef:   ident.Compact(sample.OrderID),
		DriverRef:  ident.Compact(sample.DriverID),
		Latitude:   sample.Latitude,
		Longitude:  sample.Longitude,
		Speed:      sample.Speed,
		Heading:    sample.Heading,
		RecordedAt: sample.RecordedAt,
		Degraded:   res.Degraded,
		Duplicate:  res.Duplicate,
	}, h.Log)
}
