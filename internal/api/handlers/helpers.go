package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"delivery-tracking-service/internal/api/dto"
	"delivery-tracking-service/internal/domain"
	"delivery-tracking-service/pkg/logger"
)

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any, log *logger.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn("response encode failed",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Error(err),
		)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string, log *logger.Logger) {
	writeJSON(w, r, status, map[string]string{"error": msg}, log)
}

// decodeStrict parses exactly one JSON object from the body, rejecting
// unknown fields and trailing content.
func decodeStrict(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errTrailingBody
	}
	return nil
}

var errTrailingBody = &bodyError{"body must contain only one JSON object"}

type bodyError struct{ msg string }

func (e *bodyError) Error() string { return e.msg }

func stopResponse(s domain.Stop) dto.StopResponse {
	return dto.StopResponse{
		Lat:     s.Lat,
		Lng:     s.Lng,
		OrderID: s.OrderID,
		Kind:    string(s.Kind),
	}
}

func planResponse(plan *domain.RoutePlan) dto.PlanResponse {
	// Stops stay in submission order; Sequence says how to visit them.
	stops := make([]dto.StopResponse, 0, len(plan.Stops))
	for _, s := range plan.Stops {
		stops = append(stops, stopResponse(s))
	}

	return dto.PlanResponse{
		ID:                   plan.ID,
		DriverID:             plan.DriverID,
		OrderIDs:             plan.OrderIDs,
		Stops:                stops,
		Sequence:             plan.Sequence,
		Polyline:             plan.Polyline,
		TotalDistanceKm:      plan.TotalDistanceKm,
		EstimatedDurationSec: plan.EstimatedDurationSec,
		ETAPerStopSec:        plan.ETAPerStop,
		Status:               string(plan.Status),
		Provider:             plan.Provider,
		Degraded:             plan.Degraded(),
		CreatedAt:            plan.CreatedAt,
	}
}
