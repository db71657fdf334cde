package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"delivery-tracking-service/internal/api/dto"
	"delivery-tracking-service/internal/domain"
	"delivery-tracking-service/internal/ports"
	"delivery-tracking-service/internal/services"
	"delivery-tracking-service/pkg/logger"
)

// PlanHandler exposes route plan retrieval and the re-optimization triggers.
type PlanHandler struct {
	Planner *services.Planner
	Plans   ports.RoutePlanStore
	Log     *logger.Logger
}

// GetRoute handles GET /drivers/{driverID}/route.
func (h *PlanHandler) GetRoute(w http.ResponseWriter, r *http.Request) {
	driverID := chi.URLParam(r, "driverID")

	plan, err := h.Plans.LatestFor(r.Context(), driverID)
	if err != nil {
		h.Log.Error("route lookup failed",
			logger.String("driver_id", driverID),
			logger.Error(err),
		)
		writeError(w, r, http.StatusInternalServerError, "internal server error", h.Log)
		return
	}
	if plan == nil {
		writeError(w, r, http.StatusNotFound, "no route plan for driver", h.Log)
		return
	}

	writeJSON(w, r, http.StatusOK, planResponse(plan), h.Log)
}

// CreatePlan handles POST /drivers/{driverID}/route/plan. The body is
// optional: when present it carries explicit stops, otherwise the plan is
// built from the driver's active orders.
func (h *PlanHandler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	driverID := chi.URLParam(r, "driverID")

	var req dto.PlanRequest
	if err := decodeStrict(r, &req); err != nil && err != io.EOF {
		writeError(w, r, http.StatusBadRequest, "invalid json body", h.Log)
		return
	}

	stops, err := stopsFromRequest(req.Stops)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error(), h.Log)
		return
	}

	plan, err := h.Planner.PlanFor(r.Context(), driverID, stops)
	if err != nil {
		h.respondPlanError(w, r, driverID, err)
		return
	}

	writeJSON(w, r, http.StatusCreated, planResponse(plan), h.Log)
}

// SubscriptionPlan handles POST /drivers/{driverID}/route/subscription-plan.
func (h *PlanHandler) SubscriptionPlan(w http.ResponseWriter, r *http.Request) {
	driverID := chi.URLParam(r, "driverID")

	var req dto.SubscriptionPlanRequest
	if err := decodeStrict(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json body", h.Log)
		return
	}
	if strings.TrimSpace(req.Category) == "" {
		writeError(w, r, http.StatusBadRequest, "category is required", h.Log)
		return
	}

	plan, err := h.Planner.PlanForSubscriptionOrders(r.Context(), driverID, req.Category)
	if err != nil {
		h.respondPlanError(w, r, driverID, err)
		return
	}

	writeJSON(w, r, http.StatusCreated, planResponse(plan), h.Log)
}

// SmartPath handles GET /drivers/{driverID}/route/smart-path.
func (h *PlanHandler) SmartPath(w http.ResponseWriter, r *http.Request) {
	driverID := chi.URLParam(r, "driverID")

	routes, err := h.Planner.SmartPath(r.Context(), driverID)
	if err != nil {
		h.respondPlanError(w, r, driverID, err)
		return
	}

	res := dto.SmartPathResponse{Routes: make([]dto.SmartRouteResponse, 0, len(routes))}
	for _, route := range routes {
		dropoffs := make([]dto.StopResponse, 0, len(route.Dropoffs))
		for _, s := range route.Dropoffs {
			dropoffs = append(dropoffs, stopResponse(s))
		}
		res.Routes = append(res.Routes, dto.SmartRouteResponse{
			OrderIDs:        route.OrderIDs,
			Pickup:          stopResponse(route.Pickup),
			Dropoffs:        dropoffs,
			TotalDistanceKm: route.TotalDistanceKm,
		})
	}

	writeJSON(w, r, http.StatusOK, res, h.Log)
}

func (h *PlanHandler) respondPlanError(w http.ResponseWriter, r *http.Request, driverID string, err error) {
	if errors.Is(err, services.ErrUnknownDriver) {
		writeError(w, r, http.StatusNotFound, "unknown driver", h.Log)
		return
	}

	h.Log.Error("plan operation failed",
		logger.String("driver_id", driverID),
		logger.Error(err),
	)
	writeError(w, r, http.StatusInternalServerError, "internal server error", h.Log)
}

func stopsFromRequest(in []dto.StopRequest) ([]domain.Stop, error) {
	if len(in) == 0 {
		return nil, nil
	}

	stops := make([]domain.Stop, 0, len(in))
	for _, s := range in {
		if !domain.ValidCoordinates(s.Lat, s.Lng) {
			return nil, errors.New("stop coordinates out of range")
		}

		kind := domain.StopKind(s.Kind)
		switch kind {
		case domain.StopPickup, domain.StopDropoff, domain.StopWaypoint:
		default:
			return nil, errors.New("stop kind must be pickup, dropoff or waypoint")
		}

		stops = append(stops, domain.Stop{
			Lat:     s.Lat,
			Lng:     s.Lng,
			OrderID: s.OrderID,
			Kind:    kind,
		})
	}
	return stops, nil
}
