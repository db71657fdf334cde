package handlers

import (
	"net/http"

	"delivery-tracking-service/pkg/logger"
)

type HealthHandler struct {
	Log *logger.Logger
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"}, h.Log)
}
