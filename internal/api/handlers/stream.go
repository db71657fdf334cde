package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"delivery-tracking-service/internal/ports"
	"delivery-tracking-service/internal/services"
	"delivery-tracking-service/pkg/logger"
)

const defaultHeartbeat = 15 * time.Second

// StreamHandler serves live position updates for one order over SSE.
type StreamHandler struct {
	Bus       ports.BroadcastBus
	Store     ports.TrackingStore
	Heartbeat time.Duration
	Log       *logger.Logger
}

// Stream handles GET /orders/{orderID}/stream. The subscription is taken
// before the replay read, so a position ingested in between is delivered
// rather than lost. Periodic heartbeat events keep idle connections open
// through proxies.
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")
	if orderID == "" {
		writeError(w, r, http.StatusBadRequest, "order id is required", h.Log)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, r, http.StatusInternalServerError, "streaming unsupported", h.Log)
		return
	}

	ctx := r.Context()
	sub, err := h.Bus.Subscribe(ctx, orderID)
	if err != nil {
		h.Log.Error("stream subscribe failed",
			logger.String("order_id", orderID),
			logger.Error(err),
		)
		writeError(w, r, http.StatusInternalServerError, "internal server error", h.Log)
		return
	}
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	h.replayLatest(w, r, orderID)
	flusher.Flush()

	heartbeat := h.Heartbeat
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}
	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	for {
		select {
		case payload, open := <-sub.Events():
			if !open {
				return
			}
			writeEvent(w, "position", payload)
			flusher.Flush()
		case <-ticker.C:
			writeEvent(w, "heartbeat", nil)
			flusher.Flush()
		case <-ctx.Done():
			return
		}
	}
}

// replayLatest emits the last stored position, if any, as the opening event.
func (h *StreamHandler) replayLatest(w io.Writer, r *http.Request, orderID string) {
	recent, err := h.Store.ListRecent(r.Context(), orderID, 1)
	if err != nil {
		h.Log.Warn("stream replay lookup failed",
			logger.String("order_id", orderID),
			logger.Error(err),
		)
		return
	}
	if len(recent) == 0 {
		return
	}

	payload, err := json.Marshal(services.EventFromSample(recent[0]))
	if err != nil {
		h.Log.Error("stream replay marshal failed", logger.Error(err))
		return
	}
	writeEvent(w, "position", payload)
}

func writeEvent(w io.Writer, event string, payload []byte) {
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload)
}
