package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"delivery-tracking-service/internal/adapters/broker"
	"delivery-tracking-service/internal/adapters/routing"
	"delivery-tracking-service/internal/domain"
	"delivery-tracking-service/internal/services"
	"delivery-tracking-service/pkg/logger"
)

type memTrackingStore struct {
	mu      sync.Mutex
	samples []*domain.TrackingSample
	nextSeq int64
}

func (s *memTrackingStore) Append(_ context.Context, sample *domain.TrackingSample) (*domain.TrackingSample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSeq++
	stored := *sample
	stored.IngestSequence = s.nextSeq
	stored.ID = strconv.FormatInt(s.nextSeq, 10)
	s.samples = append(s.samples, &stored)
	return &stored, nil
}

func (s *memTrackingStore) ListRecent(_ context.Context, orderID string, limit int) ([]*domain.TrackingSample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.TrackingSample, 0, limit)
	for i := len(s.samples) - 1; i >= 0 && len(out) < limit; i-- {
		if s.samples[i].OrderID == orderID {
			out = append(out, s.samples[i])
		}
	}
	return out, nil
}

func (s *memTrackingStore) LatestForDriver(_ context.Context, driverID string) (*domain.TrackingSample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.samples) - 1; i >= 0; i-- {
		if s.samples[i].DriverID == driverID {
			return s.samples[i], nil
		}
	}
	return nil, nil
}

type memPlanStore struct {
	mu     sync.Mutex
	plans  []*domain.RoutePlan
	nextID int64
}

func (s *memPlanStore) Save(_ context.Context, plan *domain.RoutePlan) (*domain.RoutePlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	stored := *plan
	stored.ID = s.nextID
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	s.plans = append(s.plans, &stored)
	return &stored, nil
}

func (s *memPlanStore) LatestFor(_ context.Context, driverID string) (*domain.RoutePlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *domain.RoutePlan
	for _, plan := range s.plans {
		if plan.DriverID == driverID && (latest == nil || plan.ID > latest.ID) {
			latest = plan
		}
	}
	return latest, nil
}

type memRegistry struct {
	drivers map[string]*domain.Driver
	orders  map[string][]*domain.Order
}

func (r *memRegistry) FindDriver(_ context.Context, driverID string) (*domain.Driver, error) {
	return r.drivers[driverID], nil
}

func (r *memRegistry) ActiveOrdersForDriver(_ context.Context, driverID string) ([]*domain.Order, error) {
	active := make([]*domain.Order, 0)
	for _, order := range r.orders[driverID] {
		if !order.Status.Terminal() {
			active = append(active, order)
		}
	}
	return active, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *memTrackingStore, *memPlanStore) {
	t.Helper()

	log := logger.NewNop()
	tracking := &memTrackingStore{}
	plans := &memPlanStore{}
	registry := &memRegistry{
		drivers: map[string]*domain.Driver{
			"drv-1": {ID: "drv-1", Name: "Mo"},
		},
		orders: map[string][]*domain.Order{
			"drv-1": {
				{
					ID: "ord-1", DriverID: "drv-1", Category: "food", Status: domain.OrderAccepted,
					Pickup:    domain.Coordinates{Lat: 40.0, Lng: -3.0},
					Dropoff:   domain.Coordinates{Lat: 40.1, Lng: -3.1},
					CreatedAt: time.Now().UTC(),
				},
			},
		},
	}

	bus := broker.NewChannelBus()
	planner := services.NewPlanner(registry, tracking, plans, &routing.MockRouteProvider{}, services.PlannerConfig{}, log)
	monitor := services.NewDeviationMonitor(plans, planner, 0.5, log)
	ingestor := services.NewIngestor(tracking, broker.NewMemoryGuard(), bus, monitor, time.Minute, log)

	router := NewRouter(ingestor, planner, plans, tracking, bus, 100*time.Millisecond, log)
	srv := httptest.NewServer(router.Routes())
	t.Cleanup(srv.Close)

	return srv, tracking, plans
}

func postJSON(t *testing.T, url string, body any, headers map[string]string) *http.Response {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestHealthEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/health")
	require.NoError(t, err)

	var body map[string]string
	decodeBody(t, resp, &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ok", body["status"])
}

func TestTrackingIngestAccepted(t *testing.T) {
	srv, store, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/tracking", map[string]any{
		"order_id":  "ord-1",
		"driver_id": "drv-1",
		"latitude":  40.0,
		"longitude": -3.0,
	}, nil)

	var body map[string]any
	decodeBody(t, resp, &body)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	require.Equal(t, "ord-1", body["order_id"])
	require.NotEmpty(t, body["id"])
	require.False(t, body["degraded"].(bool))
	require.NotZero(t, body["order_ref"])

	require.Len(t, store.samples, 1)
}

func TestTrackingIngestRejectsBadBody(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/v1/tracking", "application/json", strings.NewReader("{not json"))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postJSON(t, srv.URL+"/api/v1/tracking", map[string]any{
		"order_id":  "",
		"driver_id": "drv-1",
		"latitude":  40.0,
		"longitude": -3.0,
	}, nil)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postJSON(t, srv.URL+"/api/v1/tracking", map[string]any{
		"order_id":  "ord-1",
		"driver_id": "drv-1",
		"latitude":  95.0,
		"longitude": -3.0,
	}, nil)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTrackingIngestIdempotentReplay(t *testing.T) {
	srv, store, _ := newTestServer(t)

	ping := map[string]any{
		"order_id":  "ord-1",
		"driver_id": "drv-1",
		"latitude":  40.0,
		"longitude": -3.0,
	}
	headers := map[string]string{"Idempotency-Key": "key-1"}

	first := postJSON(t, srv.URL+"/api/v1/tracking", ping, headers)
	first.Body.Close()
	require.Equal(t, http.StatusAccepted, first.StatusCode)

	replay := postJSON(t, srv.URL+"/api/v1/tracking", ping, headers)
	var body map[string]any
	decodeBody(t, replay, &body)
	require.Equal(t, http.StatusOK, replay.StatusCode)
	require.True(t, body["duplicate"].(bool))

	require.Len(t, store.samples, 1)
}

func TestGetRouteNotFoundBeforeFirstPlan(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/drivers/drv-1/route")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreatePlanThenGetRoute(t *testing.T) {
	srv, _, _ := newTestServer(t)

	created := postJSON(t, srv.URL+"/api/v1/drivers/drv-1/route/plan", map[string]any{}, nil)
	var plan map[string]any
	decodeBody(t, created, &plan)
	require.Equal(t, http.StatusCreated, created.StatusCode)
	require.Equal(t, "drv-1", plan["driver_id"])
	require.Len(t, plan["stops"], 2)

	resp, err := http.Get(srv.URL + "/api/v1/drivers/drv-1/route")
	require.NoError(t, err)
	var fetched map[string]any
	decodeBody(t, resp, &fetched)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, plan["id"], fetched["id"])
}

func TestCreatePlanWithExplicitStops(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/drivers/drv-1/route/plan", map[string]any{
		"stops": []map[string]any{
			{"lat": 40.0, "lng": -3.0, "order_id": "ord-9", "kind": "pickup"},
			{"lat": 40.1, "lng": -3.1, "order_id": "ord-9", "kind": "dropoff"},
		},
	}, nil)

	var plan map[string]any
	decodeBody(t, resp, &plan)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, []any{"ord-9"}, plan["order_ids"])
}

func TestCreatePlanRejectsBadStopKind(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/drivers/drv-1/route/plan", map[string]any{
		"stops": []map[string]any{
			{"lat": 40.0, "lng": -3.0, "kind": "teleport"},
		},
	}, nil)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPlanEndpointsUnknownDriver(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/drivers/ghost/route/plan", map[string]any{}, nil)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err := http.Get(srv.URL + "/api/v1/drivers/ghost/route/smart-path")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSubscriptionPlanRequiresCategory(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/drivers/drv-1/route/subscription-plan", map[string]any{}, nil)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postJSON(t, srv.URL+"/api/v1/drivers/drv-1/route/subscription-plan", map[string]any{
		"category": "food",
	}, nil)
	var plan map[string]any
	decodeBody(t, resp, &plan)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, "drv-1", plan["driver_id"])
}

func TestSmartPathReturnsRoutes(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/drivers/drv-1/route/smart-path")
	require.NoError(t, err)

	var body struct {
		Routes []struct {
			OrderIDs []string `json:"order_ids"`
		} `json:"routes"`
	}
	decodeBody(t, resp, &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, body.Routes, 1)
	require.Equal(t, []string{"ord-1"}, body.Routes[0].OrderIDs)
}

// readEvent consumes one SSE event from the stream, skipping heartbeats.
func readEvent(t *testing.T, reader *bufio.Reader) (event string, data string) {
	t.Helper()

	deadline := time.After(5 * time.Second)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				return
			}
			line = strings.TrimRight(line, "\n")
			switch {
			case strings.HasPrefix(line, "event: "):
				event = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				data = strings.TrimPrefix(line, "data: ")
			case line == "" && event == "heartbeat":
				event, data = "", ""
			case line == "" && event != "":
				return
			}
		}
	}()

	select {
	case <-done:
	case <-deadline:
		t.Fatal("timed out waiting for stream event")
	}
	return event, data
}

func TestStreamReplaysLatestPosition(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/tracking", map[string]any{
		"order_id":  "ord-1",
		"driver_id": "drv-1",
		"latitude":  40.5,
		"longitude": -3.5,
	}, nil)
	resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	stream, err := http.Get(srv.URL + "/api/v1/orders/ord-1/stream")
	require.NoError(t, err)
	defer stream.Body.Close()
	require.Equal(t, "text/event-stream", stream.Header.Get("Content-Type"))

	event, data := readEvent(t, bufio.NewReader(stream.Body))
	require.Equal(t, "position", event)

	var position map[string]any
	require.NoError(t, json.Unmarshal([]byte(data), &position))
	require.Equal(t, 40.5, position["latitude"])
}

func TestStreamDeliversLiveEvents(t *testing.T) {
	srv, _, _ := newTestServer(t)

	stream, err := http.Get(srv.URL + "/api/v1/orders/ord-1/stream")
	require.NoError(t, err)
	defer stream.Body.Close()

	// Headers arrive after the subscription is registered, so this ping
	// cannot be missed.
	resp := postJSON(t, srv.URL+"/api/v1/tracking", map[string]any{
		"order_id":  "ord-1",
		"driver_id": "drv-1",
		"latitude":  41.0,
		"longitude": -4.0,
	}, nil)
	resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	event, data := readEvent(t, bufio.NewReader(stream.Body))
	require.Equal(t, "position", event)
	require.Contains(t, data, fmt.Sprintf(`"order_id":%q`, "ord-1"))
}

func TestStreamHeartbeatFraming(t *testing.T) {
	srv, _, _ := newTestServer(t)

	stream, err := http.Get(srv.URL + "/api/v1/orders/ord-1/stream")
	require.NoError(t, err)
	defer stream.Body.Close()

	reader := bufio.NewReader(stream.Body)
	deadline := time.After(5 * time.Second)
	found := make(chan struct{})
	go func() {
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				return
			}
			if strings.TrimRight(line, "\n") == "event: heartbeat" {
				close(found)
				return
			}
		}
	}()

	select {
	case <-found:
	case <-deadline:
		t.Fatal("no heartbeat event observed on the stream")
	}
}

func TestStreamReplayThenLiveEvents(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/tracking", map[string]any{
		"order_id":  "ord-1",
		"driver_id": "drv-1",
		"latitude":  40.0,
		"longitude": -3.0,
	}, nil)
	resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	stream, err := http.Get(srv.URL + "/api/v1/orders/ord-1/stream")
	require.NoError(t, err)
	defer stream.Body.Close()

	reader := bufio.NewReader(stream.Body)

	// Headers arrive after the subscription is registered, so the live
	// pings below cannot be missed.
	for _, lat := range []float64{41.0, 42.0} {
		resp := postJSON(t, srv.URL+"/api/v1/tracking", map[string]any{
			"order_id":  "ord-1",
			"driver_id": "drv-1",
			"latitude":  lat,
			"longitude": -3.0,
		}, nil)
		resp.Body.Close()
		require.Equal(t, http.StatusAccepted, resp.StatusCode)
	}

	// Replayed sample first, then the live pings in submission order.
	for _, wantLat := range []float64{40.0, 41.0, 42.0} {
		event, data := readEvent(t, reader)
		require.Equal(t, "position", event)

		var position map[string]any
		require.NoError(t, json.Unmarshal([]byte(data), &position))
		require.Equal(t, wantLat, position["latitude"])
	}
}
