package routing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"delivery-tracking-service/internal/domain"
	"delivery-tracking-service/internal/ports"
)

// HTTPRouteProvider implements the RouteProvider port against the external
// optimization service's JSON API.
//
// The provider is treated as untrusted: responses are normalized but not
// validated here. Sequence validity is the caller's concern, because the
// caller owns the fallback. Safe for concurrent use.
type HTTPRouteProvider struct {
	session *http.Client
	apiKey  string
	baseURL string
}

func NewHTTPRouteProvider(baseURL, apiKey string) (*HTTPRouteProvider, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("route provider base URL is empty")
	}

	return &HTTPRouteProvider{
		session: &http.Client{Timeout: 10 * time.Second},
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

func (p *HTTPRouteProvider) Name() string { return "optimizer" }

type optimizeStop struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	OrderID string  `json:"order_id,omitempty"`
	Kind    string  `json:"kind"`
}

type optimizeRequest struct {
	Stops []optimizeStop `json:"stops"`
}

type optimizeResponse struct {
	Sequence             []int     `json:"sequence"`
	ETAPerStopSec        []float64 `json:"eta_per_stop_sec"`
	TotalDistanceKm      float64   `json:"total_distance_km"`
	EstimatedDurationSec int       `json:"estimated_duration_sec"`
	Polyline             string    `json:"polyline"`
}

// Optimize submits the stop list and normalizes the provider's scheduling
// response.
func (p *HTTPRouteProvider) Optimize(ctx context.Context, stops []domain.Stop) (*ports.OptimizedRoute, error) {
	if len(stops) == 0 {
		return nil, errors.New("optimize: stop list is empty")
	}

	reqBody := optimizeRequest{Stops: make([]optimizeStop, 0, len(stops))}
	for _, s := range stops {
		reqBody.Stops = append(reqBody.Stops, optimizeStop{
			Lat:     s.Lat,
			Lng:     s.Lng,
			OrderID: s.OrderID,
			Kind:    string(s.Kind),
		})
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("optimize: marshal request: %w", err)
	}

	url := p.baseURL + "/optimize"
	resp, err := p.doWithRetry(ctx, func() (*http.Request, error) {
		return p.newRequest(ctx, http.MethodPost, url, bytes.NewReader(payload))
	})
	if err != nil {
		return nil, fmt.Errorf("optimize: call provider: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("optimize: read response: %w", err)
	}

	var parsed optimizeResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("optimize: parse response: %w", err)
	}

	return &ports.OptimizedRoute{
		Sequence:             parsed.Sequence,
		ETASeconds:           parsed.ETAPerStopSec,
		TotalDistanceKm:      parsed.TotalDistanceKm,
		EstimatedDurationSec: parsed.EstimatedDurationSec,
		Polyline:             parsed.Polyline,
		Raw:                  raw,
	}, nil
}
