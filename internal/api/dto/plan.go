package dto

import "time"

type StopRequest struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	OrderID string  `json:"order_id"`
	Kind    string  `json:"kind"`
}

type PlanRequest struct {
	Stops []StopRequest `json:"stops"`
}

type SubscriptionPlanRequest struct {
	Category string `json:"category"`
}

type StopResponse struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	OrderID string  `json:"order_id,omitempty"`
	Kind    string  `json:"kind"`
}

type PlanResponse struct {
	ID                   int64          `json:"id"`
	DriverID             string         `json:"driver_id"`
	OrderIDs             []string       `json:"order_ids"`
	Stops                []StopResponse `json:"stops"`
	Sequence             []int          `json:"sequence"`
	Polyline             string         `json:"polyline,omitempty"`
	TotalDistanceKm      float64        `json:"total_distance_km"`
	EstimatedDurationSec int            `json:"estimated_duration_sec"`
	ETAPerStopSec        []float64      `json:"eta_per_stop_sec,omitempty"`
	Status               string         `json:"status"`
	Provider             string         `json:"provider"`
	Degraded             bool           `json:"degraded"`
	CreatedAt            time.Time      `json:"created_at"`
}

type SmartRouteResponse struct {
	OrderIDs        []string       `json:"order_ids"`
	Pickup          StopResponse   `json:"pickup"`
	Dropoffs        []StopResponse `json:"dropoffs"`
	TotalDistanceKm float64        `json:"total_distance_km"`
}

type SmartPathResponse struct {
	Routes []SmartRouteResponse `json:"routes"`
}
