package dto

import "time"

type TrackingRequest struct {
	OrderID    string     `json:"order_id"`
	DriverID   string     `json:"driver_id"`
	Latitude   float64    `json:"latitude"`
	Longitude  float64    `json:"longitude"`
	Speed      *float64   `json:"speed"`
	Heading    *float64   `json:"heading"`
	RecordedAt *time.Time `json:"recorded_at"`
	// IdempotencyKey may also be supplied via the Idempotency-Key header,
	// which wins when both are present.
	IdempotencyKey string `json:"idempotency_key"`
}

type TrackingResponse struct {
	ID       string `json:"id"`
	OrderID  string `json:"order_id"`
	DriverID string `json:"driver_id"`
	// OrderRef and DriverRef are compact numeric aliases for systems that
	// cannot carry string identifiers.
	OrderRef   int32     `json:"order_ref"`
	DriverRef  int32     `json:"driver_ref"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Speed      *float64  `json:"speed"`
	Heading    *float64  `json:"heading"`
	RecordedAt time.Time `json:"recorded_at"`
	Degraded   bool      `json:"degraded"`
	Duplicate  bool      `json:"duplicate"`
}
