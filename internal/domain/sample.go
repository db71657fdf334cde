package domain

import "time"

// TrackingSample is a single GPS observation for an order/driver pair.
//
// Samples are immutable once written: the stores only append, never update.
// IngestSequence is assigned by the backing store (auto-increment) and gives a
// total order per order even when two samples share RecordedAt. An ephemeral
// sample carries a locally-generated ID and was never persisted; it exists so
// that a storage rejection does not hide the driver's position from viewers.
type TrackingSample struct {
	ID             string
	OrderID        string
	DriverID       string
	Latitude       float64
	Longitude      float64
	Speed          *float64
	Heading        *float64
	RecordedAt     time.Time
	IngestSequence int64
	Ephemeral      bool
}

// Position returns the sample's location as Coordinates.
func (s *TrackingSample) Position() Coordinates {
	return Coordinates{Lat: s.Latitude, Lng: s.Longitude}
}
