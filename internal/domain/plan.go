package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

type StopKind string

const (
	StopPickup  StopKind = "pickup"
	StopDropoff StopKind = "dropoff"
	// StopWaypoint marks a plan seeded from the driver's last known position
	// when there is nothing to pick up or drop off.
	StopWaypoint StopKind = "waypoint"
)

type PlanStatus string

const (
	PlanPlanned   PlanStatus = "planned"
	PlanActive    PlanStatus = "active"
	PlanCompleted PlanStatus = "completed"
	PlanCancelled PlanStatus = "cancelled"
)

// Stop is a single pickup or dropoff location within a RoutePlan.
type Stop struct {
	Lat     float64  `json:"lat"`
	Lng     float64  `json:"lng"`
	OrderID string   `json:"order_id,omitempty"`
	Kind    StopKind `json:"kind"`
}

// Position returns the stop's location as Coordinates.
func (s Stop) Position() Coordinates { return Coordinates{Lat: s.Lat, Lng: s.Lng} }

// RoutePlan is the latest known stop ordering for a driver.
//
// Plans are immutable planning data: a recomputation inserts a new row and the
// newest CreatedAt wins. Sequence holds the visiting order as a permutation of
// indices into Stops. A plan produced without successful external optimization
// carries {"mock": true} in RawResponse and zeroed distance metrics.
type RoutePlan struct {
	ID                   int64
	DriverID             string
	OrderIDs             []string
	Stops                []Stop
	Sequence             []int
	Polyline             string
	TotalDistanceKm      float64
	EstimatedDurationSec int
	ETAPerStop           []float64
	Status               PlanStatus
	Provider             string
	RawResponse          json.RawMessage
	CreatedAt            time.Time
}

// ValidateSequence checks that Sequence is a permutation of indices into Stops.
func (p *RoutePlan) ValidateSequence() error {
	if len(p.Sequence) != len(p.Stops) {
		return fmt.Errorf("validate sequence: length %d does not match %d stops", len(p.Sequence), len(p.Stops))
	}

	seen := make([]bool, len(p.Stops))
	for _, idx := range p.Sequence {
		if idx < 0 || idx >= len(p.Stops) {
			return fmt.Errorf("validate sequence: index %d out of range [0,%d)", idx, len(p.Stops))
		}
		if seen[idx] {
			return fmt.Errorf("validate sequence: index %d appears more than once", idx)
		}
		seen[idx] = true
	}

	return nil
}

// OrderedStops returns the stops in visiting order. The sequence must already
// be valid; an empty sequence yields the stops as stored.
func (p *RoutePlan) OrderedStops() []Stop {
	if len(p.Sequence) != len(p.Stops) {
		return p.Stops
	}

	out := make([]Stop, 0, len(p.Stops))
	for _, idx := range p.Sequence {
		out = append(out, p.Stops[idx])
	}
	return out
}

// Degraded reports whether the plan was produced by the deterministic fallback
// rather than the external optimization provider.
func (p *RoutePlan) Degraded() bool {
	if len(p.RawResponse) == 0 {
		return false
	}

	var probe struct {
		Mock bool `json:"mock"`
	}
	if err := json.Unmarshal(p.RawResponse, &probe); err != nil {
		return false
	}
	return probe.Mock
}
