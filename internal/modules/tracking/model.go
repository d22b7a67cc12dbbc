// README: Location sample and ETA models for delivery tracking.
package tracking

import (
	"time"

	"parcelo/internal/types"
)

// Sample is a single carrier position report. Append-only; the latest
// sample per delivery is also cached for snapshot reads.
type Sample struct {
	DeliveryID types.ID
	CarrierID  types.ID
	Position   types.Point
	AccuracyM  *float64
	HeadingDeg *float64
	SpeedKmh   *float64
	CapturedAt time.Time
}

// ETA is a derived arrival estimate. Degraded is set when the route
// function failed and the estimate fell back to straight-line distance.
type ETA struct {
	ArrivalAt time.Time
	Duration  time.Duration
	DistanceM int
	Polyline  string
	Degraded  bool
}

// Proximity classes attached to location events, from nearest to farthest.
type Proximity string

const (
	ProximityNone        Proximity = ""
	ProximityApproaching Proximity = "approaching"
	ProximityNearby      Proximity = "nearby"
	ProximityArrived     Proximity = "arrived"
)

// Thresholds in metres for proximity classification.
const (
	approachingM = 2000.0
	nearbyM      = 500.0
	arrivedM     = 50.0
)

// Classify maps a distance to the drop-off into a proximity class.
func Classify(distanceM float64) Proximity {
	switch {
	case distanceM <= arrivedM:
		return ProximityArrived
	case distanceM <= nearbyM:
		return ProximityNearby
	case distanceM <= approachingM:
		return ProximityApproaching
	}
	return ProximityNone
}
