package events

import (
	"time"

	"github.com/olmonotarianni/medplane/internal/geo"
	"github.com/olmonotarianni/medplane/internal/tracking"
)

// AircraftState is the kinematic snapshot attached to an event, taken from
// the newest sample at the time of the last update
type AircraftState struct {
	Lat             float64   `json:"lat"`
	Lon             float64   `json:"lon"`
	AltitudeFt      float64   `json:"altitude_ft"`
	SpeedKt         float64   `json:"speed_kt"`
	HeadingDeg      float64   `json:"heading_deg"`
	HeadingMagDeg   float64   `json:"heading_mag_deg"`
	VerticalRateFPM float64   `json:"vertical_rate_fpm"`
	Timestamp       time.Time `json:"timestamp"`
}

// Event is one durable loitering event. It is created on the first
// detection for an aircraft with no open event, updated in place while
// detections continue inside the inactivity window, and becomes immutable
// history once a newer event supersedes it.
type Event struct {
	ID            string                  `json:"id"`
	ICAO          string                  `json:"icao"`
	Callsign      string                  `json:"callsign,omitempty"`
	FirstDetected time.Time               `json:"first_detected"`
	LastUpdated   time.Time               `json:"last_updated"`
	Intersections []tracking.Intersection `json:"intersection_points"`
	State         AircraftState           `json:"aircraft_state"`
	Track         []tracking.TrackPoint   `json:"track"` // newest first, deduplicated by timestamp
}

// EventsResponse is the API payload for event listings
type EventsResponse struct {
	Timestamp time.Time `json:"timestamp"`
	Count     int       `json:"count"`
	Events    []Event   `json:"events"`
}

// stateFromSample builds the snapshot, deriving the magnetic heading from
// the true heading at the sample's position
func stateFromSample(tp tracking.TrackPoint) AircraftState {
	return AircraftState{
		Lat:             tp.Lat,
		Lon:             tp.Lon,
		AltitudeFt:      tp.AltitudeFt,
		SpeedKt:         tp.SpeedKt,
		HeadingDeg:      tp.HeadingDeg,
		HeadingMagDeg:   geo.TrueToMagnetic(tp.HeadingDeg, tp.Lat, tp.Lon, tp.AltitudeFt, tp.Timestamp),
		VerticalRateFPM: tp.VerticalRateFPM,
		Timestamp:       tp.Timestamp,
	}
}
