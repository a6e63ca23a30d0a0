package tracking

import (
	"time"

	"github.com/olmonotarianni/medplane/internal/geo"
)

// Position is a plain latitude/longitude pair in decimal degrees
type Position struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Point converts to the geo package representation
func (p Position) Point() geo.Point {
	return geo.Point{Lat: p.Lat, Lon: p.Lon}
}

// TrackPoint is a single position sample. Immutable once created.
type TrackPoint struct {
	Lat               float64   `json:"lat"`
	Lon               float64   `json:"lon"`
	Timestamp         time.Time `json:"timestamp"`
	AltitudeFt        float64   `json:"altitude_ft"`
	SpeedKt           float64   `json:"speed_kt"`
	HeadingDeg        float64   `json:"heading_deg"`
	VerticalRateFPM   float64   `json:"vertical_rate_fpm"`
	DistanceToCoastKm *float64  `json:"distance_to_coast_km"` // nil when the coastline oracle had no answer
}

// Position returns the sample's position
func (tp TrackPoint) Position() Position {
	return Position{Lat: tp.Lat, Lon: tp.Lon}
}

// SameSample reports whether another point carries identical numeric data.
// Used to discard repeated samples from a slow-polling provider; the
// timestamp is deliberately not compared.
func (tp TrackPoint) SameSample(other TrackPoint) bool {
	return tp.Lat == other.Lat &&
		tp.Lon == other.Lon &&
		tp.AltitudeFt == other.AltitudeFt &&
		tp.SpeedKt == other.SpeedKt &&
		tp.HeadingDeg == other.HeadingDeg &&
		tp.VerticalRateFPM == other.VerticalRateFPM
}

// Segment is a straight leg between two adjacent track points.
// Built on demand, never stored.
type Segment struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// GeoSegment converts to the geo package representation
func (s Segment) GeoSegment() geo.Segment {
	return geo.Segment{Start: s.Start.Point(), End: s.End.Point()}
}

// Intersection is one self-crossing of a track: the two legs involved and
// the time the crossing completed (the later of the two legs' newer ends)
type Intersection struct {
	SegmentA  Segment   `json:"segment_a"`
	SegmentB  Segment   `json:"segment_b"`
	Timestamp time.Time `json:"timestamp"`
}

// LoiterDiagnostics explains a loitering verdict for review
type LoiterDiagnostics struct {
	Method        string `json:"method"`        // detector variant that fired
	Intersections int    `json:"intersections"` // qualifying self-crossings found
}

// Aircraft is the tracked state of one airframe, keyed by ICAO address.
// Track is ordered newest first and is never empty while the record exists.
type Aircraft struct {
	ICAO               string             `json:"icao"`
	Callsign           string             `json:"callsign,omitempty"`
	IsMonitored        bool               `json:"is_monitored"`
	NotMonitoredReason *string            `json:"not_monitored_reason,omitempty"`
	IsLoitering        bool               `json:"is_loitering"`
	LastSeen           time.Time          `json:"last_seen"`
	Track              []TrackPoint       `json:"track,omitempty"`
	Diagnostics        *LoiterDiagnostics `json:"diagnostics,omitempty"`
}

// Newest returns the most recent track point. Only valid on a non-empty
// track, which the store guarantees for every record it hands out.
func (a *Aircraft) Newest() TrackPoint {
	return a.Track[0]
}

// PositionReport is one raw sample from the provider, before validation
type PositionReport struct {
	ICAO            string
	Callsign        string
	Lat             *float64 // nil when the report carried no position
	Lon             *float64
	Timestamp       time.Time
	AltitudeFt      float64
	SpeedKt         float64
	HeadingDeg      float64
	VerticalRateFPM float64
}

// ScanResult is a provider batch: the reports plus the provider's own clock
type ScanResult struct {
	Reports   []PositionReport
	Timestamp time.Time
}

// AircraftResponse is the API payload for aircraft listings
type AircraftResponse struct {
	Timestamp time.Time  `json:"timestamp"`
	Count     int        `json:"count"`
	Monitored int        `json:"monitored"`
	Loitering int        `json:"loitering"`
	Aircraft  []Aircraft `json:"aircraft"`
}

// TrackResponse is the API payload for a single aircraft's track
type TrackResponse struct {
	ICAO     string       `json:"icao"`
	Callsign string       `json:"callsign,omitempty"`
	Track    []TrackPoint `json:"track"`
}
