package tracking

import (
	"time"

	"github.com/olmonotarianni/medplane/internal/config"
	"github.com/olmonotarianni/medplane/internal/geo"
)

// Detection method names
const (
	MethodIntersection = "intersection"
	MethodRadius       = "radius"
)

// Detector decides whether a track amounts to loitering. The primary
// variant looks for the flight path crossing itself; the alternate variant
// looks for the whole track dwelling inside a radius for long enough.
type Detector struct {
	classifier  *Classifier
	method      string
	maxRadiusKm float64
	minDuration time.Duration
}

// NewDetector creates a detector for the configured method
func NewDetector(cfg config.DetectionConfig, classifier *Classifier) *Detector {
	return &Detector{
		classifier:  classifier,
		method:      cfg.Method,
		maxRadiusKm: cfg.LoiterMaxRadiusKm,
		minDuration: time.Duration(cfg.LoiterMinDurationSec) * time.Second,
	}
}

// Method returns the active detection method name
func (d *Detector) Method() string {
	return d.method
}

// Detect evaluates a newest-first track. It returns whether the aircraft is
// loitering and, for the intersection method, every qualifying
// self-crossing so event correlation can keep the full picture.
func (d *Detector) Detect(track []TrackPoint) (bool, []Intersection) {
	if d.method == MethodRadius {
		return d.detectRadius(track), nil
	}
	intersections := d.detectIntersections(track)
	return len(intersections) > 0, intersections
}

// detectIntersections scans all non-adjacent segment pairs of the track.
// With N points there are N-1 consecutive segments; segment i runs from
// track[i+1] to track[i] (the track is newest first, the segment points
// forward in time). Adjacent segments share a vertex and are skipped. A
// crossing only counts when all four endpoint samples independently
// classify as monitored, so a loop flown partly outside the envelope
// (climb-out, coastal crossing) is not loitering.
//
// O(n²) segment tests, bounded by the track retention window.
func (d *Detector) detectIntersections(track []TrackPoint) []Intersection {
	// Fewer than 4 points means fewer than 3 segments: a path cannot
	// cross itself yet.
	if len(track) < 4 {
		return nil
	}

	var found []Intersection
	segCount := len(track) - 1

	for i := 0; i < segCount; i++ {
		segI := geo.Segment{
			Start: geo.Point{Lat: track[i+1].Lat, Lon: track[i+1].Lon},
			End:   geo.Point{Lat: track[i].Lat, Lon: track[i].Lon},
		}
		for j := i + 2; j < segCount; j++ {
			segJ := geo.Segment{
				Start: geo.Point{Lat: track[j+1].Lat, Lon: track[j+1].Lon},
				End:   geo.Point{Lat: track[j].Lat, Lon: track[j].Lon},
			}
			if !geo.SegmentsIntersect(segI, segJ) {
				continue
			}
			if !d.endpointsMonitored(track[i], track[i+1], track[j], track[j+1]) {
				continue
			}

			// Newest-first ordering makes track[i] the newer end of
			// segment i and track[j] of segment j; the crossing is
			// complete at the later of the two.
			ts := track[i].Timestamp
			if track[j].Timestamp.After(ts) {
				ts = track[j].Timestamp
			}

			found = append(found, Intersection{
				SegmentA: Segment{
					Start: track[i+1].Position(),
					End:   track[i].Position(),
				},
				SegmentB: Segment{
					Start: track[j+1].Position(),
					End:   track[j].Position(),
				},
				Timestamp: ts,
			})
		}
	}

	return found
}

func (d *Detector) endpointsMonitored(points ...TrackPoint) bool {
	for _, tp := range points {
		if !d.classifier.Classify(tp).Monitored {
			return false
		}
	}
	return true
}

// detectRadius reports loitering when every monitored track point sits
// within the configured radius of the track centroid and the track spans
// at least the minimum dwell duration
func (d *Detector) detectRadius(track []TrackPoint) bool {
	if len(track) < 2 {
		return false
	}

	for _, tp := range track {
		if !d.classifier.Classify(tp).Monitored {
			return false
		}
	}

	span := track[0].Timestamp.Sub(track[len(track)-1].Timestamp)
	if span < d.minDuration {
		return false
	}

	var sumLat, sumLon float64
	for _, tp := range track {
		sumLat += tp.Lat
		sumLon += tp.Lon
	}
	centroid := geo.Point{
		Lat: sumLat / float64(len(track)),
		Lon: sumLon / float64(len(track)),
	}

	for _, tp := range track {
		if geo.Distance(centroid, geo.Point{Lat: tp.Lat, Lon: tp.Lon}) > d.maxRadiusKm {
			return false
		}
	}

	return true
}
