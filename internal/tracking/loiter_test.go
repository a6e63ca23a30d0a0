package tracking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olmonotarianni/medplane/internal/config"
)

func testDetector(method string) *Detector {
	return NewDetector(config.DetectionConfig{
		Method:               method,
		LoiterMaxRadiusKm:    10,
		LoiterMinDurationSec: 600,
	}, NewClassifier(testMonitoringConfig()))
}

// newestFirst builds a track from points given in flight order
func newestFirst(points ...TrackPoint) []TrackPoint {
	track := make([]TrackPoint, len(points))
	for i, tp := range points {
		track[len(points)-1-i] = tp
	}
	return track
}

func at(tp TrackPoint, minute int) TrackPoint {
	tp.Timestamp = time.Date(2026, 3, 1, 12, minute, 0, 0, time.UTC)
	return tp
}

func TestDetectBowtie(t *testing.T) {
	d := testDetector(MethodIntersection)

	// Figure-eight: the leg from p1 to p2 crosses the leg from p3 to p4
	track := newestFirst(
		at(sample(35.0, 12.0, 5000, 120, kmPtr(50)), 0),
		at(sample(35.5, 12.5, 5000, 120, kmPtr(50)), 5),
		at(sample(35.0, 12.5, 5000, 120, kmPtr(50)), 10),
		at(sample(35.5, 12.0, 5000, 120, kmPtr(50)), 15),
	)

	loitering, intersections := d.Detect(track)
	assert.True(t, loitering)
	require.Len(t, intersections, 1)

	// The crossing is complete when the later of the two segments is flown
	assert.Equal(t, time.Date(2026, 3, 1, 12, 15, 0, 0, time.UTC), intersections[0].Timestamp)
}

func TestDetectStraightLine(t *testing.T) {
	d := testDetector(MethodIntersection)

	track := newestFirst(
		at(sample(35.0, 12.0, 5000, 120, kmPtr(50)), 0),
		at(sample(35.1, 12.2, 5000, 120, kmPtr(50)), 5),
		at(sample(35.2, 12.4, 5000, 120, kmPtr(50)), 10),
		at(sample(35.3, 12.6, 5000, 120, kmPtr(50)), 15),
		at(sample(35.4, 12.8, 5000, 120, kmPtr(50)), 20),
	)

	loitering, intersections := d.Detect(track)
	assert.False(t, loitering)
	assert.Empty(t, intersections)
}

func TestDetectTooFewPoints(t *testing.T) {
	d := testDetector(MethodIntersection)

	track := newestFirst(
		at(sample(35.0, 12.0, 5000, 120, kmPtr(50)), 0),
		at(sample(35.5, 12.5, 5000, 120, kmPtr(50)), 5),
		at(sample(35.0, 12.5, 5000, 120, kmPtr(50)), 10),
	)

	loitering, intersections := d.Detect(track)
	assert.False(t, loitering)
	assert.Empty(t, intersections)
}

func TestDetectRequiresMonitoredEndpoints(t *testing.T) {
	d := testDetector(MethodIntersection)

	// Same bowtie, but one crossing endpoint is below the altitude floor
	track := newestFirst(
		at(sample(35.0, 12.0, 200, 120, kmPtr(50)), 0),
		at(sample(35.5, 12.5, 5000, 120, kmPtr(50)), 5),
		at(sample(35.0, 12.5, 5000, 120, kmPtr(50)), 10),
		at(sample(35.5, 12.0, 5000, 120, kmPtr(50)), 15),
	)

	loitering, intersections := d.Detect(track)
	assert.False(t, loitering)
	assert.Empty(t, intersections)
}

func TestDetectBowtieOutsideArea(t *testing.T) {
	d := testDetector(MethodIntersection)

	// Geometrically loitering, but north of the monitored area
	track := newestFirst(
		at(sample(45.0, 12.0, 5000, 120, kmPtr(50)), 0),
		at(sample(45.5, 12.5, 5000, 120, kmPtr(50)), 5),
		at(sample(45.0, 12.5, 5000, 120, kmPtr(50)), 10),
		at(sample(45.5, 12.0, 5000, 120, kmPtr(50)), 15),
	)

	loitering, _ := d.Detect(track)
	assert.False(t, loitering)
}

func TestDetectMultipleCrossings(t *testing.T) {
	d := testDetector(MethodIntersection)

	// Two stacked bowties share the middle vertex run, producing more than
	// one qualifying crossing
	track := newestFirst(
		at(sample(35.0, 12.0, 5000, 120, kmPtr(50)), 0),
		at(sample(35.2, 12.2, 5000, 120, kmPtr(50)), 5),
		at(sample(35.0, 12.2, 5000, 120, kmPtr(50)), 10),
		at(sample(35.2, 12.0, 5000, 120, kmPtr(50)), 15),
		at(sample(35.0, 12.1, 5000, 120, kmPtr(50)), 20),
	)

	loitering, intersections := d.Detect(track)
	assert.True(t, loitering)
	assert.GreaterOrEqual(t, len(intersections), 2)
}

func TestDetectRadius(t *testing.T) {
	d := testDetector(MethodRadius)

	// Tight cluster over 15 minutes, well inside a 10 km radius
	cluster := newestFirst(
		at(sample(35.00, 12.00, 5000, 120, kmPtr(50)), 0),
		at(sample(35.02, 12.01, 5000, 120, kmPtr(50)), 5),
		at(sample(35.01, 12.03, 5000, 120, kmPtr(50)), 10),
		at(sample(35.00, 12.02, 5000, 120, kmPtr(50)), 15),
	)

	loitering, intersections := d.Detect(cluster)
	assert.True(t, loitering)
	assert.Empty(t, intersections, "radius method reports no crossings")
}

func TestDetectRadiusTooShort(t *testing.T) {
	d := testDetector(MethodRadius)

	// Same cluster compressed into five minutes
	cluster := newestFirst(
		at(sample(35.00, 12.00, 5000, 120, kmPtr(50)), 0),
		at(sample(35.02, 12.01, 5000, 120, kmPtr(50)), 2),
		at(sample(35.01, 12.03, 5000, 120, kmPtr(50)), 4),
		at(sample(35.00, 12.02, 5000, 120, kmPtr(50)), 5),
	)

	loitering, _ := d.Detect(cluster)
	assert.False(t, loitering)
}

func TestDetectRadiusEscapes(t *testing.T) {
	d := testDetector(MethodRadius)

	// Last point runs a degree east, far beyond the radius
	track := newestFirst(
		at(sample(35.00, 12.0, 5000, 120, kmPtr(50)), 0),
		at(sample(35.02, 12.01, 5000, 120, kmPtr(50)), 5),
		at(sample(35.01, 12.03, 5000, 120, kmPtr(50)), 10),
		at(sample(35.00, 13.0, 5000, 120, kmPtr(50)), 15),
	)

	loitering, _ := d.Detect(track)
	assert.False(t, loitering)
}
