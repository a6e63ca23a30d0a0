package tracking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/olmonotarianni/medplane/internal/config"
	"github.com/olmonotarianni/medplane/internal/geo"
)

func testMonitoringConfig() config.MonitoringConfig {
	return config.MonitoringConfig{
		MinLat:             30,
		MaxLat:             40,
		MinLon:             10,
		MaxLon:             20,
		MinAltitudeFt:      500,
		MaxAltitudeFt:      15000,
		MinSpeedKt:         50,
		MaxSpeedKt:         250,
		MinCoastDistanceKm: 5,
	}
}

func kmPtr(v float64) *float64 { return &v }

func sample(lat, lon, altFt, speedKt float64, coastKm *float64) TrackPoint {
	return TrackPoint{
		Lat:               lat,
		Lon:               lon,
		Timestamp:         time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		AltitudeFt:        altFt,
		SpeedKt:           speedKt,
		DistanceToCoastKm: coastKm,
	}
}

func TestClassify(t *testing.T) {
	c := NewClassifier(testMonitoringConfig())

	tests := []struct {
		name      string
		tp        TrackPoint
		monitored bool
		reason    string
	}{
		{
			name:      "monitored",
			tp:        sample(35, 15, 5000, 120, kmPtr(50)),
			monitored: true,
		},
		{
			name:   "outside area",
			tp:     sample(45, 15, 5000, 120, kmPtr(50)),
			reason: "outside monitored area",
		},
		{
			name:   "no coast distance available",
			tp:     sample(35, 15, 5000, 120, nil),
			reason: "over land or too close to coast",
		},
		{
			name:   "too close to coast",
			tp:     sample(35, 15, 5000, 120, kmPtr(2)),
			reason: "over land or too close to coast",
		},
		{
			name:   "too slow",
			tp:     sample(35, 15, 5000, 30, kmPtr(50)),
			reason: "too slow (30.0 kt)",
		},
		{
			name:   "too fast",
			tp:     sample(35, 15, 5000, 400, kmPtr(50)),
			reason: "too fast (400.0 kt)",
		},
		{
			name:   "too low",
			tp:     sample(35, 15, 200, 120, kmPtr(50)),
			reason: "too low (200.0 ft)",
		},
		{
			name:   "too high",
			tp:     sample(35, 15, 30000, 120, kmPtr(50)),
			reason: "too high (30000.0 ft)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := c.Classify(tt.tp)
			assert.Equal(t, tt.monitored, v.Monitored)
			assert.Equal(t, tt.reason, v.Reason)
		})
	}
}

func TestClassifyPrecedence(t *testing.T) {
	c := NewClassifier(testMonitoringConfig())

	// Outside the area and too fast: the area check answers first, so the
	// reason is stable no matter how many criteria fail.
	v := c.Classify(sample(45, 15, 30000, 400, nil))
	assert.False(t, v.Monitored)
	assert.Equal(t, "outside monitored area", v.Reason)

	// Inside the area, over land and too slow: coast beats kinematics.
	v = c.Classify(sample(35, 15, 200, 30, nil))
	assert.Equal(t, "over land or too close to coast", v.Reason)
}

func TestClassifyPolygon(t *testing.T) {
	cfg := testMonitoringConfig()
	// Triangle covering the south-west corner of the bounding box
	cfg.Polygon = [][]float64{
		{30, 10},
		{30, 20},
		{40, 10},
	}
	c := NewClassifier(cfg)

	assert.True(t, c.InArea(geo.Point{Lat: 32, Lon: 12}))
	// Inside the bbox but outside the polygon
	assert.False(t, c.InArea(geo.Point{Lat: 38, Lon: 18}))

	v := c.Classify(sample(38, 18, 5000, 120, kmPtr(50)))
	assert.False(t, v.Monitored)
	assert.Equal(t, "outside monitored area", v.Reason)
}
