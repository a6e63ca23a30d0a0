package tracking

import (
	"fmt"

	"github.com/olmonotarianni/medplane/internal/config"
	"github.com/olmonotarianni/medplane/internal/geo"
)

// Classifier decides whether a single position sample makes an aircraft
// eligible for monitoring. It is a pure decision function over the sample
// and the configured thresholds; the sea distance was already attached to
// the sample at ingestion time, so no I/O happens here.
//
// Checks run in a fixed order and the first failure wins: area membership,
// sea distance, speed, altitude. The coast check sits before the kinematic
// checks because it discards the bulk of overland traffic cheaply.
type Classifier struct {
	bounds  geo.Bounds
	polygon []geo.Point
	cfg     config.MonitoringConfig
}

// Verdict is the outcome of a classification: monitored, or not with a
// human-readable reason
type Verdict struct {
	Monitored bool
	Reason    string // empty when monitored
}

// NewClassifier creates a classifier from the monitoring configuration
func NewClassifier(cfg config.MonitoringConfig) *Classifier {
	return &Classifier{
		bounds:  cfg.Bounds(),
		polygon: cfg.PolygonRing(),
		cfg:     cfg,
	}
}

// InArea reports whether a position is inside the monitored area.
// The bbox is a pre-filter; when a polygon is configured it is the
// authoritative test.
func (c *Classifier) InArea(p geo.Point) bool {
	if !c.bounds.Contains(p) {
		return false
	}
	if c.polygon != nil {
		return geo.PolygonContains(c.polygon, p)
	}
	return true
}

// Classify evaluates one sample against the monitoring criteria
func (c *Classifier) Classify(tp TrackPoint) Verdict {
	if !c.InArea(tp.Position().Point()) {
		return Verdict{Reason: "outside monitored area"}
	}

	// A missing sea distance means the oracle had no answer; treat the
	// aircraft as over land rather than risk a false loitering event.
	if tp.DistanceToCoastKm == nil || *tp.DistanceToCoastKm < c.cfg.MinCoastDistanceKm {
		return Verdict{Reason: "over land or too close to coast"}
	}

	if tp.SpeedKt < c.cfg.MinSpeedKt {
		return Verdict{Reason: fmt.Sprintf("too slow (%.1f kt)", tp.SpeedKt)}
	}
	if tp.SpeedKt > c.cfg.MaxSpeedKt {
		return Verdict{Reason: fmt.Sprintf("too fast (%.1f kt)", tp.SpeedKt)}
	}

	if tp.AltitudeFt < c.cfg.MinAltitudeFt {
		return Verdict{Reason: fmt.Sprintf("too low (%.1f ft)", tp.AltitudeFt)}
	}
	if tp.AltitudeFt > c.cfg.MaxAltitudeFt {
		return Verdict{Reason: fmt.Sprintf("too high (%.1f ft)", tp.AltitudeFt)}
	}

	return Verdict{Monitored: true}
}
