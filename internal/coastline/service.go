// Package coastline answers how far a position is from the nearest shore.
// The geometry comes from a JSON database of coastline line strings loaded
// once at startup; with no geometry loaded every lookup returns nil, which
// the classifier treats as "over land".
package coastline

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/olmonotarianni/medplane/internal/config"
	"github.com/olmonotarianni/medplane/internal/geo"
	"github.com/olmonotarianni/medplane/pkg/logger"
)

// coastlineDB is the on-disk format: named line strings of [lat, lon] pairs
type coastlineDB struct {
	Name  string        `json:"name"`
	Lines [][][]float64 `json:"lines"`
}

// Service is the coastline distance oracle
type Service struct {
	lines  [][]geo.Point
	logger *logger.Logger
}

// NewService creates the oracle, loading the coastline database if one is
// configured. A missing or unreadable database is logged and leaves the
// oracle empty rather than failing startup.
func NewService(cfg config.CoastlineConfig, log *logger.Logger) *Service {
	s := &Service{logger: log.Named("coastline")}

	if cfg.DBPath == "" {
		s.logger.Warn("No coastline database configured; all aircraft will fail the sea-distance check")
		return s
	}

	if err := s.load(cfg.DBPath); err != nil {
		s.logger.Error("Failed to load coastline data", logger.Error(err), logger.String("path", cfg.DBPath))
		return s
	}

	return s
}

func (s *Service) load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var db coastlineDB
	if err := json.Unmarshal(data, &db); err != nil {
		return err
	}

	vertices := 0
	for _, line := range db.Lines {
		points := make([]geo.Point, 0, len(line))
		for i, v := range line {
			if len(v) != 2 {
				return fmt.Errorf("line vertex %d must be [lat, lon], got %d values", i, len(v))
			}
			points = append(points, geo.Point{Lat: v[0], Lon: v[1]})
		}
		if len(points) >= 2 {
			s.lines = append(s.lines, points)
			vertices += len(points)
		}
	}

	s.logger.Info("Loaded coastline data",
		logger.String("name", db.Name),
		logger.Int("lines", len(s.lines)),
		logger.Int("vertices", vertices))
	return nil
}

// MinDistanceToCoast returns the distance in km from the position to the
// nearest coastline segment, or nil when no geometry is available
func (s *Service) MinDistanceToCoast(p geo.Point) *float64 {
	if len(s.lines) == 0 {
		return nil
	}

	min := -1.0
	for _, line := range s.lines {
		for i := 0; i < len(line)-1; i++ {
			d := geo.PointToSegmentKm(p, line[i], line[i+1])
			if min < 0 || d < min {
				min = d
			}
		}
	}
	return &min
}
