package sqlite

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/olmonotarianni/medplane/internal/events"
	"github.com/olmonotarianni/medplane/internal/tracking"
	"github.com/olmonotarianni/medplane/pkg/logger"
)

// UpsertEvent inserts or replaces a loitering event
func (s *Storage) UpsertEvent(ev *events.Event) error {
	intersections, err := json.Marshal(ev.Intersections)
	if err != nil {
		return fmt.Errorf("failed to encode intersections: %w", err)
	}
	state, err := json.Marshal(ev.State)
	if err != nil {
		return fmt.Errorf("failed to encode aircraft state: %w", err)
	}
	track, err := json.Marshal(ev.Track)
	if err != nil {
		return fmt.Errorf("failed to encode track: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO events (id, icao, callsign, first_detected, last_updated, intersections, aircraft_state, track)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			callsign = excluded.callsign,
			last_updated = excluded.last_updated,
			intersections = excluded.intersections,
			aircraft_state = excluded.aircraft_state,
			track = excluded.track
	`, ev.ID, ev.ICAO, ev.Callsign, ev.FirstDetected.UTC(), ev.LastUpdated.UTC(),
		string(intersections), string(state), string(track))
	if err != nil {
		return fmt.Errorf("failed to upsert event: %w", err)
	}
	return nil
}

// DeleteEventsBefore removes events whose last update is older than the
// cutoff and returns how many were deleted
func (s *Storage) DeleteEventsBefore(cutoff time.Time) (int, error) {
	res, err := s.db.Exec(`DELETE FROM events WHERE last_updated < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired events: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	if n > 0 {
		s.logger.Info("Deleted expired events", logger.Int64("count", n))
	}
	return int(n), nil
}

// LoadEvents returns all persisted events. Called once at startup.
func (s *Storage) LoadEvents() ([]events.Event, error) {
	rows, err := s.db.Query(`
		SELECT id, icao, callsign, first_detected, last_updated, intersections, aircraft_state, track
		FROM events
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var out []events.Event
	for rows.Next() {
		var ev events.Event
		var intersections, state, track string
		if err := rows.Scan(&ev.ID, &ev.ICAO, &ev.Callsign, &ev.FirstDetected, &ev.LastUpdated,
			&intersections, &state, &track); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}

		if err := json.Unmarshal([]byte(intersections), &ev.Intersections); err != nil {
			s.logger.Warn("Skipping event with bad intersection data",
				logger.String("id", ev.ID), logger.Error(err))
			continue
		}
		if err := json.Unmarshal([]byte(state), &ev.State); err != nil {
			s.logger.Warn("Skipping event with bad state data",
				logger.String("id", ev.ID), logger.Error(err))
			continue
		}
		if track != "" {
			if err := json.Unmarshal([]byte(track), &ev.Track); err != nil {
				ev.Track = []tracking.TrackPoint{}
			}
		}

		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}

	return out, nil
}
