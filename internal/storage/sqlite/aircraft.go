package sqlite

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/olmonotarianni/medplane/internal/tracking"
	"github.com/olmonotarianni/medplane/pkg/logger"
)

// SaveAircraftSnapshot replaces the persisted aircraft collection with the
// given one. The replace happens inside a single transaction, so readers
// of the file never see a half-written collection.
func (s *Storage) SaveAircraftSnapshot(aircraft []tracking.Aircraft) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin snapshot transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM aircraft_snapshots`); err != nil {
		return fmt.Errorf("failed to clear aircraft snapshots: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO aircraft_snapshots (icao, data, updated_at) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare snapshot insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for i := range aircraft {
		data, err := json.Marshal(&aircraft[i])
		if err != nil {
			return fmt.Errorf("failed to encode aircraft %s: %w", aircraft[i].ICAO, err)
		}
		if _, err := stmt.Exec(aircraft[i].ICAO, string(data), now); err != nil {
			return fmt.Errorf("failed to insert aircraft %s: %w", aircraft[i].ICAO, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}

	s.logger.Debug("Saved aircraft snapshot", logger.Int("count", len(aircraft)))
	return nil
}

// LoadAircraftSnapshot returns the persisted aircraft collection.
// Called once at startup.
func (s *Storage) LoadAircraftSnapshot() ([]tracking.Aircraft, error) {
	rows, err := s.db.Query(`SELECT data FROM aircraft_snapshots`)
	if err != nil {
		return nil, fmt.Errorf("failed to query aircraft snapshots: %w", err)
	}
	defer rows.Close()

	var out []tracking.Aircraft
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan aircraft snapshot: %w", err)
		}
		var a tracking.Aircraft
		if err := json.Unmarshal([]byte(data), &a); err != nil {
			s.logger.Warn("Skipping unreadable aircraft snapshot", logger.Error(err))
			continue
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate aircraft snapshots: %w", err)
	}

	return out, nil
}
