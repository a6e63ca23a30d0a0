package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/olmonotarianni/medplane/pkg/logger"
)

// Storage is the SQLite-backed persistence layer for loitering events and
// aircraft snapshots. Durability is best-effort: the in-memory stores stay
// authoritative and callers log write failures and continue.
type Storage struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewStorage opens (or creates) the database and initializes the schema
func NewStorage(dbPath string, log *logger.Logger) (*Storage, error) {
	storageLogger := log.Named("sqlite")

	storageLogger.Info("Initializing SQLite storage",
		logger.String("path", dbPath))

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to set journal mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		return nil, fmt.Errorf("failed to set synchronous mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if err := initDatabase(db, storageLogger); err != nil {
		db.Close()
		return nil, err
	}

	return &Storage{
		db:     db,
		logger: storageLogger,
	}, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// initDatabase initializes the database schema
func initDatabase(db *sql.DB, log *logger.Logger) error {
	log.Info("Initializing database schema")

	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			icao TEXT NOT NULL,
			callsign TEXT,
			first_detected TIMESTAMP NOT NULL,
			last_updated TIMESTAMP NOT NULL,
			intersections TEXT,
			aircraft_state TEXT,
			track TEXT
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create events table: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS aircraft_snapshots (
			icao TEXT PRIMARY KEY,
			data TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create aircraft_snapshots table: %w", err)
	}

	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_events_icao ON events(icao)`)
	if err != nil {
		return fmt.Errorf("failed to create index on events.icao: %w", err)
	}

	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_events_last_updated ON events(last_updated)`)
	if err != nil {
		return fmt.Errorf("failed to create index on events.last_updated: %w", err)
	}

	log.Info("Database schema initialized successfully")
	return nil
}
