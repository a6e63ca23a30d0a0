package events

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/olmonotarianni/medplane/internal/config"
	"github.com/olmonotarianni/medplane/internal/tracking"
	"github.com/olmonotarianni/medplane/pkg/logger"
)

// Storage persists events. Failures are logged by the ledger and never
// affect the in-memory state, which stays authoritative.
type Storage interface {
	UpsertEvent(ev *Event) error
	DeleteEventsBefore(cutoff time.Time) (int, error)
}

// Ledger correlates loitering detections into durable events. Repeated
// detections for the same aircraft inside the inactivity window update the
// open event; a detection after the window starts a fresh one. The
// ingestion coordinator is the sole writer.
type Ledger struct {
	mu           sync.RWMutex
	events       map[string]*Event
	latestByICAO map[string]string // icao -> id of the most recently updated event

	inactivityWindow time.Duration
	retention        time.Duration
	maxTrackPoints   int

	storage Storage
	logger  *logger.Logger
}

// NewLedger creates an event ledger
func NewLedger(cfg config.EventsConfig, storage Storage, log *logger.Logger) *Ledger {
	return &Ledger{
		events:           make(map[string]*Event),
		latestByICAO:     make(map[string]string),
		inactivityWindow: time.Duration(cfg.InactivityWindowMinutes) * time.Minute,
		retention:        time.Duration(cfg.RetentionDays) * 24 * time.Hour,
		maxTrackPoints:   cfg.MaxTrackPoints,
		storage:          storage,
		logger:           log.Named("event-ledger"),
	}
}

// Report records a loitering detection. It returns a copy of the affected
// event and whether it was newly created; a new event is the caller's cue
// to notify, exactly once per id.
func (l *Ledger) Report(aircraft tracking.Aircraft, intersections []tracking.Intersection, now time.Time) (Event, bool) {
	l.mu.Lock()

	var ev *Event
	created := false

	if id, ok := l.latestByICAO[aircraft.ICAO]; ok {
		if open := l.events[id]; open != nil && now.Sub(open.LastUpdated) <= l.inactivityWindow {
			ev = open
		}
	}

	if ev != nil {
		ev.LastUpdated = now
		ev.Callsign = aircraft.Callsign
		ev.Intersections = append([]tracking.Intersection(nil), intersections...)
		ev.Track = mergeTracks(aircraft.Track, ev.Track, l.maxTrackPoints)
		ev.State = stateFromSample(aircraft.Newest())
	} else {
		created = true
		ev = &Event{
			ID:            uuid.NewString(),
			ICAO:          aircraft.ICAO,
			Callsign:      aircraft.Callsign,
			FirstDetected: now,
			LastUpdated:   now,
			Intersections: append([]tracking.Intersection(nil), intersections...),
			State:         stateFromSample(aircraft.Newest()),
			Track:         mergeTracks(aircraft.Track, nil, l.maxTrackPoints),
		}
		l.events[ev.ID] = ev
		l.latestByICAO[aircraft.ICAO] = ev.ID
	}

	snapshot := copyEvent(ev)
	l.mu.Unlock()

	// Persistence is best-effort; live detection does not depend on it.
	if l.storage != nil {
		if err := l.storage.UpsertEvent(&snapshot); err != nil {
			l.logger.Error("Failed to persist event",
				logger.String("id", snapshot.ID),
				logger.Error(err))
		}
	}

	if created {
		l.logger.Info("New loitering event",
			logger.String("id", snapshot.ID),
			logger.String("icao", snapshot.ICAO),
			logger.String("callsign", snapshot.Callsign),
			logger.Int("intersections", len(snapshot.Intersections)))
	}

	return snapshot, created
}

// Expire deletes events whose last update is older than the retention
// horizon, regardless of whether the aircraft is still tracked
func (l *Ledger) Expire(now time.Time) int {
	cutoff := now.Add(-l.retention)

	l.mu.Lock()
	removed := 0
	for id, ev := range l.events {
		if ev.LastUpdated.Before(cutoff) {
			delete(l.events, id)
			if l.latestByICAO[ev.ICAO] == id {
				delete(l.latestByICAO, ev.ICAO)
			}
			removed++
		}
	}
	l.mu.Unlock()

	if l.storage != nil {
		if _, err := l.storage.DeleteEventsBefore(cutoff); err != nil {
			l.logger.Error("Failed to expire persisted events", logger.Error(err))
		}
	}

	if removed > 0 {
		l.logger.Info("Expired loitering events", logger.Int("count", removed))
	}
	return removed
}

// Load repopulates the ledger from persisted events. Called once at
// startup so a restart keeps open events correlating instead of
// double-notifying.
func (l *Ledger) Load(events []Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range events {
		ev := copyEvent(&events[i])
		l.events[ev.ID] = &ev
		if currentID, ok := l.latestByICAO[ev.ICAO]; !ok || ev.LastUpdated.After(l.events[currentID].LastUpdated) {
			l.latestByICAO[ev.ICAO] = ev.ID
		}
	}
	l.logger.Info("Loaded persisted events", logger.Int("count", len(events)))
}

// List returns copies of all events, most recently updated first
func (l *Ledger) List() []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Event, 0, len(l.events))
	for _, ev := range l.events {
		out = append(out, copyEvent(ev))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastUpdated.After(out[j].LastUpdated)
	})
	return out
}

// ListByICAO returns copies of all events for one aircraft, most recently
// updated first
func (l *Ledger) ListByICAO(icao string) []Event {
	all := l.List()
	out := all[:0]
	for _, ev := range all {
		if ev.ICAO == icao {
			out = append(out, ev)
		}
	}
	return out
}

// Get returns a copy of one event by id
func (l *Ledger) Get(id string) (Event, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	ev, ok := l.events[id]
	if !ok {
		return Event{}, false
	}
	return copyEvent(ev), true
}

// LatestForICAO returns the most recently updated event for an aircraft
func (l *Ledger) LatestForICAO(icao string) (Event, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	id, ok := l.latestByICAO[icao]
	if !ok {
		return Event{}, false
	}
	ev, ok := l.events[id]
	if !ok {
		return Event{}, false
	}
	return copyEvent(ev), true
}

// Count returns the number of retained events
func (l *Ledger) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}

// mergeTracks combines a fresh track snapshot with an event's stored one.
// Points are deduplicated by timestamp, ordered newest first, and the
// oldest end is trimmed to the cap.
func mergeTracks(fresh, stored []tracking.TrackPoint, maxPoints int) []tracking.TrackPoint {
	merged := make([]tracking.TrackPoint, 0, len(fresh)+len(stored))
	seen := make(map[int64]bool, len(fresh)+len(stored))

	for _, tp := range fresh {
		key := tp.Timestamp.UnixMilli()
		if !seen[key] {
			seen[key] = true
			merged = append(merged, tp)
		}
	}
	for _, tp := range stored {
		key := tp.Timestamp.UnixMilli()
		if !seen[key] {
			seen[key] = true
			merged = append(merged, tp)
		}
	}

	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Timestamp.After(merged[j].Timestamp)
	})

	if len(merged) > maxPoints {
		merged = merged[:maxPoints]
	}
	return merged
}

// copyEvent returns a value copy with its own slices
func copyEvent(ev *Event) Event {
	out := *ev
	out.Intersections = append([]tracking.Intersection(nil), ev.Intersections...)
	out.Track = append([]tracking.TrackPoint(nil), ev.Track...)
	return out
}
