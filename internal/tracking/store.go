package tracking

import (
	"sync"
	"time"

	"github.com/olmonotarianni/medplane/internal/config"
	"github.com/olmonotarianni/medplane/pkg/logger"
)

// Store owns all per-aircraft trajectory state, keyed by ICAO address.
// The ingestion coordinator is the sole writer; API handlers read through
// the accessors, which hand out copies so a live track is never aliased by
// a response in flight.
type Store struct {
	mu       sync.RWMutex
	aircraft map[string]*record

	classifier *Classifier
	detector   *Detector

	maxTrackAge     time.Duration
	grace           time.Duration
	inactiveTimeout time.Duration

	logger *logger.Logger
}

// record is the store-private state for one aircraft. outOfRangeSince
// carries the hysteresis timer: the first moment the aircraft stopped
// satisfying the monitoring criteria, nil while it satisfies them.
type record struct {
	Aircraft
	outOfRangeSince *time.Time
}

// IngestResult is what one ingest produced: the updated aircraft snapshot
// and, when loitering, the qualifying intersections for event correlation
type IngestResult struct {
	Aircraft      Aircraft
	Intersections []Intersection
	Duplicate     bool
}

// NewStore creates a trajectory store
func NewStore(cfg config.TrackingConfig, classifier *Classifier, detector *Detector, log *logger.Logger) *Store {
	return &Store{
		aircraft:        make(map[string]*record),
		classifier:      classifier,
		detector:        detector,
		maxTrackAge:     time.Duration(cfg.MaxTrackAgeMinutes) * time.Minute,
		grace:           time.Duration(cfg.OutOfRangeGraceSecs) * time.Second,
		inactiveTimeout: time.Duration(cfg.InactiveTimeoutMinutes) * time.Minute,
		logger:          log.Named("trajectory-store"),
	}
}

// Ingest merges one sample into the aircraft's track and re-evaluates its
// monitoring and loitering state. A sample identical to the current newest
// point across all numeric fields is discarded as a provider repeat.
func (s *Store) Ingest(icao, callsign string, tp TrackPoint) IngestResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.aircraft[icao]
	if !ok {
		rec = &record{
			Aircraft: Aircraft{
				ICAO:  icao,
				Track: []TrackPoint{tp},
			},
		}
		s.aircraft[icao] = rec
	} else {
		if tp.SameSample(rec.Track[0]) {
			return IngestResult{Aircraft: rec.snapshot(), Duplicate: true}
		}
		rec.Track = append([]TrackPoint{tp}, rec.Track...)
	}

	if callsign != "" {
		rec.Callsign = callsign
	}
	rec.LastSeen = tp.Timestamp

	s.trimTrack(rec, tp.Timestamp)
	s.reclassify(rec, tp)
	intersections := s.redetect(rec, tp)

	return IngestResult{Aircraft: rec.snapshot(), Intersections: intersections}
}

// trimTrack drops trailing points older than the retention window,
// measured against the newest sample. The newest point always survives.
func (s *Store) trimTrack(rec *record, now time.Time) {
	cutoff := now.Add(-s.maxTrackAge)
	n := len(rec.Track)
	for n > 1 && rec.Track[n-1].Timestamp.Before(cutoff) {
		n--
	}
	rec.Track = rec.Track[:n]
}

// reclassify runs the classifier on the newest sample and updates the
// hysteresis timer
func (s *Store) reclassify(rec *record, tp TrackPoint) {
	verdict := s.classifier.Classify(tp)
	rec.IsMonitored = verdict.Monitored
	if verdict.Monitored {
		rec.NotMonitoredReason = nil
		rec.outOfRangeSince = nil
	} else {
		reason := verdict.Reason
		rec.NotMonitoredReason = &reason
		if rec.outOfRangeSince == nil {
			t := tp.Timestamp
			rec.outOfRangeSince = &t
		}
	}
}

// redetect re-evaluates loitering for the current track. An aircraft that
// has been out of the monitoring envelope longer than the grace period has
// its loitering state cleared and is not scanned: a target flapping at the
// area boundary must not keep re-triggering events.
func (s *Store) redetect(rec *record, tp TrackPoint) []Intersection {
	if rec.outOfRangeSince != nil && tp.Timestamp.Sub(*rec.outOfRangeSince) > s.grace {
		if rec.IsLoitering {
			s.logger.Debug("Clearing loitering state after grace period",
				logger.String("icao", rec.ICAO),
				logger.Time("out_of_range_since", *rec.outOfRangeSince))
		}
		rec.IsLoitering = false
		rec.Diagnostics = nil
		return nil
	}

	loitering, intersections := s.detector.Detect(rec.Track)
	rec.IsLoitering = loitering
	if loitering {
		rec.Diagnostics = &LoiterDiagnostics{
			Method:        s.detector.Method(),
			Intersections: len(intersections),
		}
	} else {
		rec.Diagnostics = nil
	}
	return intersections
}

// CleanupInactive removes aircraft whose newest sample is older than the
// inactivity threshold. Loitering events are unaffected; they live in the
// event ledger with their own expiry.
func (s *Store) CleanupInactive(now time.Time) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := now.Add(-s.inactiveTimeout)
	var removed []string
	for icao, rec := range s.aircraft {
		if rec.Track[0].Timestamp.Before(cutoff) {
			delete(s.aircraft, icao)
			removed = append(removed, icao)
		}
	}

	if len(removed) > 0 {
		s.logger.Debug("Removed inactive aircraft",
			logger.Int("count", len(removed)))
	}
	return removed
}

// Load repopulates the store from persisted snapshots. Called once at
// startup, before the ingestion loop runs.
func (s *Store) Load(aircraft []Aircraft) {
	s.mu.Lock()
	defer s.mu.Unlock()

	loaded := 0
	for _, a := range aircraft {
		if len(a.Track) == 0 {
			continue
		}
		copied := a
		copied.Track = append([]TrackPoint(nil), a.Track...)
		s.aircraft[a.ICAO] = &record{Aircraft: copied}
		loaded++
	}
	s.logger.Info("Loaded aircraft snapshots", logger.Int("count", loaded))
}

// List returns copies of all aircraft, tracks included
func (s *Store) List() []Aircraft {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Aircraft, 0, len(s.aircraft))
	for _, rec := range s.aircraft {
		out = append(out, rec.snapshot())
	}
	return out
}

// Get returns a copy of one aircraft
func (s *Store) Get(icao string) (Aircraft, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.aircraft[icao]
	if !ok {
		return Aircraft{}, false
	}
	return rec.snapshot(), true
}

// Count returns the number of tracked aircraft
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.aircraft)
}

// Counts returns how many tracked aircraft are currently monitored and
// how many are loitering
func (s *Store) Counts() (monitored, loitering int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rec := range s.aircraft {
		if rec.IsMonitored {
			monitored++
		}
		if rec.IsLoitering {
			loitering++
		}
	}
	return monitored, loitering
}

// snapshot returns a value copy safe to hand outside the lock
func (r *record) snapshot() Aircraft {
	a := r.Aircraft
	a.Track = append([]TrackPoint(nil), r.Track...)
	if r.NotMonitoredReason != nil {
		reason := *r.NotMonitoredReason
		a.NotMonitoredReason = &reason
	}
	if r.Diagnostics != nil {
		diag := *r.Diagnostics
		a.Diagnostics = &diag
	}
	return a
}
