package tracking

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/olmonotarianni/medplane/internal/geo"
	"github.com/olmonotarianni/medplane/internal/websocket"
	"github.com/olmonotarianni/medplane/pkg/logger"
)

// Provider supplies raw position reports. Implementations may fail per
// call; the coordinator logs and skips the cycle.
type Provider interface {
	Scan(ctx context.Context) (*ScanResult, error)
}

// CoastOracle answers the minimum sea distance for a position, nil when
// unknown. Lookups happen outside any store lock.
type CoastOracle interface {
	MinDistanceToCoast(p geo.Point) *float64
}

// EventSink receives loitering detections and runs event expiry. The
// concrete sink correlates into the event ledger and fans out
// notifications; none of that happens under the trajectory store's lock.
type EventSink interface {
	Report(aircraft Aircraft, intersections []Intersection, now time.Time)
	Expire(now time.Time)
}

// SnapshotStorage persists the aircraft collection
type SnapshotStorage interface {
	SaveAircraftSnapshot(aircraft []Aircraft) error
}

// Broadcaster pushes messages to UI clients
type Broadcaster interface {
	Broadcast(message *websocket.Message)
}

// Status describes the coordinator for the status endpoint
type Status struct {
	StartedAt    time.Time `json:"started_at"`
	LastScanTime time.Time `json:"last_scan_time"`
	LastScanOK   bool      `json:"last_scan_ok"`
	Tracked      int       `json:"tracked_aircraft"`
	Monitored    int       `json:"monitored_aircraft"`
	Loitering    int       `json:"loitering_aircraft"`
}

// Service is the ingestion coordinator: one long-lived goroutine runs the
// scan loop and is the sole writer of the trajectory store and, through
// the sink, the event ledger.
type Service struct {
	provider  Provider
	store     *Store
	coast     CoastOracle
	sink      EventSink
	snapshots SnapshotStorage
	wsServer  Broadcaster

	fetchInterval    time.Duration
	snapshotInterval time.Duration
	expiryInterval   time.Duration
	radiusMethod     bool

	logger *logger.Logger
	stopCh chan struct{}
	wg     sync.WaitGroup

	// scanning guards against a scan overlapping itself: a cycle that is
	// still running when the next tick fires makes the tick a no-op.
	scanning atomic.Bool

	statusMu     sync.RWMutex
	startedAt    time.Time
	lastScanTime time.Time
	lastScanOK   bool
}

// NewService creates the ingestion coordinator
func NewService(
	provider Provider,
	store *Store,
	coast CoastOracle,
	sink EventSink,
	snapshots SnapshotStorage,
	wsServer Broadcaster,
	fetchInterval time.Duration,
	snapshotInterval time.Duration,
	expiryInterval time.Duration,
	detectionMethod string,
	log *logger.Logger,
) *Service {
	return &Service{
		provider:         provider,
		store:            store,
		coast:            coast,
		sink:             sink,
		snapshots:        snapshots,
		wsServer:         wsServer,
		fetchInterval:    fetchInterval,
		snapshotInterval: snapshotInterval,
		expiryInterval:   expiryInterval,
		radiusMethod:     detectionMethod == MethodRadius,
		logger:           log.Named("ingestion"),
		stopCh:           make(chan struct{}),
	}
}

// Start runs an initial scan and launches the background loop
func (s *Service) Start(ctx context.Context) error {
	s.logger.Info("Starting ingestion coordinator",
		logger.Duration("fetch_interval", s.fetchInterval))

	s.statusMu.Lock()
	s.startedAt = time.Now().UTC()
	s.statusMu.Unlock()

	s.scanCycle(ctx)

	s.wg.Add(1)
	go s.run(ctx)

	return nil
}

// Stop stops the background loop and waits for it to finish
func (s *Service) Stop() {
	s.logger.Info("Stopping ingestion coordinator")
	close(s.stopCh)
	s.wg.Wait()
	s.logger.Info("Ingestion coordinator stopped")
}

// Status returns a copy of the coordinator status
func (s *Service) Status() Status {
	s.statusMu.RLock()
	st := Status{
		StartedAt:    s.startedAt,
		LastScanTime: s.lastScanTime,
		LastScanOK:   s.lastScanOK,
	}
	s.statusMu.RUnlock()

	st.Tracked = s.store.Count()
	st.Monitored, st.Loitering = s.store.Counts()
	return st
}

func (s *Service) run(ctx context.Context) {
	defer s.wg.Done()

	scanTicker := time.NewTicker(s.fetchInterval)
	defer scanTicker.Stop()
	snapshotTicker := time.NewTicker(s.snapshotInterval)
	defer snapshotTicker.Stop()
	expiryTicker := time.NewTicker(s.expiryInterval)
	defer expiryTicker.Stop()

	for {
		select {
		case <-scanTicker.C:
			s.scanCycle(ctx)
		case <-snapshotTicker.C:
			s.saveSnapshot()
		case <-expiryTicker.C:
			s.sink.Expire(time.Now().UTC())
		case <-s.stopCh:
			s.saveSnapshot()
			return
		case <-ctx.Done():
			return
		}
	}
}

// scanCycle runs one fetch-ingest-cleanup pass
func (s *Service) scanCycle(ctx context.Context) {
	if !s.scanning.CompareAndSwap(false, true) {
		s.logger.Warn("Previous scan still running, skipping cycle")
		return
	}
	defer s.scanning.Store(false)

	result, err := s.provider.Scan(ctx)
	if err != nil {
		s.logger.Error("Provider scan failed", logger.Error(err))
		s.setScanStatus(false)
		return
	}

	now := time.Now().UTC()
	ingested := 0
	dropped := 0

	for _, report := range result.Reports {
		if report.Lat == nil || report.Lon == nil {
			dropped++
			continue
		}

		// Sea distance is resolved here, once per sample, before the
		// store lock is ever taken; the classifier and detector read
		// the stored value and stay free of I/O.
		pos := geo.Point{Lat: *report.Lat, Lon: *report.Lon}
		coastDist := s.coast.MinDistanceToCoast(pos)

		tp := TrackPoint{
			Lat:               *report.Lat,
			Lon:               *report.Lon,
			Timestamp:         report.Timestamp,
			AltitudeFt:        report.AltitudeFt,
			SpeedKt:           report.SpeedKt,
			HeadingDeg:        report.HeadingDeg,
			VerticalRateFPM:   report.VerticalRateFPM,
			DistanceToCoastKm: coastDist,
		}

		res := s.store.Ingest(report.ICAO, report.Callsign, tp)
		if res.Duplicate {
			continue
		}
		ingested++

		if res.Aircraft.IsLoitering && (len(res.Intersections) > 0 || s.radiusMethod) {
			s.sink.Report(res.Aircraft, res.Intersections, now)
		}
	}

	removed := s.store.CleanupInactive(now)

	s.setScanStatus(true)
	s.broadcastUpdate(result.Timestamp)

	s.logger.Debug("Scan cycle complete",
		logger.Int("reports", len(result.Reports)),
		logger.Int("ingested", ingested),
		logger.Int("dropped", dropped),
		logger.Int("removed_inactive", len(removed)))
}

func (s *Service) setScanStatus(ok bool) {
	s.statusMu.Lock()
	s.lastScanTime = time.Now().UTC()
	s.lastScanOK = ok
	s.statusMu.Unlock()
}

func (s *Service) broadcastUpdate(ts time.Time) {
	if s.wsServer == nil {
		return
	}

	monitored, loitering := s.store.Counts()
	s.wsServer.Broadcast(&websocket.Message{
		Type: websocket.MessageTypeAircraftUpdate,
		Data: map[string]any{
			"timestamp": ts,
			"count":     s.store.Count(),
			"monitored": monitored,
			"loitering": loitering,
		},
	})
}

func (s *Service) saveSnapshot() {
	if s.snapshots == nil {
		return
	}
	if err := s.snapshots.SaveAircraftSnapshot(s.store.List()); err != nil {
		s.logger.Error("Failed to save aircraft snapshot", logger.Error(err))
	}
}
