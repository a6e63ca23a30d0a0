package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olmonotarianni/medplane/internal/config"
	"github.com/olmonotarianni/medplane/internal/events"
	"github.com/olmonotarianni/medplane/internal/tracking"
	"github.com/olmonotarianni/medplane/internal/websocket"
	"github.com/olmonotarianni/medplane/pkg/logger"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:               8080,
			CORSAllowedOrigins: []string{"*"},
		},
		Monitoring: config.MonitoringConfig{
			MinLat:             30,
			MaxLat:             40,
			MinLon:             10,
			MaxLon:             20,
			MinAltitudeFt:      500,
			MaxAltitudeFt:      15000,
			MinSpeedKt:         50,
			MaxSpeedKt:         250,
			MinCoastDistanceKm: 5,
		},
		Tracking: config.TrackingConfig{
			MaxTrackAgeMinutes:     45,
			OutOfRangeGraceSecs:    30,
			InactiveTimeoutMinutes: 30,
		},
		Detection: config.DetectionConfig{Method: tracking.MethodIntersection},
		Events: config.EventsConfig{
			InactivityWindowMinutes: 10,
			RetentionDays:           7,
			MaxTrackPoints:          500,
		},
	}
}

type fixture struct {
	store  *tracking.Store
	ledger *events.Ledger
	router http.Handler
}

func point(lat, lon float64, minute int) tracking.TrackPoint {
	coast := 50.0
	return tracking.TrackPoint{
		Lat:               lat,
		Lon:               lon,
		Timestamp:         time.Date(2026, 3, 1, 12, minute, 0, 0, time.UTC),
		AltitudeFt:        5000,
		SpeedKt:           120,
		DistanceToCoastKm: &coast,
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := testConfig()
	log := logger.NewNop()

	classifier := tracking.NewClassifier(cfg.Monitoring)
	detector := tracking.NewDetector(cfg.Detection, classifier)
	store := tracking.NewStore(cfg.Tracking, classifier, detector, log)
	ledger := events.NewLedger(cfg.Events, nil, log)
	wsServer := websocket.NewServer(log)

	service := tracking.NewService(
		nil, store, nil, nil, nil, nil,
		10*time.Second, time.Minute, time.Hour,
		cfg.Detection.Method, log,
	)

	// One loitering aircraft (a bowtie track) and one in transit
	store.Ingest("4D2228", "SAR01", point(35.0, 12.0, 0))
	store.Ingest("4D2228", "SAR01", point(35.5, 12.5, 5))
	store.Ingest("4D2228", "SAR01", point(35.0, 12.5, 10))
	res := store.Ingest("4D2228", "SAR01", point(35.5, 12.0, 15))
	require.True(t, res.Aircraft.IsLoitering)

	store.Ingest("3C6589", "DLH9U", point(36.0, 16.0, 15))

	ledger.Report(res.Aircraft, res.Intersections, point(0, 0, 15).Timestamp)

	router := NewRouter(store, service, ledger, cfg, log, wsServer)
	return &fixture{store: store, ledger: ledger, router: router.Routes()}
}

func (f *fixture) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestGetAllAircraft(t *testing.T) {
	f := newFixture(t)

	rec := f.get(t, "/api/v1/aircraft")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp tracking.AircraftResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, 2, resp.Monitored)
	assert.Equal(t, 1, resp.Loitering)
	assert.Len(t, resp.Aircraft, 2)
}

func TestGetAllAircraftFilters(t *testing.T) {
	f := newFixture(t)

	rec := f.get(t, "/api/v1/aircraft?loitering=true")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp tracking.AircraftResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Aircraft, 1)
	assert.Equal(t, "4D2228", resp.Aircraft[0].ICAO)

	rec = f.get(t, "/api/v1/aircraft?callsign=dlh")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Aircraft, 1)
	assert.Equal(t, "3C6589", resp.Aircraft[0].ICAO)

	rec = f.get(t, "/api/v1/aircraft?loitering=false&monitored=true")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Aircraft, 1)
	assert.Equal(t, "3C6589", resp.Aircraft[0].ICAO)
}

func TestGetAircraftByICAO(t *testing.T) {
	f := newFixture(t)

	rec := f.get(t, "/api/v1/aircraft/4D2228")
	require.Equal(t, http.StatusOK, rec.Code)

	var a tracking.Aircraft
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &a))
	assert.Equal(t, "4D2228", a.ICAO)
	assert.True(t, a.IsLoitering)

	// Lookup is case-insensitive on the ICAO address
	rec = f.get(t, "/api/v1/aircraft/4d2228")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.get(t, "/api/v1/aircraft/AAAAAA")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetAircraftTrack(t *testing.T) {
	f := newFixture(t)

	rec := f.get(t, "/api/v1/aircraft/4D2228/track")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp tracking.TrackResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "4D2228", resp.ICAO)
	require.Len(t, resp.Track, 4)
	// Newest first
	assert.True(t, resp.Track[0].Timestamp.After(resp.Track[3].Timestamp))

	rec = f.get(t, "/api/v1/aircraft/4D2228/track?limit=2")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Track, 2)
}

func TestGetEvents(t *testing.T) {
	f := newFixture(t)

	rec := f.get(t, "/api/v1/events")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp events.EventsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "4D2228", resp.Events[0].ICAO)

	rec = f.get(t, "/api/v1/events/" + resp.Events[0].ID)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.get(t, "/api/v1/events?icao=3C6589")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Zero(t, resp.Count)

	rec = f.get(t, "/api/v1/events/no-such-id")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetStatus(t *testing.T) {
	f := newFixture(t)

	rec := f.get(t, "/api/v1/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var status map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, float64(2), status["tracked_aircraft"])
	assert.Equal(t, float64(1), status["loitering_aircraft"])
	assert.Equal(t, float64(1), status["event_count"])
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/aircraft", nil)
	req.Header.Set("Origin", "https://map.example.com")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
