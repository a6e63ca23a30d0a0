package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080},
		Provider: ProviderConfig{
			SourceType:        "local",
			LocalSourceURL:    "http://localhost/data/aircraft.json",
			FetchIntervalSecs: 10,
		},
		Monitoring: MonitoringConfig{
			MinLat:        30,
			MaxLat:        40,
			MinLon:        10,
			MaxLon:        20,
			MinAltitudeFt: 500,
			MaxAltitudeFt: 15000,
			MinSpeedKt:    50,
			MaxSpeedKt:    250,
		},
		Storage: StorageConfig{SQLitePath: "data/test.db"},
	}
}

func TestValidateDefaults(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 30, cfg.Provider.RequestTimeoutSecs)
	assert.Equal(t, 45, cfg.Tracking.MaxTrackAgeMinutes)
	assert.Equal(t, 30, cfg.Tracking.OutOfRangeGraceSecs)
	assert.Equal(t, 30, cfg.Tracking.InactiveTimeoutMinutes)
	assert.Equal(t, "intersection", cfg.Detection.Method)
	assert.Equal(t, 10, cfg.Events.InactivityWindowMinutes)
	assert.Equal(t, 7, cfg.Events.RetentionDays)
	assert.Equal(t, 60, cfg.Events.ExpiryIntervalMinutes)
	assert.Equal(t, 500, cfg.Events.MaxTrackPoints)
	assert.Equal(t, 60, cfg.Storage.SnapshotIntervalSecs)
	assert.Equal(t, 10, cfg.Notifier.TimeoutSeconds)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errHas string
	}{
		{
			name:   "bad port",
			mutate: func(c *Config) { c.Server.Port = 0 },
			errHas: "server port",
		},
		{
			name:   "missing local url",
			mutate: func(c *Config) { c.Provider.LocalSourceURL = "" },
			errHas: "local_source_url",
		},
		{
			name: "external without key",
			mutate: func(c *Config) {
				c.Provider.SourceType = "external"
				c.Provider.ExternalSourceURL = "https://api.example.com/%f/%f/%.0f"
			},
			errHas: "api_key",
		},
		{
			name:   "unknown source type",
			mutate: func(c *Config) { c.Provider.SourceType = "radar" },
			errHas: "source type",
		},
		{
			name:   "inverted latitudes",
			mutate: func(c *Config) { c.Monitoring.MinLat, c.Monitoring.MaxLat = 40, 30 },
			errHas: "min_lat",
		},
		{
			name:   "degenerate polygon",
			mutate: func(c *Config) { c.Monitoring.Polygon = [][]float64{{30, 10}, {40, 20}} },
			errHas: "polygon",
		},
		{
			name:   "malformed polygon vertex",
			mutate: func(c *Config) { c.Monitoring.Polygon = [][]float64{{30, 10}, {40, 20}, {35}} },
			errHas: "vertex",
		},
		{
			name:   "inverted altitude band",
			mutate: func(c *Config) { c.Monitoring.MinAltitudeFt, c.Monitoring.MaxAltitudeFt = 15000, 500 },
			errHas: "altitude",
		},
		{
			name:   "bad detection method",
			mutate: func(c *Config) { c.Detection.Method = "telepathy" },
			errHas: "detection method",
		},
		{
			name: "radius method without radius",
			mutate: func(c *Config) {
				c.Detection.Method = "radius"
				c.Detection.LoiterMinDurationSec = 600
			},
			errHas: "loiter_max_radius_km",
		},
		{
			name:   "missing sqlite path",
			mutate: func(c *Config) { c.Storage.SQLitePath = "" },
			errHas: "sqlite_path",
		},
		{
			name:   "bad log level",
			mutate: func(c *Config) { c.Logging.Level = "verbose" },
			errHas: "log level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errHas)
		})
	}
}

func TestLoadWithFallback(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[server]
port = 9090

[provider]
source_type = "local"
local_source_url = "http://localhost/data/aircraft.json"
fetch_interval_seconds = 10

[monitoring]
min_lat = 30.0
max_lat = 40.0
min_lon = 10.0
max_lon = 20.0
min_altitude_ft = 500.0
max_altitude_ft = 15000.0
min_speed_kt = 50.0
max_speed_kt = 250.0

[storage]
sqlite_path = "data/test.db"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadWithFallback(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "local", cfg.Provider.SourceType)

	_, err = LoadWithFallback(filepath.Join(dir, "missing.toml"))
	assert.Error(t, err)
}

func TestPolygonRing(t *testing.T) {
	m := MonitoringConfig{Polygon: [][]float64{{30, 10}, {30, 20}, {40, 15}}}
	ring := m.PolygonRing()
	require.Len(t, ring, 3)
	assert.Equal(t, 30.0, ring[0].Lat)
	assert.Equal(t, 10.0, ring[0].Lon)

	assert.Nil(t, (&MonitoringConfig{}).PolygonRing())
}
