package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/olmonotarianni/medplane/internal/geo"
)

// Config represents the main application configuration structure
// containing all configuration sections
type Config struct {
	Server     ServerConfig     `toml:"server"`     // HTTP server settings
	Provider   ProviderConfig   `toml:"provider"`   // Position report data source settings
	Monitoring MonitoringConfig `toml:"monitoring"` // Monitored area and behavioral thresholds
	Tracking   TrackingConfig   `toml:"tracking"`   // Per-aircraft track retention and hysteresis
	Detection  DetectionConfig  `toml:"detection"`  // Loitering detection settings
	Events     EventsConfig     `toml:"events"`     // Loitering event correlation and retention
	Coastline  CoastlineConfig  `toml:"coastline"`  // Coastline geometry database
	Notifier   NotifierConfig   `toml:"notifier"`   // Outbound event notification settings
	Storage    StorageConfig    `toml:"storage"`    // Data persistence settings
	Logging    LoggingConfig    `toml:"logging"`    // Application logging settings
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port               int      `toml:"port"`                  // Primary HTTP port for the server
	Host               string   `toml:"host"`                  // Host address to bind to (e.g., 127.0.0.1 for localhost only, 0.0.0.0 for all interfaces)
	CORSAllowedOrigins []string `toml:"cors_allowed_origins"`  // List of origins allowed for CORS requests (use ["*"] for all origins)
	ReadTimeoutSecs    int      `toml:"read_timeout_seconds"`  // Maximum duration for reading the entire request
	WriteTimeoutSecs   int      `toml:"write_timeout_seconds"` // Maximum duration for writing the response
	IdleTimeoutSecs    int      `toml:"idle_timeout_seconds"`  // Maximum duration to wait for the next request when keep-alives are enabled
	StaticFilesDir     string   `toml:"static_files_dir"`      // Directory to serve static files from (e.g., "www"); empty disables the static UI
}

// ProviderConfig contains the position report data source configuration
type ProviderConfig struct {
	// Source selection. Allowed values:
	// - "local": a local receiver exposing a tar1090-style aircraft.json
	// - "external": an external provider queried by center point + radius
	//   (ADS-B Exchange / RapidAPI style)
	SourceType string `toml:"source_type"`

	// Local source settings (used when source_type = "local")
	LocalSourceURL string `toml:"local_source_url"` // URL for the local source (e.g., http://192.168.1.10/tar1090/data/aircraft.json)

	// External source settings (used when source_type = "external")
	ExternalSourceURL string `toml:"external_source_url"` // URL template with format placeholders for lat, lon and radius
	APIHost           string `toml:"api_host"`            // API host header value (e.g., for RapidAPI)
	APIKey            string `toml:"api_key"`             // API key for authentication with the external service
	SearchRadiusNM    int    `toml:"search_radius_nm"`    // Search radius in nautical miles for external queries

	// Common settings for both source types
	FetchIntervalSecs  int `toml:"fetch_interval_seconds"`  // How often to run a scan cycle (in seconds)
	RequestTimeoutSecs int `toml:"request_timeout_seconds"` // HTTP timeout for provider requests (in seconds)
}

// MonitoringConfig describes the geographic region of interest and the
// behavioral envelope an aircraft must satisfy to be monitored
type MonitoringConfig struct {
	// Bounding box of the monitored area. Always set; fast pre-filter and,
	// when no polygon is configured, the authoritative area test.
	MinLat float64 `toml:"min_lat"`
	MaxLat float64 `toml:"max_lat"`
	MinLon float64 `toml:"min_lon"`
	MaxLon float64 `toml:"max_lon"`

	// Optional polygon ring of [lat, lon] vertices for precise membership.
	// When present it is the authoritative test after the bbox pre-check.
	Polygon [][]float64 `toml:"polygon"`

	MinAltitudeFt      float64 `toml:"min_altitude_ft"`       // Minimum altitude for a monitored aircraft
	MaxAltitudeFt      float64 `toml:"max_altitude_ft"`       // Maximum altitude for a monitored aircraft
	MinSpeedKt         float64 `toml:"min_speed_kt"`          // Minimum ground speed for a monitored aircraft
	MaxSpeedKt         float64 `toml:"max_speed_kt"`          // Maximum ground speed for a monitored aircraft
	MinCoastDistanceKm float64 `toml:"min_coast_distance_km"` // Minimum sea distance from the nearest coastline
}

// TrackingConfig contains per-aircraft track book-keeping settings
type TrackingConfig struct {
	MaxTrackAgeMinutes     int `toml:"max_track_age_minutes"`      // Track points older than this are dropped after each ingest
	OutOfRangeGraceSecs    int `toml:"out_of_range_grace_seconds"` // How long an aircraft may stay unmonitored before loitering state is cleared
	InactiveTimeoutMinutes int `toml:"inactive_timeout_minutes"`   // Aircraft with no report for this long are removed from the store
}

// DetectionConfig contains loitering detection settings
type DetectionConfig struct {
	// Method selects the detector variant:
	// - "intersection": flag tracks that cross themselves (default)
	// - "radius": flag tracks dwelling within a radius for a minimum duration
	Method string `toml:"method"`

	LoiterMaxRadiusKm    float64 `toml:"loiter_max_radius_km"`        // Radius variant: max distance of every point from the track centroid
	LoiterMinDurationSec int     `toml:"loiter_min_duration_seconds"` // Radius variant: minimum dwell time inside the radius
}

// EventsConfig contains loitering event correlation and retention settings
type EventsConfig struct {
	InactivityWindowMinutes int `toml:"inactivity_window_minutes"` // Detections within this window of the last update continue the same event
	RetentionDays           int `toml:"retention_days"`            // Events are purged once last_updated is older than this
	ExpiryIntervalMinutes   int `toml:"expiry_interval_minutes"`   // How often the expiry sweep runs
	MaxTrackPoints          int `toml:"max_track_points"`          // Cap on track points kept in an event snapshot
}

// CoastlineConfig contains the coastline geometry database settings
type CoastlineConfig struct {
	DBPath string `toml:"db_path"` // Path to the coastline JSON file; empty means no coastline data (all aircraft fail the sea-distance check)
}

// NotifierConfig contains outbound notification settings
type NotifierConfig struct {
	WebhookURL     string `toml:"webhook_url"`     // URL new loitering events are POSTed to; empty disables notifications
	TimeoutSeconds int    `toml:"timeout_seconds"` // HTTP timeout for notification requests
}

// StorageConfig contains data persistence configuration
type StorageConfig struct {
	SQLitePath           string `toml:"sqlite_path"`               // Path to the SQLite database file
	SnapshotIntervalSecs int    `toml:"snapshot_interval_seconds"` // How often the aircraft snapshot is persisted
}

// LoggingConfig contains application logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`  // Log level: "debug", "info", "warn", or "error"
	Format string `toml:"format"` // Log format: "json" (structured) or "console" (human-readable)
}

// Load loads the configuration from the specified file path
func Load(path string) (*Config, error) {
	var config Config

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	if _, err := toml.DecodeFile(path, &config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	return &config, nil
}

// LoadWithFallback loads the configuration by checking multiple locations in order of preference
func LoadWithFallback(preferredPath string) (*Config, error) {
	searchPaths := []string{
		preferredPath,
		"configs/config.toml",
		"config.toml",
	}

	uniquePaths := make([]string, 0, len(searchPaths))
	seen := make(map[string]bool)
	for _, path := range searchPaths {
		if path != "" && !seen[path] {
			uniquePaths = append(uniquePaths, path)
			seen[path] = true
		}
	}

	var lastErr error
	for _, path := range uniquePaths {
		if _, err := os.Stat(path); err == nil {
			config, err := Load(path)
			if err != nil {
				lastErr = fmt.Errorf("failed to load config from %s: %w", path, err)
				continue
			}
			return config, nil
		}
		lastErr = fmt.Errorf("config file not found: %s", path)
	}

	return nil, fmt.Errorf("config file not found in any of the expected locations: %v. Last error: %w", uniquePaths, lastErr)
}

// Validate validates the configuration and applies defaults
func (c *Config) Validate() error {
	// Server
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}

	// Provider
	if c.Provider.SourceType == "" {
		c.Provider.SourceType = "local"
	}
	switch c.Provider.SourceType {
	case "local":
		if c.Provider.LocalSourceURL == "" {
			return fmt.Errorf("local_source_url is required when source_type is local")
		}
	case "external":
		if c.Provider.ExternalSourceURL == "" {
			return fmt.Errorf("external_source_url is required when source_type is external")
		}
		if c.Provider.APIKey == "" {
			return fmt.Errorf("api_key is required when source_type is external")
		}
		if c.Provider.SearchRadiusNM <= 0 {
			return fmt.Errorf("search_radius_nm must be positive when source_type is external")
		}
	default:
		return fmt.Errorf("invalid provider source type: %s (must be 'local' or 'external')", c.Provider.SourceType)
	}
	if c.Provider.FetchIntervalSecs <= 0 {
		return fmt.Errorf("invalid fetch interval: %d", c.Provider.FetchIntervalSecs)
	}
	if c.Provider.RequestTimeoutSecs <= 0 {
		c.Provider.RequestTimeoutSecs = 30
	}

	// Monitoring area
	if c.Monitoring.MinLat >= c.Monitoring.MaxLat {
		return fmt.Errorf("monitoring min_lat must be less than max_lat")
	}
	if c.Monitoring.MinLon >= c.Monitoring.MaxLon {
		return fmt.Errorf("monitoring min_lon must be less than max_lon")
	}
	if len(c.Monitoring.Polygon) > 0 && len(c.Monitoring.Polygon) < 3 {
		return fmt.Errorf("monitoring polygon needs at least 3 vertices, got %d", len(c.Monitoring.Polygon))
	}
	for i, v := range c.Monitoring.Polygon {
		if len(v) != 2 {
			return fmt.Errorf("monitoring polygon vertex %d must be [lat, lon], got %d values", i, len(v))
		}
	}
	if c.Monitoring.MaxAltitudeFt <= c.Monitoring.MinAltitudeFt {
		return fmt.Errorf("monitoring max_altitude_ft must be greater than min_altitude_ft")
	}
	if c.Monitoring.MaxSpeedKt <= c.Monitoring.MinSpeedKt {
		return fmt.Errorf("monitoring max_speed_kt must be greater than min_speed_kt")
	}
	if c.Monitoring.MinCoastDistanceKm < 0 {
		return fmt.Errorf("monitoring min_coast_distance_km must not be negative")
	}

	// Tracking
	if c.Tracking.MaxTrackAgeMinutes <= 0 {
		c.Tracking.MaxTrackAgeMinutes = 45
	}
	if c.Tracking.OutOfRangeGraceSecs <= 0 {
		c.Tracking.OutOfRangeGraceSecs = 30
	}
	if c.Tracking.InactiveTimeoutMinutes <= 0 {
		c.Tracking.InactiveTimeoutMinutes = 30
	}

	// Detection
	if c.Detection.Method == "" {
		c.Detection.Method = "intersection"
	}
	if c.Detection.Method != "intersection" && c.Detection.Method != "radius" {
		return fmt.Errorf("invalid detection method: %s (must be 'intersection' or 'radius')", c.Detection.Method)
	}
	if c.Detection.Method == "radius" {
		if c.Detection.LoiterMaxRadiusKm <= 0 {
			return fmt.Errorf("loiter_max_radius_km must be positive when detection method is radius")
		}
		if c.Detection.LoiterMinDurationSec <= 0 {
			return fmt.Errorf("loiter_min_duration_seconds must be positive when detection method is radius")
		}
	}

	// Events
	if c.Events.InactivityWindowMinutes <= 0 {
		c.Events.InactivityWindowMinutes = 10
	}
	if c.Events.RetentionDays <= 0 {
		c.Events.RetentionDays = 7
	}
	if c.Events.ExpiryIntervalMinutes <= 0 {
		c.Events.ExpiryIntervalMinutes = 60
	}
	if c.Events.MaxTrackPoints <= 0 {
		c.Events.MaxTrackPoints = 500
	}

	// Storage
	if c.Storage.SQLitePath == "" {
		return fmt.Errorf("sqlite_path is required")
	}
	if c.Storage.SnapshotIntervalSecs <= 0 {
		c.Storage.SnapshotIntervalSecs = 60
	}

	// Notifier
	if c.Notifier.TimeoutSeconds <= 0 {
		c.Notifier.TimeoutSeconds = 10
	}

	// Logging
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	return nil
}

// Bounds returns the monitored area bounding box
func (m *MonitoringConfig) Bounds() geo.Bounds {
	return geo.Bounds{
		MinLat: m.MinLat,
		MaxLat: m.MaxLat,
		MinLon: m.MinLon,
		MaxLon: m.MaxLon,
	}
}

// PolygonRing returns the monitored area polygon as geo points,
// or nil when no polygon is configured
func (m *MonitoringConfig) PolygonRing() []geo.Point {
	if len(m.Polygon) == 0 {
		return nil
	}
	ring := make([]geo.Point, 0, len(m.Polygon))
	for _, v := range m.Polygon {
		ring = append(ring, geo.Point{Lat: v[0], Lon: v[1]})
	}
	return ring
}
