package tracking

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/olmonotarianni/medplane/internal/config"
	"github.com/olmonotarianni/medplane/pkg/logger"
)

// Client fetches position reports from the configured provider.
// It is stateless apart from the HTTP client and never touches the stores.
type Client struct {
	httpClient        *http.Client
	sourceType        string
	localSourceURL    string
	externalSourceURL string
	apiHost           string
	apiKey            string
	centerLat         float64
	centerLon         float64
	searchRadiusNM    float64
	logger            *logger.Logger
}

// NewClient creates a provider client. The center point for external
// queries is the middle of the monitored area.
func NewClient(provider config.ProviderConfig, area config.MonitoringConfig, log *logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: time.Duration(provider.RequestTimeoutSecs) * time.Second,
		},
		sourceType:        provider.SourceType,
		localSourceURL:    provider.LocalSourceURL,
		externalSourceURL: provider.ExternalSourceURL,
		apiHost:           provider.APIHost,
		apiKey:            provider.APIKey,
		centerLat:         (area.MinLat + area.MaxLat) / 2,
		centerLon:         (area.MinLon + area.MaxLon) / 2,
		searchRadiusNM:    float64(provider.SearchRadiusNM),
		logger:            log.Named("provider"),
	}
}

// Scan fetches one batch of position reports from the configured source
func (c *Client) Scan(ctx context.Context) (*ScanResult, error) {
	switch c.sourceType {
	case "local":
		return c.scanLocal(ctx)
	case "external":
		return c.scanExternal(ctx)
	default:
		return nil, fmt.Errorf("unknown source type: %s", c.sourceType)
	}
}

// rawFeed is the tar1090-style aircraft.json shape
type rawFeed struct {
	Now      float64     `json:"now"`
	Aircraft []rawTarget `json:"aircraft"`
}

// rawTarget is one aircraft entry in the feed. Position fields are
// pointers: a report without them is dropped, not zeroed onto Null Island.
type rawTarget struct {
	Hex      string   `json:"hex"`
	Flight   string   `json:"flight"`
	Lat      *float64 `json:"lat"`
	Lon      *float64 `json:"lon"`
	AltBaro  flexNum  `json:"alt_baro"`
	GS       flexNum  `json:"gs"`
	Track    flexNum  `json:"track"`
	BaroRate flexNum  `json:"baro_rate"`
}

// flexNum tolerates fields the external API serves as either a number or a
// string (notably alt_baro, which can be the literal "ground")
type flexNum struct {
	value float64
}

func (f *flexNum) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		f.value = num
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		if str == "" || str == "ground" {
			f.value = 0
			return nil
		}
		parsed, err := strconv.ParseFloat(str, 64)
		if err != nil {
			f.value = 0
			return nil
		}
		f.value = parsed
		return nil
	}

	return fmt.Errorf("cannot unmarshal %s as a number", data)
}

func (f flexNum) Float64() float64 { return f.value }

func (c *Client) scanLocal(ctx context.Context) (*ScanResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.localSourceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("Fetching local position data",
		logger.String("url", c.localSourceURL))

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var feed rawFeed
	if err := json.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	return c.convert(&feed), nil
}

func (c *Client) scanExternal(ctx context.Context) (*ScanResult, error) {
	urlStr := fmt.Sprintf(c.externalSourceURL, c.centerLat, c.centerLon, c.searchRadiusNM)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-rapidapi-host", c.apiHost)
	req.Header.Set("x-rapidapi-key", c.apiKey)

	c.logger.Debug("Fetching external position data",
		logger.String("url", urlStr),
		logger.String("host", c.apiHost))

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	// The external API wraps targets in "ac" rather than "aircraft"
	var external struct {
		Now float64     `json:"now"`
		AC  []rawTarget `json:"ac"`
	}
	if err := json.Unmarshal(body, &external); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	return c.convert(&rawFeed{Now: external.Now, Aircraft: external.AC}), nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}

func (c *Client) convert(feed *rawFeed) *ScanResult {
	ts := time.Now().UTC()
	if feed.Now > 0 {
		ts = time.Unix(int64(feed.Now), 0).UTC()
	}

	reports := make([]PositionReport, 0, len(feed.Aircraft))
	for _, t := range feed.Aircraft {
		if t.Hex == "" {
			continue
		}
		reports = append(reports, PositionReport{
			ICAO:            t.Hex,
			Callsign:        trimCallsign(t.Flight),
			Lat:             t.Lat,
			Lon:             t.Lon,
			Timestamp:       ts,
			AltitudeFt:      t.AltBaro.Float64(),
			SpeedKt:         t.GS.Float64(),
			HeadingDeg:      t.Track.Float64(),
			VerticalRateFPM: t.BaroRate.Float64(),
		})
	}

	c.logger.Debug("Fetched position reports",
		logger.Int("count", len(reports)))

	return &ScanResult{Reports: reports, Timestamp: ts}
}

// trimCallsign strips the padding the feed leaves on flight identifiers
func trimCallsign(flight string) string {
	end := len(flight)
	for end > 0 && (flight[end-1] == ' ' || flight[end-1] == '\x00') {
		end--
	}
	return flight[:end]
}
