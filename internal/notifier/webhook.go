// Package notifier delivers new loitering events to an external webhook.
// Delivery is fire-and-forget: failures are logged and never reach the
// detection core.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/olmonotarianni/medplane/internal/config"
	"github.com/olmonotarianni/medplane/internal/events"
	"github.com/olmonotarianni/medplane/pkg/logger"
)

// Webhook posts event notifications to a configured URL
type Webhook struct {
	url        string
	httpClient *http.Client
	logger     *logger.Logger
}

// notification is the outbound payload. The full track is omitted; the
// receiving end can fetch the event by id if it wants detail.
type notification struct {
	Type          string               `json:"type"`
	ID            string               `json:"id"`
	ICAO          string               `json:"icao"`
	Callsign      string               `json:"callsign,omitempty"`
	FirstDetected time.Time            `json:"first_detected"`
	Intersections int                  `json:"intersections"`
	State         events.AircraftState `json:"aircraft_state"`
}

// NewWebhook creates a webhook notifier. A nil notifier is returned when
// no URL is configured; callers treat that as notifications disabled.
func NewWebhook(cfg config.NotifierConfig, log *logger.Logger) *Webhook {
	if cfg.WebhookURL == "" {
		return nil
	}
	return &Webhook{
		url: cfg.WebhookURL,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		logger: log.Named("notifier"),
	}
}

// NotifyNewEvent delivers a new-event notification. Blocking I/O happens
// here, so the caller should not hold any store lock.
func (w *Webhook) NotifyNewEvent(ev events.Event) {
	payload := notification{
		Type:          "loitering_event",
		ID:            ev.ID,
		ICAO:          ev.ICAO,
		Callsign:      ev.Callsign,
		FirstDetected: ev.FirstDetected,
		Intersections: len(ev.Intersections),
		State:         ev.State,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		w.logger.Error("Failed to encode notification", logger.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), w.httpClient.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		w.logger.Error("Failed to create notification request", logger.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		w.logger.Error("Failed to deliver notification",
			logger.String("id", ev.ID),
			logger.Error(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		w.logger.Error("Notification rejected",
			logger.String("id", ev.ID),
			logger.Error(fmt.Errorf("unexpected status code: %d", resp.StatusCode)))
		return
	}

	w.logger.Info("Notification delivered",
		logger.String("id", ev.ID),
		logger.String("icao", ev.ICAO))
}
