package events

import (
	"time"

	"github.com/olmonotarianni/medplane/internal/tracking"
	"github.com/olmonotarianni/medplane/internal/websocket"
	"github.com/olmonotarianni/medplane/pkg/logger"
)

// Notifier delivers new-event notifications to an external endpoint
type Notifier interface {
	NotifyNewEvent(ev Event)
}

// Broadcaster pushes messages to UI clients
type Broadcaster interface {
	Broadcast(message *websocket.Message)
}

// Dispatcher wraps the ledger and fans out side effects when a report
// opens a new event. The ledger itself stays free of notification and
// transport concerns.
type Dispatcher struct {
	ledger   *Ledger
	notifier Notifier
	wsServer Broadcaster
	logger   *logger.Logger
}

// NewDispatcher creates a dispatcher; notifier and wsServer may be nil
func NewDispatcher(ledger *Ledger, notifier Notifier, wsServer Broadcaster, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		ledger:   ledger,
		notifier: notifier,
		wsServer: wsServer,
		logger:   log.Named("dispatch"),
	}
}

// Report correlates a detection into the ledger and, when that opens a
// new event, notifies the webhook and broadcasts to connected clients.
// Notification runs on its own goroutine so a slow endpoint never stalls
// the ingestion loop.
func (d *Dispatcher) Report(aircraft tracking.Aircraft, intersections []tracking.Intersection, now time.Time) {
	ev, created := d.ledger.Report(aircraft, intersections, now)
	if !created {
		return
	}

	if d.notifier != nil {
		go d.notifier.NotifyNewEvent(ev)
	}

	if d.wsServer != nil {
		d.wsServer.Broadcast(&websocket.Message{
			Type: websocket.MessageTypeLoiteringEvent,
			Data: map[string]any{
				"id":             ev.ID,
				"icao":           ev.ICAO,
				"callsign":       ev.Callsign,
				"first_detected": ev.FirstDetected,
				"intersections":  len(ev.Intersections),
				"aircraft_state": ev.State,
			},
		})
	}
}

// Expire removes events older than the retention horizon
func (d *Dispatcher) Expire(now time.Time) {
	removed := d.ledger.Expire(now)
	if removed > 0 {
		d.logger.Info("Expired loitering events", logger.Int("count", removed))
	}
}
