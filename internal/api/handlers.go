package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/olmonotarianni/medplane/internal/config"
	"github.com/olmonotarianni/medplane/internal/events"
	"github.com/olmonotarianni/medplane/internal/tracking"
	"github.com/olmonotarianni/medplane/internal/websocket"
	"github.com/olmonotarianni/medplane/pkg/logger"
)

// Handler contains the API handlers
type Handler struct {
	store    *tracking.Store
	service  *tracking.Service
	ledger   *events.Ledger
	config   *config.Config
	logger   *logger.Logger
	wsServer *websocket.Server
}

// NewHandler creates a new API handler
func NewHandler(store *tracking.Store, service *tracking.Service, ledger *events.Ledger, cfg *config.Config, log *logger.Logger, wsServer *websocket.Server) *Handler {
	return &Handler{
		store:    store,
		service:  service,
		ledger:   ledger,
		config:   cfg,
		logger:   log.Named("api-handler"),
		wsServer: wsServer,
	}
}

// GetAllAircraft returns the tracked aircraft, optionally filtered
func (h *Handler) GetAllAircraft(w http.ResponseWriter, r *http.Request) {
	monitored, loitering, callsign := parseAircraftFilters(r)

	aircraft := h.store.List()

	if monitored != nil {
		filtered := make([]tracking.Aircraft, 0, len(aircraft))
		for _, a := range aircraft {
			if a.IsMonitored == *monitored {
				filtered = append(filtered, a)
			}
		}
		aircraft = filtered
	}

	if loitering != nil {
		filtered := make([]tracking.Aircraft, 0, len(aircraft))
		for _, a := range aircraft {
			if a.IsLoitering == *loitering {
				filtered = append(filtered, a)
			}
		}
		aircraft = filtered
	}

	if callsign != "" {
		filtered := make([]tracking.Aircraft, 0, len(aircraft))
		for _, a := range aircraft {
			if strings.Contains(strings.ToUpper(a.Callsign), strings.ToUpper(callsign)) {
				filtered = append(filtered, a)
			}
		}
		aircraft = filtered
	}

	monitoredCount, loiteringCount := h.store.Counts()

	response := tracking.AircraftResponse{
		Timestamp: time.Now().UTC(),
		Count:     len(aircraft),
		Monitored: monitoredCount,
		Loitering: loiteringCount,
		Aircraft:  aircraft,
	}

	WriteJSON(w, http.StatusOK, response)
}

// GetAircraftByICAO returns a single aircraft by its ICAO address
func (h *Handler) GetAircraftByICAO(w http.ResponseWriter, r *http.Request) {
	icao := chi.URLParam(r, "icao")
	if icao == "" {
		http.Error(w, "Missing aircraft ICAO", http.StatusBadRequest)
		return
	}

	aircraft, found := h.store.Get(strings.ToUpper(icao))
	if !found {
		http.Error(w, "Aircraft not found", http.StatusNotFound)
		return
	}

	WriteJSON(w, http.StatusOK, aircraft)
}

// GetAircraftTrack returns the stored trajectory for an aircraft,
// newest point first
func (h *Handler) GetAircraftTrack(w http.ResponseWriter, r *http.Request) {
	icao := chi.URLParam(r, "icao")
	if icao == "" {
		http.Error(w, "Missing aircraft ICAO", http.StatusBadRequest)
		return
	}

	aircraft, found := h.store.Get(strings.ToUpper(icao))
	if !found {
		http.Error(w, "Aircraft not found", http.StatusNotFound)
		return
	}

	track := aircraft.Track
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 && limit < len(track) {
			track = track[:limit]
		}
	}

	response := tracking.TrackResponse{
		ICAO:     aircraft.ICAO,
		Callsign: aircraft.Callsign,
		Track:    track,
	}

	WriteJSON(w, http.StatusOK, response)
}

// GetAllEvents returns loitering events, newest activity first
func (h *Handler) GetAllEvents(w http.ResponseWriter, r *http.Request) {
	var evs []events.Event
	if icao := r.URL.Query().Get("icao"); icao != "" {
		evs = h.ledger.ListByICAO(strings.ToUpper(icao))
	} else {
		evs = h.ledger.List()
	}

	response := events.EventsResponse{
		Timestamp: time.Now().UTC(),
		Count:     len(evs),
		Events:    evs,
	}

	WriteJSON(w, http.StatusOK, response)
}

// GetEventByID returns a single loitering event
func (h *Handler) GetEventByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, "Missing event ID", http.StatusBadRequest)
		return
	}

	ev, found := h.ledger.Get(id)
	if !found {
		http.Error(w, "Event not found", http.StatusNotFound)
		return
	}

	WriteJSON(w, http.StatusOK, ev)
}

// GetStatus returns the health status of the server
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	status := h.service.Status()

	response := map[string]interface{}{
		"started_at":         status.StartedAt,
		"last_scan_time":     status.LastScanTime,
		"last_scan_ok":       status.LastScanOK,
		"tracked_aircraft":   status.Tracked,
		"monitored_aircraft": status.Monitored,
		"loitering_aircraft": status.Loitering,
		"event_count":        h.ledger.Count(),
		"websocket_clients":  h.wsServer.ClientCount(),
	}

	WriteJSON(w, http.StatusOK, response)
}

// parseAircraftFilters parses aircraft filter parameters from the request
func parseAircraftFilters(r *http.Request) (monitored, loitering *bool, callsign string) {
	if s := r.URL.Query().Get("monitored"); s != "" {
		if v, err := strconv.ParseBool(s); err == nil {
			monitored = &v
		}
	}

	if s := r.URL.Query().Get("loitering"); s != "" {
		if v, err := strconv.ParseBool(s); err == nil {
			loitering = &v
		}
	}

	callsign = r.URL.Query().Get("callsign")
	return monitored, loitering, callsign
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
