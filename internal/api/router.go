package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/olmonotarianni/medplane/internal/config"
	"github.com/olmonotarianni/medplane/internal/events"
	"github.com/olmonotarianni/medplane/internal/tracking"
	"github.com/olmonotarianni/medplane/internal/websocket"
	"github.com/olmonotarianni/medplane/pkg/logger"
)

// Router sets up the HTTP routes
type Router struct {
	handler  *Handler
	config   *config.Config
	logger   *logger.Logger
	wsServer *websocket.Server
}

// NewRouter creates a new API router
func NewRouter(store *tracking.Store, service *tracking.Service, ledger *events.Ledger, cfg *config.Config, log *logger.Logger, wsServer *websocket.Server) *Router {
	return &Router{
		handler:  NewHandler(store, service, ledger, cfg, log, wsServer),
		config:   cfg,
		logger:   log.Named("api-router"),
		wsServer: wsServer,
	}
}

// Routes returns the HTTP handler for the server
func (rt *Router) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(rt.corsMiddleware)
	r.Use(rt.loggingMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/aircraft", func(r chi.Router) {
			r.Get("/", rt.handler.GetAllAircraft)
			r.Get("/{icao}", rt.handler.GetAircraftByICAO)
			r.Get("/{icao}/track", rt.handler.GetAircraftTrack)
		})

		r.Route("/events", func(r chi.Router) {
			r.Get("/", rt.handler.GetAllEvents)
			r.Get("/{id}", rt.handler.GetEventByID)
		})

		r.Get("/status", rt.handler.GetStatus)
	})

	r.Get("/ws", rt.wsServer.HandleWebSocket)

	if rt.config.Server.StaticFilesDir != "" {
		static := NewStaticFileHandler(rt.config.Server.StaticFilesDir, rt.logger)
		r.NotFound(static.ServeHTTP)
	}

	return r
}

// corsMiddleware applies the configured CORS policy
func (rt *Router) corsMiddleware(next http.Handler) http.Handler {
	allowed := rt.config.Server.CORSAllowedOrigins

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			for _, a := range allowed {
				if a == "*" || a == origin {
					w.Header().Set("Access-Control-Allow-Origin", a)
					w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
					w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
					break
				}
			}
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs requests at debug level
func (rt *Router) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		rt.logger.Debug("Request handled",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Int("status", ww.Status()),
			logger.Duration("duration", time.Since(start)))
	})
}
