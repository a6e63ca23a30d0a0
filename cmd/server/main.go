package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/olmonotarianni/medplane/internal/api"
	"github.com/olmonotarianni/medplane/internal/coastline"
	"github.com/olmonotarianni/medplane/internal/config"
	"github.com/olmonotarianni/medplane/internal/events"
	"github.com/olmonotarianni/medplane/internal/notifier"
	"github.com/olmonotarianni/medplane/internal/storage/sqlite"
	"github.com/olmonotarianni/medplane/internal/tracking"
	"github.com/olmonotarianni/medplane/internal/websocket"
	"github.com/olmonotarianni/medplane/pkg/logger"
)

var (
	// Version is injected at build time
	Version = "dev"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file (optional - will search in configs/ and root directory)")
	flag.Parse()

	cfg, err := config.LoadWithFallback(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting medplane server",
		logger.String("version", Version),
		logger.String("config_path", *configPath),
	)

	// SQLite storage
	if dir := filepath.Dir(cfg.Storage.SQLitePath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Error("Failed to create database directory", logger.Error(err), logger.String("path", dir))
			os.Exit(1)
		}
	}

	storage, err := sqlite.NewStorage(cfg.Storage.SQLitePath, log)
	if err != nil {
		log.Error("Failed to create SQLite storage", logger.Error(err))
		os.Exit(1)
	}
	defer storage.Close()
	log.Info("Using SQLite storage", logger.String("path", cfg.Storage.SQLitePath))

	// WebSocket server
	wsServer := websocket.NewServer(log)
	go wsServer.Run()

	// Detection pipeline
	classifier := tracking.NewClassifier(cfg.Monitoring)
	detector := tracking.NewDetector(cfg.Detection, classifier)
	store := tracking.NewStore(cfg.Tracking, classifier, detector, log)

	if aircraft, err := storage.LoadAircraftSnapshot(); err != nil {
		log.Warn("Failed to load aircraft snapshot", logger.Error(err))
	} else if len(aircraft) > 0 {
		store.Load(aircraft)
		log.Info("Restored aircraft snapshot", logger.Int("count", len(aircraft)))
	}

	// Event ledger
	ledger := events.NewLedger(cfg.Events, storage, log)
	if stored, err := storage.LoadEvents(); err != nil {
		log.Warn("Failed to load stored events", logger.Error(err))
	} else if len(stored) > 0 {
		ledger.Load(stored)
		log.Info("Restored loitering events", logger.Int("count", len(stored)))
	}

	// given a nil oracle every position classifies as over land, so a
	// missing coastline database means no loitering alerts at all
	coast := coastline.NewService(cfg.Coastline, log)

	var eventNotifier events.Notifier
	if webhook := notifier.NewWebhook(cfg.Notifier, log); webhook != nil {
		eventNotifier = webhook
	}

	dispatcher := events.NewDispatcher(ledger, eventNotifier, wsServer, log)

	client := tracking.NewClient(cfg.Provider, cfg.Monitoring, log)

	service := tracking.NewService(
		client,
		store,
		coast,
		dispatcher,
		storage,
		wsServer,
		time.Duration(cfg.Provider.FetchIntervalSecs)*time.Second,
		time.Duration(cfg.Storage.SnapshotIntervalSecs)*time.Second,
		time.Duration(cfg.Events.ExpiryIntervalMinutes)*time.Minute,
		cfg.Detection.Method,
		log,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := service.Start(ctx); err != nil {
		log.Error("Failed to start ingestion coordinator", logger.Error(err))
		os.Exit(1)
	}

	// HTTP server
	router := api.NewRouter(store, service, ledger, cfg, log, wsServer)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router.Routes(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSecs) * time.Second,
	}

	go func() {
		log.Info("Starting HTTP server", logger.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", logger.String("addr", addr), logger.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("Shutting down server...")

	service.Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", logger.Error(err))
	}

	log.Info("Server fully stopped")
}
