package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"evhub/config"
	"evhub/internal/adapters"
	"evhub/internal/adapters/tesla"
	"evhub/internal/api"
	"evhub/internal/ev"
	"evhub/internal/events"
	"evhub/internal/hub"
	"evhub/internal/logging"
	"evhub/internal/storage"
	"evhub/internal/storage/sqlite"
)

const (
	shutdownTimeout   = 10 * time.Second
	defaultConfigPath = "config.json"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	// Parse command-line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	useEnv := flag.Bool("env", false, "Load configuration from environment variables")
	flag.Parse()

	// Load configuration
	var cfg *config.Config
	var err error

	if *useEnv {
		cfg, err = config.LoadFromEnv()
	} else {
		cfg, err = config.Load(*configPath)
	}

	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.NewLogger(logging.LoggerConfig{
		Format: cfg.Logging.Format,
		Level:  logging.ParseLevel(cfg.Logging.Level),
	})

	// Initialize database
	logger.Info("Initializing SQLite database", "component", "main", "path", cfg.Database.Path)
	db, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	// Initialize adapter registry
	registry := adapters.NewRegistry(logger)
	if cfg.Tesla.Enabled() {
		logger.Info("Registering Tesla adapter", "component", "main")
		teslaCfg := tesla.Config{
			ClientID:     cfg.Tesla.ClientID,
			ClientSecret: cfg.Tesla.ClientSecret,
			RedirectURI:  cfg.Tesla.RedirectURI,
			AuthBaseURL:  cfg.Tesla.AuthBaseURL,
			APIBaseURL:   cfg.Tesla.APIBaseURL,
		}
		err := registry.Register(ev.ManufacturerTesla, func() adapters.Adapter {
			return tesla.New(teslaCfg, logger)
		})
		if err != nil {
			return fmt.Errorf("failed to register Tesla adapter: %w", err)
		}
	}

	// Build the connection store, restore persisted connections, and keep
	// future mutations mirrored into the database
	store := ev.NewConnectionStore()
	persisted, err := db.ListConnections(context.Background())
	if err != nil {
		return fmt.Errorf("failed to load connections: %w", err)
	}
	for _, conn := range persisted {
		if err := store.Add(conn); err != nil {
			logger.Warn("Skipping persisted connection",
				"component", "main",
				"user_id", conn.UserID,
				"vehicle_id", conn.VehicleID,
				"error", err,
			)
		}
	}
	store.SetListener(storage.NewListener(db, logger))
	logger.Info("Connections restored", "component", "main", "count", store.Len())

	// Event bus with a log subscriber for every event
	bus := events.NewBus(logger)
	bus.SubscribeAll(func(event string, payload any) {
		logger.Debug("Event", "component", "events", "event", event, "payload", payload)
	})

	// Initialize the hub
	vehicleHub := hub.New(hub.Config{
		Registry: registry,
		Store:    store,
		Sink:     bus,
		Logger:   logger,
	})

	// Initialize REST API
	router := api.NewRouter(api.RouterConfig{
		Hub:    vehicleHub,
		APIKey: cfg.Security.APIKey,
		Logger: logger,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server",
			"component", "main",
			"host", cfg.Server.Host,
			"port", cfg.Server.Port,
		)
		serverErrors <- server.ListenAndServe()
	}()

	// Wait for interrupt signal or server error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info("Starting graceful shutdown", "component", "main", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}

		logger.Info("Graceful shutdown complete", "component", "main")
	}

	return nil
}
