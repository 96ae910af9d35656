// Wihajster Core - Device Fleet Backend
//
// This is the main entry point for the Wihajster Core application.
// Wihajster Core is the backend for a fleet of battery-powered
// environmental sensor devices:
//   - Settings reconciliation between backend and devices over MQTT
//   - Sensor measurement and health telemetry ingest
//   - Request/response command correlation
//   - REST API for operator tooling
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/wihajster/wihajster-core/migrations"

	"github.com/wihajster/wihajster-core/internal/api"
	"github.com/wihajster/wihajster-core/internal/command"
	"github.com/wihajster/wihajster-core/internal/device"
	"github.com/wihajster/wihajster-core/internal/infrastructure/config"
	"github.com/wihajster/wihajster-core/internal/infrastructure/database"
	"github.com/wihajster/wihajster-core/internal/infrastructure/influxdb"
	"github.com/wihajster/wihajster-core/internal/infrastructure/logging"
	"github.com/wihajster/wihajster-core/internal/infrastructure/mqtt"
	"github.com/wihajster/wihajster-core/internal/ingest"
	"github.com/wihajster/wihajster-core/internal/presence"
	"github.com/wihajster/wihajster-core/internal/router"
	"github.com/wihajster/wihajster-core/internal/settings"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Wihajster Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Repositories
	deviceRepo := device.NewSQLiteRepository(db.DB)
	settingsRepo := settings.NewSQLiteRepository(db.DB)
	ingestRepo := ingest.NewSQLiteRepository(db.DB)

	// Connect to MQTT broker
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	mqttClient.SetLogger(log)
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	// Connect to InfluxDB (optional measurement mirror)
	var influxClient *influxdb.Client
	var mirror ingest.Mirror
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(ctx, cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		mirror = influxClient
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Domain services
	engine := settings.NewEngine(settingsRepo, deviceRepo, mqttClient, log)
	correlator := command.NewCorrelator(mqttClient, log)
	defer func() {
		log.Info("closing command correlator")
		correlator.Close()
	}()
	tracker := presence.NewTracker(engine, log)
	ingestHandler := ingest.NewHandler(ingestRepo, deviceRepo, mirror, log)

	// Inbound message routing
	rtr := router.New(log)
	rtr.Register(mqtt.TopicPrefixSensors, ingestHandler.HandleSensorMessage)
	rtr.Register(mqtt.TopicPrefixTelemetry, ingestHandler.HandleTelemetryMessage)
	rtr.Register(mqtt.TopicPrefixPresence, tracker.HandleMessage)
	rtr.Register(mqtt.TopicPrefixStatus, tracker.HandleMessage)
	rtr.Register(mqtt.TopicPrefixSettingsReport, router.ReportHandler(engine))
	rtr.Register(mqtt.TopicPrefixSettingsAck, router.AckHandler(engine))
	rtr.Register(mqtt.TopicPrefixConfig, router.ConfigHandler(engine, correlator, log))

	dispatcher := router.NewDispatcher(rtr, cfg.Sync.DispatchShards, cfg.Sync.DispatchQueueSize, log)
	dispatcher.Start(ctx)
	defer func() {
		log.Info("stopping dispatcher")
		dispatcher.Stop()
	}()
	log.Info("dispatcher started",
		"shards", cfg.Sync.DispatchShards,
		"queue_size", cfg.Sync.DispatchQueueSize,
	)

	// Subscribe to all inbound device topic families
	var topics mqtt.Topics
	for _, pattern := range topics.InboundPatterns() {
		if subErr := mqttClient.Subscribe(pattern, byte(cfg.MQTT.QoS), dispatcher.HandleMessage); subErr != nil {
			return fmt.Errorf("subscribing to %s: %w", pattern, subErr)
		}
	}
	log.Info("MQTT subscriptions established", "count", mqttClient.SubscriptionCount())

	// Start REST API
	apiServer, err := api.New(api.Deps{
		Config:         cfg.API,
		Logger:         log,
		Settings:       engine,
		Commands:       correlator,
		Presence:       tracker,
		Telemetry:      ingestRepo,
		CommandTimeout: cfg.GetCommandTimeout(),
		Version:        version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := apiServer.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started", "host", cfg.API.Host, "port", cfg.API.Port)

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server (stop accepting operator requests)
	// 2. Dispatcher (drain in-flight device messages)
	// 3. Correlator (release outstanding command waiters)
	// 4. InfluxDB (if enabled)
	// 5. MQTT
	// 6. Database

	log.Info("Wihajster Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses WIHAJSTER_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("WIHAJSTER_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
