// Visionflow - visual automation pipeline engine
//
// This is the main entry point for the Visionflow engine. Visionflow
// drives a device agent through recognition/action pipelines: it
// captures frames over MQTT, matches pipeline nodes against them, and
// dispatches the matched node's action back to the agent, exposing
// progress over a REST API and a WebSocket notification stream.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/nerrad567/visionflow-core/migrations"

	"github.com/nerrad567/visionflow-core/internal/actuator"
	"github.com/nerrad567/visionflow-core/internal/api"
	"github.com/nerrad567/visionflow-core/internal/controller"
	"github.com/nerrad567/visionflow-core/internal/infrastructure/config"
	"github.com/nerrad567/visionflow-core/internal/infrastructure/database"
	"github.com/nerrad567/visionflow-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/visionflow-core/internal/infrastructure/logging"
	"github.com/nerrad567/visionflow-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/visionflow-core/internal/notify"
	"github.com/nerrad567/visionflow-core/internal/pipeline"
	"github.com/nerrad567/visionflow-core/internal/task"
	"github.com/nerrad567/visionflow-core/internal/vision"
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
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Visionflow",
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
	db, err := database.Open(database.Config{
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

	// Initialise pipeline registry
	pipelineRepo := pipeline.NewSQLiteRepository(db.DB)
	pipelineRegistry := pipeline.NewRegistry(pipelineRepo)
	pipelineRegistry.SetLogger(log)

	if refreshErr := pipelineRegistry.RefreshCache(ctx); refreshErr != nil {
		return fmt.Errorf("loading pipeline registry: %w", refreshErr)
	}

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
	mqttClient.SetLogger(log)
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	// Connect to InfluxDB (optional); the engine falls back to no-op
	// metrics when disabled.
	var metrics task.Metrics
	if cfg.InfluxDB.Enabled {
		influxClient, connErr := influxdb.Connect(cfg.InfluxDB)
		if connErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", connErr)
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
		metrics = influxClient
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Device agent controller
	agent, err := controller.New(mqttClient, controller.Config{
		Device:           cfg.Controller.Device,
		ScreencapTimeout: time.Duration(cfg.Controller.ScreencapTimeout) * time.Second,
		CommandTimeout:   time.Duration(cfg.Controller.CommandTimeout) * time.Second,
		QoS:              byte(cfg.MQTT.QoS),
	})
	if err != nil {
		return fmt.Errorf("creating agent controller: %w", err)
	}
	agent.SetLogger(log)
	log.Info("agent controller ready", "device", cfg.Controller.Device)

	// Recognition and action engines
	recognizer := vision.NewEngine()
	recognizer.SetLogger(log)

	actions := actuator.New(agent)
	actions.SetLogger(log)

	// Notification bus: log sink plus MQTT bridge; the API attaches its
	// WebSocket hub when it starts.
	bus := notify.NewBus()
	bus.SetLogger(log)
	bus.Attach(notify.NewLogSink(log))
	bus.Attach(notify.NewMQTTBridge(mqttClient, mqtt.Topics{}, byte(cfg.MQTT.QoS)))

	// Task engine
	tasker := task.NewTasker(task.Deps{
		Controller:       agent,
		Recognizer:       recognizer,
		Actuator:         actions,
		Pipelines:        pipelineRegistry,
		Notifier:         bus,
		Metrics:          metrics,
		History:          task.NewSQLiteHistoryRepository(db.DB),
		Logger:           log,
		DebugMode:        cfg.Engine.DebugMode,
		DefaultTimeout:   cfg.Engine.DefaultTimeout,
		DefaultRateLimit: cfg.Engine.DefaultRateLimit,
	})
	if restoreErr := tasker.RestoreIDs(ctx); restoreErr != nil {
		return fmt.Errorf("restoring task engine ids: %w", restoreErr)
	}
	log.Info("task engine initialised", "debug_mode", cfg.Engine.DebugMode)

	// HTTP API + WebSocket server
	apiServer, err := api.New(api.Deps{
		Config:        cfg.API,
		WS:            cfg.WebSocket,
		Logger:        log,
		Tasker:        tasker,
		Pipelines:     pipelineRegistry,
		Notifications: bus,
		Database:      db,
		MQTT:          mqttClient,
		Version:       version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := apiServer.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server
	// 2. InfluxDB (if enabled)
	// 3. MQTT
	// 4. Database

	log.Info("Visionflow stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses VISIONFLOW_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("VISIONFLOW_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies the infrastructure connections are healthy.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}
	return nil
}
