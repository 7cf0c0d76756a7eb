// Inspire Bridge - Inspire Home Automation integration daemon
//
// This is the main entry point for the Inspire bridge. The bridge polls
// the Inspire Home Automation cloud for thermostat state and exposes it
// locally:
//   - MQTT state topics with Home Assistant discovery
//   - REST + WebSocket API for dashboards and tooling
//   - SQLite persistence for device cache, history and command audit
//   - Optional InfluxDB telemetry for long-term temperature series
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "github.com/nerrad567/inspire-bridge/migrations"

	"github.com/nerrad567/inspire-bridge/internal/api"
	"github.com/nerrad567/inspire-bridge/internal/audit"
	"github.com/nerrad567/inspire-bridge/internal/auth"
	"github.com/nerrad567/inspire-bridge/internal/bridges/hass"
	"github.com/nerrad567/inspire-bridge/internal/coordinator"
	"github.com/nerrad567/inspire-bridge/internal/device"
	"github.com/nerrad567/inspire-bridge/internal/infrastructure/config"
	"github.com/nerrad567/inspire-bridge/internal/infrastructure/database"
	"github.com/nerrad567/inspire-bridge/internal/infrastructure/influxdb"
	"github.com/nerrad567/inspire-bridge/internal/infrastructure/logging"
	"github.com/nerrad567/inspire-bridge/internal/infrastructure/mqtt"
	"github.com/nerrad567/inspire-bridge/internal/inspire"
	"github.com/nerrad567/inspire-bridge/internal/service"
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
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
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
	log.Info("starting Inspire bridge",
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

	// Repositories
	deviceRepo := device.NewSQLiteRepository(db.DB)
	historyRepo := device.NewSQLiteStateHistoryRepository(db.DB)
	auditRepo := audit.NewSQLiteRepository(db.DB)
	userRepo := auth.NewUserRepository(db.DB)

	// Seed the admin user on first run. If no password is configured a
	// random one is generated and printed once.
	generated, err := auth.SeedAdmin(ctx, userRepo, cfg.Security.Admin.Username, cfg.Security.Admin.Password, log.Logger)
	if err != nil {
		return fmt.Errorf("seeding admin user: %w", err)
	}
	if generated != "" {
		fmt.Fprintf(os.Stdout, "Generated admin password: %s\n", generated)
	}

	// Vendor client with rate limiting. The Inspire cloud rejects rapid
	// request bursts, so every call goes through the shared limiter.
	limiter := inspire.NewRateLimiter(time.Duration(cfg.Inspire.RateLimitInterval) * time.Millisecond)
	client := inspire.NewClient(cfg.Inspire, limiter, log)
	defer client.Close()

	// Coordinator owns the poll cycle and the account snapshot
	coord, err := coordinator.New(coordinator.Options{
		Client:           client,
		PollInterval:     time.Duration(cfg.Inspire.PollInterval) * time.Second,
		FailureThreshold: cfg.Inspire.FailureThreshold,
		Repository:       deviceRepo,
		History:          historyRepo,
		Logger:           log,
	})
	if err != nil {
		return fmt.Errorf("creating coordinator: %w", err)
	}
	if startErr := coord.Start(ctx); startErr != nil {
		return fmt.Errorf("starting coordinator: %w", startErr)
	}
	defer func() {
		log.Info("stopping coordinator")
		coord.Stop()
	}()
	log.Info("coordinator started",
		"poll_interval", cfg.Inspire.PollInterval,
		"devices", len(coord.Snapshot().Thermostats),
	)

	// Command dispatcher: validated writes plus audit trail
	commands := service.New(service.Options{
		Client:  client,
		Source:  coord,
		Auditor: auditRepo,
		Logger:  log,
	})

	// Connect to MQTT broker and start the Home Assistant bridge (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
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

		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})

		haBridge, bridgeErr := hass.NewBridge(hass.Options{
			MQTT:            mqttClient,
			Coordinator:     coord,
			Commands:        commands,
			DiscoveryPrefix: cfg.MQTT.DiscoveryPrefix,
			Version:         version,
			Logger:          log,
		})
		if bridgeErr != nil {
			return fmt.Errorf("creating Home Assistant bridge: %w", bridgeErr)
		}
		if startErr := haBridge.Start(ctx); startErr != nil {
			return fmt.Errorf("starting Home Assistant bridge: %w", startErr)
		}
		defer func() {
			log.Info("stopping Home Assistant bridge")
			haBridge.Stop()
		}()
		log.Info("Home Assistant bridge started", "discovery_prefix", cfg.MQTT.DiscoveryPrefix)
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB and feed it from snapshot updates (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})

		unsubscribe := coord.Subscribe(telemetryWriter(influxClient))
		defer unsubscribe()
	} else {
		log.Info("InfluxDB disabled")
	}

	// Start the REST + WebSocket API server
	apiServer, err := api.New(api.Deps{
		Config:      cfg.API,
		WS:          cfg.WebSocket,
		Security:    cfg.Security,
		Logger:      log,
		Coordinator: coord,
		Commands:    commands,
		Users:       userRepo,
		Audit:       auditRepo,
		History:     historyRepo,
		Version:     version,
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
	if err := healthCheck(ctx, db, mqttClient, influxClient, apiServer); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// API server, InfluxDB, Home Assistant bridge, MQTT, coordinator,
	// vendor client, database.

	log.Info("Inspire bridge stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses INSPIREBRIDGE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("INSPIREBRIDGE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// telemetryWriter returns a snapshot subscriber that records readings
// to InfluxDB. Units reporting OK/Low battery flags produce no battery
// series; only numeric voltage reports are written.
func telemetryWriter(influxClient *influxdb.Client) coordinator.Subscriber {
	return func(snap device.Snapshot) {
		for _, t := range snap.Thermostats {
			if t.CurrentTemperature != nil {
				influxClient.WriteTemperature(t.ID, influxdb.TemperatureCurrent, *t.CurrentTemperature)
			}
			if t.TargetTemperature != nil {
				influxClient.WriteTemperature(t.ID, influxdb.TemperatureTarget, *t.TargetTemperature)
			}
			if t.BoilerOn != nil {
				influxClient.WriteBoilerState(t.ID, *t.BoilerOn)
			}
			if volts, err := strconv.ParseFloat(t.Battery, 64); err == nil {
				influxClient.WriteBatteryVoltage(t.ID, volts)
			}
		}
	}
}

// healthCheck verifies all infrastructure connections are healthy.
// mqttClient and influxClient may be nil when their sections are disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client, apiServer *api.Server) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	if err := apiServer.HealthCheck(ctx); err != nil {
		return fmt.Errorf("api: %w", err)
	}

	return nil
}
