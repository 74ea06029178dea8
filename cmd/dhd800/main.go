// DHD800 Bridge - Christie DHD800 projector control over MQTT
//
// This is the main entry point for the bridge daemon. It connects a
// Christie DHD800 projector (proprietary line-oriented TCP protocol on
// port 10000) to an MQTT broker: inbound command messages become
// control commands, and polled device state is published as retained
// state, status and feedback messages.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/thomascantrellsea/companion-module-christie-dhd800/internal/bridge"
	"github.com/thomascantrellsea/companion-module-christie-dhd800/internal/history"
	"github.com/thomascantrellsea/companion-module-christie-dhd800/internal/infrastructure/config"
	"github.com/thomascantrellsea/companion-module-christie-dhd800/internal/infrastructure/database"
	"github.com/thomascantrellsea/companion-module-christie-dhd800/internal/infrastructure/influxdb"
	"github.com/thomascantrellsea/companion-module-christie-dhd800/internal/infrastructure/logging"
	"github.com/thomascantrellsea/companion-module-christie-dhd800/internal/infrastructure/mqtt"
	"github.com/thomascantrellsea/companion-module-christie-dhd800/internal/projector"
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

// run is the actual application logic, separated from main for
// testability. Returning an error allows main to handle exit codes
// consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting DHD800 bridge",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

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

	// Open the state-history database (optional)
	var historyRepo *history.Repository
	if cfg.Database.Enabled {
		db, openErr := database.Open(database.Config{
			Path:        cfg.Database.Path,
			WALMode:     cfg.Database.WALMode,
			BusyTimeout: cfg.Database.BusyTimeout,
		})
		if openErr != nil {
			return fmt.Errorf("opening database: %w", openErr)
		}
		defer func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()
		log.Info("database connected", "path", cfg.Database.Path)

		if migrateErr := db.Migrate(ctx); migrateErr != nil {
			return fmt.Errorf("running migrations: %w", migrateErr)
		}
		log.Info("database migrations complete")

		historyRepo = history.NewRepository(db.DB)
	} else {
		log.Info("state history disabled")
	}

	// Connect to InfluxDB (optional)
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
	} else {
		log.Info("InfluxDB disabled")
	}

	// The health reporter's LWT must be registered at connect time, so
	// build the will payload before dialling the broker.
	instanceID := cfg.Instance.ID
	lwtPayload, err := bridge.NewLWTPayload(instanceID)
	if err != nil {
		return fmt.Errorf("building LWT payload: %w", err)
	}

	mqttClient, err := mqtt.Connect(cfg.MQTT, mqtt.ConnectOptions{
		WillTopic:   mqtt.Topics{}.Health(instanceID),
		WillPayload: lwtPayload,
	})
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

	// Wire the bridge and the projector instance. The instance needs
	// the bridge as its host surface, and the bridge needs the instance
	// as its controller, so attach after construction.
	mqttBridge := bridge.New(bridge.Options{
		InstanceID: instanceID,
		Messaging:  mqttClient,
		QoS:        byte(cfg.MQTT.QoS), //nolint:gosec // QoS validated 1-2 by config
		Logger:     log,
	})

	instance := projector.NewInstance(projector.InstanceOptions{
		Host:         mqttBridge,
		Logger:       log,
		PollInterval: cfg.GetPollInterval(),
		Linger:       cfg.GetLinger(),
		DialTimeout:  cfg.GetDialTimeout(),
		History:      newHistoryAdapter(historyRepo),
		Telemetry:    newTelemetryAdapter(influxClient, instanceID),
	})
	mqttBridge.SetController(instance)

	if err := mqttBridge.Start(); err != nil {
		return fmt.Errorf("starting bridge: %w", err)
	}

	instance.Initialize(projector.Config{
		Host:     cfg.Projector.Host,
		Port:     cfg.Projector.Port,
		Password: cfg.Projector.Password,
	})
	defer func() {
		log.Info("tearing down projector instance")
		instance.Teardown()
	}()

	// Periodic health reporting
	healthReporter := bridge.NewHealthReporter(bridge.HealthReporterConfig{
		InstanceID: instanceID,
		Version:    version,
		Messaging:  mqttClient,
		Controller: instance,
	})
	healthReporter.SetLogger(log)
	if err := healthReporter.PublishStarting(); err != nil {
		log.Warn("failed to publish starting status", "error", err)
	}
	healthReporter.Start(ctx)
	defer func() {
		log.Info("stopping health reporter")
		healthReporter.Stop()
	}()

	if err := healthCheck(ctx, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal",
		"projector_host", cfg.Projector.Host,
		"poll_interval", cfg.GetPollInterval().String(),
	)

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse order:
	// 1. Health reporter (publishes "stopping")
	// 2. Projector instance teardown
	// 3. MQTT disconnect
	// 4. InfluxDB (if enabled)
	// 5. Database (if enabled)

	log.Info("DHD800 bridge stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses DHD800_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("DHD800_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies infrastructure connections are healthy.
func healthCheck(ctx context.Context, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	// Projector connectivity is not checked here: the device may be
	// legitimately offline at startup, and the poller reports its state
	// through the status topic.

	return nil
}

// historyAdapter adapts *history.Repository to projector.TransitionRecorder.
// Returns a typed nil-safe wrapper so the instance can hold a nil recorder.
type historyAdapter struct {
	repo *history.Repository
}

func newHistoryAdapter(repo *history.Repository) projector.TransitionRecorder {
	if repo == nil {
		return nil
	}
	return &historyAdapter{repo: repo}
}

// RecordTransition implements projector.TransitionRecorder.
func (a *historyAdapter) RecordTransition(ctx context.Context, power, input string) error {
	return a.repo.RecordTransition(ctx, power, input)
}

// telemetryAdapter adapts *influxdb.Client to projector.TelemetryWriter,
// binding the instance ID tag.
type telemetryAdapter struct {
	client     *influxdb.Client
	instanceID string
}

func newTelemetryAdapter(client *influxdb.Client, instanceID string) projector.TelemetryWriter {
	if client == nil {
		return nil
	}
	return &telemetryAdapter{client: client, instanceID: instanceID}
}

// WritePollCycle implements projector.TelemetryWriter.
func (a *telemetryAdapter) WritePollCycle(success bool, duration time.Duration) {
	a.client.WritePollCycle(a.instanceID, success, duration)
}

// WriteDeviceState implements projector.TelemetryWriter.
func (a *telemetryAdapter) WriteDeviceState(power, input string) {
	a.client.WriteDeviceState(a.instanceID, power, input)
}
