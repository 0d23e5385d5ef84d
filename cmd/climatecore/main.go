// Climate Core - heating system normalisation service
//
// This is the main entry point for the Climate Core application. It accepts
// raw heating-system bundles over MQTT, HTTP and a startup spool directory,
// validates them into the normalised climate model, and fans accepted
// systems out to the snapshot store, MQTT state topics, InfluxDB and
// WebSocket subscribers.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	_ "github.com/nerrad567/gray-logic-climate/migrations"

	"github.com/nerrad567/gray-logic-climate/internal/api"
	"github.com/nerrad567/gray-logic-climate/internal/audit"
	"github.com/nerrad567/gray-logic-climate/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-climate/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-climate/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-climate/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-climate/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-climate/internal/ingest"
	"github.com/nerrad567/gray-logic-climate/internal/snapshot"
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

// pruneInterval is how often retention pruning runs.
const pruneInterval = time.Hour

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
// It returns nil on clean shutdown.
func run(ctx context.Context) error { //nolint:gocognit,gocyclo // Linear startup sequence
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Climate Core",
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

	// Open database
	db, err := database.Open(ctx, cfg.Database)
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

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	snapshots := snapshot.NewSQLiteRepository(db.DB, ingest.Options(cfg.Ingest)...)
	auditRepo := audit.NewSQLiteRepository(db.DB)

	// Prometheus registry shared by the pipeline and the API
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	checks := map[string]api.HealthChecker{"database": db}

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(ctx, cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log.Component("mqtt"))
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
		checks["mqtt"] = mqttClient
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
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
		checks["influxdb"] = influxClient
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	// WebSocket hub exists before the pipeline so it can receive outcomes
	hub := api.NewHub(cfg.WebSocket, log.Component("websocket"))

	publishers := ingest.MultiPublisher{api.NewHubPublisher(hub)}
	if mqttClient != nil {
		publishers = append(publishers, mqtt.NewStatePublisher(mqttClient))
	}

	deps := ingest.Deps{
		Store:     snapshots,
		Publisher: publishers,
		Auditor:   auditRepo,
		Metrics:   ingest.NewMetrics(registry),
		Logger:    log.Component("ingest"),
	}
	if influxClient != nil {
		deps.Telemetry = influxClient
	}
	pipeline := ingest.New(cfg.Ingest, deps)

	// Verify all connections are healthy before taking traffic
	if err := healthCheck(ctx, checks); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	if cfg.Ingest.SpoolDir != "" {
		// Rejected spool files are audited by the pipeline and do not stop startup.
		if n, spoolErr := pipeline.IngestDir(ctx, cfg.Ingest.SpoolDir); spoolErr != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("ingesting spool directory: %w", spoolErr)
			}
			log.Warn("spool directory contained rejected bundles", "accepted", n, "error", spoolErr)
		}
	}

	if mqttClient != nil {
		if err := subscribeIngest(ctx, mqttClient, pipeline, byte(cfg.MQTT.QoS), log); err != nil {
			return fmt.Errorf("subscribing to ingest topic: %w", err)
		}
	}

	server, err := api.New(api.Deps{
		Config:    cfg.API,
		WS:        cfg.WebSocket,
		Security:  cfg.Security,
		Metrics:   cfg.Metrics,
		Logger:    log.Component("api"),
		Snapshots: snapshots,
		Audit:     auditRepo,
		Ingester:  pipeline,
		Checks:    checks,
		Gatherer:  registry,
		Hub:       hub,
		Version:   version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	if retention := cfg.Retention(); retention > 0 {
		go pruneLoop(ctx, retention, snapshots, auditRepo, log)
	}

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server
	// 2. InfluxDB (if enabled)
	// 3. MQTT (if enabled)
	// 4. Database

	log.Info("Climate Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses CLIMATECORE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("CLIMATECORE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies every registered connection, returning the first failure.
func healthCheck(ctx context.Context, checks map[string]api.HealthChecker) error {
	for name, check := range checks {
		if err := check.HealthCheck(ctx); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// subscribeIngest feeds bundles published on the ingest topic into the
// pipeline. Rejections are already audited and published by the pipeline,
// so the handler only logs them.
func subscribeIngest(ctx context.Context, client *mqtt.Client, pipeline *ingest.Pipeline, qos byte, log *logging.Logger) error {
	topic := mqtt.Topics{}.IngestSystem()
	log.Info("subscribing to ingest topic", "topic", topic)

	return client.Subscribe(topic, qos, func(_ string, payload []byte) error {
		result, err := pipeline.Ingest(ctx, ingest.SourceMQTT, payload)
		if err != nil {
			log.Warn("bundle rejected", "source", ingest.SourceMQTT, "kind", ingest.Kind(err), "error", err)
			return nil
		}
		log.Debug("bundle accepted", "system_id", result.System.ID(), "snapshot_id", result.SnapshotID)
		return nil
	})
}

// snapshotPruner and auditPruner are the retention halves of the stores.
type snapshotPruner interface {
	Prune(ctx context.Context, olderThan time.Duration) (int64, error)
}

type auditPruner interface {
	Prune(ctx context.Context, before time.Time) (int64, error)
}

// pruneLoop drops snapshots and audit rows older than retention, once at
// startup and then every pruneInterval until ctx is cancelled.
func pruneLoop(ctx context.Context, retention time.Duration, snapshots snapshotPruner, auditRepo auditPruner, log *logging.Logger) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()

	for {
		prune(ctx, retention, snapshots, auditRepo, log)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func prune(ctx context.Context, retention time.Duration, snapshots snapshotPruner, auditRepo auditPruner, log *logging.Logger) {
	if n, err := snapshots.Prune(ctx, retention); err != nil {
		log.Error("snapshot prune failed", "error", err)
	} else if n > 0 {
		log.Info("snapshots pruned", "deleted", n)
	}

	if n, err := auditRepo.Prune(ctx, time.Now().Add(-retention)); err != nil {
		log.Error("audit prune failed", "error", err)
	} else if n > 0 {
		log.Info("audit entries pruned", "deleted", n)
	}
}
