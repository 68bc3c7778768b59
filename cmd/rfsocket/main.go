// rfsocket - RF power socket controller
//
// This is the main entry point. It loads configuration, opens the socket
// and user datasets, and serves the HTTP API that switches sockets through
// an external radio transmitter. MQTT, InfluxDB and Prometheus integrations
// are enabled from configuration.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nerrad567/rfsocket-core/internal/api"
	"github.com/nerrad567/rfsocket-core/internal/audit"
	"github.com/nerrad567/rfsocket-core/internal/auth"
	"github.com/nerrad567/rfsocket-core/internal/dispatch"
	"github.com/nerrad567/rfsocket-core/internal/events"
	"github.com/nerrad567/rfsocket-core/internal/infrastructure/config"
	"github.com/nerrad567/rfsocket-core/internal/infrastructure/database"
	"github.com/nerrad567/rfsocket-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/rfsocket-core/internal/infrastructure/logging"
	"github.com/nerrad567/rfsocket-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/rfsocket-core/internal/metrics"
	"github.com/nerrad567/rfsocket-core/internal/process"
	"github.com/nerrad567/rfsocket-core/internal/socket"
	"github.com/nerrad567/rfsocket-core/internal/transmitter"
	"github.com/nerrad567/rfsocket-core/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the application logic, separated from main for testability.
// It returns nil on a clean shutdown after ctx is cancelled.
func run(ctx context.Context) error { //nolint:gocognit,funlen // startup wiring reads top to bottom
	log := logging.Default()
	log.Info("starting rfsocket",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := config.Path()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	defer log.Close() //nolint:errcheck // nothing useful to do with a log close error
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
		"output", cfg.Logging.Output,
	)

	bus := events.NewBus()
	bus.SetLogger(log)

	// Socket registry
	registry, err := openRegistry(ctx, cfg, log)
	if err != nil {
		return err
	}
	registry.SetPublisher(bus)

	// Users and the first-boot admin
	users, err := openUsers(ctx, cfg, log)
	if err != nil {
		return err
	}
	if _, err := auth.SeedAdmin(ctx, users, cfg.Security.AdminPassword, log.Logger); err != nil {
		return fmt.Errorf("seeding admin: %w", err)
	}

	// Transmitter and dispatcher
	runner := process.NewRunner()
	runner.SetLogger(log)
	tx := transmitter.NewCommand(transmitter.Config{
		Binary:  cfg.Transmitter.Binary,
		Args:    cfg.Transmitter.Args,
		WorkDir: cfg.Transmitter.WorkDir,
		Timeout: cfg.GetTransmitTimeout(),
	}, runner)
	tx.SetLogger(log)

	dispatcher := dispatch.New(registry, tx, cfg.Transmitter.Pin)
	dispatcher.SetLogger(log)
	dispatcher.SetPublisher(bus)

	// Audit database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: time.Duration(cfg.Database.BusyTimeout) * time.Second,
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

	if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	auditRepo := audit.NewSQLiteRepository(db.DB)
	bus.AddSink("audit", audit.NewEventSink(auditRepo))

	// Prometheus metrics (optional)
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		n, countErr := registry.Count(ctx)
		if countErr != nil {
			return fmt.Errorf("counting sockets: %w", countErr)
		}
		m.SetSockets(n)
		bus.AddSink("metrics", m)
	}

	// MQTT (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = startMQTT(ctx, cfg, dispatcher, bus, log)
		if err != nil {
			return err
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
	} else {
		log.Info("MQTT disabled")
	}

	// InfluxDB (optional)
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
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		bus.AddSink("influxdb", events.NewInfluxSink(influxClient))
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	// HTTP API
	server, err := api.New(api.Deps{
		Config:     cfg.API,
		WS:         cfg.WebSocket,
		Security:   cfg.Security,
		Logger:     log,
		Registry:   registry,
		Dispatcher: dispatcher,
		Users:      users,
		Audit:      auditRepo,
		Metrics:    m,
		Version:    version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	bus.AddSink("websocket", server.Hub())

	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// API server, InfluxDB, MQTT, database, logger.
	log.Info("rfsocket stopped")
	return nil
}

// openRegistry loads the socket dataset, creating it with the configured
// defaults on first run.
func openRegistry(ctx context.Context, cfg *config.Config, log *logging.Logger) (*socket.Registry, error) {
	ds := socket.NewDataset(cfg.Store.DataDir, socket.Defaults{
		Bits:       cfg.Registry.DefaultBits,
		Repeat:     cfg.Registry.DefaultRepeat,
		AllOffCode: cfg.Registry.AllOffCode,
	})
	ds.SetLogger(log)

	registry := socket.NewRegistry(ds)
	registry.SetLogger(log)
	// Load logs the path and socket count itself.
	if err := registry.Load(ctx); err != nil {
		return nil, err
	}
	return registry, nil
}

// openUsers loads the users dataset.
func openUsers(ctx context.Context, cfg *config.Config, log *logging.Logger) (*auth.Users, error) {
	ds := auth.NewDataset(cfg.Store.DataDir)
	ds.SetLogger(log)

	users := auth.NewUsers(ds)
	users.SetLogger(log)
	if err := users.Load(ctx); err != nil {
		return nil, fmt.Errorf("loading users: %w", err)
	}
	return users, nil
}

// startMQTT connects to the broker, publishes bus events and subscribes to
// inbound socket commands.
func startMQTT(ctx context.Context, cfg *config.Config, dispatcher *dispatch.Dispatcher, bus *events.Bus, log *logging.Logger) (*mqtt.Client, error) {
	client, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return nil, fmt.Errorf("connecting to MQTT: %w", err)
	}
	client.SetLogger(log)
	client.SetOnConnect(func() {
		log.Info("MQTT connected")
	})
	client.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	qos := byte(cfg.MQTT.QoS) //nolint:gosec // validated to 0..2
	bus.AddSink("mqtt", events.NewMQTTSink(client, mqtt.EventTopic, qos))

	topic := mqtt.Topics{}.AllSocketCommands()
	if err := client.Subscribe(topic, qos, dispatcher.CommandHandler(ctx, mqtt.CommandRef)); err != nil {
		if closeErr := client.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
		return nil, fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	log.Info("listening for MQTT commands", "topic", topic)

	return client, nil
}

// healthCheck verifies all infrastructure connections are healthy.
// mqttClient and influxClient may be nil when disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	var errs []error

	if err := db.HealthCheck(ctx); err != nil {
		errs = append(errs, fmt.Errorf("database: %w", err))
	}
	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			errs = append(errs, fmt.Errorf("mqtt: %w", err))
		}
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			errs = append(errs, fmt.Errorf("influxdb: %w", err))
		}
	}

	return errors.Join(errs...)
}
