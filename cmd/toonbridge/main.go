// Gray Logic Toon Bridge
//
// Links an Eneco Toon account over OAuth2, polls the Toon cloud API and
// republishes the thermostat, energy meters and smart plugs on the Gray
// Logic MQTT bus.
//
// Send SIGHUP to reload the toon section of the configuration without a
// restart. Device definitions are only read at startup.
//
// Usage:
//
//	toonbridge --config /etc/graylogic/toon.yaml
//	toonbridge --config /etc/graylogic/toon.yaml token --subject ops-laptop --role operator
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/oauth2"

	"github.com/nerrad567/gray-logic-toon/internal/api"
	"github.com/nerrad567/gray-logic-toon/internal/audit"
	"github.com/nerrad567/gray-logic-toon/internal/auth"
	"github.com/nerrad567/gray-logic-toon/internal/devices"
	"github.com/nerrad567/gray-logic-toon/internal/discovery"
	"github.com/nerrad567/gray-logic-toon/internal/hub"
	"github.com/nerrad567/gray-logic-toon/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-toon/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-toon/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-toon/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-toon/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-toon/internal/toon"
	"github.com/nerrad567/gray-logic-toon/internal/toonapi"
	"github.com/nerrad567/gray-logic-toon/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const (
	// Default configuration file path
	defaultConfigPath = "configs/config.yaml"

	// historyPruneInterval is how often expired channel history is deleted.
	historyPruneInterval = time.Hour
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newApp builds the command line. With no subcommand the bridge is served.
func newApp() *cli.App {
	var configPath string

	return &cli.App{
		Name:    "toonbridge",
		Usage:   "bridge an Eneco Toon account onto the Gray Logic MQTT bus",
		Version: fmt.Sprintf("%s (%s, %s)", version, commit, date),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Value:       defaultConfigPath,
				Usage:       "configuration file",
				EnvVars:     []string{"GRAYLOGIC_TOON_CONFIG"},
				Destination: &configPath,
			},
		},
		Action: func(c *cli.Context) error {
			return run(c.Context, configPath)
		},
		Commands: []*cli.Command{
			{
				Name:  "token",
				Usage: "issue an admin API bearer token",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "subject",
						Usage:    "name recorded as the actor in the audit log",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "role",
						Value: string(auth.RoleOperator),
						Usage: "viewer, operator or admin",
					},
					&cli.DurationFlag{
						Name:  "ttl",
						Value: auth.DefaultTokenTTL,
						Usage: "token lifetime",
					},
				},
				Action: func(c *cli.Context) error {
					token, err := issueToken(configPath, c.String("subject"), auth.Role(c.String("role")), c.Duration("ttl"))
					if err != nil {
						return err
					}
					fmt.Fprintln(c.App.Writer, token)
					return nil
				},
			},
		},
	}
}

// issueToken signs a token with the API secret from the configuration file.
func issueToken(configPath, subject string, role auth.Role, ttl time.Duration) (string, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return "", fmt.Errorf("loading config: %w", err)
	}
	if cfg.API.Auth.JWTSecret == "" {
		return "", errors.New("api.auth.jwt_secret is not set, the admin API is unauthenticated")
	}

	token, err := auth.GenerateToken(subject, role, cfg.API.Auth.JWTSecret, ttl)
	if err != nil {
		return "", fmt.Errorf("issuing token: %w", err)
	}
	return token, nil
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//   - configPath: Path of the YAML configuration file
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context, configPath string) error {
	log := logging.Default()
	log.Info("starting Gray Logic Toon bridge",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded",
		"path", configPath,
		"bridge_id", cfg.Bridge.ID,
		"toon", cfg.Toon.String(),
	)

	// Channel history (optional)
	var db *database.DB
	var history *devices.SQLiteHistory
	var auditLog audit.Repository
	if cfg.Database.Enabled {
		db, err = database.Open(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()
		if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
			return fmt.Errorf("running migrations: %w", migrateErr)
		}
		history = devices.NewSQLiteHistory(db.DB)
		auditLog = audit.NewSQLiteRepository(db.DB)
		log.Info("database ready", "path", db.Path())

		if cfg.Database.HistoryRetention > 0 {
			retention := time.Duration(cfg.Database.HistoryRetention) * 24 * time.Hour
			go pruneHistoryLoop(ctx, history, retention, log.Component("history"))
		}
	} else {
		log.Info("channel history disabled")
	}

	// Time-series metrics (optional)
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
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	} else {
		log.Info("InfluxDB disabled")
	}

	mqttClient, err := mqtt.Connect(cfg.MQTT, cfg.Bridge.ID)
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
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	bridgeHub := hub.New(hub.Options{
		BridgeID:  cfg.Bridge.ID,
		Version:   version,
		Publisher: mqttClient,
		Logger:    log.Component("hub"),
	})

	sinks := devices.Sinks{
		Publisher: mqttClient,
		Logger:    log.Component("devices"),
	}
	if influxClient != nil {
		sinks.Metrics = influxClient
	}
	if history != nil {
		sinks.History = history
	}
	for _, dc := range cfg.Devices {
		d, devErr := devices.New(dc, sinks)
		if errors.Is(devErr, devices.ErrUnknownType) {
			log.Warn("skipping device of unknown type", "device_id", dc.ID, "type", dc.Type)
			continue
		}
		if devErr != nil {
			return fmt.Errorf("creating device %q: %w", dc.ID, devErr)
		}
		if addErr := bridgeHub.AddDevice(d); addErr != nil {
			return fmt.Errorf("registering device %q: %w", dc.ID, addErr)
		}
	}
	if cfg.API.Auth.JWTSecret == "" {
		log.Warn("api.auth.jwt_secret is not set, the admin API accepts unauthenticated requests")
	}

	log.Info("devices registered", "count", len(bridgeHub.Devices()))

	var apiURL atomic.Value
	apiURL.Store(toonAPIURL(cfg.Toon))

	bridge, err := toon.NewBridge(toon.BridgeOptions{
		Host: bridgeHub,
		NewClient: func(_ toon.Config, tokens oauth2.TokenSource) toon.Collector {
			base, _ := apiURL.Load().(string) //nolint:errcheck // always a string
			return toonapi.New(toonapi.Options{BaseURL: base, TokenSource: tokens})
		},
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		Logger:     log.Component("toon"),
	})
	if err != nil {
		return fmt.Errorf("creating toon bridge: %w", err)
	}
	defer func() {
		log.Info("disposing toon bridge")
		bridge.Dispose()
	}()
	bridgeHub.SetBridge(bridge)

	reporter := hub.NewHealthReporter(bridgeHub, cfg.GetHealthInterval())
	reporter.Start(ctx)
	defer reporter.Stop()

	if err := mqttClient.Subscribe(mqtt.Topics{}.AllCommands(), byte(cfg.MQTT.QoS), bridgeHub.HandleCommand); err != nil {
		return fmt.Errorf("subscribing to commands: %w", err)
	}

	scanner, err := discovery.NewService(discovery.Options{
		BridgeID:  cfg.Bridge.ID,
		Collector: bridge,
		Publisher: mqttClient,
		Inventory: bridgeHub,
		Logger:    log.Component("discovery"),
	})
	if err != nil {
		return fmt.Errorf("creating discovery service: %w", err)
	}

	checks := map[string]api.HealthChecker{"mqtt": mqttClient}
	deps := api.Deps{
		Config:    cfg.API,
		Logger:    log.Component("api"),
		Bridge:    bridge,
		Devices:   bridgeHub,
		Discovery: scanner,
		Checks:    checks,
		Version:   version,
	}
	if db != nil {
		checks["database"] = db
		deps.History = history
		deps.Database = db
		deps.Audit = auditLog
	}
	if influxClient != nil {
		checks["influxdb"] = influxClient
	}

	server, err := api.New(deps)
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

	if err := bridge.Initialize(ctx, toonConfig(cfg.Toon)); err != nil {
		return fmt.Errorf("initializing toon bridge: %w", err)
	}
	log.Info("initialisation complete, waiting for shutdown signal",
		"status", bridge.Status().String(),
		"callback", cfg.API.PublicURL+toon.CallbackPath,
	)

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			log.Info("shutdown signal received, cleaning up")
			return nil
		case <-hup:
			reloadToon(ctx, configPath, bridge, &apiURL, auditLog, log)
		}
	}
}

// reloadToon re-reads the configuration file and re-initializes the bridge
// with its toon section. A file that fails to load keeps the running
// configuration.
func reloadToon(ctx context.Context, path string, bridge *toon.Bridge, apiURL *atomic.Value, auditLog audit.Repository, log *logging.Logger) {
	cfg, err := config.Load(path)
	if err != nil {
		log.Warn("config reload failed, keeping current configuration", "error", err)
		return
	}

	apiURL.Store(toonAPIURL(cfg.Toon))
	if err := bridge.Initialize(ctx, toonConfig(cfg.Toon)); err != nil {
		log.Error("re-initializing toon bridge failed", "error", err)
		return
	}
	log.Info("toon configuration reloaded", "toon", cfg.Toon.String())

	if auditLog != nil {
		entry := &audit.Entry{
			Action:     audit.ActionConfigReload,
			EntityType: audit.EntityBridge,
			Source:     audit.SourceSignal,
			Details:    map[string]any{"path": path, "toon_section": cfg.Toon != nil},
		}
		if err := auditLog.Create(ctx, entry); err != nil {
			log.Warn("failed to write audit entry", "error", err)
		}
	}
}

// pruneHistoryLoop deletes history older than retention until ctx ends.
func pruneHistoryLoop(ctx context.Context, history *devices.SQLiteHistory, retention time.Duration, log *logging.Logger) {
	ticker := time.NewTicker(historyPruneInterval)
	defer ticker.Stop()

	for {
		n, err := history.Prune(ctx, retention)
		switch {
		case err != nil:
			log.Warn("history prune failed", "error", err)
		case n > 0:
			log.Info("history pruned", "rows", n)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// toonConfig converts the file section into bridge configuration. A missing
// section stays nil so the bridge reports the configuration as missing.
func toonConfig(c *config.ToonConfig) *toon.Config {
	if c == nil {
		return nil
	}
	return &toon.Config{
		Username:        c.Username,
		Password:        c.Password,
		ClientID:        c.ClientID,
		ClientSecret:    c.ClientSecret,
		AccessCode:      c.AccessCode,
		AccessToken:     c.AccessToken,
		RefreshInterval: c.RefreshInterval,
		AuthURL:         c.AuthURL,
		TokenURL:        c.TokenURL,
	}
}

func toonAPIURL(c *config.ToonConfig) string {
	if c == nil {
		return ""
	}
	return c.APIURL
}
