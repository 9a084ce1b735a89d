// CasaHub Core - IoT Device Integration & Bridging Layer
//
// This is the main entry point for the CasaHub bridging service. It
// normalises heterogeneous smart-device ecosystems (Tuya, ESP, Midea,
// Shelly, Zigbee, KNX, Philips Hue, Panasonic, Home Assistant) into
// one device model and one message vocabulary on a local MQTT bus.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/casahub/casahub-core/internal/bridges/hass"
	"github.com/casahub/casahub-core/internal/bridges/knx"
	"github.com/casahub/casahub-core/internal/bridges/midea"
	"github.com/casahub/casahub-core/internal/bridges/panasonic"
	"github.com/casahub/casahub-core/internal/bridges/philips"
	"github.com/casahub/casahub-core/internal/bridges/restbridge"
	"github.com/casahub/casahub-core/internal/bridges/zigbee"
	"github.com/casahub/casahub-core/internal/bus"
	"github.com/casahub/casahub-core/internal/device"
	"github.com/casahub/casahub-core/internal/infrastructure/config"
	"github.com/casahub/casahub-core/internal/infrastructure/database"
	"github.com/casahub/casahub-core/internal/infrastructure/history"
	"github.com/casahub/casahub-core/internal/infrastructure/logging"
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

// defaultHouseholdID scopes registrations made by the bridges running
// in this process. Multi-household deployments run one bridge set per
// household through the tenant pool.
const defaultHouseholdID = "default"

func main() {
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
	log.Info("starting CasaHub Core",
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

	// Open the registration database
	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	if err := db.Bootstrap(ctx, device.Schema); err != nil {
		return fmt.Errorf("bootstrapping schema: %w", err)
	}
	log.Info("database connected", "path", cfg.Database.Path)

	store := device.NewSQLiteStore(db.DB)

	// Connect the bus pool; bridges share the pool's shared client,
	// tenant clients are created lazily by the application layer.
	pool := bus.NewPool(cfg.Bus, nil)
	pool.SetLogger(log.With("component", "bus"))
	shared := pool.Shared()
	if err := shared.Connect(); err != nil {
		return fmt.Errorf("connecting to bus: %w", err)
	}
	defer func() {
		log.Info("closing bus pool")
		pool.Close()
	}()
	log.Info("bus connected",
		"broker", fmt.Sprintf("%s:%d", cfg.Bus.Broker.Host, cfg.Bus.Broker.Port),
		"client_id", cfg.Bus.Broker.ClientID,
	)

	shared.SetOnConnect(func() {
		log.Info("bus reconnected")
	})
	shared.SetOnDisconnect(func(err error) {
		log.Warn("bus disconnected", "error", err)
	})

	// Connect history (optional)
	var rec history.Recorder
	histClient, histErr := history.Connect(cfg.History)
	switch {
	case errors.Is(histErr, history.ErrDisabled):
		log.Info("history disabled")
	case histErr != nil:
		return fmt.Errorf("connecting to history: %w", histErr)
	default:
		defer func() {
			log.Info("closing history connection")
			if closeErr := histClient.Close(); closeErr != nil {
				log.Error("error closing history", "error", closeErr)
			}
		}()
		histClient.SetOnError(func(err error) {
			log.Error("history write error", "error", err)
		})
		rec = histClient
		log.Info("history connected", "url", cfg.History.URL, "bucket", cfg.History.Bucket)
	}

	// Start polling bridges for the enabled cloud vendors
	type namedBridge struct {
		name   string
		bridge *restbridge.Bridge
	}
	var polling []namedBridge
	if cfg.Vendors.Philips.Enabled {
		polling = append(polling, namedBridge{"philips",
			philips.New(cfg.Vendors.Philips, defaultHouseholdID, shared, store, rec, log)})
	}
	if cfg.Vendors.Panasonic.Enabled {
		polling = append(polling, namedBridge{"panasonic",
			panasonic.New(cfg.Vendors.Panasonic, defaultHouseholdID, shared, store, rec, log)})
	}
	if cfg.Vendors.HomeAssistant.Enabled {
		polling = append(polling, namedBridge{"hass",
			hass.New(cfg.Vendors.HomeAssistant, defaultHouseholdID, shared, store, rec, log)})
	}
	if cfg.Vendors.Midea.Enabled {
		polling = append(polling, namedBridge{"midea",
			midea.New(cfg.Vendors.Midea, defaultHouseholdID, shared, store, rec, log)})
	}
	for _, nb := range polling {
		if startErr := nb.bridge.Start(); startErr != nil {
			return fmt.Errorf("starting %s bridge: %w", nb.name, startErr)
		}
		defer func(nb namedBridge) {
			log.Info("stopping bridge", "vendor", nb.name)
			nb.bridge.Stop()
		}(nb)
	}

	// Start discovery bridges for the enabled gateways
	if cfg.Vendors.Zigbee.Enabled {
		zb := zigbee.New(defaultHouseholdID, shared, store, rec, log)
		if startErr := zb.Start(); startErr != nil {
			return fmt.Errorf("starting zigbee bridge: %w", startErr)
		}
		defer func() {
			log.Info("stopping bridge", "vendor", "zigbee")
			zb.Stop()
		}()
	}
	if cfg.Vendors.KNX.Enabled {
		kb := knx.New(defaultHouseholdID, shared, store, rec, log)
		if startErr := kb.Start(); startErr != nil {
			return fmt.Errorf("starting knx bridge: %w", startErr)
		}
		defer func() {
			log.Info("stopping bridge", "vendor", "knx")
			kb.Stop()
		}()
	}

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse order: bridges stop first, then
	// the bus pool disconnects, then history flushes, then the
	// database closes.

	log.Info("CasaHub Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses CASAHUB_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("CASAHUB_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
