package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment names recognised in the top-level "environment" key.
const (
	EnvProduction  = "production"
	EnvDevelopment = "development"
)

// Config is the root configuration structure for CasaHub Core.
// All configuration is loaded from YAML and can be overridden by
// CASAHUB_* environment variables.
type Config struct {
	Environment string         `yaml:"environment"`
	Bus         BusConfig      `yaml:"bus"`
	Database    DatabaseConfig `yaml:"database"`
	History     HistoryConfig  `yaml:"history"`
	Logging     LoggingConfig  `yaml:"logging"`
	Vendors     VendorsConfig  `yaml:"vendors"`
}

// BusConfig contains local bus (MQTT broker) connection settings.
type BusConfig struct {
	Broker    BrokerConfig    `yaml:"broker"`
	Auth      BusAuthConfig   `yaml:"auth"`
	QoS       int             `yaml:"qos"`
	KeepAlive int             `yaml:"keep_alive"` // seconds
	Reconnect ReconnectConfig `yaml:"reconnect"`

	// ConnectTimeout is the maximum time to wait for the initial
	// connection, in seconds.
	ConnectTimeout int `yaml:"connect_timeout"`

	// TenantUsernamePattern builds the broker username for a household
	// connection; %s is replaced with the household id. Tenant passwords
	// come from the credential source wired in at startup.
	TenantUsernamePattern string `yaml:"tenant_username_pattern"`
}

// BrokerConfig contains broker connection details.
type BrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// BusAuthConfig contains broker authentication credentials for the
// shared (non-tenant) connection.
type BusAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// ReconnectConfig contains reconnection backoff settings (seconds).
type ReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// DatabaseConfig contains SQLite settings for the device registration store.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// HistoryConfig contains InfluxDB settings for device state history.
type HistoryConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"` // seconds
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or text
	Output string `yaml:"output"` // stdout or stderr
}

// VendorsConfig groups the per-vendor bridge settings.
type VendorsConfig struct {
	Philips       PhilipsConfig   `yaml:"philips"`
	Panasonic     PanasonicConfig `yaml:"panasonic"`
	HomeAssistant HassConfig      `yaml:"homeassistant"`
	Midea         MideaConfig     `yaml:"midea"`
	Zigbee        GatewayConfig   `yaml:"zigbee"`
	KNX           GatewayConfig   `yaml:"knx"`
}

// PhilipsConfig configures the Hue-style bridge. The API key is embedded
// in the request path, so there is no separate auth header setting.
type PhilipsConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Host         string `yaml:"host"` // e.g. http://192.168.1.50
	APIKey       string `yaml:"api_key"`
	BridgeID     string `yaml:"bridge_id"`
	PollInterval int    `yaml:"poll_interval"` // seconds
}

// PanasonicConfig configures the generic cloud bridge authenticated via
// an API-key header.
type PanasonicConfig struct {
	Enabled      bool   `yaml:"enabled"`
	BaseURL      string `yaml:"base_url"`
	APIKey       string `yaml:"api_key"`
	PollInterval int    `yaml:"poll_interval"`
}

// HassConfig configures the Home Assistant bridge authenticated via a
// long-lived bearer token.
type HassConfig struct {
	Enabled      bool   `yaml:"enabled"`
	BaseURL      string `yaml:"base_url"`
	Token        string `yaml:"token"`
	PollInterval int    `yaml:"poll_interval"`
}

// MideaConfig configures the legacy protocol-5.0 cloud bridge. The app
// key travels as a query parameter on a single fixed endpoint.
type MideaConfig struct {
	Enabled      bool   `yaml:"enabled"`
	BaseURL      string `yaml:"base_url"`
	AppKey       string `yaml:"app_key"`
	PollInterval int    `yaml:"poll_interval"`
}

// GatewayConfig configures a discovery bridge for an MQTT-native gateway
// (zigbee2mqtt, knx2mqtt).
type GatewayConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default values applied by Load when the YAML omits them.
const (
	defaultQoS              = 1
	defaultKeepAlive        = 60
	defaultConnectTimeout   = 10
	defaultInitialDelay     = 1
	defaultMaxDelay         = 60
	defaultBusyTimeout      = 5
	defaultPollInterval     = 10
	defaultHuePollInterval  = 5
	defaultBatchSize        = 100
	defaultFlushInterval    = 10
)

// Load reads, defaults, overrides and validates configuration.
//
// Order of precedence (lowest to highest):
//  1. Environment-specific defaults (production vs development)
//  2. Values from the YAML file
//  3. CASAHUB_* environment variables
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from operator CLI/env
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyDefaults(cfg)
	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// applyDefaults fills in zero values, with production/development splits
// for the broker client id and logging sections.
func applyDefaults(cfg *Config) {
	if cfg.Environment == "" {
		cfg.Environment = EnvProduction
	}
	dev := cfg.Environment == EnvDevelopment

	if cfg.Bus.Broker.Host == "" {
		cfg.Bus.Broker.Host = "127.0.0.1"
	}
	if cfg.Bus.Broker.Port == 0 {
		cfg.Bus.Broker.Port = 1883
	}
	if cfg.Bus.Broker.ClientID == "" {
		if dev {
			cfg.Bus.Broker.ClientID = "casahub-dev"
		} else {
			cfg.Bus.Broker.ClientID = "casahub-core"
		}
	}
	if cfg.Bus.QoS == 0 {
		cfg.Bus.QoS = defaultQoS
	}
	if cfg.Bus.KeepAlive == 0 {
		cfg.Bus.KeepAlive = defaultKeepAlive
	}
	if cfg.Bus.ConnectTimeout == 0 {
		cfg.Bus.ConnectTimeout = defaultConnectTimeout
	}
	if cfg.Bus.Reconnect.InitialDelay == 0 {
		cfg.Bus.Reconnect.InitialDelay = defaultInitialDelay
	}
	if cfg.Bus.Reconnect.MaxDelay == 0 {
		cfg.Bus.Reconnect.MaxDelay = defaultMaxDelay
	}
	if cfg.Bus.TenantUsernamePattern == "" {
		cfg.Bus.TenantUsernamePattern = "household-%s"
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/casahub.db"
	}
	if cfg.Database.BusyTimeout == 0 {
		cfg.Database.BusyTimeout = defaultBusyTimeout
	}

	if cfg.History.BatchSize == 0 {
		cfg.History.BatchSize = defaultBatchSize
	}
	if cfg.History.FlushInterval == 0 {
		cfg.History.FlushInterval = defaultFlushInterval
	}

	if cfg.Logging.Level == "" {
		if dev {
			cfg.Logging.Level = "debug"
		} else {
			cfg.Logging.Level = "info"
		}
	}
	if cfg.Logging.Format == "" {
		if dev {
			cfg.Logging.Format = "text"
		} else {
			cfg.Logging.Format = "json"
		}
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	// Hue bridges tolerate tighter polling than the cloud vendors.
	if cfg.Vendors.Philips.PollInterval == 0 {
		cfg.Vendors.Philips.PollInterval = defaultHuePollInterval
	}
	if cfg.Vendors.Philips.BridgeID == "" {
		cfg.Vendors.Philips.BridgeID = "bridge1"
	}
	for _, iv := range []*int{
		&cfg.Vendors.Panasonic.PollInterval,
		&cfg.Vendors.HomeAssistant.PollInterval,
		&cfg.Vendors.Midea.PollInterval,
	} {
		if *iv == 0 {
			*iv = defaultPollInterval
		}
	}
}

// applyEnvOverrides applies CASAHUB_* environment variables on top of the
// file values. Only operationally sensitive settings are overridable;
// structural settings (vendor enables, poll intervals) stay in the file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CASAHUB_ENV"); v != "" {
		cfg.Environment = v
	}
	if v := os.Getenv("CASAHUB_BUS_HOST"); v != "" {
		cfg.Bus.Broker.Host = v
	}
	if v := os.Getenv("CASAHUB_BUS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Bus.Broker.Port = port
		}
	}
	if v := os.Getenv("CASAHUB_BUS_USERNAME"); v != "" {
		cfg.Bus.Auth.Username = v
	}
	if v := os.Getenv("CASAHUB_BUS_PASSWORD"); v != "" {
		cfg.Bus.Auth.Password = v
	}
	if v := os.Getenv("CASAHUB_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("CASAHUB_HISTORY_TOKEN"); v != "" {
		cfg.History.Token = v
	}
	if v := os.Getenv("CASAHUB_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("CASAHUB_PHILIPS_API_KEY"); v != "" {
		cfg.Vendors.Philips.APIKey = v
	}
	if v := os.Getenv("CASAHUB_PANASONIC_API_KEY"); v != "" {
		cfg.Vendors.Panasonic.APIKey = v
	}
	if v := os.Getenv("CASAHUB_HASS_TOKEN"); v != "" {
		cfg.Vendors.HomeAssistant.Token = v
	}
	if v := os.Getenv("CASAHUB_MIDEA_APP_KEY"); v != "" {
		cfg.Vendors.Midea.AppKey = v
	}
}

// Validate checks the configuration for setup defects. Missing vendor
// credentials for an enabled bridge are rejected here rather than
// silently skipped at poll time: they indicate a setup defect, not a
// transient condition.
func (c *Config) Validate() error {
	if c.Environment != EnvProduction && c.Environment != EnvDevelopment {
		return fmt.Errorf("environment must be %q or %q, got %q",
			EnvProduction, EnvDevelopment, c.Environment)
	}
	if c.Bus.Broker.Port < 1 || c.Bus.Broker.Port > 65535 {
		return fmt.Errorf("bus.broker.port must be 1-65535, got %d", c.Bus.Broker.Port)
	}
	if c.Bus.QoS < 0 || c.Bus.QoS > 2 {
		return fmt.Errorf("bus.qos must be 0, 1 or 2, got %d", c.Bus.QoS)
	}
	if !strings.Contains(c.Bus.TenantUsernamePattern, "%s") {
		return fmt.Errorf("bus.tenant_username_pattern must contain %%s")
	}

	if c.Vendors.Philips.Enabled {
		if c.Vendors.Philips.Host == "" {
			return fmt.Errorf("vendors.philips.host is required when enabled")
		}
		if c.Vendors.Philips.APIKey == "" {
			return fmt.Errorf("vendors.philips.api_key is required when enabled")
		}
	}
	if c.Vendors.Panasonic.Enabled {
		if c.Vendors.Panasonic.BaseURL == "" {
			return fmt.Errorf("vendors.panasonic.base_url is required when enabled")
		}
		if c.Vendors.Panasonic.APIKey == "" {
			return fmt.Errorf("vendors.panasonic.api_key is required when enabled")
		}
	}
	if c.Vendors.HomeAssistant.Enabled {
		if c.Vendors.HomeAssistant.BaseURL == "" {
			return fmt.Errorf("vendors.homeassistant.base_url is required when enabled")
		}
		if c.Vendors.HomeAssistant.Token == "" {
			return fmt.Errorf("vendors.homeassistant.token is required when enabled")
		}
	}
	if c.Vendors.Midea.Enabled {
		if c.Vendors.Midea.BaseURL == "" {
			return fmt.Errorf("vendors.midea.base_url is required when enabled")
		}
		if c.Vendors.Midea.AppKey == "" {
			return fmt.Errorf("vendors.midea.app_key is required when enabled")
		}
	}
	if c.History.Enabled {
		if c.History.URL == "" {
			return fmt.Errorf("history.url is required when enabled")
		}
		if c.History.Token == "" {
			return fmt.Errorf("history.token is required when enabled")
		}
	}

	return nil
}
