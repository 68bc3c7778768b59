package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "RFSOCKET_"

// DefaultPath is used when RFSOCKET_CONFIG is unset.
const DefaultPath = "configs/config.yaml"

// Config is the root configuration structure for RF Socket Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Store       StoreConfig       `yaml:"store" envPrefix:"STORE_"`
	Registry    RegistryConfig    `yaml:"registry" envPrefix:"REGISTRY_"`
	Transmitter TransmitterConfig `yaml:"transmitter" envPrefix:"TRANSMITTER_"`
	Database    DatabaseConfig    `yaml:"database" envPrefix:"DATABASE_"`
	MQTT        MQTTConfig        `yaml:"mqtt" envPrefix:"MQTT_"`
	API         APIConfig         `yaml:"api" envPrefix:"API_"`
	WebSocket   WebSocketConfig   `yaml:"websocket" envPrefix:"WEBSOCKET_"`
	InfluxDB    InfluxDBConfig    `yaml:"influxdb" envPrefix:"INFLUXDB_"`
	Metrics     MetricsConfig     `yaml:"metrics" envPrefix:"METRICS_"`
	Logging     LoggingConfig     `yaml:"logging" envPrefix:"LOG_"`
	Security    SecurityConfig    `yaml:"security" envPrefix:"SECURITY_"`
}

// StoreConfig locates the JSON datasets (sockets, users).
type StoreConfig struct {
	DataDir string `yaml:"data_dir" env:"DATA_DIR"`
}

// RegistryConfig holds the defaults written into a freshly created socket dataset.
// Once the dataset exists, its own values win.
type RegistryConfig struct {
	DefaultBits   int `yaml:"default_bits" env:"DEFAULT_BITS"`
	DefaultRepeat int `yaml:"default_repeat" env:"DEFAULT_REPEAT"`
	AllOffCode    int `yaml:"all_off_code" env:"ALL_OFF_CODE"`
}

// TransmitterConfig describes the external program that drives the radio.
type TransmitterConfig struct {
	Binary  string   `yaml:"binary" env:"BINARY"`
	Args    []string `yaml:"args" env:"ARGS" envSeparator:" "`
	WorkDir string   `yaml:"work_dir" env:"WORK_DIR"`
	Pin     int      `yaml:"pin" env:"PIN"`
	// Timeout bounds a single transmission, in seconds.
	Timeout int `yaml:"timeout" env:"TIMEOUT"`
}

// DatabaseConfig contains SQLite database settings for the audit log.
type DatabaseConfig struct {
	Path        string `yaml:"path" env:"PATH"`
	WALMode     bool   `yaml:"wal_mode" env:"WAL_MODE"`
	BusyTimeout int    `yaml:"busy_timeout" env:"BUSY_TIMEOUT"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled" env:"ENABLED"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos" env:"QOS"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect" envPrefix:"RECONNECT_"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host" env:"HOST"`
	Port     int    `yaml:"port" env:"PORT"`
	TLS      bool   `yaml:"tls" env:"TLS"`
	ClientID string `yaml:"client_id" env:"CLIENT_ID"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username" env:"USERNAME"`
	Password string `yaml:"password" env:"PASSWORD"`
}

// MQTTReconnectConfig contains MQTT reconnection settings, in seconds.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay" env:"INITIAL_DELAY"`
	MaxDelay     int `yaml:"max_delay" env:"MAX_DELAY"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host" env:"HOST"`
	Port     int              `yaml:"port" env:"PORT"`
	TLS      TLSConfig        `yaml:"tls" envPrefix:"TLS_"`
	Timeouts APITimeoutConfig `yaml:"timeouts" envPrefix:"TIMEOUT_"`
	CORS     CORSConfig       `yaml:"cors" envPrefix:"CORS_"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled" env:"ENABLED"`
	CertFile string `yaml:"cert_file" env:"CERT_FILE"`
	KeyFile  string `yaml:"key_file" env:"KEY_FILE"`
}

// APITimeoutConfig contains HTTP timeout settings, in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read" env:"READ"`
	Write int `yaml:"write" env:"WRITE"`
	Idle  int `yaml:"idle" env:"IDLE"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" env:"ALLOWED_ORIGINS" envSeparator:","`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size" env:"MAX_MESSAGE_SIZE"`
	PingInterval   int `yaml:"ping_interval" env:"PING_INTERVAL"`
	PongTimeout    int `yaml:"pong_timeout" env:"PONG_TIMEOUT"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled" env:"ENABLED"`
	URL           string `yaml:"url" env:"URL"`
	Token         string `yaml:"token" env:"TOKEN"`
	Org           string `yaml:"org" env:"ORG"`
	Bucket        string `yaml:"bucket" env:"BUCKET"`
	BatchSize     int    `yaml:"batch_size" env:"BATCH_SIZE"`
	FlushInterval int    `yaml:"flush_interval" env:"FLUSH_INTERVAL"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled" env:"ENABLED"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string            `yaml:"level" env:"LEVEL"`
	Format string            `yaml:"format" env:"FORMAT"`
	Output string            `yaml:"output" env:"OUTPUT"`
	File   FileLoggingConfig `yaml:"file" envPrefix:"FILE_"`
}

// FileLoggingConfig contains file-based logging settings.
// MaxSize is in megabytes and MaxAge in days.
type FileLoggingConfig struct {
	Path       string `yaml:"path" env:"PATH"`
	MaxSize    int    `yaml:"max_size" env:"MAX_SIZE"`
	MaxBackups int    `yaml:"max_backups" env:"MAX_BACKUPS"`
	MaxAge     int    `yaml:"max_age" env:"MAX_AGE"`
	Compress   bool   `yaml:"compress" env:"COMPRESS"`
}

// SecurityConfig contains security settings.
type SecurityConfig struct {
	JWT JWTConfig `yaml:"jwt" envPrefix:"JWT_"`
	// AdminPassword seeds the initial admin account. When empty on first
	// start a random password is generated and logged once.
	AdminPassword string `yaml:"admin_password" env:"ADMIN_PASSWORD"`
}

// JWTConfig contains JWT token settings.
type JWTConfig struct {
	Secret string `yaml:"secret" env:"SECRET"`
	// AccessTokenTTL is in minutes.
	AccessTokenTTL int `yaml:"access_token_ttl" env:"ACCESS_TOKEN_TTL"`
}

// Path returns the configuration file location: RFSOCKET_CONFIG, or DefaultPath.
func Path() string {
	if p := os.Getenv(EnvPrefix + "CONFIG"); p != "" {
		return p
	}
	return DefaultPath
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: RFSOCKET_SECTION_KEY
// For example: RFSOCKET_TRANSMITTER_PIN, RFSOCKET_API_PORT
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			DataDir: "./data",
		},
		Registry: RegistryConfig{
			DefaultBits:   24,
			DefaultRepeat: 5,
			AllOffCode:    1234,
		},
		Transmitter: TransmitterConfig{
			Binary:  "python3",
			Args:    []string{"trans/trans-xy.py"},
			Pin:     17,
			Timeout: 10,
		},
		Database: DatabaseConfig{
			Path:        "./data/audit.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "rfsocket-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		InfluxDB: InfluxDBConfig{
			Bucket:        "rfsocket",
			BatchSize:     100,
			FlushInterval: 10,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
			File: FileLoggingConfig{
				Path:       "./logs/rfsocket.log",
				MaxSize:    10,
				MaxBackups: 5,
				MaxAge:     30,
			},
		},
		Security: SecurityConfig{
			JWT: JWTConfig{
				AccessTokenTTL: 60,
			},
		},
	}
}

// applyEnvOverrides applies RFSOCKET_* environment variables on top of cfg.
// Variables that are not set leave the file value untouched.
func applyEnvOverrides(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parsing environment overrides: %w", err)
	}
	return nil
}

// Validate checks the configuration for errors and security issues.
// Every problem is reported, not just the first.
func (c *Config) Validate() error {
	var errs []string

	if c.Store.DataDir == "" {
		errs = append(errs, "store.data_dir is required")
	}

	if c.Registry.DefaultBits < 4 || c.Registry.DefaultBits > 256 {
		errs = append(errs, "registry.default_bits must be between 4 and 256")
	}
	if c.Registry.DefaultRepeat < 1 {
		errs = append(errs, "registry.default_repeat must be at least 1")
	}
	if c.Registry.AllOffCode < 0 {
		errs = append(errs, "registry.all_off_code must not be negative")
	}

	if c.Transmitter.Binary == "" {
		errs = append(errs, "transmitter.binary is required")
	}
	if c.Transmitter.Pin < 0 {
		errs = append(errs, "transmitter.pin must not be negative")
	}
	if c.Transmitter.Timeout < 1 {
		errs = append(errs, "transmitter.timeout must be at least 1 second")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Enabled && c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required when mqtt is enabled")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	switch c.Logging.Output {
	case "stdout", "stderr":
	case "file":
		if c.Logging.File.Path == "" {
			errs = append(errs, "logging.file.path is required when logging.output is file")
		}
	default:
		errs = append(errs, "logging.output must be stdout, stderr, or file")
	}

	const minJWTSecretLength = 32
	if c.Security.JWT.Secret == "" {
		errs = append(errs, "security.jwt.secret is required (set RFSOCKET_SECURITY_JWT_SECRET environment variable)")
	} else if len(c.Security.JWT.Secret) < minJWTSecretLength {
		errs = append(errs, "security.jwt.secret must be at least 32 characters for adequate security")
	}
	if c.Security.JWT.AccessTokenTTL < 1 {
		errs = append(errs, "security.jwt.access_token_ttl must be at least 1 minute")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// GetTransmitTimeout returns the per-transmission timeout as a Duration.
func (c *Config) GetTransmitTimeout() time.Duration {
	return time.Duration(c.Transmitter.Timeout) * time.Second
}

// GetAccessTokenTTL returns the access token lifetime as a Duration.
func (c *Config) GetAccessTokenTTL() time.Duration {
	return time.Duration(c.Security.JWT.AccessTokenTTL) * time.Minute
}
