package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the DHD800 bridge.
// All configuration is loaded from YAML and can be overridden by
// environment variables.
type Config struct {
	Instance  InstanceConfig  `yaml:"instance"`
	Projector ProjectorConfig `yaml:"projector"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	Database  DatabaseConfig  `yaml:"database"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// InstanceConfig identifies this bridge instance. The ID is used in
// MQTT topics so several projectors can be bridged side by side.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// ProjectorConfig contains the device connection settings.
type ProjectorConfig struct {
	// Host is the projector hostname or IP address. May be empty at
	// startup; control actions fail with a logged error until set.
	Host string `yaml:"host"`

	// Port is the projector control port. Default: 10000.
	Port int `yaml:"port"`

	// Password for the control connection. Empty is valid.
	Password string `yaml:"password"`

	// PollIntervalSeconds is how often device state is polled.
	// Default: 30.
	PollIntervalSeconds int `yaml:"poll_interval_seconds"`

	// LingerMilliseconds is the post-command grace period before the
	// socket is closed. Default: 1000.
	LingerMilliseconds int `yaml:"linger_milliseconds"`

	// DialTimeoutSeconds is the TCP connect timeout. Default: 10.
	DialTimeoutSeconds int `yaml:"dial_timeout_seconds"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker MQTTBrokerConfig `yaml:"broker"`
	Auth   MQTTAuthConfig   `yaml:"auth"`

	// QoS for bridge publishes and subscriptions. Retained state and
	// command delivery need at-least-once, so 0 is rejected.
	QoS int `yaml:"qos"`

	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings (seconds).
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// DatabaseConfig contains SQLite state-history settings.
type DatabaseConfig struct {
	// Enabled turns the local state-history store on.
	Enabled bool `yaml:"enabled"`

	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// InfluxDBConfig contains InfluxDB telemetry settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment
// variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: DHD800_SECTION_KEY
// For example: DHD800_PROJECTOR_HOST, DHD800_MQTT_PASSWORD
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Instance: InstanceConfig{
			ID: "dhd800",
		},
		Projector: ProjectorConfig{
			Port:                10000,
			PollIntervalSeconds: 30,
			LingerMilliseconds:  1000,
			DialTimeoutSeconds:  10,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "dhd800-bridge",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		Database: DatabaseConfig{
			Path:        "./data/dhd800.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides.
// Environment variables follow the pattern: DHD800_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Projector
	if v := os.Getenv("DHD800_PROJECTOR_HOST"); v != "" {
		cfg.Projector.Host = v
	}
	if v := os.Getenv("DHD800_PROJECTOR_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Projector.Port = port
		}
	}
	if v := os.Getenv("DHD800_PROJECTOR_PASSWORD"); v != "" {
		cfg.Projector.Password = v
	}

	// MQTT
	if v := os.Getenv("DHD800_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("DHD800_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("DHD800_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// Database
	if v := os.Getenv("DHD800_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// InfluxDB
	if v := os.Getenv("DHD800_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.Instance.ID == "" {
		errs = append(errs, "instance.id is required")
	}

	if c.Projector.Port < 1 || c.Projector.Port > 65535 {
		errs = append(errs, "projector.port must be between 1 and 65535")
	}
	if c.Projector.PollIntervalSeconds < 1 {
		errs = append(errs, "projector.poll_interval_seconds must be at least 1")
	}
	if c.Projector.LingerMilliseconds < 0 {
		errs = append(errs, "projector.linger_milliseconds must not be negative")
	}

	if c.MQTT.QoS < 1 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 1 or 2")
	}

	if c.Database.Enabled && c.Database.Path == "" {
		errs = append(errs, "database.path is required when database is enabled")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetPollInterval returns the poll interval as a Duration.
func (c *Config) GetPollInterval() time.Duration {
	return time.Duration(c.Projector.PollIntervalSeconds) * time.Second
}

// GetLinger returns the post-command linger delay as a Duration.
func (c *Config) GetLinger() time.Duration {
	return time.Duration(c.Projector.LingerMilliseconds) * time.Millisecond
}

// GetDialTimeout returns the TCP connect timeout as a Duration.
func (c *Config) GetDialTimeout() time.Duration {
	return time.Duration(c.Projector.DialTimeoutSeconds) * time.Second
}
