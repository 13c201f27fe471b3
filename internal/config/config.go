// Package config loads the service configuration: defaults, then an
// optional YAML file, then environment overrides, then validation.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sloppy/homenetsafe/internal/scope"
)

// Config is the root configuration.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	Inventory InventoryConfig `yaml:"inventory"`
	Notify    NotifyConfig    `yaml:"notify"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
}

// DatabaseConfig locates the SQLite file.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoggingConfig controls the zerolog logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// InventoryConfig tunes derived device fields.
type InventoryConfig struct {
	StaleAfter time.Duration `yaml:"stale_after"`
}

// NotifyConfig tunes the notice channel.
type NotifyConfig struct {
	DisplayDuration time.Duration `yaml:"display_duration"`
}

// DiscoveryConfig restricts and drives discovery.
type DiscoveryConfig struct {
	Scope   []string   `yaml:"scope"`
	Exclude []string   `yaml:"exclude"`
	MDNS    MDNSConfig `yaml:"mdns"`
}

// MDNSConfig controls the mDNS scanner used by the scan action.
type MDNSConfig struct {
	Enabled bool          `yaml:"enabled"`
	Service string        `yaml:"service"`
	Domain  string        `yaml:"domain"`
	Timeout time.Duration `yaml:"timeout"`
}

// MQTTConfig controls the optional notice fan-out.
type MQTTConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Topic    string `yaml:"topic"`
	QoS      int    `yaml:"qos"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Load builds the configuration. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "homenetsafe.db"},
		Server:   ServerConfig{Host: "127.0.0.1", Port: 8080},
		Logging:  LoggingConfig{Level: "info", Format: "json", Output: "stderr"},
		Inventory: InventoryConfig{
			StaleAfter: 24 * time.Hour,
		},
		Notify: NotifyConfig{DisplayDuration: 4 * time.Second},
		Discovery: DiscoveryConfig{
			MDNS: MDNSConfig{
				Service: "_http._tcp",
				Domain:  "local.",
				Timeout: 3 * time.Second,
			},
		},
		MQTT: MQTTConfig{
			ClientID: "homenetsafe",
			Topic:    "homenetsafe/notices",
			QoS:      1,
		},
	}
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("HOMENETSAFE_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("HOMENETSAFE_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("HOMENETSAFE_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if v := os.Getenv("HOMENETSAFE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("HOMENETSAFE_MQTT_BROKER"); v != "" {
		cfg.MQTT.Broker = v
		cfg.MQTT.Enabled = true
	}
	return nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Database.Path) == "" {
		errs = append(errs, errors.New("database.path is required"))
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level %q must be debug, info, warn or error", c.Logging.Level))
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("logging.format %q must be json or console", c.Logging.Format))
	}
	switch c.Logging.Output {
	case "stdout", "stderr":
	default:
		errs = append(errs, fmt.Errorf("logging.output %q must be stdout or stderr", c.Logging.Output))
	}
	if c.Inventory.StaleAfter < 0 {
		errs = append(errs, errors.New("inventory.stale_after must not be negative"))
	}
	if c.Notify.DisplayDuration <= 0 {
		errs = append(errs, errors.New("notify.display_duration must be positive"))
	}
	for _, def := range append(append([]string{}, c.Discovery.Scope...), c.Discovery.Exclude...) {
		if err := scope.Validate(def); err != nil {
			errs = append(errs, err)
		}
	}
	if c.Discovery.MDNS.Enabled && c.Discovery.MDNS.Timeout <= 0 {
		errs = append(errs, errors.New("discovery.mdns.timeout must be positive"))
	}
	if c.MQTT.Enabled {
		if c.MQTT.Broker == "" {
			errs = append(errs, errors.New("mqtt.broker is required when mqtt is enabled"))
		}
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			errs = append(errs, fmt.Errorf("mqtt.qos %d must be 0, 1 or 2", c.MQTT.QoS))
		}
	}
	return errors.Join(errs...)
}
