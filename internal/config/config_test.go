package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "homenetsafe.db", cfg.Database.Path)
	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Addr())
	assert.Equal(t, 24*time.Hour, cfg.Inventory.StaleAfter)
	assert.Equal(t, 4*time.Second, cfg.Notify.DisplayDuration)
	assert.False(t, cfg.MQTT.Enabled)
	assert.False(t, cfg.Discovery.MDNS.Enabled)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
database:
  path: /var/lib/homenetsafe/devices.db
server:
  port: 9090
logging:
  level: debug
  format: console
inventory:
  stale_after: 2h
notify:
  display_duration: 6s
discovery:
  scope: ["192.168.1.0/24"]
  exclude: ["192.168.1.1"]
  mdns:
    enabled: true
    service: _googlecast._tcp
mqtt:
  enabled: true
  broker: tcp://broker.lan:1883
  qos: 0
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/homenetsafe/devices.db", cfg.Database.Path)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host, "unset keys keep defaults")
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, 2*time.Hour, cfg.Inventory.StaleAfter)
	assert.Equal(t, 6*time.Second, cfg.Notify.DisplayDuration)
	assert.Equal(t, []string{"192.168.1.0/24"}, cfg.Discovery.Scope)
	assert.Equal(t, "_googlecast._tcp", cfg.Discovery.MDNS.Service)
	assert.Equal(t, 3*time.Second, cfg.Discovery.MDNS.Timeout)
	assert.Equal(t, "tcp://broker.lan:1883", cfg.MQTT.Broker)
	assert.Equal(t, 0, cfg.MQTT.QoS)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("HOMENETSAFE_DB_PATH", "/tmp/env.db")
	t.Setenv("HOMENETSAFE_PORT", "8181")
	t.Setenv("HOMENETSAFE_LOG_LEVEL", "warn")
	t.Setenv("HOMENETSAFE_MQTT_BROKER", "tcp://mqtt:1883")

	cfg, err := Load(writeConfig(t, "server:\n  port: 9000\n"))
	require.NoError(t, err)

	assert.Equal(t, "/tmp/env.db", cfg.Database.Path)
	assert.Equal(t, 8181, cfg.Server.Port)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.True(t, cfg.MQTT.Enabled)
	assert.Equal(t, "tcp://mqtt:1883", cfg.MQTT.Broker)
}

func TestEnvPortMustBeNumeric(t *testing.T) {
	t.Setenv("HOMENETSAFE_PORT", "eighty")

	_, err := Load("")
	assert.ErrorContains(t, err, "HOMENETSAFE_PORT")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"empty db path", func(c *Config) { c.Database.Path = " " }, "database.path"},
		{"port range", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"log level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"log output", func(c *Config) { c.Logging.Output = "file" }, "logging.output"},
		{"stale", func(c *Config) { c.Inventory.StaleAfter = -time.Second }, "stale_after"},
		{"notice duration", func(c *Config) { c.Notify.DisplayDuration = 0 }, "display_duration"},
		{"scope", func(c *Config) { c.Discovery.Scope = []string{"lan"} }, "lan"},
		{"mdns timeout", func(c *Config) { c.Discovery.MDNS.Enabled = true; c.Discovery.MDNS.Timeout = 0 }, "mdns.timeout"},
		{"mqtt broker", func(c *Config) { c.MQTT.Enabled = true }, "mqtt.broker"},
		{"mqtt qos", func(c *Config) { c.MQTT.Enabled = true; c.MQTT.Broker = "tcp://x:1"; c.MQTT.QoS = 3 }, "mqtt.qos"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	assert.NoError(t, Default().Validate())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorContains(t, err, "reading config file")
}
