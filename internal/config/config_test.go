package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultScanInterval, cfg.ScanInterval)
	assert.Equal(t, 5*time.Minute, cfg.GetScanInterval())
	assert.Equal(t, 10*time.Second, cfg.GetAPITimeout())
	assert.Equal(t, "sqlite", cfg.GetCacheBackend())
	assert.Equal(t, "homeassistant", cfg.GetMQTTDiscoveryPrefix())
	assert.Equal(t, "eco2mix", cfg.GetMQTTTopicPrefix())
	assert.Empty(t, cfg.Sensors)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
scan_interval: 2
sensors:
  - consumption
  - wind_percentage
api:
  timeout: 30s
cache:
  backend: redis
  redis:
    addr: redis:6379
    db: 3
mqtt:
  enabled: true
  broker: mqtt.local:1883
  topic_prefix: grid
home_assistant:
  enabled: true
  url: http://ha.local:8123
  token: secret
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2*time.Minute, cfg.GetScanInterval())
	assert.Equal(t, []string{"consumption", "wind_percentage"}, cfg.Sensors)
	assert.Equal(t, 30*time.Second, cfg.GetAPITimeout())
	assert.Equal(t, "redis", cfg.GetCacheBackend())
	assert.Equal(t, "redis:6379", cfg.Cache.Redis.Addr)
	assert.Equal(t, 3, cfg.Cache.Redis.DB)
	assert.True(t, cfg.MQTT.Enabled)
	assert.Equal(t, "mqtt.local:1883", cfg.MQTT.Broker)
	assert.Equal(t, "grid", cfg.GetMQTTTopicPrefix())
	assert.Equal(t, "homeassistant", cfg.GetMQTTDiscoveryPrefix())
	assert.Equal(t, "secret", cfg.HomeAssistant.Token)
	assert.NoError(t, cfg.Validate())
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	path := writeConfig(t, "scan_interval: 2\n")
	t.Setenv("ECO2MIX_SCAN_INTERVAL", "15")
	t.Setenv("ECO2MIX_MQTT_BROKER", "broker.env:1883")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 15*time.Minute, cfg.GetScanInterval())
	assert.Equal(t, "broker.env:1883", cfg.MQTT.Broker)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "scan_interval: [unclosed\n")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := &Config{
		ScanInterval: 1,
		Sensors:      []string{"total_production"},
		API:          APIConfig{Timeout: 20 * time.Second},
	}

	require.NoError(t, Save(path, cfg))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	got, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 20*time.Second, loaded.GetAPITimeout())
	assert.Equal(t, time.Minute, loaded.GetScanInterval())
}

func TestReadMissingFile(t *testing.T) {
	cfg, err := Read(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, &Config{}, cfg)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "zero value", cfg: Config{}},
		{name: "minimum interval", cfg: Config{ScanInterval: 1}},
		{name: "negative interval", cfg: Config{ScanInterval: -3}, wantErr: true},
		{name: "unknown backend", cfg: Config{Cache: CacheConfig{Backend: "memcached"}}, wantErr: true},
		{name: "redis without addr", cfg: Config{Cache: CacheConfig{Backend: "redis"}}, wantErr: true},
		{name: "mqtt without broker", cfg: Config{MQTT: MQTTConfig{Enabled: true}}, wantErr: true},
		{name: "home assistant without token", cfg: Config{HomeAssistant: HAConfig{Enabled: true, URL: "http://ha"}}, wantErr: true},
		{name: "home assistant complete", cfg: Config{HomeAssistant: HAConfig{Enabled: true, URL: "http://ha", Token: "t"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
