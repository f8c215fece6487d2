package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultScanInterval is the polling interval in minutes
	DefaultScanInterval = 5
	// MinScanInterval is the shortest polling interval accepted, in minutes
	MinScanInterval = 1

	envPrefix = "ECO2MIX"
)

// Config holds the application configuration
type Config struct {
	ScanInterval  int         `mapstructure:"scan_interval"  yaml:"scan_interval,omitempty"` // minutes
	Sensors       []string    `mapstructure:"sensors"        yaml:"sensors,omitempty"`       // exposed sensor keys, empty = defaults
	API           APIConfig   `mapstructure:"api"            yaml:"api,omitempty"`
	Cache         CacheConfig `mapstructure:"cache"          yaml:"cache,omitempty"`
	MQTT          MQTTConfig  `mapstructure:"mqtt"           yaml:"mqtt,omitempty"`
	HomeAssistant HAConfig    `mapstructure:"home_assistant" yaml:"home_assistant,omitempty"`
}

// APIConfig holds the upstream open data API settings
type APIConfig struct {
	URL     string        `mapstructure:"url"     yaml:"url,omitempty"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout,omitempty"`
}

// CacheConfig selects where the fallback snapshot is kept
type CacheConfig struct {
	Backend string      `mapstructure:"backend" yaml:"backend,omitempty"` // "sqlite" or "redis"
	Path    string      `mapstructure:"path"    yaml:"path,omitempty"`
	Redis   RedisConfig `mapstructure:"redis"   yaml:"redis,omitempty"`
}

// RedisConfig holds the Redis connection used by the redis cache backend
type RedisConfig struct {
	Addr     string `mapstructure:"addr"     yaml:"addr,omitempty"`
	Password string `mapstructure:"password" yaml:"password,omitempty"`
	DB       int    `mapstructure:"db"       yaml:"db,omitempty"`
}

// MQTTConfig holds the broker used for Home Assistant MQTT discovery
type MQTTConfig struct {
	Enabled         bool   `mapstructure:"enabled"          yaml:"enabled"`
	Broker          string `mapstructure:"broker"           yaml:"broker,omitempty"` // host:port
	Username        string `mapstructure:"username"         yaml:"username,omitempty"`
	Password        string `mapstructure:"password"         yaml:"password,omitempty"`
	DiscoveryPrefix string `mapstructure:"discovery_prefix" yaml:"discovery_prefix,omitempty"`
	TopicPrefix     string `mapstructure:"topic_prefix"     yaml:"topic_prefix,omitempty"`
}

// HAConfig holds Home Assistant HTTP API configuration
type HAConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	URL     string `mapstructure:"url"     yaml:"url,omitempty"`   // e.g., "http://homeassistant.local:8123"
	Token   string `mapstructure:"token"   yaml:"token,omitempty"` // Long-lived access token
}

// Load reads the config file, then applies ECO2MIX_* environment overrides
// (e.g. ECO2MIX_MQTT_BROKER). A missing file yields the defaults.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("scan_interval", DefaultScanInterval)
	v.SetDefault("sensors", []string{})
	v.SetDefault("api.url", "")
	v.SetDefault("api.timeout", "10s")
	v.SetDefault("cache.backend", "sqlite")
	v.SetDefault("cache.path", "")
	v.SetDefault("cache.redis.addr", "localhost:6379")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "")
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.discovery_prefix", "homeassistant")
	v.SetDefault("mqtt.topic_prefix", "eco2mix")
	v.SetDefault("home_assistant.enabled", false)
	v.SetDefault("home_assistant.url", "")
	v.SetDefault("home_assistant.token", "")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return &cfg, nil
}

// Read reads the config file as written, without defaults or environment
// overrides. Used when rewriting the file so neither gets baked into it.
func Read(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// Return empty config if file doesn't exist
			return &Config{}, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return &cfg, nil
}

// Save writes the config to file
func Save(configPath string, cfg *Config) error {
	// Ensure directory exists
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// DefaultConfigPath returns the default config file path (local directory)
func DefaultConfigPath() string {
	return "config.yaml"
}

// Validate checks settings that cannot be defaulted
func (c *Config) Validate() error {
	if c.ScanInterval != 0 && c.ScanInterval < MinScanInterval {
		return fmt.Errorf("scan_interval must be at least %d minute(s), got %d", MinScanInterval, c.ScanInterval)
	}

	switch c.GetCacheBackend() {
	case "sqlite":
	case "redis":
		if c.Cache.Redis.Addr == "" {
			return fmt.Errorf("cache.redis.addr is required with the redis backend")
		}
	default:
		return fmt.Errorf("unknown cache backend: %s (available: sqlite, redis)", c.Cache.Backend)
	}

	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return fmt.Errorf("MQTT broker address is required when enabled")
	}
	if c.HomeAssistant.Enabled {
		if c.HomeAssistant.URL == "" {
			return fmt.Errorf("Home Assistant URL is required when enabled")
		}
		if c.HomeAssistant.Token == "" {
			return fmt.Errorf("Home Assistant token is required when enabled")
		}
	}

	return nil
}

// GetScanInterval returns the polling interval with a default of 5 minutes
func (c *Config) GetScanInterval() time.Duration {
	if c.ScanInterval <= 0 {
		return DefaultScanInterval * time.Minute
	}
	return time.Duration(c.ScanInterval) * time.Minute
}

// GetAPITimeout returns the upstream request timeout with a default of 10 seconds
func (c *Config) GetAPITimeout() time.Duration {
	if c.API.Timeout <= 0 {
		return 10 * time.Second
	}
	return c.API.Timeout
}

// GetCacheBackend returns the cache backend, sqlite unless set
func (c *Config) GetCacheBackend() string {
	if c.Cache.Backend == "" {
		return "sqlite"
	}
	return strings.ToLower(c.Cache.Backend)
}

// GetMQTTDiscoveryPrefix returns the Home Assistant discovery prefix
func (c *Config) GetMQTTDiscoveryPrefix() string {
	if c.MQTT.DiscoveryPrefix == "" {
		return "homeassistant"
	}
	return c.MQTT.DiscoveryPrefix
}

// GetMQTTTopicPrefix returns the prefix for state and availability topics
func (c *Config) GetMQTTTopicPrefix() string {
	if c.MQTT.TopicPrefix == "" {
		return "eco2mix"
	}
	return c.MQTT.TopicPrefix
}
