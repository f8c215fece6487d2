package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jgoulah/eco2mix/internal/config"
	"github.com/jgoulah/eco2mix/internal/coordinator"
	"github.com/jgoulah/eco2mix/internal/database"
	"github.com/jgoulah/eco2mix/internal/scraper"
)

var (
	cfgFile string
	dbPath  string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "eco2mix",
	Short: "Poll French grid generation data from RTE éCO2mix",
	Long: `eco2mix polls the public ODRE open data API for the latest éCO2mix record,
derives production, exchange and share metrics, keeps the last good snapshot
in a local cache and publishes it to Home Assistant over MQTT or HTTP.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "cache database file (default is ./data.db)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// getConfigPath returns the config file path
func getConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.DefaultConfigPath()
}

// getDBPath returns the sqlite cache path: --db, then cache.path, then ./data.db
func getDBPath(cfg *config.Config) string {
	if dbPath != "" {
		return dbPath
	}
	if cfg.Cache.Path != "" {
		return cfg.Cache.Path
	}
	return "data.db"
}

// loadConfig loads and validates the configuration file
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logger.SetLevel(logrus.InfoLevel)
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	return logger
}

// snapshotCache is a coordinator cache that holds a connection
type snapshotCache interface {
	coordinator.Cache
	Close() error
}

// openCache opens the configured cache backend
func openCache(ctx context.Context, cfg *config.Config) (snapshotCache, error) {
	switch cfg.GetCacheBackend() {
	case "redis":
		cache := database.NewRedisCache(cfg.Cache.Redis.Addr, cfg.Cache.Redis.Password, cfg.Cache.Redis.DB)
		if err := cache.Ping(ctx); err != nil {
			cache.Close()
			return nil, err
		}
		return cache, nil
	default:
		return openDB(cfg)
	}
}

// openDB opens the sqlite cache
func openDB(cfg *config.Config) (*database.DB, error) {
	path := getDBPath(cfg)

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	return database.New(path)
}

// newScraper builds the API client from config
func newScraper(cfg *config.Config, logger logrus.FieldLogger) (*scraper.Eco2mixScraper, error) {
	opts := []scraper.Option{scraper.WithTimeout(cfg.GetAPITimeout())}
	if cfg.API.URL != "" {
		opts = append(opts, scraper.WithBaseURL(cfg.API.URL))
	}
	return scraper.NewEco2mixScraper(logger, opts...)
}
