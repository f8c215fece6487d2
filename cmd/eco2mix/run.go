package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jgoulah/eco2mix/internal/coordinator"
	"github.com/jgoulah/eco2mix/internal/sensors"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Poll the API and publish to Home Assistant until stopped",
	Long: `Runs an update cycle immediately, then once per scan interval. Each cycle
fetches the latest record, derives the snapshot, caches it and publishes it to
every enabled sink. When the API is down the cached snapshot is republished.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := newLogger()

	selected, err := sensors.Select(cfg.Sensors)
	if err != nil {
		return fmt.Errorf("selecting sensors: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cache, err := openCache(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening cache: %w", err)
	}
	defer cache.Close()

	api, err := newScraper(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating scraper: %w", err)
	}

	sinks, closeSinks, err := openSinks(cfg, selected, logger)
	if err != nil {
		return err
	}
	defer closeSinks()
	if len(sinks) == 0 {
		logger.Warn("No publisher enabled, snapshots are only cached")
	}

	coord := coordinator.New(api, cache, logger)
	interval := cfg.GetScanInterval()

	logger.WithFields(logrus.Fields{
		"interval": interval,
		"backend":  cfg.GetCacheBackend(),
		"sensors":  len(selected),
	}).Info("Starting eco2mix poller")

	update := func() {
		snapshot, err := coord.RunCycle(ctx)
		if errors.Is(err, coordinator.ErrNoDataAvailable) {
			logger.WithError(err).Warn("No data to publish")
			if err := markAllUnavailable(ctx, sinks); err != nil {
				logger.WithError(err).Warn("Failed to mark sensors unavailable")
			}
			return
		}
		if err != nil {
			logger.WithError(err).Error("Update cycle failed")
			return
		}
		if err := publishAll(ctx, sinks, snapshot); err != nil {
			logger.WithError(err).Warn("Failed to publish snapshot")
		}
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	update()
	for {
		select {
		case <-ctx.Done():
			logger.Info("Shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := markAllUnavailable(shutdownCtx, sinks); err != nil {
				logger.WithError(err).Warn("Failed to mark sensors unavailable")
			}
			cancel()
			return nil
		case <-ticker.C:
			update()
		}
	}
}
