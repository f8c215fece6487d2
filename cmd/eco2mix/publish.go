package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jgoulah/eco2mix/internal/sensors"
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish the cached snapshot to Home Assistant",
	Long:  `Reads the cached snapshot and publishes it once to every enabled sink (MQTT discovery and/or the HTTP API).`,
	RunE:  runPublish,
}

func init() {
	rootCmd.AddCommand(publishCmd)
}

func runPublish(cmd *cobra.Command, args []string) error {
	fmt.Printf("=== Publish started at %s ===\n", time.Now().Format("2006-01-02 15:04:05 MST"))

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := newLogger()

	if !cfg.MQTT.Enabled && !cfg.HomeAssistant.Enabled {
		return fmt.Errorf("neither MQTT nor Home Assistant is enabled in config")
	}

	selected, err := sensors.Select(cfg.Sensors)
	if err != nil {
		return fmt.Errorf("selecting sensors: %w", err)
	}

	ctx := context.Background()
	cache, err := openCache(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening cache: %w", err)
	}
	defer cache.Close()

	snapshot, err := cache.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading snapshot: %w", err)
	}
	if snapshot == nil {
		return fmt.Errorf("no cached snapshot (run 'eco2mix fetch' first)")
	}

	sinks, closeSinks, err := openSinks(cfg, selected, logger)
	if err != nil {
		return err
	}
	defer closeSinks()

	fmt.Printf("Publishing snapshot %s (%d sensors)... ", snapshot.Timestamp, len(selected))
	if err := publishAll(ctx, sinks, snapshot); err != nil {
		fmt.Println("FAILED")
		return fmt.Errorf("publishing: %w", err)
	}
	fmt.Println("✓")

	return nil
}
