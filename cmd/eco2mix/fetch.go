package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jgoulah/eco2mix/internal/coordinator"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Run one update cycle and print the snapshot",
	Long: `Fetches the latest éCO2mix record, derives the snapshot and stores it in the
cache. Falls back to the cached snapshot when the API is unavailable.`,
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	fmt.Printf("=== Fetch started at %s ===\n", time.Now().Format("2006-01-02 15:04:05 MST"))

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := newLogger()

	ctx := context.Background()
	cache, err := openCache(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening cache: %w", err)
	}
	defer cache.Close()

	api, err := newScraper(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating scraper: %w", err)
	}
	fmt.Printf("Fetching %s\n", api.RequestURL())

	coord := coordinator.New(api, cache, logger)
	snapshot, err := coord.RunCycle(ctx)
	if err != nil {
		return err
	}

	if status := coord.Status(); status.ConsecutiveFailures > 0 {
		fmt.Println("⚠ API unavailable, showing cached snapshot")
	} else {
		fmt.Println("✓ Snapshot updated")
	}

	printSnapshot(snapshot)
	return nil
}
