package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jgoulah/eco2mix/internal/sensors"
	"github.com/jgoulah/eco2mix/pkg/models"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the cached snapshot",
	Long:  `Displays the last snapshot stored in the cache without calling the API.`,
	RunE:  runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
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
		fmt.Println("No cached snapshot (run 'eco2mix fetch' first)")
		return nil
	}

	// Only the sqlite backend tracks write times
	if stamped, ok := cache.(interface {
		UpdatedAt(ctx context.Context) (time.Time, error)
	}); ok {
		if updatedAt, err := stamped.UpdatedAt(ctx); err == nil && !updatedAt.IsZero() {
			fmt.Printf("Cached %s\n", humanize.Time(updatedAt))
		}
	}

	printSnapshot(snapshot)
	return nil
}

// printSnapshot writes every sensor value as a table
func printSnapshot(snapshot *models.Snapshot) {
	fmt.Printf("\nData timestamp: %s\n", snapshot.Timestamp)
	fmt.Println("--------------------------------------------------")
	fmt.Printf("%-24s  %24s\n", "Sensor", "Value")
	fmt.Println("--------------------------------------------------")

	for _, d := range sensors.All() {
		if !d.Numeric() {
			continue
		}
		fmt.Printf("%-24s  %24s\n", d.Name, formatState(d, snapshot))
	}

	fmt.Println("--------------------------------------------------")
	if !snapshot.HasPercentages() {
		fmt.Println("Shares unavailable: total production is zero")
	}
}

func formatState(d sensors.Description, snapshot *models.Snapshot) string {
	state, ok := d.State(snapshot)
	if !ok {
		return "-"
	}
	v, err := strconv.ParseFloat(state, 64)
	if err != nil {
		return state
	}
	return fmt.Sprintf("%s %s", humanize.CommafWithDigits(v, d.Precision()), d.Unit())
}
