package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jgoulah/eco2mix/internal/config"
	"github.com/jgoulah/eco2mix/internal/sensors"
)

var (
	configureInterval int
	configureSensors  []string
	configureDefaults bool
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Change the scan interval or the sensor selection",
	Long: `Updates the config file. Only the options given on the command line change.

Examples:
  eco2mix configure --interval 10
  eco2mix configure --sensors consumption,wind,wind_percentage
  eco2mix configure --default-sensors`,
	RunE: runConfigure,
}

func init() {
	configureCmd.Flags().IntVar(&configureInterval, "interval", 0, fmt.Sprintf("scan interval in minutes (minimum %d)", config.MinScanInterval))
	configureCmd.Flags().StringSliceVar(&configureSensors, "sensors", nil, "comma separated sensor keys to publish")
	configureCmd.Flags().BoolVar(&configureDefaults, "default-sensors", false, "reset the sensor selection to the defaults")
	rootCmd.AddCommand(configureCmd)
}

func runConfigure(cmd *cobra.Command, args []string) error {
	path := getConfigPath()

	cfg, err := config.Read(path)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	changed := false
	if cmd.Flags().Changed("interval") {
		if configureInterval < config.MinScanInterval {
			return fmt.Errorf("interval must be at least %d minute(s)", config.MinScanInterval)
		}
		cfg.ScanInterval = configureInterval
		changed = true
	}
	if configureDefaults {
		cfg.Sensors = nil
		changed = true
	} else if cmd.Flags().Changed("sensors") {
		selected, err := sensors.Select(configureSensors)
		if err != nil {
			return err
		}
		cfg.Sensors = make([]string, 0, len(selected))
		for _, d := range selected {
			cfg.Sensors = append(cfg.Sensors, d.Key)
		}
		changed = true
	}

	if !changed {
		return fmt.Errorf("nothing to change (use --interval, --sensors or --default-sensors)")
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := config.Save(path, cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("✓ Saved %s\n", path)
	fmt.Printf("  scan interval: %s\n", cfg.GetScanInterval())
	if len(cfg.Sensors) == 0 {
		fmt.Println("  sensors: defaults")
	} else {
		fmt.Printf("  sensors: %v\n", cfg.Sensors)
	}
	return nil
}
