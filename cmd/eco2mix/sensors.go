package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jgoulah/eco2mix/internal/sensors"
)

var sensorsCmd = &cobra.Command{
	Use:   "sensors",
	Short: "List available sensors",
	Long:  `Lists every sensor that can be published and marks the ones currently selected.`,
	RunE:  runSensors,
}

func init() {
	rootCmd.AddCommand(sensorsCmd)
}

func runSensors(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	selected, err := sensors.Select(cfg.Sensors)
	if err != nil {
		return fmt.Errorf("selecting sensors: %w", err)
	}
	isSelected := make(map[string]bool, len(selected))
	for _, d := range selected {
		isSelected[d.Key] = true
	}

	fmt.Println("------------------------------------------------------------------")
	fmt.Printf("%-3s %-24s %-24s %-5s %s\n", "", "Key", "Name", "Unit", "Default")
	fmt.Println("------------------------------------------------------------------")
	for _, d := range sensors.All() {
		mark := ""
		if isSelected[d.Key] {
			mark = "*"
		}
		def := ""
		if d.EnabledByDefault {
			def = "yes"
		}
		fmt.Printf("%-3s %-24s %-24s %-5s %s\n", mark, d.Key, d.Name, d.Unit(), def)
	}
	fmt.Println("------------------------------------------------------------------")
	fmt.Printf("%d of %d sensors selected (* = selected)\n", len(selected), len(sensors.All()))

	return nil
}
