// Package sensors describes how each snapshot metric is presented as a Home
// Assistant sensor. Publishers walk this table instead of hard-coding entities.
package sensors

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jgoulah/eco2mix/pkg/models"
)

// Kind groups sensors that share unit, device class and precision
type Kind int

const (
	KindPower Kind = iota
	KindPercentage
	KindTimestamp
)

const stateClassMeasurement = "measurement"

// Description is one row of the sensor table
type Description struct {
	Key              string
	Name             string
	Icon             string
	Kind             Kind
	EnabledByDefault bool
	Diagnostic       bool
	value            func(*models.Snapshot) *float64
}

// Unit returns the unit of measurement shown for the sensor
func (d Description) Unit() Unit {
	switch d.Kind {
	case KindPower:
		return KW
	case KindPercentage:
		return Percent
	}
	return NoUnit
}

// DeviceClass returns the Home Assistant device class
func (d Description) DeviceClass() DeviceClass {
	switch d.Kind {
	case KindPower:
		return Power
	case KindTimestamp:
		return Timestamp
	}
	return NoDeviceClass
}

// StateClass is "measurement" for numeric sensors and empty for the timestamp
func (d Description) StateClass() string {
	if d.Kind == KindTimestamp {
		return ""
	}
	return stateClassMeasurement
}

// Precision is the number of decimals kept when formatting the state
func (d Description) Precision() int {
	switch d.Kind {
	case KindPower:
		return 2
	case KindPercentage:
		return 1
	}
	return 0
}

// Numeric reports whether the state is a number
func (d Description) Numeric() bool {
	return d.Kind != KindTimestamp
}

// State formats the sensor value for the snapshot. ok is false when the
// snapshot carries no value for this sensor.
func (d Description) State(s *models.Snapshot) (state string, ok bool) {
	if s == nil {
		return "", false
	}

	if d.Kind == KindTimestamp {
		t, err := time.Parse(time.RFC3339, s.Timestamp)
		if err != nil {
			return "", false
		}
		return t.Format(time.RFC3339), true
	}

	v := d.value(s)
	if v == nil {
		return "", false
	}
	return strconv.FormatFloat(round(*v, d.Precision()), 'f', d.Precision(), 64), true
}

func round(v float64, decimals int) float64 {
	p := math.Pow10(decimals)
	return math.Round(v*p) / p
}

func field(v float64) *float64 {
	return &v
}

var table = []Description{
	{Key: "consumption", Name: "Consumption", Icon: "mdi:transmission-tower", Kind: KindPower, EnabledByDefault: true,
		value: func(s *models.Snapshot) *float64 { return s.Consumption }},
	{Key: "nuclear", Name: "Nuclear", Icon: "mdi:atom", Kind: KindPower,
		value: func(s *models.Snapshot) *float64 { return s.Nuclear }},
	{Key: "wind", Name: "Wind", Icon: "mdi:wind-turbine", Kind: KindPower,
		value: func(s *models.Snapshot) *float64 { return s.Wind }},
	{Key: "solar", Name: "Solar", Icon: "mdi:solar-power", Kind: KindPower,
		value: func(s *models.Snapshot) *float64 { return s.Solar }},
	{Key: "hydraulic", Name: "Hydraulic", Icon: "mdi:hydro-power", Kind: KindPower,
		value: func(s *models.Snapshot) *float64 { return s.Hydraulic }},
	{Key: "bioenergy", Name: "Bioenergy", Icon: "mdi:leaf", Kind: KindPower,
		value: func(s *models.Snapshot) *float64 { return s.Bioenergy }},
	{Key: "gas", Name: "Gas", Icon: "mdi:fire", Kind: KindPower,
		value: func(s *models.Snapshot) *float64 { return s.Gas }},
	{Key: "coal", Name: "Coal", Icon: "mdi:factory", Kind: KindPower,
		value: func(s *models.Snapshot) *float64 { return s.Coal }},
	{Key: "fuel", Name: "Fuel oil", Icon: "mdi:oil", Kind: KindPower,
		value: func(s *models.Snapshot) *float64 { return s.Fuel }},
	{Key: "total_production", Name: "Total production", Icon: "mdi:lightning-bolt", Kind: KindPower, EnabledByDefault: true,
		value: func(s *models.Snapshot) *float64 { return field(s.TotalProduction) }},
	{Key: "renewable", Name: "Renewable production", Icon: "mdi:leaf-circle", Kind: KindPower,
		value: func(s *models.Snapshot) *float64 { return field(s.Renewable) }},
	{Key: "low_carbon", Name: "Low carbon production", Icon: "mdi:molecule-co2", Kind: KindPower,
		value: func(s *models.Snapshot) *float64 { return field(s.LowCarbon) }},
	{Key: "pumping", Name: "Pumping", Icon: "mdi:pump", Kind: KindPower,
		value: func(s *models.Snapshot) *float64 { return field(s.Pumping) }},
	{Key: "import", Name: "Import", Icon: "mdi:transmission-tower-import", Kind: KindPower,
		value: func(s *models.Snapshot) *float64 { return field(s.Import) }},
	{Key: "export", Name: "Export", Icon: "mdi:transmission-tower-export", Kind: KindPower,
		value: func(s *models.Snapshot) *float64 { return field(s.Export) }},
	{Key: "nuclear_percentage", Name: "Nuclear share", Icon: "mdi:atom", Kind: KindPercentage,
		value: func(s *models.Snapshot) *float64 { return s.NuclearPercentage }},
	{Key: "wind_percentage", Name: "Wind share", Icon: "mdi:wind-turbine", Kind: KindPercentage,
		value: func(s *models.Snapshot) *float64 { return s.WindPercentage }},
	{Key: "solar_percentage", Name: "Solar share", Icon: "mdi:solar-power", Kind: KindPercentage,
		value: func(s *models.Snapshot) *float64 { return s.SolarPercentage }},
	{Key: "hydraulic_percentage", Name: "Hydraulic share", Icon: "mdi:hydro-power", Kind: KindPercentage,
		value: func(s *models.Snapshot) *float64 { return s.HydraulicPercentage }},
	{Key: "bioenergy_percentage", Name: "Bioenergy share", Icon: "mdi:leaf", Kind: KindPercentage,
		value: func(s *models.Snapshot) *float64 { return s.BioenergyPercentage }},
	{Key: "gas_percentage", Name: "Gas share", Icon: "mdi:fire", Kind: KindPercentage,
		value: func(s *models.Snapshot) *float64 { return s.GasPercentage }},
	{Key: "coal_percentage", Name: "Coal share", Icon: "mdi:factory", Kind: KindPercentage,
		value: func(s *models.Snapshot) *float64 { return s.CoalPercentage }},
	{Key: "fuel_percentage", Name: "Fuel oil share", Icon: "mdi:oil", Kind: KindPercentage,
		value: func(s *models.Snapshot) *float64 { return s.FuelPercentage }},
	{Key: "renewable_percentage", Name: "Renewable share", Icon: "mdi:leaf-circle", Kind: KindPercentage, EnabledByDefault: true,
		value: func(s *models.Snapshot) *float64 { return s.RenewablePercentage }},
	{Key: "low_carbon_percentage", Name: "Low carbon share", Icon: "mdi:molecule-co2", Kind: KindPercentage, EnabledByDefault: true,
		value: func(s *models.Snapshot) *float64 { return s.LowCarbonPercentage }},
	{Key: "timestamp", Name: "Last update", Icon: "mdi:clock-outline", Kind: KindTimestamp, EnabledByDefault: true, Diagnostic: true},
}

// All returns every sensor in table order
func All() []Description {
	out := make([]Description, len(table))
	copy(out, table)
	return out
}

// Lookup finds a sensor by key
func Lookup(key string) (Description, bool) {
	for _, d := range table {
		if d.Key == key {
			return d, true
		}
	}
	return Description{}, false
}

// Select returns the sensors named by keys in table order. No keys selects
// the sensors enabled by default.
func Select(keys []string) ([]Description, error) {
	if len(keys) == 0 {
		var out []Description
		for _, d := range table {
			if d.EnabledByDefault {
				out = append(out, d)
			}
		}
		return out, nil
	}

	wanted := make(map[string]bool, len(keys))
	var unknown []string
	for _, k := range keys {
		k = strings.TrimSpace(strings.ToLower(k))
		if _, ok := Lookup(k); !ok {
			unknown = append(unknown, k)
			continue
		}
		wanted[k] = true
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("unknown sensor(s): %s", strings.Join(unknown, ", "))
	}

	var out []Description
	for _, d := range table {
		if wanted[d.Key] {
			out = append(out, d)
		}
	}
	return out, nil
}
