package publisher

import (
	"fmt"

	"github.com/jgoulah/eco2mix/internal/sensors"
)

const (
	deviceID           = "eco2mix_device"
	deviceName         = "éCO2mix"
	deviceManufacturer = "RTE"
	deviceModel        = "Eco2Mix RTE via open data ODRE"
)

// Device groups every sensor under one Home Assistant device
type Device struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Manufacturer string   `json:"manufacturer,omitempty"`
	Model        string   `json:"model,omitempty"`
}

// ConfigurationItem is the MQTT discovery payload for one sensor
type ConfigurationItem struct {
	DeviceClass               sensors.DeviceClass `json:"device_class,omitempty"`
	UnitOfMeasurement         sensors.Unit        `json:"unit_of_measurement,omitempty"`
	Device                    Device              `json:"device"`
	StateClass                string              `json:"state_class,omitempty"`
	UniqueID                  string              `json:"unique_id"`
	Name                      string              `json:"name"`
	Icon                      string              `json:"icon,omitempty"`
	StateTopic                string              `json:"state_topic"`
	ValueTemplate             string              `json:"value_template,omitempty"`
	AvailabilityTopic         string              `json:"availability_topic,omitempty"`
	EntityCategory            string              `json:"entity_category,omitempty"`
	SuggestedDisplayPrecision *int                `json:"suggested_display_precision,omitempty"`
}

func device() Device {
	return Device{
		Identifiers:  []string{deviceID},
		Name:         deviceName,
		Manufacturer: deviceManufacturer,
		Model:        deviceModel,
	}
}

func configurationItem(d sensors.Description, stateTopic, availabilityTopic string) ConfigurationItem {
	item := ConfigurationItem{
		DeviceClass:       d.DeviceClass(),
		UnitOfMeasurement: d.Unit(),
		Device:            device(),
		StateClass:        d.StateClass(),
		UniqueID:          "eco2mix-" + d.Key,
		Name:              d.Name,
		Icon:              d.Icon,
		StateTopic:        stateTopic,
		ValueTemplate:     valueTemplate(d.Key),
		AvailabilityTopic: availabilityTopic,
	}
	if d.Numeric() {
		precision := d.Precision()
		item.SuggestedDisplayPrecision = &precision
	}
	if d.Diagnostic {
		item.EntityCategory = "diagnostic"
	}
	return item
}

// valueTemplate renders a null state as None, which Home Assistant shows as unknown
func valueTemplate(key string) string {
	return fmt.Sprintf("{{ value_json.%[1]s if value_json.%[1]s is not none else None }}", key)
}
