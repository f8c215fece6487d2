package sensors

import "encoding/json"

// DeviceClass is a Home Assistant sensor device class
type DeviceClass int64

const (
	NoDeviceClass DeviceClass = iota
	Power
	Timestamp
)

func (c DeviceClass) String() string {
	switch c {
	case Power:
		return "power"
	case Timestamp:
		return "timestamp"
	}
	return ""
}

func (c DeviceClass) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}
