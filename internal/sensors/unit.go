package sensors

import "encoding/json"

// Unit is a Home Assistant unit of measurement
type Unit int64

const (
	NoUnit Unit = iota
	KW
	Percent
)

func (u Unit) String() string {
	switch u {
	case KW:
		return "kW"
	case Percent:
		return "%"
	}
	return ""
}

func (u Unit) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.String())
}
