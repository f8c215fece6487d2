package models

// RawRecord is one row of the eco2mix-national-tr dataset. Power readings are
// in MW and nil when the grid operator has not reported them yet.
type RawRecord struct {
	Timestamp   string   `json:"date_heure"`
	Consumption *float64 `json:"consommation"`
	Nuclear     *float64 `json:"nucleaire"`
	Wind        *float64 `json:"eolien"`
	Solar       *float64 `json:"solaire"`
	Hydraulic   *float64 `json:"hydraulique"`
	Bioenergy   *float64 `json:"bioenergies"`
	Gas         *float64 `json:"gaz"`
	Coal        *float64 `json:"charbon"`
	Fuel        *float64 `json:"fioul"`
	Pumping     *float64 `json:"pompage"`
	Exchange    *float64 `json:"ech_physiques"` // positive = net import
}

// Snapshot is the full set of metrics derived from one RawRecord.
// Power values are in kW, percentages are omitted when total production is not positive.
type Snapshot struct {
	Timestamp string `json:"timestamp"`

	Consumption *float64 `json:"consumption"`
	Nuclear     *float64 `json:"nuclear"`
	Wind        *float64 `json:"wind"`
	Solar       *float64 `json:"solar"`
	Hydraulic   *float64 `json:"hydraulic"`
	Bioenergy   *float64 `json:"bioenergy"`
	Gas         *float64 `json:"gas"`
	Coal        *float64 `json:"coal"`
	Fuel        *float64 `json:"fuel"`

	TotalProduction float64 `json:"total_production"`
	Pumping         float64 `json:"pumping"`
	Import          float64 `json:"import"`
	Export          float64 `json:"export"`
	Renewable       float64 `json:"renewable"`
	LowCarbon       float64 `json:"low_carbon"`

	NuclearPercentage   *float64 `json:"nuclear_percentage,omitempty"`
	WindPercentage      *float64 `json:"wind_percentage,omitempty"`
	SolarPercentage     *float64 `json:"solar_percentage,omitempty"`
	HydraulicPercentage *float64 `json:"hydraulic_percentage,omitempty"`
	BioenergyPercentage *float64 `json:"bioenergy_percentage,omitempty"`
	GasPercentage       *float64 `json:"gas_percentage,omitempty"`
	CoalPercentage      *float64 `json:"coal_percentage,omitempty"`
	FuelPercentage      *float64 `json:"fuel_percentage,omitempty"`
	RenewablePercentage *float64 `json:"renewable_percentage,omitempty"`
	LowCarbonPercentage *float64 `json:"low_carbon_percentage,omitempty"`
}

// HasPercentages reports whether the percentage group was computed.
func (s *Snapshot) HasPercentages() bool {
	return s.RenewablePercentage != nil
}

// Float returns a pointer to v. Handy for building records in code.
func Float(v float64) *float64 {
	return &v
}
