package metrics

import (
	"math"

	"github.com/jgoulah/eco2mix/pkg/models"
)

// Derive turns one raw eco2mix record into a complete snapshot.
// It never fails: absent readings are either kept absent or counted as zero.
func Derive(rec *models.RawRecord) *models.Snapshot {
	s := &models.Snapshot{
		Timestamp:   rec.Timestamp,
		Consumption: ToKW(rec.Consumption),
		Nuclear:     ToKW(rec.Nuclear),
		Wind:        ToKW(rec.Wind),
		Solar:       ToKW(rec.Solar),
		Hydraulic:   ToKW(rec.Hydraulic),
		Bioenergy:   ToKW(rec.Bioenergy),
		Gas:         ToKW(rec.Gas),
		Coal:        ToKW(rec.Coal),
		Fuel:        ToKW(rec.Fuel),
	}

	pumping := 0.0
	if rec.Pumping != nil {
		pumping = math.Abs(*rec.Pumping)
	}
	s.Pumping = *ToKW(&pumping)

	s.TotalProduction = sum(productionSources(s)...)

	exchange := 0.0
	if rec.Exchange != nil {
		exchange = *rec.Exchange
	}
	imported, exported := math.Max(exchange, 0), math.Max(-exchange, 0)
	s.Import = *ToKW(&imported)
	s.Export = *ToKW(&exported)

	s.Renewable = sum(s.Wind, s.Solar, s.Hydraulic, s.Bioenergy)
	s.LowCarbon = sum(s.Wind, s.Solar, s.Hydraulic, s.Bioenergy, s.Nuclear)

	if s.TotalProduction > 0 {
		totalMW := toMW(s.TotalProduction)
		s.NuclearPercentage = share(s.Nuclear, totalMW)
		s.WindPercentage = share(s.Wind, totalMW)
		s.SolarPercentage = share(s.Solar, totalMW)
		s.HydraulicPercentage = share(s.Hydraulic, totalMW)
		s.BioenergyPercentage = share(s.Bioenergy, totalMW)
		s.GasPercentage = share(s.Gas, totalMW)
		s.CoalPercentage = share(s.Coal, totalMW)
		s.FuelPercentage = share(s.Fuel, totalMW)
		s.RenewablePercentage = share(&s.Renewable, totalMW)
		s.LowCarbonPercentage = share(&s.LowCarbon, totalMW)
	}

	return s
}

// productionSources lists the converted generation values, in the order the
// dataset reports them. Pumping is a storage draw and is not part of it.
func productionSources(s *models.Snapshot) []*float64 {
	return []*float64{s.Nuclear, s.Wind, s.Solar, s.Hydraulic, s.Bioenergy, s.Gas, s.Coal, s.Fuel}
}

func sum(values ...*float64) float64 {
	var total float64
	for _, v := range values {
		if v != nil {
			total += *v
		}
	}
	return total
}

// share is kw's percentage of totalMW. An absent value counts as 0%.
func share(kw *float64, totalMW float64) *float64 {
	var valueMW float64
	if kw != nil {
		valueMW = toMW(*kw)
	}
	pct := valueMW / totalMW * 100
	return &pct
}
