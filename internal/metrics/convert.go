package metrics

// kwPerMW is the factor between the upstream unit and the base unit we expose.
const kwPerMW = 1000

// ToKW converts a MW reading to kW. Absent readings stay absent.
func ToKW(mw *float64) *float64 {
	if mw == nil {
		return nil
	}
	kw := *mw * kwPerMW
	return &kw
}

// toMW restates a kW value in MW for ratio computations.
func toMW(kw float64) float64 {
	return kw / kwPerMW
}
