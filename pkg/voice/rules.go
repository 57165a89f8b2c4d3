package voice

import "math"

// ruleBand is one row of the override decision table: an energy-variance
// band, the class it forces, and the confidence boost for that band.
type ruleBand struct {
	name        string
	matches     func(energyVariance float64) bool
	forcedClass int
	boost       func(energyVariance float64) float64
}

// ruleBands in priority order. The borderline band between the two
// thresholds has no entry: there the statistical model's class and
// probability pass through unmodified.
var ruleBands = []ruleBand{
	{
		name:        "rule_ai",
		matches:     func(ev float64) bool { return ev < aiEnergyThreshold },
		forcedClass: classAI,
		boost: func(ev float64) float64 {
			return math.Min(boostCap, boostBase+(aiEnergyThreshold-ev)/aiEnergyThreshold*0.3)
		},
	},
	{
		name:        "rule_human",
		matches:     func(ev float64) bool { return ev > humanEnergyThreshold },
		forcedClass: classHuman,
		boost: func(ev float64) float64 {
			return math.Min(boostCap, boostBase+(ev-humanEnergyThreshold)/0.035*0.2)
		},
	},
}

// resolve applies the rule override to the model's vote and returns the
// final class, confidence, and the name of the band that decided.
//
// When a band fires it forces its class. If the model already voted the
// same way, the confidence is the larger of the model's probability for
// that class and the band's boost; if the model disagreed, the boost alone
// becomes the confidence. Outside every band the model's own argmax class
// and probability are returned untouched.
func resolve(energyVariance float64, modelClass int, proba []float64) (int, float64, string) {
	for _, band := range ruleBands {
		if !band.matches(energyVariance) {
			continue
		}

		boost := band.boost(energyVariance)
		if modelClass == band.forcedClass {
			return band.forcedClass, math.Max(proba[band.forcedClass], boost), band.name
		}
		return band.forcedClass, boost, band.name
	}

	return modelClass, proba[modelClass], "model"
}
