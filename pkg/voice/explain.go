package voice

// Explanation thresholds. These are tuned independently from the
// classification thresholds and deliberately overlap them rather than
// sharing constants.
const (
	aiExplainExtreme = 0.005
	aiExplainLow     = 0.008
	humanExplainHigh = 0.015
	humanExplainMid  = 0.010

	confidenceHigh     = 0.8
	confidenceModerate = 0.6
)

// explain selects the explanation text for a prediction. Energy-variance
// wording takes precedence over the confidence-band wording because the
// energy evidence is the concrete, reportable signal.
func explain(label string, energyVariance, confidence float64) string {
	if label == LabelAI {
		switch {
		case energyVariance < aiExplainExtreme:
			return "Extremely low energy variance shows uniform loudness with no natural breathing patterns, a strong marker of synthetic speech"
		case energyVariance < aiExplainLow:
			return "Very low energy variance indicates unnaturally consistent loudness with no natural breathing rhythm, typical of synthesized voices"
		case confidence > confidenceHigh:
			return "High consistency in pitch and spectral patterns typical of synthetic voices"
		case confidence > confidenceModerate:
			return "Moderate indicators of artificial speech synthesis detected"
		default:
			return "Slight synthetic characteristics detected in voice patterns"
		}
	}

	switch {
	case energyVariance > humanExplainHigh:
		return "High energy variance reflects natural variation in loudness from breathing and emphasis, characteristic of human speech"
	case energyVariance > humanExplainMid:
		return "Energy variance shows natural variation in loudness consistent with live human speech"
	case confidence > confidenceHigh:
		return "Natural variations in pitch, energy, and spectral characteristics confirm human speech"
	case confidence > confidenceModerate:
		return "Voice exhibits natural human speech variations and irregularities"
	default:
		return "Voice patterns lean towards human characteristics with some uncertainty"
	}
}
