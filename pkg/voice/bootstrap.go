package voice

import (
	"math/rand"

	"voiceauth-server/pkg/features"
	"voiceauth-server/pkg/metrics"
)

// Synthetic bootstrap parameters. This generator is a demonstration
// fallback so the service always starts with a usable model; its
// distributions are hand-picked, not derived from a labeled corpus, and
// must not be read as population statistics.
const (
	bootstrapSeed    = 42
	bootstrapSamples = 1000

	pitchVarianceIndex = 4
)

// Bootstrap trains the classifier on synthetic data and persists the
// resulting artifacts.
//
// Human samples get inflated pitch and energy variance; AI samples are
// drawn tighter overall with both variances shrunk, mimicking the
// uniformity of synthesized speech.
func (c *Classifier) Bootstrap() error {
	rng := rand.New(rand.NewSource(bootstrapSeed))

	half := bootstrapSamples / 2
	X := make([][]float64, 0, bootstrapSamples)
	y := make([]int, 0, bootstrapSamples)

	for i := 0; i < half; i++ {
		row := make([]float64, features.VoiceFeatureCount)
		for j := range row {
			row[j] = rng.NormFloat64()
		}
		row[pitchVarianceIndex] *= 2.0
		row[features.EnergyVarianceIndex] *= 1.8
		X = append(X, row)
		y = append(y, classHuman)
	}

	for i := 0; i < half; i++ {
		row := make([]float64, features.VoiceFeatureCount)
		for j := range row {
			row[j] = rng.NormFloat64() * 0.7
		}
		row[pitchVarianceIndex] *= 0.5
		row[features.EnergyVarianceIndex] *= 0.6
		X = append(X, row)
		y = append(y, classAI)
	}

	// Seeded shuffle keeps the bootstrap fully reproducible.
	rng.Shuffle(len(X), func(i, j int) {
		X[i], X[j] = X[j], X[i]
		y[i], y[j] = y[j], y[i]
	})

	if err := c.Train(X, y); err != nil {
		return err
	}

	if err := c.Save(); err != nil {
		return err
	}
	metrics.ObserveBootstrap("voice")

	c.logger.Warn("Voice model bootstrapped from synthetic data; train with real labeled recordings for production use")
	return nil
}
