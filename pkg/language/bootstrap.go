package language

import (
	"math/rand"

	"voiceauth-server/pkg/features"
	"voiceauth-server/pkg/metrics"
)

// Synthetic bootstrap parameters. Like the voice bootstrap, this is a
// demonstration fallback: the class clusters are arbitrary, not phonetic
// reality, and only guarantee the service starts with a loadable model.
const (
	bootstrapSeed            = 42
	bootstrapSamplesPerClass = 200
)

// Bootstrap trains the detector on synthetic class-separated clusters and
// persists the resulting artifacts. Each language gets its own fixed random
// cluster center; samples scatter around it tightly enough that the five
// classes are learnable.
func (d *Detector) Bootstrap() error {
	rng := rand.New(rand.NewSource(bootstrapSeed))

	centers := make([][]float64, NumLanguages)
	for c := range centers {
		centers[c] = make([]float64, features.LanguageFeatureCount)
		for j := range centers[c] {
			centers[c][j] = rng.NormFloat64() * 2.0
		}
	}

	total := NumLanguages * bootstrapSamplesPerClass
	X := make([][]float64, 0, total)
	y := make([]int, 0, total)

	for c := 0; c < NumLanguages; c++ {
		for i := 0; i < bootstrapSamplesPerClass; i++ {
			row := make([]float64, features.LanguageFeatureCount)
			for j := range row {
				row[j] = centers[c][j] + rng.NormFloat64()*0.8
			}
			X = append(X, row)
			y = append(y, c)
		}
	}

	rng.Shuffle(len(X), func(i, j int) {
		X[i], X[j] = X[j], X[i]
		y[i], y[j] = y[j], y[i]
	})

	if err := d.Train(X, y); err != nil {
		return err
	}

	if err := d.Save(); err != nil {
		return err
	}
	metrics.ObserveBootstrap("language")

	d.logger.Warn("Language model bootstrapped from synthetic data; train with real labeled recordings for production use")
	return nil
}
