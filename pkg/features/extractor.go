package features

import (
	"math"

	"voiceauth-server/pkg/audio"
	"voiceauth-server/pkg/errors"
)

// Voice feature order. The trained voice model consumes vectors in exactly
// this order; EnergyVarianceIndex is load-bearing for the hybrid rule layer
// and must never move.
var VoiceFeatureNames = []string{
	"mfcc_mean", "mfcc_std", "mfcc_var",
	"pitch_mean", "pitch_variance", "pitch_std",
	"zcr_mean", "zcr_std",
	"spectral_centroid_mean", "spectral_centroid_std", "spectral_centroid_var",
	"energy_mean", "energy_variance", "energy_std",
	"spectral_rolloff_mean", "spectral_rolloff_std",
	"spectral_bandwidth_mean", "spectral_bandwidth_std",
}

const (
	VoiceFeatureCount = 18

	// EnergyVarianceIndex is the position of energy_variance in the voice
	// vector. The rule engine reads the raw value at this index.
	EnergyVarianceIndex = 12

	numMFCC        = 13
	mfccMelBanks   = 26
	rolloffPercent = 0.85
	logFloor       = 1e-10
)

// Extractor computes the fixed-order voice and language feature vectors from
// a decoded signal. Extraction is deterministic and side-effect free; an
// Extractor is safe for concurrent use.
type Extractor struct {
	stft *audio.STFT
}

// NewExtractor creates an extractor with the default analysis geometry.
func NewExtractor() *Extractor {
	return &Extractor{
		stft: audio.NewSTFT(audio.DefaultFrameSize, audio.DefaultHopSize),
	}
}

// analysis holds the per-recording intermediate products shared by several
// feature groups, computed once per call.
type analysis struct {
	mags      [][]float64 // magnitude spectrogram, frames x bins
	mfcc      [][]float64 // frames x numMFCC
	pitches   []float64   // voiced frames only
	centroids []float64
	rolloffs  []float64
	bandwidth []float64
	rms       []float64
	zcr       []float64
}

func (e *Extractor) analyze(sig *audio.Signal) (*analysis, error) {
	if sig == nil || len(sig.Samples) == 0 {
		return nil, errors.NewFeatureExtraction("signal is empty")
	}
	if sig.SampleRate <= 0 {
		return nil, errors.NewFeatureExtraction("signal has no sample rate")
	}

	a := &analysis{}
	a.mags = e.stft.Magnitudes(sig.Samples)

	melFilters := audio.MelFilterbank(mfccMelBanks, audio.NextPow2(e.stft.FrameSize), sig.SampleRate)

	a.mfcc = make([][]float64, len(a.mags))
	a.centroids = make([]float64, len(a.mags))
	a.rolloffs = make([]float64, len(a.mags))
	a.bandwidth = make([]float64, len(a.mags))

	for f, mags := range a.mags {
		a.mfcc[f] = e.frameMFCC(mags, melFilters)
		a.centroids[f] = e.frameCentroid(mags, sig.SampleRate)
		a.rolloffs[f] = e.frameRolloff(mags, sig.SampleRate)
		a.bandwidth[f] = e.frameBandwidth(mags, a.centroids[f], sig.SampleRate)

		// Pitch tracking: the strongest spectral peak per frame. Frames
		// whose detected pitch is not strictly positive do not contribute.
		if pitch := e.framePitch(mags, sig.SampleRate); pitch > 0 {
			a.pitches = append(a.pitches, pitch)
		}
	}

	a.rms = audio.FrameRMS(sig.Samples, e.stft.FrameSize, e.stft.HopSize)
	a.zcr = audio.FrameZCR(sig.Samples, e.stft.FrameSize, e.stft.HopSize)

	return a, nil
}

// frameMFCC computes mel-frequency cepstral coefficients for one frame.
func (e *Extractor) frameMFCC(mags []float64, melFilters [][]float64) []float64 {
	logMel := make([]float64, len(melFilters))
	for m, filter := range melFilters {
		energy := 0.0
		for k, w := range filter {
			if k < len(mags) {
				energy += w * mags[k] * mags[k]
			}
		}
		if energy < logFloor {
			energy = logFloor
		}
		logMel[m] = math.Log(energy)
	}
	return audio.DCT2(logMel, numMFCC)
}

func (e *Extractor) frameCentroid(mags []float64, sampleRate int) float64 {
	weighted := 0.0
	total := 0.0
	for k, m := range mags {
		weighted += e.stft.BinFrequency(k, sampleRate) * m
		total += m
	}
	if total == 0 {
		return 0
	}
	return weighted / total
}

func (e *Extractor) frameRolloff(mags []float64, sampleRate int) float64 {
	total := 0.0
	for _, m := range mags {
		total += m
	}
	if total == 0 {
		return 0
	}

	target := rolloffPercent * total
	cumulative := 0.0
	for k, m := range mags {
		cumulative += m
		if cumulative >= target {
			return e.stft.BinFrequency(k, sampleRate)
		}
	}
	return e.stft.BinFrequency(len(mags)-1, sampleRate)
}

func (e *Extractor) frameBandwidth(mags []float64, centroid float64, sampleRate int) float64 {
	weighted := 0.0
	total := 0.0
	for k, m := range mags {
		d := e.stft.BinFrequency(k, sampleRate) - centroid
		weighted += m * d * d
		total += m
	}
	if total == 0 {
		return 0
	}
	return math.Sqrt(weighted / total)
}

func (e *Extractor) framePitch(mags []float64, sampleRate int) float64 {
	best := 0
	bestMag := 0.0
	for k, m := range mags {
		if m > bestMag {
			bestMag = m
			best = k
		}
	}
	if bestMag == 0 {
		return 0
	}
	return e.stft.BinFrequency(best, sampleRate)
}

// VoiceFeatures extracts the 18 named voice features from a signal.
func (e *Extractor) VoiceFeatures(sig *audio.Signal) (map[string]float64, error) {
	a, err := e.analyze(sig)
	if err != nil {
		return nil, err
	}

	allMFCC := flatten(a.mfcc)

	features := map[string]float64{
		"mfcc_mean": mean(allMFCC),
		"mfcc_std":  stddev(allMFCC),
		"mfcc_var":  variance(allMFCC),

		"zcr_mean": mean(a.zcr),
		"zcr_std":  stddev(a.zcr),

		"spectral_centroid_mean": mean(a.centroids),
		"spectral_centroid_std":  stddev(a.centroids),
		"spectral_centroid_var":  variance(a.centroids),

		"energy_mean":     mean(a.rms),
		"energy_variance": variance(a.rms),
		"energy_std":      stddev(a.rms),

		"spectral_rolloff_mean": mean(a.rolloffs),
		"spectral_rolloff_std":  stddev(a.rolloffs),

		"spectral_bandwidth_mean": mean(a.bandwidth),
		"spectral_bandwidth_std":  stddev(a.bandwidth),
	}

	// Unvoiced recordings yield exactly zero for every pitch statistic.
	if len(a.pitches) > 0 {
		features["pitch_mean"] = mean(a.pitches)
		features["pitch_variance"] = variance(a.pitches)
		features["pitch_std"] = stddev(a.pitches)
	} else {
		features["pitch_mean"] = 0.0
		features["pitch_variance"] = 0.0
		features["pitch_std"] = 0.0
	}

	return features, nil
}

// VoiceVector extracts the voice features in the fixed model order.
func (e *Extractor) VoiceVector(sig *audio.Signal) ([]float64, error) {
	features, err := e.VoiceFeatures(sig)
	if err != nil {
		return nil, err
	}

	vector := make([]float64, len(VoiceFeatureNames))
	for i, name := range VoiceFeatureNames {
		vector[i] = features[name]
	}
	return vector, nil
}
