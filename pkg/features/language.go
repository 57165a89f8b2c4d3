package features

import (
	"math"

	"voiceauth-server/pkg/audio"
)

// LanguageFeatureCount is the length of the language identification vector.
// Order is fixed at training time; see LanguageVector for the layout.
const LanguageFeatureCount = 39

const (
	melSpecBanks  = 128
	contrastBands = 7
	chromaBins    = 12
	tempoMinBPM   = 30.0
	tempoMaxBPM   = 300.0
)

// LanguageVector extracts the language identification feature vector.
//
// Layout (fixed order, must match training exactly):
//
//	0-4    MFCC overall mean, std, median, max, min
//	5-14   first 5 MFCC coefficients, mean and std each
//	15-17  spectral centroid mean, std, median
//	18-19  spectral rolloff mean, std
//	20-21  spectral bandwidth mean, std
//	22-23  spectral contrast mean, std
//	24-29  pitch mean, std, median, max, min, interquartile range
//	30-31  zero-crossing rate mean, std
//	32-33  chroma mean, std
//	34-35  mel spectrogram mean, std
//	36-37  tonnetz mean, std
//	38     tempo estimate (BPM)
func (e *Extractor) LanguageVector(sig *audio.Signal) ([]float64, error) {
	a, err := e.analyze(sig)
	if err != nil {
		return nil, err
	}

	vector := make([]float64, 0, LanguageFeatureCount)

	// MFCC statistics. Different languages have distinct phonetic patterns.
	allMFCC := flatten(a.mfcc)
	vector = append(vector,
		mean(allMFCC), stddev(allMFCC), median(allMFCC), maximum(allMFCC), minimum(allMFCC))

	for c := 0; c < 5; c++ {
		coeff := make([]float64, len(a.mfcc))
		for f := range a.mfcc {
			coeff[f] = a.mfcc[f][c]
		}
		vector = append(vector, mean(coeff), stddev(coeff))
	}

	// Spectral shape.
	vector = append(vector, mean(a.centroids), stddev(a.centroids), median(a.centroids))
	vector = append(vector, mean(a.rolloffs), stddev(a.rolloffs))
	vector = append(vector, mean(a.bandwidth), stddev(a.bandwidth))

	contrast := spectralContrast(a.mags)
	vector = append(vector, mean(contrast), stddev(contrast))

	// Pitch distribution. Tonal languages separate mostly on these.
	if len(a.pitches) > 0 {
		vector = append(vector,
			mean(a.pitches), stddev(a.pitches), median(a.pitches),
			maximum(a.pitches), minimum(a.pitches),
			percentile(a.pitches, 75)-percentile(a.pitches, 25))
	} else {
		vector = append(vector, 0, 0, 0, 0, 0, 0)
	}

	vector = append(vector, mean(a.zcr), stddev(a.zcr))

	chroma := e.chromagram(a.mags, sig.SampleRate)
	allChroma := flatten(chroma)
	vector = append(vector, mean(allChroma), stddev(allChroma))

	melSpec := e.melSpectrogram(a.mags, sig.SampleRate)
	vector = append(vector, mean(melSpec), stddev(melSpec))

	tonnetz := tonnetzFeatures(chroma)
	vector = append(vector, mean(tonnetz), stddev(tonnetz))

	vector = append(vector, e.estimateTempo(a.mags, sig.SampleRate))

	return vector, nil
}

// spectralContrast computes per-band peak-to-valley contrast for each frame
// over octave-spaced frequency bands.
func spectralContrast(mags [][]float64) []float64 {
	var values []float64
	for _, frame := range mags {
		bins := len(frame)
		// Octave-spaced band edges starting at bin 1.
		lo := 1
		for b := 0; b < contrastBands; b++ {
			hi := lo * 2
			if b == contrastBands-1 || hi > bins {
				hi = bins
			}
			if lo >= hi {
				values = append(values, 0)
				continue
			}

			peak := frame[lo]
			valley := frame[lo]
			for k := lo; k < hi; k++ {
				if frame[k] > peak {
					peak = frame[k]
				}
				if frame[k] < valley {
					valley = frame[k]
				}
			}
			values = append(values, math.Log(peak+logFloor)-math.Log(valley+logFloor))
			lo = hi
		}
	}
	return values
}

// chromagram folds the magnitude spectrogram into 12 pitch classes per
// frame, normalized so each frame peaks at 1.
func (e *Extractor) chromagram(mags [][]float64, sampleRate int) [][]float64 {
	chroma := make([][]float64, len(mags))
	for f, frame := range mags {
		classes := make([]float64, chromaBins)
		for k, m := range frame {
			freq := e.stft.BinFrequency(k, sampleRate)
			if freq <= 0 || m == 0 {
				continue
			}
			pitchClass := int(math.Round(12*math.Log2(freq/440.0))) % chromaBins
			if pitchClass < 0 {
				pitchClass += chromaBins
			}
			classes[pitchClass] += m * m
		}

		peak := maximum(classes)
		if peak > 0 {
			for i := range classes {
				classes[i] /= peak
			}
		}
		chroma[f] = classes
	}
	return chroma
}

// melSpectrogram computes the flattened mel power spectrogram.
func (e *Extractor) melSpectrogram(mags [][]float64, sampleRate int) []float64 {
	filters := audio.MelFilterbank(melSpecBanks, audio.NextPow2(e.stft.FrameSize), sampleRate)

	values := make([]float64, 0, len(mags)*melSpecBanks)
	for _, frame := range mags {
		for _, filter := range filters {
			energy := 0.0
			for k, w := range filter {
				if k < len(frame) {
					energy += w * frame[k] * frame[k]
				}
			}
			values = append(values, energy)
		}
	}
	return values
}

// tonnetzFeatures projects each chroma frame onto the six tonal centroid
// dimensions (fifths, minor thirds, major thirds — sine and cosine each).
func tonnetzFeatures(chroma [][]float64) []float64 {
	values := make([]float64, 0, len(chroma)*6)
	for _, frame := range chroma {
		total := 0.0
		for _, c := range frame {
			total += c
		}
		if total == 0 {
			values = append(values, 0, 0, 0, 0, 0, 0)
			continue
		}

		var t [6]float64
		for p, c := range frame {
			w := c / total
			fifth := float64(p) * 7 * math.Pi / 6
			minor := float64(p) * 3 * math.Pi / 2
			major := float64(p) * 2 * math.Pi / 3
			t[0] += w * math.Sin(fifth)
			t[1] += w * math.Cos(fifth)
			t[2] += w * math.Sin(minor)
			t[3] += w * math.Cos(minor)
			t[4] += w * 0.5 * math.Sin(major)
			t[5] += w * 0.5 * math.Cos(major)
		}
		values = append(values, t[:]...)
	}
	return values
}

// estimateTempo derives a BPM estimate from the autocorrelation of the
// onset strength envelope (positive spectral flux per frame).
func (e *Extractor) estimateTempo(mags [][]float64, sampleRate int) float64 {
	if len(mags) < 4 {
		return 0
	}

	onset := make([]float64, len(mags)-1)
	for f := 1; f < len(mags); f++ {
		flux := 0.0
		for k := range mags[f] {
			d := mags[f][k] - mags[f-1][k]
			if d > 0 {
				flux += d
			}
		}
		onset[f-1] = flux
	}

	// Remove the mean so the autocorrelation reflects periodicity, not level.
	m := mean(onset)
	for i := range onset {
		onset[i] -= m
	}

	// One onset lag spans one hop of audio.
	hopSeconds := float64(e.stft.HopSize) / float64(sampleRate)

	minLag := int(60.0 / tempoMaxBPM / hopSeconds)
	if minLag < 1 {
		minLag = 1
	}
	maxLag := int(60.0 / tempoMinBPM / hopSeconds)
	if maxLag > len(onset)/2 {
		maxLag = len(onset) / 2
	}
	if maxLag < minLag {
		return 0
	}

	bestLag := 0
	bestVal := 0.0
	for lag := minLag; lag <= maxLag; lag++ {
		sum := 0.0
		for i := 0; i+lag < len(onset); i++ {
			sum += onset[i] * onset[i+lag]
		}
		if sum > bestVal {
			bestVal = sum
			bestLag = lag
		}
	}

	if bestLag == 0 {
		return 0
	}

	return 60.0 / (float64(bestLag) * hopSeconds)
}
