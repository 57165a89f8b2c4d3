package audio

import "math"

// Analysis frame geometry shared by every extractor. Matching values across
// training and inference is required for the trained models to stay valid.
const (
	DefaultFrameSize = 2048
	DefaultHopSize   = 512
)

// FFT computes the in-place Cooley-Tukey FFT.
// The input length must be a power of 2.
func FFT(x []complex128) {
	n := len(x)
	if n <= 1 {
		return
	}

	// Bit-reversal permutation.
	j := 0
	for i := 1; i < n; i++ {
		bit := n >> 1
		for j&bit != 0 {
			j ^= bit
			bit >>= 1
		}
		j ^= bit
		if i < j {
			x[i], x[j] = x[j], x[i]
		}
	}

	// Butterfly stages.
	for length := 2; length <= n; length <<= 1 {
		angle := -2 * math.Pi / float64(length)
		wl := complex(math.Cos(angle), math.Sin(angle))
		for i := 0; i < n; i += length {
			w := complex(1, 0)
			for k := 0; k < length/2; k++ {
				u := x[i+k]
				v := x[i+k+length/2] * w
				x[i+k] = u + v
				x[i+k+length/2] = u - v
				w *= wl
			}
		}
	}
}

// NextPow2 returns the smallest power of 2 >= n.
func NextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// HannWindow computes a Hann window of the given length.
func HannWindow(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	return w
}

// STFT performs short-time Fourier analysis over a signal with fixed frame
// and hop sizes. It is stateless apart from precomputed window and filter
// coefficients and is safe for concurrent use.
type STFT struct {
	FrameSize int
	HopSize   int
	fftSize   int
	window    []float64
}

// NewSTFT creates an analyzer with the given frame geometry.
func NewSTFT(frameSize, hopSize int) *STFT {
	return &STFT{
		FrameSize: frameSize,
		HopSize:   hopSize,
		fftSize:   NextPow2(frameSize),
		window:    HannWindow(frameSize),
	}
}

// NumBins returns the number of frequency bins per frame.
func (s *STFT) NumBins() int {
	return s.fftSize/2 + 1
}

// NumFrames returns how many analysis frames a signal of n samples yields.
// A signal shorter than one frame yields a single zero-padded frame so that
// short recordings still produce a full feature vector.
func (s *STFT) NumFrames(n int) int {
	if n < s.FrameSize {
		return 1
	}
	return (n-s.FrameSize)/s.HopSize + 1
}

// Magnitudes computes the magnitude spectrogram: one slice of NumBins values
// per analysis frame.
func (s *STFT) Magnitudes(samples []float64) [][]float64 {
	numFrames := s.NumFrames(len(samples))
	bins := s.NumBins()

	result := make([][]float64, numFrames)
	buf := make([]complex128, s.fftSize)

	for f := 0; f < numFrames; f++ {
		offset := f * s.HopSize

		for i := range buf {
			buf[i] = 0
		}
		for i := 0; i < s.FrameSize && offset+i < len(samples); i++ {
			buf[i] = complex(samples[offset+i]*s.window[i], 0)
		}

		FFT(buf)

		mags := make([]float64, bins)
		for k := 0; k < bins; k++ {
			re := real(buf[k])
			im := imag(buf[k])
			mags[k] = math.Sqrt(re*re + im*im)
		}
		result[f] = mags
	}

	return result
}

// BinFrequency returns the center frequency in Hz of an FFT bin.
func (s *STFT) BinFrequency(bin, sampleRate int) float64 {
	return float64(bin) * float64(sampleRate) / float64(s.fftSize)
}

// FrameRMS computes per-frame root-mean-square energy over the raw waveform.
// This is the short-term loudness track that energy_variance is derived from.
func FrameRMS(samples []float64, frameSize, hopSize int) []float64 {
	if len(samples) == 0 {
		return []float64{0}
	}

	numFrames := 1
	if len(samples) >= frameSize {
		numFrames = (len(samples)-frameSize)/hopSize + 1
	}

	rms := make([]float64, numFrames)
	for f := 0; f < numFrames; f++ {
		offset := f * hopSize
		sum := 0.0
		count := 0
		for i := 0; i < frameSize && offset+i < len(samples); i++ {
			v := samples[offset+i]
			sum += v * v
			count++
		}
		if count > 0 {
			rms[f] = math.Sqrt(sum / float64(count))
		}
	}
	return rms
}

// FrameZCR computes per-frame zero-crossing rate over the raw waveform.
func FrameZCR(samples []float64, frameSize, hopSize int) []float64 {
	if len(samples) == 0 {
		return []float64{0}
	}

	numFrames := 1
	if len(samples) >= frameSize {
		numFrames = (len(samples)-frameSize)/hopSize + 1
	}

	zcr := make([]float64, numFrames)
	for f := 0; f < numFrames; f++ {
		offset := f * hopSize
		crossings := 0
		count := 0
		for i := 1; i < frameSize && offset+i < len(samples); i++ {
			if (samples[offset+i-1] >= 0) != (samples[offset+i] >= 0) {
				crossings++
			}
			count++
		}
		if count > 0 {
			zcr[f] = float64(crossings) / float64(count)
		}
	}
	return zcr
}

// HzToMel converts frequency in Hz to mel scale.
func HzToMel(hz float64) float64 {
	return 2595.0 * math.Log10(1.0+hz/700.0)
}

// MelToHz converts mel scale to frequency in Hz.
func MelToHz(mel float64) float64 {
	return 700.0 * (math.Pow(10.0, mel/2595.0) - 1.0)
}

// MelFilterbank computes triangular mel filterbank weights.
// Returns [numMels][fftSize/2+1] weights.
func MelFilterbank(numMels, fftSize, sampleRate int) [][]float64 {
	halfFFT := fftSize/2 + 1

	melLow := HzToMel(0)
	melHigh := HzToMel(float64(sampleRate) / 2)

	melPoints := make([]float64, numMels+2)
	for i := range melPoints {
		melPoints[i] = melLow + float64(i)*(melHigh-melLow)/float64(numMels+1)
	}

	binIndices := make([]int, numMels+2)
	for i := range melPoints {
		hz := MelToHz(melPoints[i])
		binIndices[i] = int(math.Floor(hz * float64(fftSize) / float64(sampleRate)))
		if binIndices[i] >= halfFFT {
			binIndices[i] = halfFFT - 1
		}
	}

	fb := make([][]float64, numMels)
	for m := 0; m < numMels; m++ {
		fb[m] = make([]float64, halfFFT)
		left := binIndices[m]
		center := binIndices[m+1]
		right := binIndices[m+2]

		for k := left; k <= center; k++ {
			if center > left {
				fb[m][k] = float64(k-left) / float64(center-left)
			}
		}
		for k := center; k <= right; k++ {
			if right > center {
				fb[m][k] = float64(right-k) / float64(right-center)
			}
		}
	}
	return fb
}

// DCT2 computes the first numCoeffs coefficients of the type-II discrete
// cosine transform of the input.
func DCT2(input []float64, numCoeffs int) []float64 {
	if numCoeffs > len(input) {
		numCoeffs = len(input)
	}

	dct := make([]float64, numCoeffs)
	n := len(input)

	for k := 0; k < numCoeffs; k++ {
		sum := 0.0
		for j := 0; j < n; j++ {
			sum += input[j] * math.Cos(math.Pi*float64(k)*float64(2*j+1)/float64(2*n))
		}
		dct[k] = sum
	}

	return dct
}
