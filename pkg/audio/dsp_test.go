package audio

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFFTImpulse(t *testing.T) {
	// The spectrum of a unit impulse is flat.
	x := make([]complex128, 8)
	x[0] = 1

	FFT(x)

	for k, v := range x {
		assert.InDelta(t, 1.0, real(v), 1e-12, "bin %d real", k)
		assert.InDelta(t, 0.0, imag(v), 1e-12, "bin %d imag", k)
	}
}

func TestFFTSineConcentratesEnergy(t *testing.T) {
	// A sine at exactly bin 4 of a 32-point FFT should put all its energy
	// in bins 4 and 28.
	n := 32
	x := make([]complex128, n)
	for i := 0; i < n; i++ {
		x[i] = complex(math.Sin(2*math.Pi*4*float64(i)/float64(n)), 0)
	}

	FFT(x)

	for k := range x {
		mag := math.Hypot(real(x[k]), imag(x[k]))
		if k == 4 || k == n-4 {
			assert.InDelta(t, float64(n)/2, mag, 1e-9, "bin %d should carry the tone", k)
		} else {
			assert.InDelta(t, 0.0, mag, 1e-9, "bin %d should be empty", k)
		}
	}
}

func TestNextPow2(t *testing.T) {
	assert.Equal(t, 1, NextPow2(1))
	assert.Equal(t, 2, NextPow2(2))
	assert.Equal(t, 4, NextPow2(3))
	assert.Equal(t, 2048, NextPow2(2048))
	assert.Equal(t, 4096, NextPow2(2049))
}

func TestHannWindowShape(t *testing.T) {
	w := HannWindow(101)
	assert.InDelta(t, 0.0, w[0], 1e-12, "Window edges taper to zero")
	assert.InDelta(t, 0.0, w[100], 1e-12)
	assert.InDelta(t, 1.0, w[50], 1e-12, "Window center is one")
}

func TestSTFTFrameCounts(t *testing.T) {
	s := NewSTFT(DefaultFrameSize, DefaultHopSize)

	assert.Equal(t, 1, s.NumFrames(100), "Short signals still yield one padded frame")
	assert.Equal(t, 1, s.NumFrames(DefaultFrameSize))
	assert.Equal(t, 2, s.NumFrames(DefaultFrameSize+DefaultHopSize))
	assert.Equal(t, DefaultFrameSize/2+1, s.NumBins())
}

func TestSTFTMagnitudesLocateTone(t *testing.T) {
	sampleRate := 22050
	freq := 440.0
	samples := make([]float64, sampleRate) // one second
	for i := range samples {
		samples[i] = math.Sin(2 * math.Pi * freq * float64(i) / float64(sampleRate))
	}

	s := NewSTFT(DefaultFrameSize, DefaultHopSize)
	mags := s.Magnitudes(samples)
	require.Equal(t, s.NumFrames(len(samples)), len(mags))

	// Peak bin of a middle frame should sit at the tone's frequency.
	frame := mags[len(mags)/2]
	best := 0
	for k, m := range frame {
		if m > frame[best] {
			best = k
		}
	}
	binWidth := float64(sampleRate) / float64(NextPow2(DefaultFrameSize))
	assert.InDelta(t, freq, s.BinFrequency(best, sampleRate), binWidth+1e-9)
}

func TestFrameRMS(t *testing.T) {
	// Constant amplitude signal: RMS equals the amplitude in every frame.
	samples := make([]float64, 4096)
	for i := range samples {
		samples[i] = 0.5
	}
	rms := FrameRMS(samples, 2048, 512)
	require.NotEmpty(t, rms)
	for _, v := range rms {
		assert.InDelta(t, 0.5, v, 1e-9)
	}

	assert.Equal(t, []float64{0}, FrameRMS(nil, 2048, 512), "Empty input yields a single zero frame")
}

func TestFrameZCRAlternatingSignal(t *testing.T) {
	// A sign-alternating signal crosses zero at every step.
	samples := make([]float64, 2048)
	for i := range samples {
		if i%2 == 0 {
			samples[i] = 1
		} else {
			samples[i] = -1
		}
	}
	zcr := FrameZCR(samples, 2048, 512)
	require.NotEmpty(t, zcr)
	assert.InDelta(t, 1.0, zcr[0], 0.01)

	silence := make([]float64, 2048)
	zcr = FrameZCR(silence, 2048, 512)
	assert.InDelta(t, 0.0, zcr[0], 1e-12, "Silence never crosses zero")
}

func TestMelScaleRoundTrip(t *testing.T) {
	for _, hz := range []float64{0, 100, 440, 1000, 8000} {
		assert.InDelta(t, hz, MelToHz(HzToMel(hz)), 1e-6)
	}
	assert.Greater(t, HzToMel(2000)-HzToMel(1000), HzToMel(8000)-HzToMel(7000),
		"Mel scale compresses high frequencies")
}

func TestMelFilterbankShape(t *testing.T) {
	numMels := 26
	fftSize := 2048
	fb := MelFilterbank(numMels, fftSize, 22050)

	require.Len(t, fb, numMels)
	for m, filter := range fb {
		require.Len(t, filter, fftSize/2+1)
		peak := 0.0
		for _, w := range filter {
			assert.GreaterOrEqual(t, w, 0.0)
			assert.LessOrEqual(t, w, 1.0)
			if w > peak {
				peak = w
			}
		}
		assert.Greater(t, peak, 0.0, "filter %d should have nonzero support", m)
	}
}

func TestDCT2(t *testing.T) {
	// Constant input concentrates in the DC coefficient.
	input := []float64{1, 1, 1, 1}
	dct := DCT2(input, 4)
	assert.InDelta(t, 4.0, dct[0], 1e-12)
	for k := 1; k < 4; k++ {
		assert.InDelta(t, 0.0, dct[k], 1e-12, "coefficient %d", k)
	}

	assert.Len(t, DCT2(input, 10), 4, "Requested coefficients are capped at the input length")
}
