package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeMP3RejectsBadInput(t *testing.T) {
	_, err := DecodeMP3(nil)
	assert.Error(t, err, "Empty payload should be rejected")

	_, err = DecodeMP3([]byte("this is not an mp3 stream"))
	assert.Error(t, err, "Garbage payload should be rejected")
}

func TestSignalDuration(t *testing.T) {
	sig := &Signal{Samples: make([]float64, 44100), SampleRate: 44100}
	assert.InDelta(t, 1.0, sig.Duration(), 1e-12)

	assert.Equal(t, 0.0, (&Signal{SampleRate: 0}).Duration(), "Zero sample rate must not divide by zero")
}
