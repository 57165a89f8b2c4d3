package audio

import (
	"bytes"
	"io"

	mp3 "github.com/hajimehoshi/go-mp3"

	"voiceauth-server/pkg/errors"
)

// Signal is a decoded mono waveform at its native sample rate.
// The decoder never resamples or trims: downstream features must reflect
// the original recording's characteristics unmodified.
type Signal struct {
	Samples    []float64
	SampleRate int
}

// Duration returns the signal length in seconds.
func (s *Signal) Duration() float64 {
	if s.SampleRate == 0 {
		return 0
	}
	return float64(len(s.Samples)) / float64(s.SampleRate)
}

// DecodeMP3 decodes MP3 bytes into a mono signal at the file's native rate.
// Stereo sources are downmixed by averaging the two channels. Samples are
// normalized to [-1, 1].
func DecodeMP3(data []byte) (*Signal, error) {
	if len(data) == 0 {
		return nil, errors.NewAudioDecode("decoded audio is empty")
	}

	decoder, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(errors.ErrAudioDecode, "failed to parse MP3 stream").
			WithField("cause", err.Error())
	}

	// go-mp3 always emits 16-bit little-endian stereo frames (4 bytes each).
	pcm, err := io.ReadAll(decoder)
	if err != nil {
		return nil, errors.Wrap(errors.ErrAudioDecode, "failed to decode MP3 frames").
			WithField("cause", err.Error())
	}

	frames := len(pcm) / 4
	if frames == 0 {
		return nil, errors.NewAudioDecode("MP3 stream contains no audio frames")
	}

	samples := make([]float64, frames)
	for i := 0; i < frames; i++ {
		left := int16(pcm[4*i]) | int16(pcm[4*i+1])<<8
		right := int16(pcm[4*i+2]) | int16(pcm[4*i+3])<<8
		samples[i] = (float64(left) + float64(right)) / 2.0 / 32768.0
	}

	return &Signal{
		Samples:    samples,
		SampleRate: decoder.SampleRate(),
	}, nil
}
