package errors

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCapturesLocation(t *testing.T) {
	err := New("something broke")

	assert.Equal(t, "something broke", err.Error())
	assert.Contains(t, err.Location(), "errors_test.go:")
}

func TestWrapPreservesSentinel(t *testing.T) {
	err := Wrap(ErrAudioDecode, "failed to parse stream")

	assert.ErrorIs(t, err, ErrAudioDecode)
	assert.Equal(t, "failed to parse stream: audio cannot be decoded", err.Error())

	assert.Nil(t, Wrap(nil, "no-op"), "Wrapping nil yields nil")
}

func TestWithFieldDoesNotMutate(t *testing.T) {
	base := New("base").WithField("a", 1)
	derived := base.WithField("b", 2)

	assert.Len(t, base.GetFields(), 1, "WithField must copy, not mutate")
	assert.Len(t, derived.GetFields(), 2)
	assert.Equal(t, 1, derived.GetFields()["a"])
}

func TestConstructorsCarrySentinelAndCode(t *testing.T) {
	cases := []struct {
		err      *Error
		sentinel error
		code     string
	}{
		{NewInvalidInput("m"), ErrInvalidInput, "INVALID_INPUT"},
		{NewAudioDecode("m"), ErrAudioDecode, "AUDIO_DECODE"},
		{NewFeatureExtraction("m"), ErrFeatureExtraction, "FEATURE_EXTRACTION"},
		{NewModelNotReady("m"), ErrModelNotReady, "MODEL_NOT_READY"},
		{NewClassificationFailed("m"), ErrClassificationFailed, "CLASSIFICATION_FAILED"},
		{NewInternalError("m"), ErrInternalError, "INTERNAL_ERROR"},
	}
	for _, tc := range cases {
		assert.ErrorIs(t, tc.err, tc.sentinel, tc.code)
		assert.Equal(t, tc.code, tc.err.Code)
	}
}

func TestHTTPStatusFromError(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, HTTPStatusFromError(ErrAudioDecode))
	assert.Equal(t, http.StatusBadRequest, HTTPStatusFromError(ErrUnsupportedLanguage))
	assert.Equal(t, http.StatusUnauthorized, HTTPStatusFromError(ErrUnauthenticated))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatusFromError(ErrModelNotReady))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatusFromError(errors.New("unmapped")))

	// Mapping follows the unwrap chain.
	wrapped := Wrap(Wrap(ErrInvalidInput, "inner"), "outer")
	assert.Equal(t, http.StatusBadRequest, HTTPStatusFromError(wrapped))
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, NewInvalidInput("bad payload").WithField("field", "audioBase64"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `"status":"error"`)
	assert.Contains(t, rec.Body.String(), "bad payload")

	rec = httptest.NewRecorder()
	WriteError(rec, errors.New("plain"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = httptest.NewRecorder()
	WriteError(rec, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestAsJSON(t *testing.T) {
	err := NewModelNotReady("voice model missing").WithField("path", "models/voice_classifier.bin")
	out := err.AsJSON()

	require.NotNil(t, out)
	assert.Equal(t, "error", out["status"])
	assert.Equal(t, "MODEL_NOT_READY", out["code"])
	assert.NotNil(t, out["context"])
}
