package httpapi

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voiceauth-server/pkg/config"
	"voiceauth-server/pkg/detection"
)

const testAPIKey = "test-api-key"

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testConfig() *config.Config {
	return &config.Config{
		HTTP: config.HTTPConfig{
			Port:         8080,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
		},
		Auth:   config.AuthConfig{Enabled: true, APIKey: testAPIKey},
		Models: config.ModelConfig{Dir: "models"},
		Audio:  config.AudioConfig{MaxBytes: 1024 * 1024, FetchTimeout: 2 * time.Second},
	}
}

// newTestServer builds a server over a fresh pipeline. Models are only
// bootstrapped when a test actually needs predictions.
func newTestServer(t *testing.T, ready bool) *Server {
	t.Helper()
	cfg := testConfig()
	cfg.Models.Dir = t.TempDir()

	pipeline := detection.NewPipeline(testLogger(), cfg.Models.Dir)
	if ready {
		require.NoError(t, pipeline.EnsureReady())
	}
	return NewServer(testLogger(), cfg, pipeline, nil)
}

func postDetection(server *Server, apiKey, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/voice-detection", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("x-api-key", apiKey)
	}
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestDetectionRequiresAPIKey(t *testing.T) {
	server := newTestServer(t, false)

	rec := postDetection(server, "", `{}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = postDetection(server, "wrong-key", `{}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "error", body["status"])
}

func TestDetectionRejectsNonPost(t *testing.T) {
	server := newTestServer(t, false)

	req := httptest.NewRequest(http.MethodGet, "/api/voice-detection", nil)
	req.Header.Set("x-api-key", testAPIKey)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, http.MethodPost, rec.Header().Get("Allow"))
}

func TestDetectionRejectsMalformedJSON(t *testing.T) {
	server := newTestServer(t, false)

	rec := postDetection(server, testAPIKey, `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDetectionRejectsWrongFormat(t *testing.T) {
	server := newTestServer(t, false)

	rec := postDetection(server, testAPIKey, `{"audioFormat":"wav","audioBase64":"AAAA"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDetectionRequiresExactlyOneSource(t *testing.T) {
	server := newTestServer(t, false)

	rec := postDetection(server, testAPIKey, `{"audioFormat":"mp3"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "Neither source supplied")

	rec = postDetection(server, testAPIKey,
		`{"audioFormat":"mp3","audioBase64":"AAAA","audioUrl":"http://example.com/a.mp3"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "Both sources supplied")
}

func TestDetectionRejectsInvalidBase64(t *testing.T) {
	server := newTestServer(t, false)

	rec := postDetection(server, testAPIKey, `{"audioFormat":"mp3","audioBase64":"!!!not-base64!!!"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "error", body["status"])
	assert.Contains(t, body["message"], "Base64")
}

func TestDetectionRejectsUndecodableAudio(t *testing.T) {
	server := newTestServer(t, true)

	payload := base64.StdEncoding.EncodeToString([]byte("definitely not mp3 data"))
	rec := postDetection(server, testAPIKey, `{"audioFormat":"mp3","audioBase64":"`+payload+`"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDetectionRejectsUnsupportedLanguage(t *testing.T) {
	server := newTestServer(t, true)

	payload := base64.StdEncoding.EncodeToString([]byte("x"))
	rec := postDetection(server, testAPIKey,
		`{"audioFormat":"mp3","language":"Klingon","audioBase64":"`+payload+`"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDetectionRejectsOversizedPayload(t *testing.T) {
	server := newTestServer(t, false)
	server.config.Audio.MaxBytes = 16

	payload := base64.StdEncoding.EncodeToString(make([]byte, 64))
	rec := postDetection(server, testAPIKey, `{"audioFormat":"mp3","audioBase64":"`+payload+`"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthEndpoints(t *testing.T) {
	server := newTestServer(t, false)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	var health healthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "degraded", health.Status, "No models loaded yet")
	assert.False(t, health.ModelLoaded)
	assert.Len(t, health.SupportedLanguages, 5)

	req = httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code, "Liveness never depends on models")

	req = httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestReadinessAfterBootstrap(t *testing.T) {
	server := newTestServer(t, true)

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthDoesNotRequireAPIKey(t *testing.T) {
	server := newTestServer(t, false)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestIDPropagation(t *testing.T) {
	server := newTestServer(t, false)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("x-request-id", "abc-123")
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("x-request-id"), "Caller-supplied id is echoed")

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	assert.NotEmpty(t, rec.Header().Get("x-request-id"), "Missing id is generated")
}

func TestRound4(t *testing.T) {
	assert.Equal(t, 0.1235, round4(0.12345))
	assert.Equal(t, 0.85, round4(0.85))
	assert.Equal(t, 1.0, round4(0.99999))
}
