package httpapi

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"voiceauth-server/pkg/errors"
	"voiceauth-server/pkg/messaging"
	"voiceauth-server/pkg/metrics"
)

// DetectionRequest is the request schema for /api/voice-detection.
// Exactly one of audioBase64 and audioUrl must be supplied.
type DetectionRequest struct {
	Language    string `json:"language,omitempty"`
	AudioFormat string `json:"audioFormat"`
	AudioBase64 string `json:"audioBase64,omitempty"`
	AudioURL    string `json:"audioUrl,omitempty"`
}

// DetectionResponse is the success response schema.
type DetectionResponse struct {
	Status          string  `json:"status"`
	Language        string  `json:"language"`
	Classification  string  `json:"classification"`
	ConfidenceScore float64 `json:"confidenceScore"`
	Explanation     string  `json:"explanation"`
}

func (s *Server) detectionHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		errors.WriteError(w, errors.NewInvalidInput("method not allowed"))
		return
	}

	var req DetectionRequest
	body, err := io.ReadAll(io.LimitReader(r.Body, s.config.Audio.MaxBytes*2))
	if err != nil {
		metrics.ObserveDetection("error", start)
		errors.WriteError(w, errors.NewInvalidInput("failed to read request body"))
		return
	}
	if err := json.Unmarshal(body, &req); err != nil {
		metrics.ObserveDetection("error", start)
		errors.WriteError(w, errors.NewInvalidInput("invalid request format or malformed request"))
		return
	}

	audioBytes, err := s.acquireAudio(r, &req)
	if err != nil {
		metrics.ObserveDetection("error", start)
		errors.WriteError(w, err)
		return
	}

	result, err := s.pipeline.Detect(audioBytes, req.Language)
	if err != nil {
		metrics.ObserveDetection("error", start)
		errors.WriteError(w, err)
		return
	}

	response := DetectionResponse{
		Status:          "success",
		Language:        result.Language,
		Classification:  result.Classification,
		ConfidenceScore: round4(result.Confidence),
		Explanation:     result.Explanation,
	}

	s.publishResult(w.Header().Get("x-request-id"), &response)

	metrics.ObserveDetection("success", start)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// acquireAudio validates the request schema and produces raw MP3 bytes from
// either the inline base64 payload or a fetched URL.
func (s *Server) acquireAudio(r *http.Request, req *DetectionRequest) ([]byte, error) {
	if req.AudioFormat != "mp3" {
		return nil, errors.Wrap(errors.ErrUnsupportedFormat, "audioFormat must be \"mp3\"").
			WithField("audioFormat", req.AudioFormat)
	}

	hasInline := req.AudioBase64 != ""
	hasURL := req.AudioURL != ""
	if hasInline == hasURL {
		return nil, errors.NewInvalidInput("exactly one of audioBase64 and audioUrl must be provided")
	}

	if hasInline {
		audioBytes, err := base64.StdEncoding.DecodeString(req.AudioBase64)
		if err != nil {
			return nil, errors.NewInvalidInput("invalid Base64 encoding in audioBase64")
		}
		if len(audioBytes) == 0 {
			return nil, errors.NewInvalidInput("decoded audio is empty")
		}
		if int64(len(audioBytes)) > s.config.Audio.MaxBytes {
			return nil, errors.NewInvalidInput("audio payload exceeds size limit").
				WithField("limit_bytes", s.config.Audio.MaxBytes)
		}
		return audioBytes, nil
	}

	return s.fetcher.Fetch(r.Context(), req.AudioURL)
}

// publishResult hands the detection to the AMQP publisher when configured.
// Failures are logged and never surface to the caller.
func (s *Server) publishResult(requestID string, response *DetectionResponse) {
	if s.publisher == nil {
		return
	}
	if requestID == "" {
		requestID = uuid.NewString()
	}

	err := s.publisher.PublishDetection(messaging.DetectionMessage{
		RequestID:      requestID,
		Language:       response.Language,
		Classification: response.Classification,
		Confidence:     response.ConfidenceScore,
		Timestamp:      time.Now().UTC(),
	})
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Warn("Failed to publish detection result")
	}
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
