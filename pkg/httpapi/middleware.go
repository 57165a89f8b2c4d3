package httpapi

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"voiceauth-server/pkg/config"
	"voiceauth-server/pkg/errors"
	"voiceauth-server/pkg/version"
)

// apiKeyHeader is the authentication header the original API contract uses.
const apiKeyHeader = "x-api-key"

// authMiddleware validates the API key on protected routes.
type authMiddleware struct {
	logger *logrus.Logger
	config config.AuthConfig
}

func newAuthMiddleware(logger *logrus.Logger, cfg config.AuthConfig) *authMiddleware {
	return &authMiddleware{logger: logger, config: cfg}
}

// require wraps a handler with API key validation.
func (am *authMiddleware) require(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !am.config.Enabled {
			next(w, r)
			return
		}

		key := r.Header.Get(apiKeyHeader)
		if subtle.ConstantTimeCompare([]byte(key), []byte(am.config.APIKey)) != 1 {
			am.logger.WithFields(logrus.Fields{
				"path":   r.URL.Path,
				"remote": r.RemoteAddr,
			}).Warn("Invalid API key")
			errors.WriteError(w, errors.Wrap(errors.ErrUnauthenticated, "invalid API key"))
			return
		}

		next(w, r)
	}
}

// statusRecorder captures the written status code for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// requestLogging tags each request with an id and logs its outcome.
func (s *Server) requestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("x-request-id")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("x-request-id", requestID)
		w.Header().Set("Server", version.UserAgent())

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(recorder, r)

		// Metrics scrapes and health probes would swamp the log at info.
		entry := s.logger.WithFields(logrus.Fields{
			"request_id": requestID,
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     recorder.status,
			"duration":   time.Since(start).String(),
		})
		if strings.HasPrefix(r.URL.Path, "/health") || r.URL.Path == "/metrics" {
			entry.Debug("Request handled")
		} else {
			entry.Info("Request handled")
		}
	})
}
