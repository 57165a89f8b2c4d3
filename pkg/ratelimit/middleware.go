package ratelimit

import (
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// Config holds rate limiting configuration.
type Config struct {
	Enabled           bool
	RequestsPerSecond float64
	BurstSize         int

	// ExemptPaths bypass rate limiting; health probes and metrics scrapes
	// should never be throttled.
	ExemptPaths []string
}

// DefaultConfig returns the standard rate limiting configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:           false,
		RequestsPerSecond: 10,
		BurstSize:         20,
		ExemptPaths:       []string{"/health", "/health/live", "/health/ready", "/metrics"},
	}
}

// HTTPMiddleware applies per-client-IP rate limiting to HTTP handlers.
type HTTPMiddleware struct {
	limiter     *Limiter
	config      Config
	logger      *logrus.Logger
	exemptPaths map[string]bool
}

// NewHTTPMiddleware creates the middleware from a config.
func NewHTTPMiddleware(config Config, logger *logrus.Logger) *HTTPMiddleware {
	m := &HTTPMiddleware{
		limiter:     NewLimiter(config.RequestsPerSecond, config.BurstSize, logger),
		config:      config,
		logger:      logger,
		exemptPaths: make(map[string]bool, len(config.ExemptPaths)),
	}
	for _, path := range config.ExemptPaths {
		m.exemptPaths[path] = true
	}

	if config.Enabled {
		logger.WithFields(logrus.Fields{
			"rps":   config.RequestsPerSecond,
			"burst": config.BurstSize,
		}).Info("HTTP rate limiting enabled")
	}

	return m
}

// Middleware wraps next with rate limiting. A no-op when disabled.
func (m *HTTPMiddleware) Middleware(next http.Handler) http.Handler {
	if !m.config.Enabled {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.exemptPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		clientIP := clientIP(r)
		if !m.limiter.Allow(clientIP) {
			m.logger.WithFields(logrus.Fields{
				"client_ip": clientIP,
				"path":      r.URL.Path,
			}).Warn("Rate limit exceeded")

			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", retryAfterSeconds(m.config.RequestsPerSecond))
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]string{
				"status":  "error",
				"message": "rate limit exceeded",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientIP resolves the client address, trusting X-Forwarded-For from a
// fronting proxy when present.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func retryAfterSeconds(rps float64) string {
	if rps <= 0 {
		return "1"
	}
	seconds := int(math.Ceil(1 / rps))
	if seconds < 1 {
		seconds = 1
	}
	return strconv.Itoa(seconds)
}
