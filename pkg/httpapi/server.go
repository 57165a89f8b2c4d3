package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"voiceauth-server/pkg/config"
	"voiceauth-server/pkg/detection"
	"voiceauth-server/pkg/messaging"
	"voiceauth-server/pkg/metrics"
	"voiceauth-server/pkg/ratelimit"
)

// Server is the HTTP front end for the detection pipeline.
type Server struct {
	config     *config.Config
	logger     *logrus.Logger
	pipeline   *detection.Pipeline
	publisher  *messaging.AMQPClient
	httpServer *http.Server
	mux        *http.ServeMux
	fetcher    *audioFetcher
	startTime  time.Time
}

// NewServer creates the HTTP server and registers all routes. publisher may
// be nil when result messaging is disabled.
func NewServer(logger *logrus.Logger, cfg *config.Config, pipeline *detection.Pipeline, publisher *messaging.AMQPClient) *Server {
	server := &Server{
		config:    cfg,
		logger:    logger,
		pipeline:  pipeline,
		publisher: publisher,
		fetcher:   newAudioFetcher(cfg.Audio),
		startTime: time.Now(),
	}

	mux := http.NewServeMux()
	server.mux = mux

	auth := newAuthMiddleware(logger, cfg.Auth)

	mux.HandleFunc("/api/voice-detection", auth.require(server.detectionHandler))
	mux.HandleFunc("/health", server.healthHandler)
	mux.HandleFunc("/health/live", server.livenessHandler)
	mux.HandleFunc("/health/ready", server.readinessHandler)

	if cfg.HTTP.EnableMetrics {
		if registry := metrics.GetRegistry(); registry != nil {
			mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{
				EnableOpenMetrics: true,
				Registry:          registry,
			}))
			logger.Info("Prometheus metrics endpoint enabled at /metrics")
		}
	}

	limiter := ratelimit.NewHTTPMiddleware(cfg.RateLimit, logger)

	server.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      server.requestLogging(limiter.Middleware(mux)),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	return server
}

// Start begins serving. Blocks until the server stops.
func (s *Server) Start() error {
	s.logger.WithField("port", s.config.HTTP.Port).Info("HTTP server starting")
	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("HTTP server shutting down")
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the root handler, primarily for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}
