package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

var (
	registry     *prometheus.Registry
	registryOnce sync.Once

	// Detection request metrics
	DetectionRequestsTotal  *prometheus.CounterVec
	DetectionDuration       *prometheus.HistogramVec
	AudioBytesProcessed     prometheus.Counter
	FeatureExtractionTime   prometheus.Histogram
	ClassificationsTotal    *prometheus.CounterVec
	LanguagePredictionsTotal *prometheus.CounterVec

	// Model lifecycle metrics
	ModelBootstrapsTotal *prometheus.CounterVec
	ModelTrainingsTotal  *prometheus.CounterVec
)

// Init initializes all metrics and registers them with Prometheus
func Init(logger *logrus.Logger) {
	registryOnce.Do(func() {
		registry = prometheus.NewRegistry()

		DetectionRequestsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "voiceauth_detection_requests_total",
				Help: "Total number of voice detection requests by outcome",
			},
			[]string{"status"},
		)

		DetectionDuration = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "voiceauth_detection_duration_seconds",
				Help:    "End-to-end latency of voice detection requests",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
			},
			[]string{"status"},
		)

		AudioBytesProcessed = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "voiceauth_audio_bytes_processed_total",
				Help: "Total decoded audio payload bytes processed",
			},
		)

		FeatureExtractionTime = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "voiceauth_feature_extraction_duration_seconds",
				Help:    "Latency of acoustic feature extraction",
				Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
			},
		)

		ClassificationsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "voiceauth_classifications_total",
				Help: "Voice classifications by label and decision band",
			},
			[]string{"label", "band"},
		)

		LanguagePredictionsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "voiceauth_language_predictions_total",
				Help: "Language identifications by predicted language",
			},
			[]string{"language"},
		)

		ModelBootstrapsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "voiceauth_model_bootstraps_total",
				Help: "Synthetic-data model bootstraps by classifier",
			},
			[]string{"classifier"},
		)

		ModelTrainingsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "voiceauth_model_trainings_total",
				Help: "Model training runs by classifier",
			},
			[]string{"classifier"},
		)

		registry.MustRegister(
			DetectionRequestsTotal,
			DetectionDuration,
			AudioBytesProcessed,
			FeatureExtractionTime,
			ClassificationsTotal,
			LanguagePredictionsTotal,
			ModelBootstrapsTotal,
			ModelTrainingsTotal,
		)

		logger.Info("Prometheus metrics initialized")
	})
}

// GetRegistry returns the metrics registry, or nil if Init was never called
func GetRegistry() *prometheus.Registry {
	return registry
}

// ObserveDetection records the outcome and latency of one detection request
func ObserveDetection(status string, start time.Time) {
	if registry == nil {
		return
	}
	DetectionRequestsTotal.WithLabelValues(status).Inc()
	DetectionDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
}

// ObserveTraining records one training run for the named classifier
func ObserveTraining(classifier string) {
	if registry == nil {
		return
	}
	ModelTrainingsTotal.WithLabelValues(classifier).Inc()
}

// ObserveBootstrap records one synthetic-data bootstrap for the named classifier
func ObserveBootstrap(classifier string) {
	if registry == nil {
		return
	}
	ModelBootstrapsTotal.WithLabelValues(classifier).Inc()
}
