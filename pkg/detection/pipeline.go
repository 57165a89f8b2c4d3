package detection

import (
	"time"

	"github.com/sirupsen/logrus"

	"voiceauth-server/pkg/audio"
	"voiceauth-server/pkg/errors"
	"voiceauth-server/pkg/features"
	"voiceauth-server/pkg/language"
	"voiceauth-server/pkg/metrics"
	"voiceauth-server/pkg/voice"
)

// Pipeline wires the feature extractor, the language identifier, and the
// voice authenticity classifier into the detection flow. It is constructed
// explicitly and passed to callers; all state it holds is read-only after
// startup apart from atomic model swaps during retraining, so a single
// Pipeline serves concurrent requests without locking.
type Pipeline struct {
	logger    *logrus.Logger
	extractor *features.Extractor
	voice     *voice.Classifier
	language  *language.Detector
}

// Detection is the structured result of one request.
type Detection struct {
	Language           string
	LanguageConfidence float64
	LanguageDetected   bool

	Classification string
	Confidence     float64
	Explanation    string
	Band           string
	EnergyVariance float64
}

// NewPipeline builds a pipeline persisting model artifacts under modelDir.
func NewPipeline(logger *logrus.Logger, modelDir string) *Pipeline {
	return &Pipeline{
		logger:    logger,
		extractor: features.NewExtractor(),
		voice:     voice.NewClassifier(logger, modelDir),
		language:  language.NewDetector(logger, modelDir),
	}
}

// Voice exposes the voice classifier for training tooling.
func (p *Pipeline) Voice() *voice.Classifier {
	return p.voice
}

// Language exposes the language detector for training tooling.
func (p *Pipeline) Language() *language.Detector {
	return p.language
}

// Extractor exposes the feature extractor for training tooling.
func (p *Pipeline) Extractor() *features.Extractor {
	return p.extractor
}

// EnsureReady loads or bootstraps both models so prediction can never fail
// with a model-not-ready fault during normal operation.
func (p *Pipeline) EnsureReady() error {
	if err := p.voice.EnsureReady(); err != nil {
		return errors.Wrap(err, "voice model startup failed")
	}
	if err := p.language.EnsureReady(); err != nil {
		return errors.Wrap(err, "language model startup failed")
	}
	return nil
}

// Ready reports whether both models are loaded.
func (p *Pipeline) Ready() bool {
	return p.voice.Ready() && p.language.Ready()
}

// Detect runs the full flow on raw MP3 bytes. When knownLanguage is empty
// the language identifier supplies it; otherwise it passes through after
// validation.
func (p *Pipeline) Detect(audioBytes []byte, knownLanguage string) (*Detection, error) {
	if knownLanguage != "" && !language.IsSupported(knownLanguage) {
		return nil, errors.Wrap(errors.ErrUnsupportedLanguage, "language not supported").
			WithField("language", knownLanguage)
	}

	sig, err := audio.DecodeMP3(audioBytes)
	if err != nil {
		return nil, err
	}

	if metrics.GetRegistry() != nil {
		metrics.AudioBytesProcessed.Add(float64(len(audioBytes)))
	}

	extractStart := time.Now()
	vector, err := p.extractor.VoiceVector(sig)
	if err != nil {
		return nil, err
	}
	if metrics.GetRegistry() != nil {
		metrics.FeatureExtractionTime.Observe(time.Since(extractStart).Seconds())
	}

	result := &Detection{
		Language:       knownLanguage,
		EnergyVariance: vector[features.EnergyVarianceIndex],
	}

	if knownLanguage == "" {
		lang, conf, err := p.language.PredictSignal(sig)
		if err != nil {
			return nil, err
		}
		result.Language = lang
		result.LanguageConfidence = conf
		result.LanguageDetected = true

		if metrics.GetRegistry() != nil {
			metrics.LanguagePredictionsTotal.WithLabelValues(lang).Inc()
		}
	}

	prediction, err := p.voice.Predict(vector)
	if err != nil {
		return nil, err
	}

	result.Classification = prediction.Classification
	result.Confidence = prediction.Confidence
	result.Explanation = prediction.Explanation
	result.Band = prediction.Band

	if metrics.GetRegistry() != nil {
		metrics.ClassificationsTotal.WithLabelValues(prediction.Classification, prediction.Band).Inc()
	}

	p.logger.WithFields(logrus.Fields{
		"classification":  prediction.Classification,
		"confidence":      prediction.Confidence,
		"band":            prediction.Band,
		"language":        result.Language,
		"energy_variance": result.EnergyVariance,
		"duration":        sig.Duration(),
	}).Info("Detection complete")

	return result, nil
}
