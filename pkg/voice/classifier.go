package voice

import (
	"path/filepath"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"voiceauth-server/pkg/errors"
	"voiceauth-server/pkg/features"
	"voiceauth-server/pkg/metrics"
	"voiceauth-server/pkg/ml"
)

// Classification labels.
const (
	LabelAI    = "AI_GENERATED"
	LabelHuman = "HUMAN"

	// Model class indices: 0 = human, 1 = AI.
	classHuman = 0
	classAI    = 1
	numClasses = 2
)

// Rule thresholds on raw (unstandardized) energy variance. Synthetic speech
// lacks breath and emphasis driven loudness fluctuation, so very low energy
// variance overrides the statistical model at the distribution's extremes
// while the model keeps authority in the ambiguous middle band.
const (
	aiEnergyThreshold    = 0.008
	humanEnergyThreshold = 0.015

	boostBase = 0.65
	boostCap  = 0.85
)

// Result is a single voice authenticity prediction.
type Result struct {
	Classification string
	Confidence     float64
	Explanation    string

	// Band names what decided the request: rule_ai, rule_human, or model.
	Band string
}

// trainedModel pairs the fitted scaler with the fitted forest. The pair is
// swapped atomically as a unit so inference never observes a half-updated
// model.
type trainedModel struct {
	scaler *ml.StandardScaler
	forest *ml.RandomForest
}

// Classifier decides whether a voice recording is AI-generated or human by
// combining a random forest with a rule override on energy variance.
type Classifier struct {
	logger *logrus.Logger
	model  atomic.Pointer[trainedModel]

	forestPath string
	scalerPath string
}

// NewClassifier creates a classifier that persists its artifacts under
// modelDir. No model is loaded yet; call Load, Train, or EnsureReady.
func NewClassifier(logger *logrus.Logger, modelDir string) *Classifier {
	return &Classifier{
		logger:     logger,
		forestPath: filepath.Join(modelDir, "voice_classifier.bin"),
		scalerPath: filepath.Join(modelDir, "voice_scaler.bin"),
	}
}

// Ready reports whether a model is available for prediction.
func (c *Classifier) Ready() bool {
	return c.model.Load() != nil
}

// Train fits the scaler and forest on a labeled feature matrix
// (labels: 0 = human, 1 = AI) and swaps the new pair in atomically.
func (c *Classifier) Train(X [][]float64, y []int) error {
	scaler := &ml.StandardScaler{}
	if err := scaler.Fit(X); err != nil {
		return errors.Wrap(err, "failed to fit voice scaler")
	}

	scaled, err := scaler.TransformAll(X)
	if err != nil {
		return errors.Wrap(err, "failed to standardize voice training data")
	}

	params := ml.DefaultForestParams()
	params.BalanceClasses = true

	forest, err := ml.TrainForest(scaled, y, numClasses, params)
	if err != nil {
		return errors.Wrap(err, "failed to train voice forest")
	}

	c.model.Store(&trainedModel{scaler: scaler, forest: forest})
	metrics.ObserveTraining("voice")

	c.logger.WithFields(logrus.Fields{
		"samples":  len(X),
		"features": len(X[0]),
		"trees":    params.NumTrees,
	}).Info("Voice classifier trained")

	return nil
}

// Save persists the current model and scaler artifacts.
func (c *Classifier) Save() error {
	m := c.model.Load()
	if m == nil {
		return errors.NewModelNotReady("no voice model to save")
	}
	if err := ml.SaveArtifact(c.forestPath, m.forest); err != nil {
		return err
	}
	return ml.SaveArtifact(c.scalerPath, m.scaler)
}

// Load restores persisted artifacts. Returns false without error when no
// artifacts exist.
func (c *Classifier) Load() (bool, error) {
	if !ml.ArtifactExists(c.forestPath) || !ml.ArtifactExists(c.scalerPath) {
		return false, nil
	}

	forest := &ml.RandomForest{}
	if err := ml.LoadArtifact(c.forestPath, forest); err != nil {
		return false, err
	}
	scaler := &ml.StandardScaler{}
	if err := ml.LoadArtifact(c.scalerPath, scaler); err != nil {
		return false, err
	}

	c.model.Store(&trainedModel{scaler: scaler, forest: forest})
	c.logger.WithField("path", c.forestPath).Info("Voice model loaded from disk")
	return true, nil
}

// EnsureReady loads persisted artifacts or, when absent, bootstraps a model
// from synthetic data so the service is never left without a usable model.
func (c *Classifier) EnsureReady() error {
	if c.Ready() {
		return nil
	}

	loaded, err := c.Load()
	if err != nil {
		return err
	}
	if loaded {
		return nil
	}

	c.logger.Warn("No pre-trained voice model found, bootstrapping from synthetic data")
	return c.Bootstrap()
}

// Predict classifies a voice feature vector using the hybrid rule/model
// policy and produces a textual explanation.
func (c *Classifier) Predict(vector []float64) (*Result, error) {
	m := c.model.Load()
	if m == nil {
		return nil, errors.NewModelNotReady("voice classifier invoked before training or loading")
	}
	if len(vector) != features.VoiceFeatureCount {
		return nil, errors.NewInvalidInput("voice feature vector has wrong length",
			map[string]interface{}{"want": features.VoiceFeatureCount, "got": len(vector)})
	}

	scaled, err := m.scaler.Transform(vector)
	if err != nil {
		return nil, errors.Wrap(errors.ErrClassificationFailed, err.Error())
	}
	proba, err := m.forest.PredictProba(scaled)
	if err != nil {
		return nil, errors.Wrap(errors.ErrClassificationFailed, err.Error())
	}

	modelClass := classHuman
	if proba[classAI] > proba[classHuman] {
		modelClass = classAI
	}

	energyVariance := vector[features.EnergyVarianceIndex]

	finalClass, confidence, band := resolve(energyVariance, modelClass, proba)

	label := LabelHuman
	if finalClass == classAI {
		label = LabelAI
	}

	return &Result{
		Classification: label,
		Confidence:     clamp01(confidence),
		Explanation:    explain(label, energyVariance, confidence),
		Band:           band,
	}, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
