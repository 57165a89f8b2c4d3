package language

import (
	"path/filepath"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"voiceauth-server/pkg/audio"
	"voiceauth-server/pkg/errors"
	"voiceauth-server/pkg/features"
	"voiceauth-server/pkg/metrics"
	"voiceauth-server/pkg/ml"
)

// Labels are the supported languages, in model class order.
var Labels = []string{"English", "Tamil", "Malayalam", "Hindi", "Telugu"}

// NumLanguages is the number of supported language classes.
const NumLanguages = 5

// IsSupported reports whether a label is one of the supported languages.
func IsSupported(label string) bool {
	for _, l := range Labels {
		if l == label {
			return true
		}
	}
	return false
}

// trainedModel pairs the fitted scaler with the fitted forest; swapped as a
// unit so a retrain is never observed mid-update.
type trainedModel struct {
	scaler *ml.StandardScaler
	forest *ml.RandomForest
}

// Detector identifies the spoken language of a recording from its acoustic
// feature vector.
type Detector struct {
	logger    *logrus.Logger
	extractor *features.Extractor
	model     atomic.Pointer[trainedModel]

	forestPath string
	scalerPath string
}

// NewDetector creates a detector that persists its artifacts under modelDir.
func NewDetector(logger *logrus.Logger, modelDir string) *Detector {
	return &Detector{
		logger:     logger,
		extractor:  features.NewExtractor(),
		forestPath: filepath.Join(modelDir, "language_classifier.bin"),
		scalerPath: filepath.Join(modelDir, "language_scaler.bin"),
	}
}

// Ready reports whether a model is available for prediction.
func (d *Detector) Ready() bool {
	return d.model.Load() != nil
}

// Train fits the scaler and five-class forest on a labeled language
// feature matrix and swaps the new pair in atomically.
func (d *Detector) Train(X [][]float64, y []int) error {
	scaler := &ml.StandardScaler{}
	if err := scaler.Fit(X); err != nil {
		return errors.Wrap(err, "failed to fit language scaler")
	}

	scaled, err := scaler.TransformAll(X)
	if err != nil {
		return errors.Wrap(err, "failed to standardize language training data")
	}

	// Deeper trees than the voice model: five classes over a wider vector.
	params := ml.DefaultForestParams()
	params.MaxDepth = 20

	forest, err := ml.TrainForest(scaled, y, NumLanguages, params)
	if err != nil {
		return errors.Wrap(err, "failed to train language forest")
	}

	d.model.Store(&trainedModel{scaler: scaler, forest: forest})
	metrics.ObserveTraining("language")

	d.logger.WithFields(logrus.Fields{
		"samples":   len(X),
		"features":  len(X[0]),
		"languages": NumLanguages,
	}).Info("Language classifier trained")

	return nil
}

// Predict identifies the language of raw MP3 bytes, returning the label and
// its predicted probability.
func (d *Detector) Predict(audioBytes []byte) (string, float64, error) {
	sig, err := audio.DecodeMP3(audioBytes)
	if err != nil {
		return "", 0, err
	}
	return d.PredictSignal(sig)
}

// PredictSignal identifies the language of an already-decoded signal.
func (d *Detector) PredictSignal(sig *audio.Signal) (string, float64, error) {
	m := d.model.Load()
	if m == nil {
		return "", 0, errors.NewModelNotReady("language detector invoked before training or loading")
	}

	vector, err := d.extractor.LanguageVector(sig)
	if err != nil {
		return "", 0, err
	}
	return predictVector(m, vector)
}

// PredictVector classifies a precomputed language feature vector.
func (d *Detector) PredictVector(vector []float64) (string, float64, error) {
	m := d.model.Load()
	if m == nil {
		return "", 0, errors.NewModelNotReady("language detector invoked before training or loading")
	}
	return predictVector(m, vector)
}

func predictVector(m *trainedModel, vector []float64) (string, float64, error) {
	scaled, err := m.scaler.Transform(vector)
	if err != nil {
		return "", 0, errors.Wrap(errors.ErrClassificationFailed, err.Error())
	}

	proba, err := m.forest.PredictProba(scaled)
	if err != nil {
		return "", 0, errors.Wrap(errors.ErrClassificationFailed, err.Error())
	}

	best := 0
	for c := 1; c < len(proba); c++ {
		if proba[c] > proba[best] {
			best = c
		}
	}
	return Labels[best], proba[best], nil
}

// Save persists the current model and scaler artifacts.
func (d *Detector) Save() error {
	m := d.model.Load()
	if m == nil {
		return errors.NewModelNotReady("no language model to save")
	}
	if err := ml.SaveArtifact(d.forestPath, m.forest); err != nil {
		return err
	}
	return ml.SaveArtifact(d.scalerPath, m.scaler)
}

// Load restores persisted artifacts. Returns false without error when no
// artifacts exist.
func (d *Detector) Load() (bool, error) {
	if !ml.ArtifactExists(d.forestPath) || !ml.ArtifactExists(d.scalerPath) {
		return false, nil
	}

	forest := &ml.RandomForest{}
	if err := ml.LoadArtifact(d.forestPath, forest); err != nil {
		return false, err
	}
	scaler := &ml.StandardScaler{}
	if err := ml.LoadArtifact(d.scalerPath, scaler); err != nil {
		return false, err
	}

	d.model.Store(&trainedModel{scaler: scaler, forest: forest})
	d.logger.WithField("path", d.forestPath).Info("Language model loaded from disk")
	return true, nil
}

// EnsureReady loads persisted artifacts or bootstraps a synthetic model
// when none exist.
func (d *Detector) EnsureReady() error {
	if d.Ready() {
		return nil
	}

	loaded, err := d.Load()
	if err != nil {
		return err
	}
	if loaded {
		return nil
	}

	d.logger.Warn("No pre-trained language model found, bootstrapping from synthetic data")
	return d.Bootstrap()
}
