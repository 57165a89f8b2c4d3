package language

import (
	"io"
	"math/rand"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voiceauth-server/pkg/errors"
	"voiceauth-server/pkg/features"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// clusteredData builds one Gaussian cluster per language class.
func clusteredData(perClass int) ([][]float64, []int) {
	rng := rand.New(rand.NewSource(11))

	centers := make([][]float64, NumLanguages)
	for c := range centers {
		centers[c] = make([]float64, features.LanguageFeatureCount)
		for j := range centers[c] {
			centers[c][j] = rng.NormFloat64() * 3.0
		}
	}

	var X [][]float64
	var y []int
	for c := 0; c < NumLanguages; c++ {
		for i := 0; i < perClass; i++ {
			row := make([]float64, features.LanguageFeatureCount)
			for j := range row {
				row[j] = centers[c][j] + rng.NormFloat64()*0.5
			}
			X = append(X, row)
			y = append(y, c)
		}
	}
	return X, y
}

func TestIsSupported(t *testing.T) {
	for _, label := range Labels {
		assert.True(t, IsSupported(label), label)
	}
	assert.False(t, IsSupported("French"))
	assert.False(t, IsSupported("english"), "Labels are case sensitive")
	assert.False(t, IsSupported(""))
}

func TestLabelsMatchClassCount(t *testing.T) {
	assert.Len(t, Labels, NumLanguages)
}

func TestPredictBeforeTraining(t *testing.T) {
	d := NewDetector(testLogger(), t.TempDir())

	assert.False(t, d.Ready())
	_, _, err := d.PredictVector(make([]float64, features.LanguageFeatureCount))
	assert.ErrorIs(t, err, errors.ErrModelNotReady)
}

func TestTrainAndPredictVector(t *testing.T) {
	d := NewDetector(testLogger(), t.TempDir())

	X, y := clusteredData(30)
	require.NoError(t, d.Train(X, y))
	assert.True(t, d.Ready())

	correct := 0
	for i, vec := range X {
		label, confidence, err := d.PredictVector(vec)
		require.NoError(t, err)
		assert.True(t, IsSupported(label), "Prediction must be a supported label")
		assert.GreaterOrEqual(t, confidence, 0.0)
		assert.LessOrEqual(t, confidence, 1.0)
		if label == Labels[y[i]] {
			correct++
		}
	}
	assert.Greater(t, float64(correct)/float64(len(X)), 0.9,
		"Well-separated clusters should mostly classify correctly")
}

func TestPredictVectorRejectsWrongLength(t *testing.T) {
	d := NewDetector(testLogger(), t.TempDir())
	X, y := clusteredData(10)
	require.NoError(t, d.Train(X, y))

	_, _, err := d.PredictVector(make([]float64, 3))
	assert.Error(t, err)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()

	d := NewDetector(testLogger(), dir)
	X, y := clusteredData(20)
	require.NoError(t, d.Train(X, y))
	require.NoError(t, d.Save())

	wantLabel, wantConf, err := d.PredictVector(X[0])
	require.NoError(t, err)

	reloaded := NewDetector(testLogger(), dir)
	loaded, err := reloaded.Load()
	require.NoError(t, err)
	require.True(t, loaded)

	gotLabel, gotConf, err := reloaded.PredictVector(X[0])
	require.NoError(t, err)
	assert.Equal(t, wantLabel, gotLabel)
	assert.Equal(t, wantConf, gotConf)
}

func TestEnsureReadyBootstraps(t *testing.T) {
	dir := t.TempDir()

	d := NewDetector(testLogger(), dir)
	require.NoError(t, d.EnsureReady())
	assert.True(t, d.Ready())

	// Bootstrapped predictions are still valid labels with sane confidence.
	label, confidence, err := d.PredictVector(make([]float64, features.LanguageFeatureCount))
	require.NoError(t, err)
	assert.True(t, IsSupported(label))
	assert.GreaterOrEqual(t, confidence, 0.0)
	assert.LessOrEqual(t, confidence, 1.0)
}

func TestPredictRejectsInvalidAudio(t *testing.T) {
	d := NewDetector(testLogger(), t.TempDir())
	require.NoError(t, d.EnsureReady())

	_, _, err := d.Predict([]byte("not an mp3"))
	assert.Error(t, err)
}
