package ml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voiceauth-server/pkg/errors"
)

func TestScalerFitAndTransform(t *testing.T) {
	s := &StandardScaler{}
	X := [][]float64{
		{1, 10},
		{3, 10},
		{5, 10},
	}
	require.NoError(t, s.Fit(X))

	assert.InDelta(t, 3.0, s.Mean[0], 1e-12)
	assert.Equal(t, 1.0, s.Scale[1], "Zero-variance feature should get scale 1")

	out, err := s.Transform([]float64{3, 10})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, out[0], 1e-12, "Value at the mean standardizes to zero")
	assert.InDelta(t, 0.0, out[1], 1e-12, "Constant feature standardizes to zero, not NaN")
}

func TestScalerRejectsBadInput(t *testing.T) {
	s := &StandardScaler{}
	assert.Error(t, s.Fit(nil), "Empty matrix should not fit")
	assert.Error(t, s.Fit([][]float64{{1, 2}, {1}}), "Ragged matrix should not fit")

	_, err := s.Transform([]float64{1})
	assert.ErrorIs(t, err, errors.ErrModelNotReady, "Unfitted scaler should refuse to transform")

	require.NoError(t, s.Fit([][]float64{{1, 2}, {3, 4}}))
	_, err = s.Transform([]float64{1})
	assert.Error(t, err, "Length mismatch should be rejected")
}

func TestScalerTransformDoesNotMutate(t *testing.T) {
	s := &StandardScaler{}
	require.NoError(t, s.Fit([][]float64{{1}, {3}}))

	in := []float64{5}
	_, err := s.Transform(in)
	require.NoError(t, err)
	assert.Equal(t, []float64{5}, in, "Transform must not modify its input")
}
