package ml

import (
	"math"

	"voiceauth-server/pkg/errors"
)

// StandardScaler standardizes features to zero mean and unit variance.
// Mean and scale are fit once on training data and immutable afterwards;
// Transform never mutates fitted state, so a fitted scaler is safe to share
// across concurrent inference calls.
type StandardScaler struct {
	Mean  []float64 `msgpack:"mean"`
	Scale []float64 `msgpack:"scale"`
}

// Fit computes per-feature mean and scale from a training matrix.
// Zero-variance features get scale 1 so transformed values stay finite.
func (s *StandardScaler) Fit(X [][]float64) error {
	if len(X) == 0 || len(X[0]) == 0 {
		return errors.New("cannot fit scaler on empty matrix")
	}

	numFeatures := len(X[0])
	s.Mean = make([]float64, numFeatures)
	s.Scale = make([]float64, numFeatures)

	for _, row := range X {
		if len(row) != numFeatures {
			return errors.New("ragged feature matrix")
		}
		for j, v := range row {
			s.Mean[j] += v
		}
	}
	for j := range s.Mean {
		s.Mean[j] /= float64(len(X))
	}

	for _, row := range X {
		for j, v := range row {
			d := v - s.Mean[j]
			s.Scale[j] += d * d
		}
	}
	for j := range s.Scale {
		s.Scale[j] = math.Sqrt(s.Scale[j] / float64(len(X)))
		if s.Scale[j] == 0 {
			s.Scale[j] = 1
		}
	}

	return nil
}

// Fitted reports whether the scaler has been fit.
func (s *StandardScaler) Fitted() bool {
	return len(s.Mean) > 0
}

// Transform standardizes a single feature vector.
func (s *StandardScaler) Transform(x []float64) ([]float64, error) {
	if !s.Fitted() {
		return nil, errors.NewModelNotReady("scaler not fitted")
	}
	if len(x) != len(s.Mean) {
		return nil, errors.New("feature vector length mismatch").
			WithField("want", len(s.Mean)).
			WithField("got", len(x))
	}

	out := make([]float64, len(x))
	for j, v := range x {
		out[j] = (v - s.Mean[j]) / s.Scale[j]
	}
	return out, nil
}

// TransformAll standardizes a matrix of feature vectors.
func (s *StandardScaler) TransformAll(X [][]float64) ([][]float64, error) {
	out := make([][]float64, len(X))
	for i, row := range X {
		scaled, err := s.Transform(row)
		if err != nil {
			return nil, err
		}
		out[i] = scaled
	}
	return out, nil
}
