package ml

import (
	"math"
	"math/rand"

	"voiceauth-server/pkg/errors"
)

// ForestParams configure random forest training. Defaults mirror the
// settings the service's models were originally tuned with.
type ForestParams struct {
	NumTrees        int   `msgpack:"num_trees"`
	MaxDepth        int   `msgpack:"max_depth"`
	MinSamplesSplit int   `msgpack:"min_samples_split"`
	MinSamplesLeaf  int   `msgpack:"min_samples_leaf"`
	Seed            int64 `msgpack:"seed"`

	// BalanceClasses weights samples by inverse class frequency.
	BalanceClasses bool `msgpack:"balance_classes"`
}

// DefaultForestParams returns the standard configuration: 100 trees,
// deterministic seed.
func DefaultForestParams() ForestParams {
	return ForestParams{
		NumTrees:        100,
		MaxDepth:        10,
		MinSamplesSplit: 5,
		MinSamplesLeaf:  2,
		Seed:            42,
	}
}

// RandomForest is a bagged ensemble of CART trees exposing per-class
// probabilities. Immutable after training; safe for concurrent prediction.
type RandomForest struct {
	Params      ForestParams `msgpack:"params"`
	Trees       []*TreeNode  `msgpack:"trees"`
	NumClasses  int          `msgpack:"num_classes"`
	NumFeatures int          `msgpack:"num_features"`
}

// TrainForest fits a forest on a labeled feature matrix. Labels must be in
// [0, numClasses). Training is deterministic for a given seed.
func TrainForest(X [][]float64, y []int, numClasses int, params ForestParams) (*RandomForest, error) {
	if len(X) == 0 {
		return nil, errors.New("cannot train forest on empty matrix")
	}
	if len(X) != len(y) {
		return nil, errors.New("feature and label counts differ")
	}
	for _, label := range y {
		if label < 0 || label >= numClasses {
			return nil, errors.New("label out of range").WithField("label", label)
		}
	}

	numFeatures := len(X[0])

	weights := make([]float64, len(y))
	if params.BalanceClasses {
		// weight = n_samples / (n_classes * class_count)
		counts := make([]float64, numClasses)
		for _, label := range y {
			counts[label]++
		}
		for i, label := range y {
			weights[i] = float64(len(y)) / (float64(numClasses) * counts[label])
		}
	} else {
		for i := range weights {
			weights[i] = 1
		}
	}

	tp := treeParams{
		maxDepth:        params.MaxDepth,
		minSamplesSplit: params.MinSamplesSplit,
		minSamplesLeaf:  params.MinSamplesLeaf,
		maxFeatures:     int(math.Max(1, math.Round(math.Sqrt(float64(numFeatures))))),
		numClasses:      numClasses,
	}

	master := rand.New(rand.NewSource(params.Seed))
	forest := &RandomForest{
		Params:      params,
		Trees:       make([]*TreeNode, params.NumTrees),
		NumClasses:  numClasses,
		NumFeatures: numFeatures,
	}

	for t := 0; t < params.NumTrees; t++ {
		rng := rand.New(rand.NewSource(master.Int63()))

		// Bootstrap sample with replacement.
		indices := make([]int, len(X))
		for i := range indices {
			indices[i] = rng.Intn(len(X))
		}

		forest.Trees[t] = growTree(X, y, weights, indices, tp, rng, 0)
	}

	return forest, nil
}

// PredictProba returns the averaged class probability distribution.
func (f *RandomForest) PredictProba(x []float64) ([]float64, error) {
	if len(f.Trees) == 0 {
		return nil, errors.NewModelNotReady("forest has no trees")
	}
	if len(x) != f.NumFeatures {
		return nil, errors.New("feature vector length mismatch").
			WithField("want", f.NumFeatures).
			WithField("got", len(x))
	}

	proba := make([]float64, f.NumClasses)
	voted := 0
	for _, tree := range f.Trees {
		p := tree.predictProba(x)
		if p == nil {
			continue
		}
		for c := range proba {
			proba[c] += p[c]
		}
		voted++
	}
	if voted == 0 {
		return nil, errors.NewClassificationFailed("no tree produced a prediction")
	}
	for c := range proba {
		proba[c] /= float64(voted)
	}
	return proba, nil
}

// Predict returns the argmax class.
func (f *RandomForest) Predict(x []float64) (int, error) {
	proba, err := f.PredictProba(x)
	if err != nil {
		return 0, err
	}
	best := 0
	for c := 1; c < len(proba); c++ {
		if proba[c] > proba[best] {
			best = c
		}
	}
	return best, nil
}
