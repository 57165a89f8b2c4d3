package ml

import (
	"math/rand"
	"sort"
)

// TreeNode is a single node of a CART decision tree. Exported fields so the
// whole tree serializes through msgpack.
type TreeNode struct {
	Feature   int       `msgpack:"feature"`
	Threshold float64   `msgpack:"threshold"`
	Left      *TreeNode `msgpack:"left"`
	Right     *TreeNode `msgpack:"right"`

	// Proba is the class probability distribution at a leaf.
	Proba []float64 `msgpack:"proba"`
	Leaf  bool      `msgpack:"leaf"`
}

// treeParams bound tree growth.
type treeParams struct {
	maxDepth       int
	minSamplesSplit int
	minSamplesLeaf int
	maxFeatures    int
	numClasses     int
}

// growTree builds a CART tree on the sample indices using weighted gini
// impurity. Sample weights carry class balancing.
func growTree(X [][]float64, y []int, weights []float64, indices []int, params treeParams, rng *rand.Rand, depth int) *TreeNode {
	if len(indices) == 0 {
		return nil
	}

	counts := classCounts(y, weights, indices, params.numClasses)
	if depth >= params.maxDepth ||
		len(indices) < params.minSamplesSplit ||
		isPure(counts) {
		return leafNode(counts)
	}

	feature, threshold, ok := bestSplit(X, y, weights, indices, params, rng)
	if !ok {
		return leafNode(counts)
	}

	var left, right []int
	for _, i := range indices {
		if X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	if len(left) < params.minSamplesLeaf || len(right) < params.minSamplesLeaf {
		return leafNode(counts)
	}

	return &TreeNode{
		Feature:   feature,
		Threshold: threshold,
		Left:      growTree(X, y, weights, left, params, rng, depth+1),
		Right:     growTree(X, y, weights, right, params, rng, depth+1),
	}
}

func leafNode(counts []float64) *TreeNode {
	total := 0.0
	for _, c := range counts {
		total += c
	}
	proba := make([]float64, len(counts))
	if total > 0 {
		for i, c := range counts {
			proba[i] = c / total
		}
	}
	return &TreeNode{Leaf: true, Proba: proba}
}

func classCounts(y []int, weights []float64, indices []int, numClasses int) []float64 {
	counts := make([]float64, numClasses)
	for _, i := range indices {
		counts[y[i]] += weights[i]
	}
	return counts
}

func isPure(counts []float64) bool {
	nonZero := 0
	for _, c := range counts {
		if c > 0 {
			nonZero++
		}
	}
	return nonZero <= 1
}

func gini(counts []float64) float64 {
	total := 0.0
	for _, c := range counts {
		total += c
	}
	if total == 0 {
		return 0
	}
	impurity := 1.0
	for _, c := range counts {
		p := c / total
		impurity -= p * p
	}
	return impurity
}

// bestSplit finds the lowest weighted-gini split over a random feature
// subset of size maxFeatures.
func bestSplit(X [][]float64, y []int, weights []float64, indices []int, params treeParams, rng *rand.Rand) (int, float64, bool) {
	numFeatures := len(X[indices[0]])

	candidates := rng.Perm(numFeatures)
	if params.maxFeatures < len(candidates) {
		candidates = candidates[:params.maxFeatures]
	}

	bestGini := gini(classCounts(y, weights, indices, params.numClasses))
	bestFeature := -1
	bestThreshold := 0.0
	found := false

	type sample struct {
		value  float64
		label  int
		weight float64
	}

	for _, feature := range candidates {
		samples := make([]sample, len(indices))
		for k, i := range indices {
			samples[k] = sample{X[i][feature], y[i], weights[i]}
		}
		sort.Slice(samples, func(a, b int) bool { return samples[a].value < samples[b].value })

		leftCounts := make([]float64, params.numClasses)
		rightCounts := make([]float64, params.numClasses)
		totalWeight := 0.0
		for _, s := range samples {
			rightCounts[s.label] += s.weight
			totalWeight += s.weight
		}

		leftWeight := 0.0
		for k := 0; k < len(samples)-1; k++ {
			s := samples[k]
			leftCounts[s.label] += s.weight
			rightCounts[s.label] -= s.weight
			leftWeight += s.weight

			// Only split between distinct values.
			if samples[k+1].value == s.value {
				continue
			}

			rightWeight := totalWeight - leftWeight
			weighted := (leftWeight*gini(leftCounts) + rightWeight*gini(rightCounts)) / totalWeight
			if weighted < bestGini {
				bestGini = weighted
				bestFeature = feature
				bestThreshold = (s.value + samples[k+1].value) / 2
				found = true
			}
		}
	}

	return bestFeature, bestThreshold, found
}

// predictProba walks the tree to a leaf distribution.
func (n *TreeNode) predictProba(x []float64) []float64 {
	node := n
	for node != nil && !node.Leaf {
		if x[node.Feature] <= node.Threshold {
			if node.Left == nil {
				break
			}
			node = node.Left
		} else {
			if node.Right == nil {
				break
			}
			node = node.Right
		}
	}
	if node == nil || node.Proba == nil {
		return nil
	}
	return node.Proba
}
