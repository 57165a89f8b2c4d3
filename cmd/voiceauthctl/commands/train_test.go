package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStratifiedSplitKeepsClassBalance(t *testing.T) {
	y := make([]int, 0, 100)
	for i := 0; i < 80; i++ {
		y = append(y, 0)
	}
	for i := 0; i < 20; i++ {
		y = append(y, 1)
	}

	trainIdx, testIdx := stratifiedSplit(y, 2, 0.2, 42)

	assert.Len(t, trainIdx, 80)
	assert.Len(t, testIdx, 20)

	testByClass := map[int]int{}
	for _, i := range testIdx {
		testByClass[y[i]]++
	}
	assert.Equal(t, 16, testByClass[0], "Majority class contributes 20% of itself")
	assert.Equal(t, 4, testByClass[1], "Minority class contributes 20% of itself")

	// No index appears twice across the two partitions.
	seen := map[int]bool{}
	for _, i := range append(append([]int{}, trainIdx...), testIdx...) {
		require.False(t, seen[i], "index %d duplicated", i)
		seen[i] = true
	}
	assert.Len(t, seen, len(y))
}

func TestStratifiedSplitTinyClasses(t *testing.T) {
	y := []int{0, 0, 1, 1}

	trainIdx, testIdx := stratifiedSplit(y, 2, 0.2, 1)

	// Each class keeps a training sample and still gets one test sample.
	assert.Len(t, trainIdx, 2)
	assert.Len(t, testIdx, 2)
}

func TestStratifiedSplitIsDeterministic(t *testing.T) {
	y := []int{0, 1, 0, 1, 0, 1, 0, 1, 0, 1}

	a1, b1 := stratifiedSplit(y, 2, 0.3, 7)
	a2, b2 := stratifiedSplit(y, 2, 0.3, 7)

	assert.Equal(t, a1, a2)
	assert.Equal(t, b1, b2)
}

func TestSubset(t *testing.T) {
	X := [][]float64{{1}, {2}, {3}, {4}}
	y := []int{0, 1, 0, 1}

	subX, subY := subset(X, y, []int{1, 3})
	assert.Equal(t, [][]float64{{2}, {4}}, subX)
	assert.Equal(t, []int{1, 1}, subY)
}
