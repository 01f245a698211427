package aoa

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndex_KDTreeMatchesBrute(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	points := make([][]float64, 200)
	for i := range points {
		points[i] = []float64{rng.Float64(), rng.Float64(), rng.Float64(), rng.Float64()}
	}

	kd, err := NewIndex(IndexKDTree, points)
	require.NoError(t, err)
	brute, err := NewIndex(IndexBrute, points)
	require.NoError(t, err)

	for n := 0; n < 100; n++ {
		q := []float64{rng.Float64(), rng.Float64(), rng.Float64(), rng.Float64()}
		kr, kdist := kd.Nearest(q)
		br, bdist := brute.Nearest(q)
		assert.InDelta(t, bdist, kdist, 1e-12)
		assert.InDelta(t, math.Sqrt(sqDist(q, points[br])), math.Sqrt(sqDist(q, points[kr])), 1e-12)
	}
}

func TestIndex_ReturnsOriginalRow(t *testing.T) {
	points := [][]float64{{5, 5}, {0, 0}, {9, 1}, {3, 7}}
	for _, kind := range []IndexKind{IndexKDTree, IndexBrute, ""} {
		idx, err := NewIndex(kind, points)
		require.NoError(t, err)
		for want, p := range points {
			row, d := idx.Nearest(p)
			assert.Equal(t, want, row, "kind %q", kind)
			assert.Equal(t, 0.0, d)
		}
	}
}

func TestIndex_Errors(t *testing.T) {
	_, err := NewIndex(IndexKDTree, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty training set")

	_, err = NewIndex("ball", [][]float64{{1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown index kind "ball"`)
}
