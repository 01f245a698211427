package folds

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/landcover-aoa/internal/model"
)

func TestSummarize_Geometry(t *testing.T) {
	var samples []model.Sample
	for u, x := range []float64{0, 10, 20} {
		for y := 0; y < 3; y++ {
			samples = append(samples, model.Sample{
				Unit:  string(rune('a' + u)),
				Label: "forest",
				X:     x,
				Y:     float64(y),
				HasXY: true,
			})
		}
	}

	a, err := Build(samples, 3, Options{})
	require.NoError(t, err)

	sums := Summarize(samples, a)
	require.Len(t, sums, 3)

	first := sums[a.Fold[0]] // fold holding the unit at x=0
	assert.True(t, first.HasGeometry)
	assert.InDelta(t, 0, first.Centroid[0], 1e-12)
	assert.InDelta(t, 1, first.Centroid[1], 1e-12)
	assert.InDelta(t, 10, first.MinTrainDistance, 1e-12)
	assert.Equal(t, 3, first.TestSize)
	assert.Equal(t, 6, first.TrainSize)
	assert.Equal(t, 1, first.Units)
}

func TestSummarize_NoGeometryWithoutCoordinates(t *testing.T) {
	samples := makeSamples(2, [2]string{"a", "x"}, [2]string{"b", "y"})
	samples[0].HasXY = true

	a, err := Build(samples, 2, Options{})
	require.NoError(t, err)

	for _, s := range Summarize(samples, a) {
		assert.False(t, s.HasGeometry)
		assert.Nil(t, s.Centroid)
		assert.InDelta(t, 0.5, s.MaxClassDeviation, 1e-12)
	}
}

func TestSeparation_NoTrainingPoints(t *testing.T) {
	samples := []model.Sample{{X: 1, Y: 1, HasXY: true}}
	c, d := separation(samples, model.Fold{Test: []int{0}})
	assert.Equal(t, 1.0, c[0])
	assert.True(t, math.IsInf(d, 1))
}
