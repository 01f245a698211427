package model

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testModel() *Model {
	return &Model{
		ID:   "m1",
		Name: "sentinel-2024",
		Space: FeatureSpace{
			Features: []string{"B04", "B08"},
			Train:    [][]float64{{0, 0}, {1, 0}, {0, 1}},
			Labels:   []string{"water", "forest", "urban"},
			Units:    []string{"p1", "p2", "p2"},
		},
		Calibration: TrainDI{
			Distances: []float64{1, math.NaN(), 2},
			DI:        []float64{0.5, math.NaN(), 1},
			Reference: 2,
			Threshold: 1,
			Rule:      "whisker",
		},
		CreatedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestModel_Info(t *testing.T) {
	info := testModel().Info()
	assert.Equal(t, "m1", info.ID)
	assert.Equal(t, "sentinel-2024", info.Name)
	assert.Equal(t, []string{"B04", "B08"}, info.Features)
	assert.Equal(t, 3, info.Samples)
	assert.Equal(t, 2.0, info.Reference)
	assert.Equal(t, 1.0, info.Threshold)
	assert.Equal(t, "whisker", info.Rule)
}

func TestModel_TrainingSamples(t *testing.T) {
	ts := testModel().TrainingSamples()
	require.Len(t, ts, 3)
	assert.Equal(t, TrainingSample{Row: 0, Unit: "p1", Label: "water", Distance: 1, DI: 0.5}, ts[0])
	assert.True(t, math.IsNaN(ts[1].DI))
	assert.Equal(t, "p2", ts[2].Unit)
}
