package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/landcover-aoa/internal/model"
)

func TestFormatModelsList(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	var buf bytes.Buffer
	formatModelsList(&buf, []model.ModelInfo{
		{
			ID:        "abc12345-6789-0000-0000-000000000000",
			Name:      "sentinel",
			Features:  []string{"B02", "B03", "B04", "B05", "B06", "B07", "B08", "B11", "B12"},
			Samples:   1200,
			Threshold: 0.3456,
			Rule:      "whisker",
			CreatedAt: now,
		},
	})

	out := buf.String()
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "abc12345")
	assert.Contains(t, out, "sentinel")
	assert.Contains(t, out, "1200")
	assert.Contains(t, out, "B02,B03")
	assert.Contains(t, out, "...")
	assert.Contains(t, out, "0.3456")
	assert.Contains(t, out, "2025-06-15 10:30")
}

func TestDescribeModel(t *testing.T) {
	env := newTestEnv(t)
	m := trainTriangle(t, env)
	grid := writeTestFile(t, "grid.csv", triangleGridCSV)
	_, err := predictGrid(context.Background(), env.cfg, env.st, m.ID, grid, "")
	require.NoError(t, err)

	d, err := describeModel(context.Background(), env.st, m.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, m.ID, d.ID)
	assert.Equal(t, 3, d.Samples)
	assert.Equal(t, "unit", d.Exclusion)
	assert.Len(t, d.Weights, 2)
	require.Len(t, d.Outliers, 2)
	assert.InDelta(t, 1.0, d.Outliers[0].DI, 1e-9)
	require.Len(t, d.Runs, 1)
	assert.Equal(t, model.RunStatusComplete, d.Runs[0].Status)
}

func TestDescribeModel_NoOutliers(t *testing.T) {
	env := newTestEnv(t)
	m := trainTriangle(t, env)

	d, err := describeModel(context.Background(), env.st, m.ID, 0)
	require.NoError(t, err)
	assert.Nil(t, d.Outliers)
	assert.Empty(t, d.Runs)
}

func TestDescribeModel_NotFound(t *testing.T) {
	env := newTestEnv(t)
	_, err := describeModel(context.Background(), env.st, "missing", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
