// Package aoa estimates the area of applicability of a trained classifier:
// a per-cell dissimilarity index against the training feature space and the
// binary mask derived from it.
package aoa

import (
	"math"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/sells-group/landcover-aoa/internal/model"
)

// MinTrainingSamples is the smallest training set a feature space accepts.
const MinTrainingSamples = 2

// NewFeatureSpace derives normalization statistics and importance weights
// from the training samples. importance may be nil for uniform weights.
// assignment, when non-nil, records each sample's fold for fold-aware
// calibration.
func NewFeatureSpace(samples []model.Sample, features []string, importance map[string]float64, assignment *model.FoldAssignment) (*model.FeatureSpace, error) {
	if len(samples) < MinTrainingSamples {
		return nil, eris.Errorf("aoa: need at least %d training samples, got %d", MinTrainingSamples, len(samples))
	}
	if len(features) == 0 {
		return nil, eris.New("aoa: no features")
	}
	seen := make(map[string]struct{}, len(features))
	for _, f := range features {
		if _, dup := seen[f]; dup {
			return nil, eris.Errorf("aoa: duplicate feature %q", f)
		}
		seen[f] = struct{}{}
	}
	if assignment != nil && len(assignment.Fold) != len(samples) {
		return nil, eris.Errorf("aoa: fold assignment covers %d samples, training set has %d", len(assignment.Fold), len(samples))
	}

	train := make([][]float64, len(samples))
	for i, s := range samples {
		if len(s.Features) != len(features) {
			return nil, eris.Errorf("aoa: sample %d has %d features, want %d", i, len(s.Features), len(features))
		}
		for j, v := range s.Features {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, eris.Errorf("aoa: sample %d has a missing value for feature %q", i, features[j])
			}
		}
		train[i] = append([]float64(nil), s.Features...)
	}

	mean, scale := columnStats(train, len(features))

	weights, err := normalizeWeights(features, importance)
	if err != nil {
		return nil, err
	}

	fs := &model.FeatureSpace{
		Features: append([]string(nil), features...),
		Mean:     mean,
		Scale:    scale,
		Weights:  weights,
		Train:    train,
		Labels:   model.Labels(samples),
		Units:    model.Units(samples),
	}
	if assignment != nil {
		fs.Folds = append([]int(nil), assignment.Fold...)
	}
	return fs, nil
}

// columnStats returns per-feature mean and sample standard deviation. A
// standard deviation that is zero up to rounding is reported as exactly 0.
func columnStats(rows [][]float64, dims int) (mean, scale []float64) {
	mean = make([]float64, dims)
	scale = make([]float64, dims)
	col := make([]float64, len(rows))
	for j := 0; j < dims; j++ {
		for i, r := range rows {
			col[i] = r[j]
		}
		m, sd := stat.MeanStdDev(col, nil)
		mean[j] = m
		if math.IsNaN(sd) || sd <= 1e-12*math.Max(1, math.Abs(m)) {
			sd = 0
		}
		scale[j] = sd
	}
	return mean, scale
}

// normalizeWeights orders importance values by feature and rescales them to
// a maximum of 1.
func normalizeWeights(features []string, importance map[string]float64) ([]float64, error) {
	w := make([]float64, len(features))
	if importance == nil {
		for i := range w {
			w[i] = 1
		}
		return w, nil
	}

	known := make(map[string]struct{}, len(features))
	for i, f := range features {
		known[f] = struct{}{}
		v, ok := importance[f]
		if !ok {
			return nil, eris.Errorf("aoa: no importance for feature %q", f)
		}
		if math.IsNaN(v) || v < 0 {
			return nil, eris.Errorf("aoa: importance for feature %q must be non-negative, got %v", f, v)
		}
		w[i] = v
	}
	for name := range importance {
		if _, ok := known[name]; !ok {
			return nil, eris.Errorf("aoa: importance given for unknown feature %q", name)
		}
	}

	top := floats.Max(w)
	if top == 0 {
		return nil, eris.New("aoa: all importance weights are zero")
	}
	floats.Scale(1/top, w)
	return w, nil
}
