package aoa

import (
	"context"

	"github.com/sells-group/landcover-aoa/internal/model"
)

// Train builds the feature space for samples and calibrates it in one step.
func Train(ctx context.Context, samples []model.Sample, features []string, importance map[string]float64, assignment *model.FoldAssignment, opts Options) (*model.FeatureSpace, *model.TrainDI, error) {
	fs, err := NewFeatureSpace(samples, features, importance, assignment)
	if err != nil {
		return nil, nil, err
	}
	cal, err := Calibrate(ctx, fs, opts)
	if err != nil {
		return nil, nil, err
	}
	return fs, cal, nil
}
