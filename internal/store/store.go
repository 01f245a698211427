// Package store persists calibrated models and prediction runs.
package store

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/landcover-aoa/internal/model"
)

// ModelFilter specifies criteria for listing models.
type ModelFilter struct {
	Name   string `json:"name,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status  model.RunStatus `json:"status,omitempty"`
	ModelID string          `json:"model_id,omitempty"`
	Limit   int             `json:"limit,omitempty"`
	Offset  int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for models and prediction runs.
type Store interface {
	// Models
	SaveModel(ctx context.Context, m *model.Model) error
	GetModel(ctx context.Context, id string) (*model.Model, error)
	ListModels(ctx context.Context, filter ModelFilter) ([]model.ModelInfo, error)
	TrainingOutliers(ctx context.Context, modelID string, limit int) ([]model.TrainingSample, error)

	// Runs
	CreateRun(ctx context.Context, modelID, grid string) (*model.Run, error)
	CompleteRun(ctx context.Context, runID string, summary *model.RunSummary) error
	FailRun(ctx context.Context, runID string, reason string) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

const defaultListLimit = 100

// prepareModel checks that the calibration of m covers every training
// sample and returns a copy of m with its identity filled in. m itself is
// left untouched until the save commits.
func prepareModel(m *model.Model) (*model.Model, error) {
	if m.Space.Len() == 0 {
		return nil, eris.New("model has no training samples")
	}
	if len(m.Calibration.DI) != m.Space.Len() || len(m.Calibration.Distances) != m.Space.Len() {
		return nil, eris.Errorf("calibration covers %d samples, feature space has %d", len(m.Calibration.DI), m.Space.Len())
	}
	rec := *m
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	return &rec, nil
}

// modelBlobs holds the JSON columns of a model row.
type modelBlobs struct {
	features, space, calibration []byte
}

func encodeModel(m *model.Model) (modelBlobs, error) {
	var b modelBlobs
	var err error
	if b.features, err = json.Marshal(m.Space.Features); err != nil {
		return b, eris.Wrap(err, "marshal features")
	}
	if b.space, err = json.Marshal(m.Space); err != nil {
		return b, eris.Wrap(err, "marshal feature space")
	}
	if b.calibration, err = json.Marshal(m.Calibration); err != nil {
		return b, eris.Wrap(err, "marshal calibration")
	}
	return b, nil
}

func decodeModel(m *model.Model, b modelBlobs) error {
	if err := json.Unmarshal(b.space, &m.Space); err != nil {
		return eris.Wrap(err, "unmarshal feature space")
	}
	if err := json.Unmarshal(b.calibration, &m.Calibration); err != nil {
		return eris.Wrap(err, "unmarshal calibration")
	}
	n := m.Space.Len()
	m.Calibration.Distances = make([]float64, n)
	m.Calibration.DI = make([]float64, n)
	for i := 0; i < n; i++ {
		m.Calibration.Distances[i] = math.NaN()
		m.Calibration.DI[i] = math.NaN()
	}
	return nil
}

// setSample records one model_samples row on a decoded model.
func setSample(m *model.Model, row int, distance, di *float64) error {
	if row < 0 || row >= len(m.Calibration.DI) {
		return eris.Errorf("sample row %d out of range", row)
	}
	if distance != nil {
		m.Calibration.Distances[row] = *distance
	}
	if di != nil {
		m.Calibration.DI[row] = *di
	}
	return nil
}

// nullable maps NaN to SQL NULL.
func nullable(v float64) any {
	if math.IsNaN(v) {
		return nil
	}
	return v
}

func listLimit(n int) int {
	if n <= 0 {
		return defaultListLimit
	}
	return n
}
