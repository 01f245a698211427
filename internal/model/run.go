package model

import "time"

// RunStatus represents the state of a prediction run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Model is a persisted, calibrated feature space ready for prediction.
type Model struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Space       FeatureSpace `json:"space"`
	Calibration TrainDI      `json:"calibration"`
	CreatedAt   time.Time    `json:"created_at"`
}

// Run records one prediction over a grid with a stored model.
type Run struct {
	ID        string      `json:"id"`
	ModelID   string      `json:"model_id"`
	Grid      string      `json:"grid"`
	Status    RunStatus   `json:"status"`
	Result    *RunSummary `json:"result,omitempty"`
	Error     string      `json:"error,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// RunSummary holds the aggregate outcome of a prediction run.
type RunSummary struct {
	Rows         int     `json:"rows"`
	Cols         int     `json:"cols"`
	Applicable   int     `json:"applicable"`
	Inapplicable int     `json:"inapplicable"`
	NoData       int     `json:"nodata"`
	Threshold    float64 `json:"threshold"`
	MeanDI       float64 `json:"mean_di"`
	DurationMs   int64   `json:"duration_ms"`
}

// ApplicableFraction returns the share of valid cells inside the AOA.
func (s RunSummary) ApplicableFraction() float64 {
	valid := s.Applicable + s.Inapplicable
	if valid == 0 {
		return 0
	}
	return float64(s.Applicable) / float64(valid)
}

// ModelInfo is the listing view of a stored model.
type ModelInfo struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Features  []string  `json:"features"`
	Samples   int       `json:"samples"`
	Reference float64   `json:"reference"`
	Threshold float64   `json:"threshold"`
	Rule      string    `json:"rule"`
	CreatedAt time.Time `json:"created_at"`
}

// Info summarizes m for listings.
func (m *Model) Info() ModelInfo {
	return ModelInfo{
		ID:        m.ID,
		Name:      m.Name,
		Features:  m.Space.Features,
		Samples:   m.Space.Len(),
		Reference: m.Calibration.Reference,
		Threshold: m.Calibration.Threshold,
		Rule:      m.Calibration.Rule,
		CreatedAt: m.CreatedAt,
	}
}

// TrainingSample is one training sample's calibration outcome.
type TrainingSample struct {
	Row      int     `json:"row"`
	Unit     string  `json:"unit,omitempty"`
	Label    string  `json:"label,omitempty"`
	Distance float64 `json:"distance"`
	DI       float64 `json:"di"`
}

// TrainingSamples lists the per-sample calibration outcome of m. Samples
// without an eligible neighbour carry NaN distance and DI.
func (m *Model) TrainingSamples() []TrainingSample {
	out := make([]TrainingSample, len(m.Calibration.DI))
	for i := range out {
		out[i] = TrainingSample{Row: i, Distance: m.Calibration.Distances[i], DI: m.Calibration.DI[i]}
		if i < len(m.Space.Units) {
			out[i].Unit = m.Space.Units[i]
		}
		if i < len(m.Space.Labels) {
			out[i].Label = m.Space.Labels[i]
		}
	}
	return out
}
