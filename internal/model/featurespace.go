package model

// FeatureSpace is the training feature distribution an AOA model compares
// new observations against. Mean and Scale are computed once from the
// training rows and must be reused unchanged for every prediction.
type FeatureSpace struct {
	Features []string    `json:"features"`
	Mean     []float64   `json:"mean"`
	Scale    []float64   `json:"scale"`   // standard deviation; 0 marks a constant feature
	Weights  []float64   `json:"weights"` // importance weights rescaled to max 1
	Train    [][]float64 `json:"train"`   // raw training vectors, one per sample
	Labels   []string    `json:"labels,omitempty"`
	Units    []string    `json:"units,omitempty"`
	Folds    []int       `json:"folds,omitempty"`
}

// Len returns the number of training samples.
func (fs *FeatureSpace) Len() int { return len(fs.Train) }

// Dims returns the number of features.
func (fs *FeatureSpace) Dims() int { return len(fs.Features) }

// Transform writes the normalized, weighted projection of x into dst and
// returns it. Constant features project to 0 for every observation. dst is
// allocated when it is nil or too short.
func (fs *FeatureSpace) Transform(dst, x []float64) []float64 {
	if len(dst) < len(fs.Features) {
		dst = make([]float64, len(fs.Features))
	}
	dst = dst[:len(fs.Features)]
	for j := range fs.Features {
		if fs.Scale[j] == 0 {
			dst[j] = 0
			continue
		}
		dst[j] = (x[j] - fs.Mean[j]) / fs.Scale[j] * fs.Weights[j]
	}
	return dst
}

// Projected returns the transformed training vectors.
func (fs *FeatureSpace) Projected() [][]float64 {
	out := make([][]float64, len(fs.Train))
	for i, x := range fs.Train {
		out[i] = fs.Transform(nil, x)
	}
	return out
}

// FeatureIndex returns the position of name in Features, or -1.
func (fs *FeatureSpace) FeatureIndex(name string) int {
	for i, f := range fs.Features {
		if f == name {
			return i
		}
	}
	return -1
}
