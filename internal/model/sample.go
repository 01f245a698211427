// Package model defines the shared data records of the land-cover AOA toolkit.
package model

// Sample is one labeled training observation drawn from a spatial unit
// (typically a digitized polygon). Samples are not mutated after extraction.
type Sample struct {
	Features []float64 `json:"features"`
	Label    string    `json:"label"`
	Unit     string    `json:"unit"`
	X        float64   `json:"x,omitempty"`
	Y        float64   `json:"y,omitempty"`
	HasXY    bool      `json:"has_xy,omitempty"`
}

// Labels returns the class label of each sample.
func Labels(samples []Sample) []string {
	out := make([]string, len(samples))
	for i, s := range samples {
		out[i] = s.Label
	}
	return out
}

// Units returns the spatial unit identifier of each sample.
func Units(samples []Sample) []string {
	out := make([]string, len(samples))
	for i, s := range samples {
		out[i] = s.Unit
	}
	return out
}
