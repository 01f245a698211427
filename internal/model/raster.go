package model

import "math"

// MaskNoData marks cells of an applicability mask whose features were missing.
const MaskNoData uint8 = 255

// Raster is a grid of per-cell feature vectors, stored pixel-interleaved:
// the value of band b at (row, col) is Values[(row*Cols+col)*len(Bands)+b].
// NaN is always treated as missing; NoData is an additional sentinel when
// HasNoData is set.
type Raster struct {
	Rows      int       `json:"rows"`
	Cols      int       `json:"cols"`
	Bands     []string  `json:"bands"`
	Values    []float64 `json:"-"`
	NoData    float64   `json:"nodata,omitempty"`
	HasNoData bool      `json:"has_nodata,omitempty"`
}

// NewRaster allocates a raster with every value missing.
func NewRaster(rows, cols int, bands []string) *Raster {
	vals := make([]float64, rows*cols*len(bands))
	for i := range vals {
		vals[i] = math.NaN()
	}
	return &Raster{Rows: rows, Cols: cols, Bands: bands, Values: vals}
}

// Cells returns the number of grid cells.
func (r *Raster) Cells() int { return r.Rows * r.Cols }

// Cell returns the band values at (row, col). The slice aliases Values.
func (r *Raster) Cell(row, col int) []float64 {
	nb := len(r.Bands)
	off := (row*r.Cols + col) * nb
	return r.Values[off : off+nb]
}

// Set stores v for band b at (row, col).
func (r *Raster) Set(row, col, b int, v float64) {
	r.Values[(row*r.Cols+col)*len(r.Bands)+b] = v
}

// IsNoData reports whether v is a missing value for this raster.
func (r *Raster) IsNoData(v float64) bool {
	return math.IsNaN(v) || (r.HasNoData && v == r.NoData)
}

// BandIndex returns the position of name in Bands, or -1.
func (r *Raster) BandIndex(name string) int {
	for i, b := range r.Bands {
		if b == name {
			return i
		}
	}
	return -1
}

// AOAResult holds the two output layers of an applicability estimate. Both
// layers have Rows*Cols cells in row-major order.
type AOAResult struct {
	Rows         int       `json:"rows"`
	Cols         int       `json:"cols"`
	DI           []float64 `json:"-"` // NaN where features were missing
	Mask         []uint8   `json:"-"` // 1 applicable, 0 not, MaskNoData missing
	Threshold    float64   `json:"threshold"`
	Applicable   int       `json:"applicable"`
	Inapplicable int       `json:"inapplicable"`
	NoData       int       `json:"nodata"`
}

// TrainDI is the calibration derived from the training feature space:
// the leave-one-out nearest neighbour distances, their normalized DI values,
// the reference distance and the applicability threshold.
type TrainDI struct {
	Distances     []float64 `json:"-"` // NaN where no eligible neighbour existed
	DI            []float64 `json:"-"`
	Reference     float64   `json:"reference"`
	Threshold     float64   `json:"threshold"`
	Rule          string    `json:"rule"`
	Exclusion     string    `json:"exclusion"`
	IQRMultiplier float64   `json:"iqr_multiplier,omitempty"`
	Quantile      float64   `json:"quantile,omitempty"`
}
