package table

import (
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/landcover-aoa/internal/model"
)

// SampleSpec names the columns of a training table.
type SampleSpec struct {
	Unit  string // spatial unit (polygon) identifier
	Label string // class label
	X, Y  string // optional point coordinates

	// Features lists the predictor columns in model order. When empty every
	// other column is a feature, in header order.
	Features []string

	// SkipFeatures extracts only unit, label and coordinates. Other columns
	// are not parsed and samples carry no feature values.
	SkipFeatures bool
}

// Samples converts the table into training samples. Every feature value must
// parse as a finite number; training samples with missing values are
// rejected rather than silently dropped.
func (t *Table) Samples(spec SampleSpec) ([]model.Sample, []string, error) {
	if spec.Unit == "" || spec.Label == "" {
		return nil, nil, eris.New("table: unit and label columns are required")
	}
	if (spec.X == "") != (spec.Y == "") {
		return nil, nil, eris.New("table: x and y columns must be given together")
	}
	cols, err := t.requireColumns(spec.Unit, spec.Label)
	if err != nil {
		return nil, nil, err
	}
	unitCol, labelCol := cols[0], cols[1]

	xCol, yCol := -1, -1
	if spec.X != "" {
		xy, err := t.requireColumns(spec.X, spec.Y)
		if err != nil {
			return nil, nil, err
		}
		xCol, yCol = xy[0], xy[1]
	}

	var features []string
	var featCols []int
	if !spec.SkipFeatures {
		if features, featCols, err = t.featureColumns(spec); err != nil {
			return nil, nil, err
		}
	}

	samples := make([]model.Sample, len(t.Rows))
	for i := range t.Rows {
		s := model.Sample{
			Unit:  strings.TrimSpace(t.Value(i, unitCol)),
			Label: strings.TrimSpace(t.Value(i, labelCol)),
		}
		if !spec.SkipFeatures {
			s.Features = make([]float64, len(featCols))
		}
		if s.Unit == "" {
			return nil, nil, eris.Errorf("table: row %d: empty %s", i+1, spec.Unit)
		}
		if s.Label == "" {
			return nil, nil, eris.Errorf("table: row %d: empty %s", i+1, spec.Label)
		}
		for j, c := range featCols {
			v, ok, err := parseNumber(t.Value(i, c))
			if err != nil {
				return nil, nil, eris.Wrapf(err, "table: row %d column %q", i+1, features[j])
			}
			if !ok {
				return nil, nil, eris.Errorf("table: row %d column %q: missing value", i+1, features[j])
			}
			s.Features[j] = v
		}
		if xCol >= 0 {
			x, okX, errX := parseNumber(t.Value(i, xCol))
			y, okY, errY := parseNumber(t.Value(i, yCol))
			if errX != nil || errY != nil || !okX || !okY {
				return nil, nil, eris.Errorf("table: row %d: invalid coordinates", i+1)
			}
			s.X, s.Y, s.HasXY = x, y, true
		}
		samples[i] = s
	}
	return samples, append([]string(nil), features...), nil
}

// featureColumns resolves the feature columns of spec to header positions.
func (t *Table) featureColumns(spec SampleSpec) ([]string, []int, error) {
	features := spec.Features
	if len(features) == 0 {
		reserved := map[string]bool{spec.Unit: true, spec.Label: true, spec.X: true, spec.Y: true}
		for _, h := range t.Header {
			if !reserved[h] {
				features = append(features, h)
			}
		}
		if len(features) == 0 {
			return nil, nil, eris.New("table: no feature columns")
		}
	}
	cols, err := t.requireColumns(features...)
	if err != nil {
		return nil, nil, err
	}
	return features, cols, nil
}

// parseNumber parses a numeric field. Empty, NA and NaN fields are missing
// and report ok=false without an error.
func parseNumber(s string) (v float64, ok bool, err error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "na", "nan", "null":
		return math.NaN(), false, nil
	}
	v, err = strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, eris.Errorf("not a number: %q", s)
	}
	if math.IsInf(v, 0) {
		return 0, false, eris.Errorf("not a finite number: %q", s)
	}
	return v, true, nil
}
