package folds

import (
	"math"
	"sort"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"

	"github.com/sells-group/landcover-aoa/internal/model"
)

// Summary describes one fold of an assignment.
type Summary struct {
	Fold       int            `json:"fold"`
	TestSize   int            `json:"test_size"`
	TrainSize  int            `json:"train_size"`
	Units      int            `json:"units"`
	TestLabels map[string]int `json:"test_labels"`
	// MaxClassDeviation is the largest absolute difference between a class's
	// share of this fold's test set and its share of the full sample set.
	MaxClassDeviation float64 `json:"max_class_deviation"`
	// Centroid and MinTrainDistance are set only when every sample of the
	// fold carries coordinates. MinTrainDistance is the shortest distance from
	// a test sample to any training sample, in the samples' coordinate units.
	Centroid         geom.Coord `json:"centroid,omitempty"`
	MinTrainDistance float64    `json:"min_train_distance,omitempty"`
	HasGeometry      bool       `json:"has_geometry"`
}

// Summarize reports per-fold sizes, class balance and geographic separation.
func Summarize(samples []model.Sample, a *model.FoldAssignment) []Summary {
	global := make(map[string]int)
	for _, s := range samples {
		global[s.Label]++
	}
	labels := make([]string, 0, len(global))
	for l := range global {
		labels = append(labels, l)
	}
	sort.Strings(labels)

	allXY := true
	for _, s := range samples {
		if !s.HasXY {
			allXY = false
			break
		}
	}

	out := make([]Summary, a.K)
	for f, fold := range a.Folds {
		sum := Summary{
			Fold:       f,
			TestSize:   len(fold.Test),
			TrainSize:  len(fold.Train),
			TestLabels: make(map[string]int),
		}
		units := make(map[string]struct{})
		for _, i := range fold.Test {
			sum.TestLabels[samples[i].Label]++
			units[samples[i].Unit] = struct{}{}
		}
		sum.Units = len(units)

		if sum.TestSize > 0 {
			for _, l := range labels {
				local := float64(sum.TestLabels[l]) / float64(sum.TestSize)
				want := float64(global[l]) / float64(len(samples))
				sum.MaxClassDeviation = math.Max(sum.MaxClassDeviation, math.Abs(local-want))
			}
		}

		if allXY && sum.TestSize > 0 {
			sum.HasGeometry = true
			sum.Centroid, sum.MinTrainDistance = separation(samples, fold)
		}
		out[f] = sum
	}
	return out
}

// separation returns the centroid of the fold's test points and the minimum
// test-to-train distance. With no training points the distance is +Inf.
func separation(samples []model.Sample, fold model.Fold) (geom.Coord, float64) {
	flat := make([]float64, 0, 2*len(fold.Test))
	for _, i := range fold.Test {
		flat = append(flat, samples[i].X, samples[i].Y)
	}
	test := geom.NewMultiPointFlat(geom.XY, flat)
	centroid := xy.MultiPointCentroid(test)

	best := math.Inf(1)
	for p := 0; p < test.NumCoords(); p++ {
		tc := test.Coord(p)
		for _, j := range fold.Train {
			d := xy.Distance(tc, geom.Coord{samples[j].X, samples[j].Y})
			if d < best {
				best = d
			}
		}
	}
	return centroid, best
}
