package aoa

import (
	"context"
	"math"
	"sort"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/sells-group/landcover-aoa/internal/model"
)

// Calibrate computes each training sample's distance to its nearest eligible
// training neighbour, the reference distance (their mean), the training DI
// distribution and the applicability threshold.
func Calibrate(ctx context.Context, fs *model.FeatureSpace, opts Options) (*model.TrainDI, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if fs.Len() < MinTrainingSamples {
		return nil, eris.Errorf("aoa: need at least %d training samples, got %d", MinTrainingSamples, fs.Len())
	}
	group, err := exclusionGroups(fs, opts.Exclusion)
	if err != nil {
		return nil, err
	}

	proj := fs.Projected()
	dist := make([]float64, len(proj))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.workers())
	chunk := (len(proj) + opts.workers() - 1) / opts.workers()
	for start := 0; start < len(proj); start += chunk {
		end := min(start+chunk, len(proj))
		g.Go(func() error {
			for i := start; i < end; i++ {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				dist[i] = nearestEligible(proj, group, i)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "aoa: calibrate")
	}

	var valid []float64
	for _, d := range dist {
		if !math.IsNaN(d) {
			valid = append(valid, d)
		}
	}
	if len(valid) == 0 {
		return nil, eris.Errorf("aoa: no training sample has an eligible neighbour under %q exclusion", opts.Exclusion)
	}
	ref := stat.Mean(valid, nil)
	if ref == 0 {
		return nil, eris.New("aoa: reference distance is zero; training vectors are indistinguishable")
	}

	di := make([]float64, len(dist))
	for i, d := range dist {
		di[i] = d / ref
	}

	threshold := Threshold(di, opts)

	zap.L().Info("aoa: calibrated",
		zap.Int("samples", len(dist)),
		zap.Int("without_neighbour", len(dist)-len(valid)),
		zap.Float64("reference", ref),
		zap.Float64("threshold", threshold),
		zap.String("rule", string(opts.Rule)),
		zap.String("exclusion", string(opts.Exclusion)),
	)

	return &model.TrainDI{
		Distances:     dist,
		DI:            di,
		Reference:     ref,
		Threshold:     threshold,
		Rule:          string(opts.Rule),
		Exclusion:     string(opts.Exclusion),
		IQRMultiplier: opts.IQRMultiplier,
		Quantile:      opts.Quantile,
	}, nil
}

// exclusionGroups returns a group key per sample; samples sharing a key are
// never each other's neighbour. A nil result means only self is excluded.
func exclusionGroups(fs *model.FeatureSpace, ex Exclusion) ([]string, error) {
	switch ex {
	case ExcludeNone:
		return nil, nil
	case ExcludeUnit:
		if len(fs.Units) != fs.Len() {
			return nil, eris.New("aoa: unit exclusion requires a spatial unit per training sample")
		}
		return fs.Units, nil
	case ExcludeFold:
		if len(fs.Folds) != fs.Len() {
			return nil, eris.New("aoa: fold exclusion requires a fold assignment")
		}
		out := make([]string, len(fs.Folds))
		for i, f := range fs.Folds {
			out[i] = strconv.Itoa(f)
		}
		return out, nil
	default:
		return nil, eris.Errorf("aoa: unknown exclusion %q", ex)
	}
}

// nearestEligible returns the distance from row i to the closest other row
// outside its exclusion group, or NaN when none is eligible.
func nearestEligible(proj [][]float64, group []string, i int) float64 {
	best := math.Inf(1)
	for j, p := range proj {
		if j == i || (group != nil && group[j] == group[i]) {
			continue
		}
		if d := sqDist(proj[i], p); d < best {
			best = d
		}
	}
	if math.IsInf(best, 1) {
		return math.NaN()
	}
	return math.Sqrt(best)
}

// Threshold derives the DI cutoff from training DI values. NaN entries are
// ignored; with no valid values the threshold is NaN.
func Threshold(di []float64, opts Options) float64 {
	x := make([]float64, 0, len(di))
	for _, v := range di {
		if !math.IsNaN(v) {
			x = append(x, v)
		}
	}
	if len(x) == 0 {
		return math.NaN()
	}
	sort.Float64s(x)

	if opts.Rule == RuleQuantile {
		return stat.Quantile(opts.Quantile, stat.LinInterp, x, nil)
	}

	q1 := stat.Quantile(0.25, stat.LinInterp, x, nil)
	q3 := stat.Quantile(0.75, stat.LinInterp, x, nil)
	bound := q3 + opts.IQRMultiplier*(q3-q1)
	if opts.Rule == RuleIQR {
		return bound
	}

	idx := sort.SearchFloat64s(x, bound)
	if idx == 0 || (idx < len(x) && x[idx] == bound) {
		return bound
	}
	return x[idx-1]
}
