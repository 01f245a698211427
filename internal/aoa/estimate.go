package aoa

import (
	"context"
	"math"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/landcover-aoa/internal/model"
)

// Estimator computes DI and applicability for rasters against one
// calibrated feature space. It is safe for concurrent use.
type Estimator struct {
	space *model.FeatureSpace
	cal   *model.TrainDI
	index Index
	opts  Options
}

// NewEstimator builds the nearest neighbour index for fs.
func NewEstimator(fs *model.FeatureSpace, cal *model.TrainDI, opts Options) (*Estimator, error) {
	if fs.Len() < MinTrainingSamples {
		return nil, eris.Errorf("aoa: need at least %d training samples, got %d", MinTrainingSamples, fs.Len())
	}
	if cal == nil || !(cal.Reference > 0) {
		return nil, eris.New("aoa: calibration with a positive reference distance is required")
	}
	idx, err := NewIndex(opts.Index, fs.Projected())
	if err != nil {
		return nil, err
	}
	return &Estimator{space: fs, cal: cal, index: idx, opts: opts}, nil
}

// tile is a block of whole raster rows [start, end).
type tile struct {
	start, end int
}

// Estimate returns the DI and mask layers for r. The raster must carry a
// band for every model feature; other bands are ignored. Rows are processed
// in tiles by a bounded worker pool, each tile writing only its own slice of
// the outputs. On cancellation no result is returned.
func (e *Estimator) Estimate(ctx context.Context, r *model.Raster) (*model.AOAResult, error) {
	bandOf, err := e.bandMapping(r)
	if err != nil {
		return nil, err
	}

	log := zap.L().With(
		zap.Int("rows", r.Rows),
		zap.Int("cols", r.Cols),
		zap.Int("features", e.space.Dims()),
	)

	res := &model.AOAResult{
		Rows:      r.Rows,
		Cols:      r.Cols,
		DI:        make([]float64, r.Cells()),
		Mask:      make([]uint8, r.Cells()),
		Threshold: e.cal.Threshold,
	}

	var tiles []tile
	for start := 0; start < r.Rows; start += e.opts.tileRows() {
		tiles = append(tiles, tile{start: start, end: min(start+e.opts.tileRows(), r.Rows)})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.workers())
	for _, t := range tiles {
		g.Go(func() error {
			return e.estimateTile(gctx, r, bandOf, t, res)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "aoa: estimate")
	}

	for _, m := range res.Mask {
		switch m {
		case 1:
			res.Applicable++
		case 0:
			res.Inapplicable++
		default:
			res.NoData++
		}
	}

	log.Info("aoa: estimated",
		zap.Int("tiles", len(tiles)),
		zap.Int("applicable", res.Applicable),
		zap.Int("inapplicable", res.Inapplicable),
		zap.Int("nodata", res.NoData),
	)
	return res, nil
}

func (e *Estimator) estimateTile(ctx context.Context, r *model.Raster, bandOf []int, t tile, res *model.AOAResult) error {
	raw := make([]float64, len(bandOf))
	buf := make([]float64, len(bandOf))
	for row := t.start; row < t.end; row++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		for col := 0; col < r.Cols; col++ {
			cell := row*r.Cols + col
			di, ok := e.cellDI(r, r.Cell(row, col), bandOf, raw, buf)
			if !ok {
				res.DI[cell] = math.NaN()
				res.Mask[cell] = model.MaskNoData
				continue
			}
			res.DI[cell] = di
			if di <= e.cal.Threshold {
				res.Mask[cell] = 1
			}
		}
	}
	return nil
}

// cellDI returns the DI of one cell, or false when any feature is missing.
func (e *Estimator) cellDI(r *model.Raster, cell []float64, bandOf []int, raw, buf []float64) (float64, bool) {
	for j, b := range bandOf {
		v := cell[b]
		if r.IsNoData(v) {
			return 0, false
		}
		raw[j] = v
	}
	return e.DI(raw, buf), true
}

// DI returns the dissimilarity index of a raw feature vector ordered like the
// model features. buf is optional scratch space.
func (e *Estimator) DI(x, buf []float64) float64 {
	q := e.space.Transform(buf, x)
	_, d := e.index.Nearest(q)
	return d / e.cal.Reference
}

// bandMapping maps each model feature to its band position in r.
func (e *Estimator) bandMapping(r *model.Raster) ([]int, error) {
	if len(r.Values) != r.Cells()*len(r.Bands) {
		return nil, eris.Errorf("aoa: raster has %d values, want %d", len(r.Values), r.Cells()*len(r.Bands))
	}
	bandOf := make([]int, e.space.Dims())
	for j, f := range e.space.Features {
		b := r.BandIndex(f)
		if b < 0 {
			return nil, eris.Errorf("aoa: raster is missing feature band %q", f)
		}
		bandOf[j] = b
	}
	if extra := len(r.Bands) - len(bandOf); extra > 0 {
		zap.L().Debug("aoa: ignoring raster bands not in the model", zap.Int("extra", extra))
	}
	return bandOf, nil
}
