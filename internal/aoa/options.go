package aoa

import (
	"runtime"

	"github.com/rotisserie/eris"
)

// Exclusion controls which training samples are ineligible as a sample's
// nearest neighbour during calibration.
type Exclusion string

const (
	ExcludeNone Exclusion = "none" // only the sample itself
	ExcludeUnit Exclusion = "unit" // samples from the same spatial unit
	ExcludeFold Exclusion = "fold" // samples from the same cross-validation fold
)

// ThresholdRule selects how the DI cutoff is derived from training DI values.
type ThresholdRule string

const (
	// RuleWhisker uses the largest training DI not above Q3 + m*IQR, the
	// upper whisker of a box plot.
	RuleWhisker ThresholdRule = "whisker"
	// RuleIQR uses Q3 + m*IQR itself.
	RuleIQR ThresholdRule = "iqr"
	// RuleQuantile uses a fixed quantile of training DI.
	RuleQuantile ThresholdRule = "quantile"
)

// Options configures calibration and estimation.
type Options struct {
	Workers       int
	TileRows      int
	Index         IndexKind
	Exclusion     Exclusion
	Rule          ThresholdRule
	IQRMultiplier float64
	Quantile      float64
}

// DefaultOptions returns the settings used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Workers:       runtime.NumCPU(),
		TileRows:      64,
		Index:         IndexKDTree,
		Exclusion:     ExcludeUnit,
		Rule:          RuleWhisker,
		IQRMultiplier: 1.5,
		Quantile:      0.95,
	}
}

func (o Options) validate() error {
	switch o.Exclusion {
	case ExcludeNone, ExcludeUnit, ExcludeFold:
	default:
		return eris.Errorf("aoa: unknown exclusion %q", o.Exclusion)
	}
	switch o.Rule {
	case RuleWhisker, RuleIQR:
		if o.IQRMultiplier < 0 {
			return eris.Errorf("aoa: iqr multiplier must be non-negative, got %v", o.IQRMultiplier)
		}
	case RuleQuantile:
		if !(o.Quantile > 0 && o.Quantile <= 1) {
			return eris.Errorf("aoa: quantile must be in (0,1], got %v", o.Quantile)
		}
	default:
		return eris.Errorf("aoa: unknown threshold rule %q", o.Rule)
	}
	return nil
}

func (o Options) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.NumCPU()
}

func (o Options) tileRows() int {
	if o.TileRows > 0 {
		return o.TileRows
	}
	return 64
}
