package model

import (
	"github.com/rotisserie/eris"
)

// Fold holds the row indices of one cross-validation partition.
type Fold struct {
	Train []int `json:"train"`
	Test  []int `json:"test"`
}

// FoldAssignment maps every sample to exactly one of K folds.
type FoldAssignment struct {
	K     int    `json:"k"`
	Fold  []int  `json:"fold"`  // fold id per sample, 0..K-1
	Folds []Fold `json:"folds"` // train/test indices per fold
}

// NewFoldAssignment builds the per-fold train/test index sets from a
// per-sample fold id slice. Indices in each set are ascending.
func NewFoldAssignment(k int, fold []int) (*FoldAssignment, error) {
	if k < 1 {
		return nil, eris.Errorf("model: fold count must be positive, got %d", k)
	}
	folds := make([]Fold, k)
	for i, f := range fold {
		if f < 0 || f >= k {
			return nil, eris.Errorf("model: sample %d has fold %d outside [0,%d)", i, f, k)
		}
	}
	for f := range folds {
		for i, sf := range fold {
			if sf == f {
				folds[f].Test = append(folds[f].Test, i)
			} else {
				folds[f].Train = append(folds[f].Train, i)
			}
		}
	}
	return &FoldAssignment{
		K:     k,
		Fold:  append([]int(nil), fold...),
		Folds: folds,
	}, nil
}

// Sizes returns the number of test samples in each fold.
func (a *FoldAssignment) Sizes() []int {
	out := make([]int, a.K)
	for _, f := range a.Fold {
		out[f]++
	}
	return out
}
