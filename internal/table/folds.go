package table

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// FoldLabels returns the fold label of each of n samples from a table written
// by WriteFolds. Records are matched to samples by their 1-based "row" value,
// so the table may be in any order; every sample must appear exactly once.
// A table without a "row" column is taken in sample order.
func (t *Table) FoldLabels(n int) ([]string, error) {
	folds, err := t.Column("fold")
	if err != nil {
		return nil, err
	}
	if t.ColumnIndex("row") < 0 {
		return folds, nil
	}
	rows, err := t.Column("row")
	if err != nil {
		return nil, err
	}

	labels := make([]string, n)
	seen := make([]int, n)
	for i := range rows {
		r, err := strconv.Atoi(strings.TrimSpace(rows[i]))
		if err != nil || r < 1 || r > n {
			return nil, eris.Errorf("table: fold record %d: row %q is not a sample row in 1..%d", i+1, rows[i], n)
		}
		if seen[r-1] > 0 {
			return nil, eris.Errorf("table: fold records %d and %d both assign row %d", seen[r-1], i+1, r)
		}
		label := strings.TrimSpace(folds[i])
		if label == "" {
			return nil, eris.Errorf("table: fold record %d: empty fold for row %d", i+1, r)
		}
		seen[r-1] = i + 1
		labels[r-1] = label
	}
	for r, rec := range seen {
		if rec == 0 {
			return nil, eris.Errorf("table: no fold record for row %d", r+1)
		}
	}
	return labels, nil
}
