package table

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/landcover-aoa/internal/model"
)

// GridSpec describes a gridded feature table: one record per cell, located by
// integer row and column indices.
type GridSpec struct {
	Row, Col string

	// Bands lists the columns to load. When empty every column other than
	// Row and Col is a band.
	Bands []string

	NoData    float64
	HasNoData bool

	// MaxCells caps rows*cols of the assembled raster. Zero allows
	// maxGridSparsity cells per record, but at least minGridCells.
	MaxCells int
}

const (
	maxGridSparsity = 64
	minGridCells    = 1 << 16
)

func (s GridSpec) maxCells(records int) int {
	if s.MaxCells > 0 {
		return s.MaxCells
	}
	return max(records*maxGridSparsity, minGridCells)
}

// Grid assembles the table into a raster. The raster spans rows 0..max(row)
// and cols 0..max(col); cells without a record stay missing, as do empty or
// NA fields.
func (t *Table) Grid(spec GridSpec) (*model.Raster, error) {
	rc, err := t.requireColumns(spec.Row, spec.Col)
	if err != nil {
		return nil, err
	}

	bands := spec.Bands
	if len(bands) == 0 {
		for _, h := range t.Header {
			if h != spec.Row && h != spec.Col {
				bands = append(bands, h)
			}
		}
		if len(bands) == 0 {
			return nil, eris.New("table: no band columns")
		}
	}
	bandCols, err := t.requireColumns(bands...)
	if err != nil {
		return nil, err
	}

	limit := spec.maxCells(len(t.Rows))
	pos := make([][2]int, len(t.Rows))
	rows, cols := 0, 0
	for i := range t.Rows {
		r, err := parseIndex(t.Value(i, rc[0]))
		if err != nil {
			return nil, eris.Wrapf(err, "table: row %d column %q", i+1, spec.Row)
		}
		c, err := parseIndex(t.Value(i, rc[1]))
		if err != nil {
			return nil, eris.Wrapf(err, "table: row %d column %q", i+1, spec.Col)
		}
		if r >= limit || c >= limit {
			return nil, eris.Errorf("table: row %d: cell (%d,%d) exceeds the grid limit of %d cells", i+1, r, c, limit)
		}
		pos[i] = [2]int{r, c}
		rows = max(rows, r+1)
		cols = max(cols, c+1)
	}
	if rows*cols > limit {
		return nil, eris.Errorf("table: %dx%d grid exceeds the limit of %d cells for %d records", rows, cols, limit, len(t.Rows))
	}

	raster := model.NewRaster(rows, cols, append([]string(nil), bands...))
	raster.NoData, raster.HasNoData = spec.NoData, spec.HasNoData

	seen := make(map[[2]int]bool, len(t.Rows))
	for i, p := range pos {
		if seen[p] {
			return nil, eris.Errorf("table: row %d: duplicate cell (%d,%d)", i+1, p[0], p[1])
		}
		seen[p] = true
		for b, c := range bandCols {
			v, _, err := parseNumber(t.Value(i, c))
			if err != nil {
				return nil, eris.Wrapf(err, "table: row %d column %q", i+1, bands[b])
			}
			raster.Set(p[0], p[1], b, v)
		}
	}
	return raster, nil
}

func parseIndex(s string) (int, error) {
	s = strings.TrimSpace(s)
	n, err := strconv.Atoi(s)
	if err != nil {
		// Spreadsheets often store integers as "3.0".
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || f != float64(int(f)) {
			return 0, eris.Errorf("not an integer index: %q", s)
		}
		n = int(f)
	}
	if n < 0 {
		return 0, eris.Errorf("negative index %d", n)
	}
	return n, nil
}
