// Package table reads the tabular inputs of the toolkit (training samples,
// gridded feature tables, fold columns) from CSV or XLSX files and writes its
// tabular outputs.
package table

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// Table is a header row plus string records. Records may be shorter than the
// header; missing trailing fields read as empty.
type Table struct {
	Header []string
	Rows   [][]string
}

// Options configures Read.
type Options struct {
	CSV  CSVOptions
	XLSX XLSXOptions
}

// Read loads a table, choosing the parser by file extension (.csv, .tsv,
// .txt or .xlsx). The first record is the header.
func Read(ctx context.Context, path string, opts Options) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return ReadXLSX(ctx, path, opts.XLSX)
	case ".tsv":
		if opts.CSV.Delimiter == 0 {
			opts.CSV.Delimiter = '\t'
		}
		return readCSVFile(ctx, path, opts.CSV)
	case ".csv", ".txt":
		return readCSVFile(ctx, path, opts.CSV)
	default:
		return nil, eris.Errorf("table: unsupported file type %q", filepath.Ext(path))
	}
}

func readCSVFile(ctx context.Context, path string, opts CSVOptions) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "table: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	rowCh, errCh := StreamCSV(ctx, f, opts)
	t, err := collect(rowCh, errCh)
	if err != nil {
		return nil, eris.Wrapf(err, "table: read %s", path)
	}
	return t, nil
}

// ReadXLSX loads one worksheet of an XLSX workbook.
func ReadXLSX(ctx context.Context, path string, opts XLSXOptions) (*Table, error) {
	rowCh, errCh := StreamXLSX(ctx, path, opts)
	t, err := collect(rowCh, errCh)
	if err != nil {
		return nil, eris.Wrapf(err, "table: read %s", path)
	}
	return t, nil
}

// collect drains a row stream into a Table, skipping blank records.
func collect(rowCh <-chan []string, errCh <-chan error) (*Table, error) {
	t := &Table{}
	for row := range rowCh {
		if blank(row) {
			continue
		}
		if t.Header == nil {
			t.Header = row
			continue
		}
		t.Rows = append(t.Rows, row)
	}
	for err := range errCh {
		if err != nil {
			return nil, err
		}
	}
	if t.Header == nil {
		return nil, eris.New("table: no header row")
	}
	seen := make(map[string]bool, len(t.Header))
	for _, h := range t.Header {
		if h == "" {
			return nil, eris.New("table: empty column name in header")
		}
		if seen[h] {
			return nil, eris.Errorf("table: duplicate column %q", h)
		}
		seen[h] = true
	}
	return t, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Len returns the number of data records.
func (t *Table) Len() int { return len(t.Rows) }

// ColumnIndex returns the position of name in the header, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Value returns the field of record row in column col, or "" when the
// record is short.
func (t *Table) Value(row, col int) string {
	r := t.Rows[row]
	if col >= len(r) {
		return ""
	}
	return r[col]
}

// Column returns every value of the named column.
func (t *Table) Column(name string) ([]string, error) {
	c := t.ColumnIndex(name)
	if c < 0 {
		return nil, eris.Errorf("table: column %q not found", name)
	}
	out := make([]string, len(t.Rows))
	for i := range t.Rows {
		out[i] = t.Value(i, c)
	}
	return out, nil
}

// requireColumns resolves names to header positions.
func (t *Table) requireColumns(names ...string) ([]int, error) {
	idx := make([]int, len(names))
	for i, n := range names {
		idx[i] = t.ColumnIndex(n)
		if idx[i] < 0 {
			return nil, eris.Errorf("table: column %q not found", n)
		}
	}
	return idx, nil
}
