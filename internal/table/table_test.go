package table

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func createTestXLSX(t *testing.T, sheets map[string][][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	for name, rows := range sheets {
		sheet, err := f.AddSheet(name)
		require.NoError(t, err)
		for _, rowData := range rows {
			row := sheet.AddRow()
			for _, cellData := range rowData {
				cell := row.AddCell()
				cell.SetString(cellData)
			}
		}
	}
	path := filepath.Join(t.TempDir(), "test.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func collectRows(t *testing.T, rowCh <-chan []string, errCh <-chan error) ([][]string, error) {
	t.Helper()
	var rows [][]string
	for row := range rowCh {
		rows = append(rows, row)
	}
	for err := range errCh {
		if err != nil {
			return rows, err
		}
	}
	return rows, nil
}

func TestStreamCSV_Basic(t *testing.T) {
	rowCh, errCh := StreamCSV(context.Background(), strings.NewReader("a,b\n1,2\n3,4\n"), CSVOptions{})
	rows, err := collectRows(t, rowCh, errCh)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a", "b"}, {"1", "2"}, {"3", "4"}}, rows)
}

func TestStreamCSV_DelimiterCommentTrim(t *testing.T) {
	input := "# exported grid\na; b\n 1 ;2\n"
	rowCh, errCh := StreamCSV(context.Background(), strings.NewReader(input), CSVOptions{
		Delimiter: ';',
		Comment:   '#',
		TrimSpace: true,
	})
	rows, err := collectRows(t, rowCh, errCh)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a", "b"}, {"1", "2"}}, rows)
}

func TestStreamCSV_MalformedQuote(t *testing.T) {
	rowCh, errCh := StreamCSV(context.Background(), strings.NewReader("a,b\n\"1,2\n"), CSVOptions{})
	_, err := collectRows(t, rowCh, errCh)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "csv: read row")
}

func TestStreamCSV_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rowCh, errCh := StreamCSV(ctx, strings.NewReader("a,b\n1,2\n"), CSVOptions{})
	_, err := collectRows(t, rowCh, errCh)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "context cancelled")
}

func TestRead_CSV(t *testing.T) {
	path := writeFile(t, "samples.csv", "ID,Label,B04\np1,water,0.1\n\np2,forest,0.4\n")

	tbl, err := Read(context.Background(), path, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"ID", "Label", "B04"}, tbl.Header)
	assert.Equal(t, 2, tbl.Len())
	assert.Equal(t, "forest", tbl.Value(1, 1))
}

func TestRead_TSV(t *testing.T) {
	path := writeFile(t, "samples.tsv", "ID\tB04\np1\t0.1\n")

	tbl, err := Read(context.Background(), path, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"ID", "B04"}, tbl.Header)
	assert.Equal(t, [][]string{{"p1", "0.1"}}, tbl.Rows)
}

func TestRead_XLSX(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Samples": {
			{"ID", "Label", "B04"},
			{"p1", "water", "0.1"},
		},
	})

	tbl, err := Read(context.Background(), path, Options{XLSX: XLSXOptions{SheetName: "Samples"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"ID", "Label", "B04"}, tbl.Header)
	assert.Equal(t, [][]string{{"p1", "water", "0.1"}}, tbl.Rows)
}

func TestRead_XLSXSheetErrors(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{"Sheet1": {{"a"}}})

	_, err := ReadXLSX(context.Background(), path, XLSXOptions{SheetName: "Missing"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `sheet "Missing" not found`)

	_, err = ReadXLSX(context.Background(), path, XLSXOptions{SheetIndex: 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestRead_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		want    string
	}{
		{"unsupported extension", "grid.tif", "x", "unsupported file type"},
		{"empty", "empty.csv", "\n\n", "no header row"},
		{"duplicate column", "dup.csv", "a,a\n1,2\n", `duplicate column "a"`},
		{"empty column", "blankcol.csv", "a,,c\n1,2,3\n", "empty column name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, tt.file, tt.content)
			_, err := Read(context.Background(), path, Options{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	_, err := Read(context.Background(), filepath.Join(t.TempDir(), "missing.csv"), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "table: open")
}

func TestTable_Column(t *testing.T) {
	tbl := &Table{Header: []string{"a", "b"}, Rows: [][]string{{"1", "2"}, {"3"}}}

	col, err := tbl.Column("b")
	require.NoError(t, err)
	assert.Equal(t, []string{"2", ""}, col)

	_, err = tbl.Column("c")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `column "c" not found`)
}
