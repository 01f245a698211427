package table

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/landcover-aoa/internal/model"
)

// WriteFolds writes one "row,fold" record per sample. Rows are 1-based to
// match the data records of the input table.
func WriteFolds(w io.Writer, a *model.FoldAssignment) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"row", "fold"}); err != nil {
		return eris.Wrap(err, "table: write folds header")
	}
	for i, f := range a.Fold {
		if err := cw.Write([]string{strconv.Itoa(i + 1), strconv.Itoa(f + 1)}); err != nil {
			return eris.Wrap(err, "table: write folds")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "table: flush folds")
}

// WriteAOA writes one "row,col,di,aoa" record per cell. No-data cells have
// empty di and aoa fields.
func WriteAOA(w io.Writer, res *model.AOAResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"row", "col", "di", "aoa"}); err != nil {
		return eris.Wrap(err, "table: write aoa header")
	}
	rec := make([]string, 4)
	for r := 0; r < res.Rows; r++ {
		for c := 0; c < res.Cols; c++ {
			i := r*res.Cols + c
			rec[0] = strconv.Itoa(r)
			rec[1] = strconv.Itoa(c)
			if res.Mask[i] == model.MaskNoData || math.IsNaN(res.DI[i]) {
				rec[2], rec[3] = "", ""
			} else {
				rec[2] = strconv.FormatFloat(res.DI[i], 'g', -1, 64)
				rec[3] = strconv.Itoa(int(res.Mask[i]))
			}
			if err := cw.Write(rec); err != nil {
				return eris.Wrap(err, "table: write aoa")
			}
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "table: flush aoa")
}

// WriteFile creates path and passes it to write.
func WriteFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "table: create %s", path)
	}
	if err := write(f); err != nil {
		f.Close() //nolint:errcheck
		return err
	}
	return eris.Wrapf(f.Close(), "table: close %s", path)
}
