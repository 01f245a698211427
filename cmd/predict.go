package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/sells-group/landcover-aoa/internal/aoa"
	"github.com/sells-group/landcover-aoa/internal/config"
	"github.com/sells-group/landcover-aoa/internal/model"
	"github.com/sells-group/landcover-aoa/internal/store"
	"github.com/sells-group/landcover-aoa/internal/table"
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Compute the DI and applicability mask of a grid",
	Long: "Loads a stored model, computes the dissimilarity index of every cell of a gridded " +
		"feature table and writes row,col,di,aoa records. The run is recorded in the store.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if cmd.Flags().Changed("workers") {
			cfg.AOA.Workers, _ = cmd.Flags().GetInt("workers")
		}
		if cmd.Flags().Changed("nodata") {
			cfg.Grid.NoData, _ = cmd.Flags().GetString("nodata")
		}
		if err := cfg.Validate("predict"); err != nil {
			return err
		}

		modelID, _ := cmd.Flags().GetString("model")
		gridPath, _ := cmd.Flags().GetString("grid")
		outPath, _ := cmd.Flags().GetString("out")

		st, err := initStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := predictGrid(ctx, cfg, st, modelID, gridPath, outPath)
		if err != nil {
			return err
		}
		formatRunSummary(cmd.OutOrStdout(), run)
		return nil
	},
}

// predictGrid estimates applicability over a grid table with a stored model
// and records the outcome as a run. A failed estimate marks the run failed.
func predictGrid(ctx context.Context, c *config.Config, st store.Store, modelID, gridPath, outPath string) (*model.Run, error) {
	m, err := st.GetModel(ctx, modelID)
	if err != nil {
		return nil, err
	}

	run, err := st.CreateRun(ctx, m.ID, gridPath)
	if err != nil {
		return nil, err
	}
	log := zap.L().With(zap.String("run_id", run.ID), zap.String("model_id", m.ID))

	summary, err := estimateGrid(ctx, c, m, gridPath, outPath)
	if err != nil {
		log.Error("predict: run failed", zap.Error(err))
		if ferr := st.FailRun(context.WithoutCancel(ctx), run.ID, err.Error()); ferr != nil {
			log.Error("predict: record failure", zap.Error(ferr))
		}
		return nil, err
	}

	if err := st.CompleteRun(ctx, run.ID, summary); err != nil {
		return nil, err
	}
	run.Status = model.RunStatusComplete
	run.Result = summary
	log.Info("predict: run complete",
		zap.Int("applicable", summary.Applicable),
		zap.Int("inapplicable", summary.Inapplicable),
		zap.Int("nodata", summary.NoData),
	)
	return run, nil
}

func estimateGrid(ctx context.Context, c *config.Config, m *model.Model, gridPath, outPath string) (*model.RunSummary, error) {
	start := time.Now()

	opts, err := tableOptions(c)
	if err != nil {
		return nil, err
	}
	t, err := table.Read(ctx, gridPath, opts)
	if err != nil {
		return nil, err
	}
	nodata, hasNoData, err := c.Grid.NoDataValue()
	if err != nil {
		return nil, err
	}
	for _, f := range m.Space.Features {
		if t.ColumnIndex(f) < 0 {
			return nil, eris.Errorf("predict: grid is missing feature band %q", f)
		}
	}
	raster, err := t.Grid(table.GridSpec{
		Row:       c.Grid.RowCol,
		Col:       c.Grid.ColCol,
		Bands:     m.Space.Features,
		NoData:    nodata,
		HasNoData: hasNoData,
	})
	if err != nil {
		return nil, err
	}

	est, err := aoa.NewEstimator(&m.Space, &m.Calibration, aoaOptions(c))
	if err != nil {
		return nil, err
	}
	res, err := est.Estimate(ctx, raster)
	if err != nil {
		return nil, err
	}

	if outPath != "" {
		if err := table.WriteFile(outPath, func(w io.Writer) error { return table.WriteAOA(w, res) }); err != nil {
			return nil, err
		}
	}

	return &model.RunSummary{
		Rows:         res.Rows,
		Cols:         res.Cols,
		Applicable:   res.Applicable,
		Inapplicable: res.Inapplicable,
		NoData:       res.NoData,
		Threshold:    res.Threshold,
		MeanDI:       meanDI(res.DI),
		DurationMs:   time.Since(start).Milliseconds(),
	}, nil
}

// meanDI averages the valid DI values; it is 0 when there are none.
func meanDI(di []float64) float64 {
	valid := make([]float64, 0, len(di))
	for _, v := range di {
		if !math.IsNaN(v) {
			valid = append(valid, v)
		}
	}
	if len(valid) == 0 {
		return 0
	}
	return stat.Mean(valid, nil)
}

func formatRunSummary(out io.Writer, r *model.Run) {
	s := r.Result
	_, _ = fmt.Fprintf(out, "Run:          %s\n", r.ID)
	_, _ = fmt.Fprintf(out, "Grid:         %s (%d x %d)\n", r.Grid, s.Rows, s.Cols)
	_, _ = fmt.Fprintf(out, "Applicable:   %d (%.1f%%)\n", s.Applicable, 100*s.ApplicableFraction())
	_, _ = fmt.Fprintf(out, "Inapplicable: %d\n", s.Inapplicable)
	_, _ = fmt.Fprintf(out, "No data:      %d\n", s.NoData)
	_, _ = fmt.Fprintf(out, "Threshold:    %.6g\n", s.Threshold)
	_, _ = fmt.Fprintf(out, "Mean DI:      %.6g\n", s.MeanDI)
}

func init() {
	predictCmd.Flags().String("model", "", "stored model id")
	predictCmd.Flags().String("grid", "", "gridded feature table with row and col columns")
	predictCmd.Flags().String("out", "aoa.csv", "output row,col,di,aoa table")
	predictCmd.Flags().Int("workers", 0, "parallel tile workers (default from aoa.workers, 0 = all CPUs)")
	predictCmd.Flags().String("nodata", "", "no-data sentinel value in the grid")
	_ = predictCmd.MarkFlagRequired("model")
	_ = predictCmd.MarkFlagRequired("grid")

	rootCmd.AddCommand(predictCmd)
}
