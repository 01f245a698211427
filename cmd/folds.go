package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/landcover-aoa/internal/config"
	"github.com/sells-group/landcover-aoa/internal/folds"
	"github.com/sells-group/landcover-aoa/internal/model"
	"github.com/sells-group/landcover-aoa/internal/table"
)

var foldsCmd = &cobra.Command{
	Use:   "folds",
	Short: "Build spatial cross-validation folds",
	Long: "Partitions labeled samples into k folds so that all samples of a spatial unit share a fold " +
		"and each fold's class mix tracks the overall mix. Prints a per-fold summary and optionally " +
		"writes a row,fold table.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		applyColumnFlags(cmd, cfg)
		if cmd.Flags().Changed("k") {
			cfg.Folds.K, _ = cmd.Flags().GetInt("k")
		}
		if cmd.Flags().Changed("seed") {
			cfg.Folds.Seed, _ = cmd.Flags().GetInt64("seed")
		}
		if err := cfg.Validate("folds"); err != nil {
			return err
		}

		samplesPath, _ := cmd.Flags().GetString("samples")
		outPath, _ := cmd.Flags().GetString("out")
		return runFolds(cmd.Context(), cfg, samplesPath, outPath, cmd.OutOrStdout())
	},
}

func runFolds(ctx context.Context, c *config.Config, samplesPath, outPath string, out io.Writer) error {
	samples, err := loadUnits(ctx, c, samplesPath)
	if err != nil {
		return err
	}

	a, err := folds.Build(samples, c.Folds.K, folds.Options{Seed: c.Folds.Seed})
	if err != nil {
		return err
	}

	formatFoldSummary(out, folds.Summarize(samples, a))

	if outPath != "" {
		if err := table.WriteFile(outPath, func(w io.Writer) error { return table.WriteFolds(w, a) }); err != nil {
			return err
		}
		zap.L().Info("folds: written", zap.String("path", outPath), zap.Int("samples", len(samples)))
	}
	return nil
}

// formatFoldSummary writes one line per fold to out.
func formatFoldSummary(out io.Writer, sums []folds.Summary) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "FOLD\tTEST\tTRAIN\tUNITS\tMAX_DEV\tMIN_TRAIN_DIST\tCLASSES")
	_, _ = fmt.Fprintln(w, "----\t----\t-----\t-----\t-------\t--------------\t-------")
	for _, s := range sums {
		dist := "-"
		if s.HasGeometry && !math.IsInf(s.MinTrainDistance, 1) {
			dist = fmt.Sprintf("%.2f", s.MinTrainDistance)
		}
		_, _ = fmt.Fprintf(w, "%d\t%d\t%d\t%d\t%.3f\t%s\t%s\n",
			s.Fold+1, s.TestSize, s.TrainSize, s.Units, s.MaxClassDeviation, dist, formatLabelCounts(s.TestLabels))
	}
	_ = w.Flush()
}

func formatLabelCounts(counts map[string]int) string {
	labels := make([]string, 0, len(counts))
	for l := range counts {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	parts := make([]string, len(labels))
	for i, l := range labels {
		parts[i] = fmt.Sprintf("%s=%d", l, counts[l])
	}
	return strings.Join(parts, " ")
}

// loadAssignment reads a row,fold table for samples. Records are matched to
// samples by their row value.
func loadAssignment(ctx context.Context, c *config.Config, path string, samples []model.Sample) (*model.FoldAssignment, error) {
	opts, err := tableOptions(c)
	if err != nil {
		return nil, err
	}
	t, err := table.Read(ctx, path, opts)
	if err != nil {
		return nil, err
	}
	labels, err := t.FoldLabels(len(samples))
	if err != nil {
		return nil, err
	}
	return folds.FromColumn(samples, labels)
}

func init() {
	foldsCmd.Flags().String("samples", "", "training sample table (.csv, .tsv or .xlsx)")
	foldsCmd.Flags().Int("k", 5, "number of folds")
	foldsCmd.Flags().Int64("seed", 0, "shuffle equal-sized units with this seed (0 keeps input order)")
	foldsCmd.Flags().String("out", "", "write a row,fold table to this path")
	addColumnFlags(foldsCmd)
	_ = foldsCmd.MarkFlagRequired("samples")

	rootCmd.AddCommand(foldsCmd)
}
