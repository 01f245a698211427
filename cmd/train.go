package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/landcover-aoa/internal/aoa"
	"github.com/sells-group/landcover-aoa/internal/config"
	"github.com/sells-group/landcover-aoa/internal/folds"
	"github.com/sells-group/landcover-aoa/internal/model"
	"github.com/sells-group/landcover-aoa/internal/store"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Calibrate and store an applicability model",
	Long: "Builds the normalized, importance-weighted feature space of a training table, computes " +
		"the reference distance and DI threshold, and stores the result for later prediction.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		applyColumnFlags(cmd, cfg)
		if cmd.Flags().Changed("k") {
			cfg.Folds.K, _ = cmd.Flags().GetInt("k")
		}
		if cmd.Flags().Changed("exclusion") {
			cfg.AOA.Exclusion, _ = cmd.Flags().GetString("exclusion")
		}
		if cmd.Flags().Changed("threshold-rule") {
			cfg.AOA.ThresholdRule, _ = cmd.Flags().GetString("threshold-rule")
		}
		if err := cfg.Validate("train"); err != nil {
			return err
		}

		var p trainParams
		p.samples, _ = cmd.Flags().GetString("samples")
		features, _ := cmd.Flags().GetString("features")
		p.features = splitList(features)
		p.importance, _ = cmd.Flags().GetString("importance")
		p.folds, _ = cmd.Flags().GetString("folds")
		p.name, _ = cmd.Flags().GetString("name")

		st, err := initStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		m, err := trainModel(ctx, cfg, st, p)
		if err != nil {
			return err
		}
		formatModelSummary(cmd.OutOrStdout(), m)
		return nil
	},
}

type trainParams struct {
	samples    string
	features   []string
	importance string
	folds      string
	name       string
}

// trainModel calibrates a model from the training table and saves it.
func trainModel(ctx context.Context, c *config.Config, st store.Store, p trainParams) (*model.Model, error) {
	samples, features, err := loadSamples(ctx, c, p.samples, p.features)
	if err != nil {
		return nil, err
	}

	var importance map[string]float64
	if p.importance != "" {
		if importance, err = aoa.LoadImportance(p.importance); err != nil {
			return nil, err
		}
	}

	var assignment *model.FoldAssignment
	switch {
	case p.folds != "":
		if assignment, err = loadAssignment(ctx, c, p.folds, samples); err != nil {
			return nil, err
		}
	case c.AOA.Exclusion == string(aoa.ExcludeFold):
		if assignment, err = folds.Build(samples, c.Folds.K, folds.Options{Seed: c.Folds.Seed}); err != nil {
			return nil, err
		}
	}

	fs, cal, err := aoa.Train(ctx, samples, features, importance, assignment, aoaOptions(c))
	if err != nil {
		return nil, err
	}

	name := p.name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(p.samples), filepath.Ext(p.samples))
	}
	m := &model.Model{Name: name, Space: *fs, Calibration: *cal}
	if err := st.SaveModel(ctx, m); err != nil {
		return nil, eris.Wrap(err, "train: save model")
	}

	zap.L().Info("train: model saved",
		zap.String("model_id", m.ID),
		zap.String("name", m.Name),
		zap.Int("samples", fs.Len()),
		zap.Strings("features", fs.Features),
	)
	return m, nil
}

func formatModelSummary(out io.Writer, m *model.Model) {
	_, _ = fmt.Fprintf(out, "Model:      %s\n", m.ID)
	_, _ = fmt.Fprintf(out, "Name:       %s\n", m.Name)
	_, _ = fmt.Fprintf(out, "Samples:    %d\n", m.Space.Len())
	_, _ = fmt.Fprintf(out, "Features:   %s\n", strings.Join(m.Space.Features, ", "))
	_, _ = fmt.Fprintf(out, "Reference:  %.6g\n", m.Calibration.Reference)
	_, _ = fmt.Fprintf(out, "Threshold:  %.6g (%s, %s exclusion)\n",
		m.Calibration.Threshold, m.Calibration.Rule, m.Calibration.Exclusion)
}

func init() {
	trainCmd.Flags().String("samples", "", "training sample table (.csv, .tsv or .xlsx)")
	trainCmd.Flags().String("features", "", "comma separated predictor columns (default: all other columns)")
	trainCmd.Flags().String("importance", "", "YAML map of feature importance used as weights")
	trainCmd.Flags().String("folds", "", "row,fold table from 'aoa folds' for fold exclusion")
	trainCmd.Flags().Int("k", 5, "folds to build when exclusion is fold and no --folds table is given")
	trainCmd.Flags().String("exclusion", "", "neighbour exclusion during calibration: none, unit or fold")
	trainCmd.Flags().String("threshold-rule", "", "threshold rule: whisker, iqr or quantile")
	trainCmd.Flags().String("name", "", "model name (default: sample file name)")
	addColumnFlags(trainCmd)
	_ = trainCmd.MarkFlagRequired("samples")

	rootCmd.AddCommand(trainCmd)
}
