package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/landcover-aoa/internal/model"
	"github.com/sells-group/landcover-aoa/internal/store"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Inspect stored applicability models",
}

var modelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored models",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		name, _ := cmd.Flags().GetString("name")
		limit, _ := cmd.Flags().GetInt("limit")

		models, err := st.ListModels(ctx, store.ModelFilter{Name: name, Limit: limit})
		if err != nil {
			return eris.Wrap(err, "models list")
		}
		if len(models) == 0 {
			_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "No models found.")
			return nil
		}

		formatModelsList(cmd.OutOrStdout(), models)
		return nil
	},
}

// modelDetail is the JSON view printed by models show.
type modelDetail struct {
	model.ModelInfo
	Exclusion string                 `json:"exclusion"`
	Mean      []float64              `json:"mean"`
	Scale     []float64              `json:"scale"`
	Weights   []float64              `json:"weights"`
	Outliers  []model.TrainingSample `json:"outliers"`
	Runs      []model.Run            `json:"runs"`
}

var modelsShowCmd = &cobra.Command{
	Use:   "show <model-id>",
	Short: "Show a model's feature space, calibration, outliers and runs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		outliers, _ := cmd.Flags().GetInt("outliers")
		detail, err := describeModel(ctx, st, args[0], outliers)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(detail)
	},
}

func describeModel(ctx context.Context, st store.Store, id string, outliers int) (*modelDetail, error) {
	m, err := st.GetModel(ctx, id)
	if err != nil {
		return nil, eris.Wrap(err, "models show")
	}
	d := &modelDetail{
		ModelInfo: m.Info(),
		Exclusion: m.Calibration.Exclusion,
		Mean:      m.Space.Mean,
		Scale:     m.Space.Scale,
		Weights:   m.Space.Weights,
	}
	if outliers > 0 {
		if d.Outliers, err = st.TrainingOutliers(ctx, m.ID, outliers); err != nil {
			return nil, eris.Wrap(err, "models show")
		}
	}
	if d.Runs, err = st.ListRuns(ctx, store.RunFilter{ModelID: m.ID}); err != nil {
		return nil, eris.Wrap(err, "models show")
	}
	return d, nil
}

// formatModelsList writes a tabular list of models to w.
func formatModelsList(out io.Writer, models []model.ModelInfo) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tSAMPLES\tFEATURES\tTHRESHOLD\tRULE\tCREATED")
	_, _ = fmt.Fprintln(w, "--\t----\t-------\t--------\t---------\t----\t-------")
	for _, m := range models {
		features := strings.Join(m.Features, ",")
		if len(features) > 30 {
			features = features[:27] + "..."
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%.4g\t%s\t%s\n",
			truncateID(m.ID),
			m.Name,
			m.Samples,
			features,
			m.Threshold,
			m.Rule,
			m.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

func init() {
	modelsListCmd.Flags().String("name", "", "filter by model name")
	modelsListCmd.Flags().Int("limit", 50, "max number of models to display")

	modelsShowCmd.Flags().Int("outliers", 10, "training samples with the highest DI to include")

	modelsCmd.AddCommand(modelsListCmd)
	modelsCmd.AddCommand(modelsShowCmd)
	rootCmd.AddCommand(modelsCmd)
}
