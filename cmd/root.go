package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/landcover-aoa/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "aoa",
	Short: "Spatial cross-validation folds and area of applicability for land-cover models",
	Long: "Builds spatially blocked, class-stratified cross-validation folds from labeled samples, " +
		"calibrates a dissimilarity index against the training feature space, and maps where a " +
		"trained classifier's predictions can be trusted.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
