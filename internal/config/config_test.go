package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "aoa.db", cfg.Store.SQLitePath)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, ",", cfg.Table.Delimiter)
	assert.Equal(t, 5, cfg.Folds.K)
	assert.Equal(t, int64(0), cfg.Folds.Seed)
	assert.Equal(t, "ID", cfg.Folds.UnitCol)
	assert.Equal(t, "Label", cfg.Folds.LabelCol)
	assert.Equal(t, 0, cfg.AOA.Workers)
	assert.Equal(t, 64, cfg.AOA.TileRows)
	assert.Equal(t, "kdtree", cfg.AOA.Index)
	assert.Equal(t, "unit", cfg.AOA.Exclusion)
	assert.Equal(t, "whisker", cfg.AOA.ThresholdRule)
	assert.InDelta(t, 1.5, cfg.AOA.IQRMultiplier, 0.001)
	assert.InDelta(t, 0.95, cfg.AOA.Quantile, 0.001)
	assert.Equal(t, "row", cfg.Grid.RowCol)
	assert.Equal(t, "col", cfg.Grid.ColCol)
	assert.Equal(t, "", cfg.Grid.NoData)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/aoa
log:
  level: debug
  format: console
folds:
  k: 10
  seed: 42
  unit_col: PolygonID
aoa:
  exclusion: fold
  threshold_rule: iqr
  iqr_multiplier: 3
grid:
  nodata: "-9999"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/aoa", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 10, cfg.Folds.K)
	assert.Equal(t, int64(42), cfg.Folds.Seed)
	assert.Equal(t, "PolygonID", cfg.Folds.UnitCol)
	assert.Equal(t, "fold", cfg.AOA.Exclusion)
	assert.Equal(t, "iqr", cfg.AOA.ThresholdRule)
	assert.InDelta(t, 3.0, cfg.AOA.IQRMultiplier, 0.001)

	nd, ok, err := cfg.Grid.NoDataValue()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, -9999.0, nd)

	// Defaults still apply for unset values
	assert.Equal(t, "Label", cfg.Folds.LabelCol)
	assert.Equal(t, 64, cfg.AOA.TileRows)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: postgres
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("AOA_STORE_DRIVER", "sqlite")
	t.Setenv("AOA_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)

	t.Setenv("AOA_AOA_WORKERS", "3")
	t.Setenv("AOA_FOLDS_K", "4")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.AOA.Workers)
	assert.Equal(t, 4, cfg.Folds.K)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("aoa: [unclosed"), 0644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Store.Driver = "sqlite"
	cfg.Store.SQLitePath = "aoa.db"
	cfg.Folds.K = 5
	cfg.Folds.UnitCol = "ID"
	cfg.Folds.LabelCol = "Label"
	cfg.AOA.TileRows = 64
	cfg.AOA.Index = "kdtree"
	cfg.AOA.Exclusion = "unit"
	cfg.AOA.ThresholdRule = "whisker"
	cfg.AOA.IQRMultiplier = 1.5
	cfg.AOA.Quantile = 0.95
	cfg.Grid.RowCol = "row"
	cfg.Grid.ColCol = "col"
	return cfg
}

func TestValidate_Defaults(t *testing.T) {
	for _, mode := range []string{"folds", "train", "predict", "store"} {
		assert.NoError(t, validDefaults().Validate(mode), mode)
	}
}

func TestValidateUnknownMode(t *testing.T) {
	err := validDefaults().Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestValidateFolds(t *testing.T) {
	cfg := validDefaults()
	cfg.Folds.K = 1
	cfg.Folds.UnitCol = ""
	cfg.Folds.XCol = "X"

	err := cfg.Validate("folds")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "folds.k must be >= 2")
	assert.Contains(t, err.Error(), "folds.unit_col is required")
	assert.Contains(t, err.Error(), "folds.x_col and folds.y_col must be set together")
}

func TestValidateAOA(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AOAConfig)
		want   string
	}{
		{"workers", func(a *AOAConfig) { a.Workers = -1 }, "aoa.workers must be >= 0"},
		{"tile rows", func(a *AOAConfig) { a.TileRows = 0 }, "aoa.tile_rows must be >= 1"},
		{"index", func(a *AOAConfig) { a.Index = "balltree" }, "aoa.index must be kdtree or brute"},
		{"exclusion", func(a *AOAConfig) { a.Exclusion = "polygon" }, "aoa.exclusion"},
		{"rule", func(a *AOAConfig) { a.ThresholdRule = "max" }, "aoa.threshold_rule"},
		{"multiplier", func(a *AOAConfig) { a.IQRMultiplier = -1 }, "aoa.iqr_multiplier must be >= 0"},
		{"quantile", func(a *AOAConfig) { a.Quantile = 0 }, "aoa.quantile must be in (0,1]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validDefaults()
			tt.mutate(&cfg.AOA)
			err := cfg.Validate("train")
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateStore(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "postgres"
	err := cfg.Validate("store")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")

	cfg.Store.DatabaseURL = "postgres://localhost/aoa"
	assert.NoError(t, cfg.Validate("store"))

	cfg.Store.Driver = "mysql"
	err = cfg.Validate("store")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver must be sqlite or postgres")
}

func TestValidateGrid(t *testing.T) {
	cfg := validDefaults()
	cfg.Grid.NoData = "none"
	err := cfg.Validate("predict")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "grid.nodata must be a number")

	cfg.Grid.NoData = ""
	cfg.Grid.ColCol = ""
	err = cfg.Validate("predict")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "grid.row_col and grid.col_col are required")
}

func TestNoDataValue(t *testing.T) {
	v, ok, err := GridConfig{}.NoDataValue()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0.0, v)

	v, ok, err = GridConfig{NoData: " 0 "}.NoDataValue()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 0.0, v)
}
