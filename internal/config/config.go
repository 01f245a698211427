package config

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store StoreConfig `yaml:"store" mapstructure:"store"`
	Log   LogConfig   `yaml:"log" mapstructure:"log"`
	Table TableConfig `yaml:"table" mapstructure:"table"`
	Folds FoldsConfig `yaml:"folds" mapstructure:"folds"`
	AOA   AOAConfig   `yaml:"aoa" mapstructure:"aoa"`
	Grid  GridConfig  `yaml:"grid" mapstructure:"grid"`
}

// StoreConfig configures the model store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// TableConfig configures how input tables are parsed.
type TableConfig struct {
	Delimiter string `yaml:"delimiter" mapstructure:"delimiter"`
	Sheet     string `yaml:"sheet" mapstructure:"sheet"`
}

// FoldsConfig configures spatial fold construction and the training table
// columns it reads.
type FoldsConfig struct {
	K        int    `yaml:"k" mapstructure:"k"`
	Seed     int64  `yaml:"seed" mapstructure:"seed"`
	UnitCol  string `yaml:"unit_col" mapstructure:"unit_col"`
	LabelCol string `yaml:"label_col" mapstructure:"label_col"`
	XCol     string `yaml:"x_col" mapstructure:"x_col"`
	YCol     string `yaml:"y_col" mapstructure:"y_col"`
}

// AOAConfig configures calibration and estimation.
type AOAConfig struct {
	Workers       int     `yaml:"workers" mapstructure:"workers"`
	TileRows      int     `yaml:"tile_rows" mapstructure:"tile_rows"`
	Index         string  `yaml:"index" mapstructure:"index"`
	Exclusion     string  `yaml:"exclusion" mapstructure:"exclusion"`
	ThresholdRule string  `yaml:"threshold_rule" mapstructure:"threshold_rule"`
	IQRMultiplier float64 `yaml:"iqr_multiplier" mapstructure:"iqr_multiplier"`
	Quantile      float64 `yaml:"quantile" mapstructure:"quantile"`
}

// GridConfig describes gridded feature tables.
type GridConfig struct {
	RowCol string `yaml:"row_col" mapstructure:"row_col"`
	ColCol string `yaml:"col_col" mapstructure:"col_col"`
	// NoData is an optional sentinel value; empty means only NaN is missing.
	NoData string `yaml:"nodata" mapstructure:"nodata"`
}

// NoDataValue parses the no-data sentinel.
func (g GridConfig) NoDataValue() (float64, bool, error) {
	if strings.TrimSpace(g.NoData) == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(g.NoData), 64)
	if err != nil {
		return 0, false, eris.Wrapf(err, "config: parse grid.nodata %q", g.NoData)
	}
	return v, true, nil
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("AOA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.sqlite_path", "aoa.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("table.delimiter", ",")
	v.SetDefault("table.sheet", "")
	v.SetDefault("folds.k", 5)
	v.SetDefault("folds.seed", 0)
	v.SetDefault("folds.unit_col", "ID")
	v.SetDefault("folds.label_col", "Label")
	v.SetDefault("folds.x_col", "")
	v.SetDefault("folds.y_col", "")
	v.SetDefault("aoa.workers", 0)
	v.SetDefault("aoa.tile_rows", 64)
	v.SetDefault("aoa.index", "kdtree")
	v.SetDefault("aoa.exclusion", "unit")
	v.SetDefault("aoa.threshold_rule", "whisker")
	v.SetDefault("aoa.iqr_multiplier", 1.5)
	v.SetDefault("aoa.quantile", 0.95)
	v.SetDefault("grid.row_col", "row")
	v.SetDefault("grid.col_col", "col")
	v.SetDefault("grid.nodata", "")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command mode depends on. All problems are
// reported together.
func (c *Config) Validate(mode string) error {
	var problems []string
	switch mode {
	case "folds":
		problems = append(problems, c.validateFolds()...)
	case "train":
		problems = append(problems, c.validateFolds()...)
		problems = append(problems, c.validateAOA()...)
		problems = append(problems, c.validateStore()...)
	case "predict":
		problems = append(problems, c.validateAOA()...)
		problems = append(problems, c.validateGrid()...)
		problems = append(problems, c.validateStore()...)
	case "store":
		problems = append(problems, c.validateStore()...)
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}
	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (c *Config) validateStore() []string {
	switch c.Store.Driver {
	case "sqlite":
		if c.Store.SQLitePath == "" {
			return []string{"store.sqlite_path is required for the sqlite driver"}
		}
	case "postgres":
		if c.Store.DatabaseURL == "" {
			return []string{"store.database_url is required for the postgres driver"}
		}
	default:
		return []string{"store.driver must be sqlite or postgres"}
	}
	return nil
}

func (c *Config) validateFolds() []string {
	var p []string
	if c.Folds.K < 2 {
		p = append(p, "folds.k must be >= 2")
	}
	if c.Folds.UnitCol == "" {
		p = append(p, "folds.unit_col is required")
	}
	if c.Folds.LabelCol == "" {
		p = append(p, "folds.label_col is required")
	}
	if (c.Folds.XCol == "") != (c.Folds.YCol == "") {
		p = append(p, "folds.x_col and folds.y_col must be set together")
	}
	return p
}

func (c *Config) validateAOA() []string {
	var p []string
	a := c.AOA
	if a.Workers < 0 {
		p = append(p, "aoa.workers must be >= 0")
	}
	if a.TileRows < 1 {
		p = append(p, "aoa.tile_rows must be >= 1")
	}
	if a.Index != "kdtree" && a.Index != "brute" {
		p = append(p, "aoa.index must be kdtree or brute")
	}
	switch a.Exclusion {
	case "none", "unit", "fold":
	default:
		p = append(p, "aoa.exclusion must be none, unit or fold")
	}
	switch a.ThresholdRule {
	case "whisker", "iqr", "quantile":
	default:
		p = append(p, "aoa.threshold_rule must be whisker, iqr or quantile")
	}
	if a.IQRMultiplier < 0 {
		p = append(p, "aoa.iqr_multiplier must be >= 0")
	}
	if a.Quantile <= 0 || a.Quantile > 1 {
		p = append(p, "aoa.quantile must be in (0,1]")
	}
	return p
}

func (c *Config) validateGrid() []string {
	var p []string
	if c.Grid.RowCol == "" || c.Grid.ColCol == "" {
		p = append(p, "grid.row_col and grid.col_col are required")
	}
	if _, _, err := c.Grid.NoDataValue(); err != nil {
		p = append(p, "grid.nodata must be a number")
	}
	return p
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
