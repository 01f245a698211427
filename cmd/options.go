package main

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/landcover-aoa/internal/aoa"
	"github.com/sells-group/landcover-aoa/internal/config"
	"github.com/sells-group/landcover-aoa/internal/model"
	"github.com/sells-group/landcover-aoa/internal/table"
)

// aoaOptions converts the aoa config section.
func aoaOptions(c *config.Config) aoa.Options {
	opts := aoa.DefaultOptions()
	if c.AOA.Workers > 0 {
		opts.Workers = c.AOA.Workers
	}
	if c.AOA.TileRows > 0 {
		opts.TileRows = c.AOA.TileRows
	}
	if c.AOA.Index != "" {
		opts.Index = aoa.IndexKind(c.AOA.Index)
	}
	if c.AOA.Exclusion != "" {
		opts.Exclusion = aoa.Exclusion(c.AOA.Exclusion)
	}
	if c.AOA.ThresholdRule != "" {
		opts.Rule = aoa.ThresholdRule(c.AOA.ThresholdRule)
	}
	opts.IQRMultiplier = c.AOA.IQRMultiplier
	if c.AOA.Quantile > 0 {
		opts.Quantile = c.AOA.Quantile
	}
	return opts
}

// tableOptions converts the table config section.
func tableOptions(c *config.Config) (table.Options, error) {
	var opts table.Options
	if d := c.Table.Delimiter; d != "" {
		r, size := utf8.DecodeRuneInString(d)
		if size != len(d) {
			return opts, eris.Errorf("table.delimiter must be a single character, got %q", d)
		}
		opts.CSV.Delimiter = r
	}
	opts.CSV.TrimSpace = true
	opts.XLSX.SheetName = c.Table.Sheet
	return opts, nil
}

// sampleSpec builds the training table column spec from the folds section.
func sampleSpec(c *config.Config, features []string) table.SampleSpec {
	return table.SampleSpec{
		Unit:     c.Folds.UnitCol,
		Label:    c.Folds.LabelCol,
		X:        c.Folds.XCol,
		Y:        c.Folds.YCol,
		Features: features,
	}
}

// loadSamples reads a training table and extracts its samples.
func loadSamples(ctx context.Context, c *config.Config, path string, features []string) ([]model.Sample, []string, error) {
	opts, err := tableOptions(c)
	if err != nil {
		return nil, nil, err
	}
	t, err := table.Read(ctx, path, opts)
	if err != nil {
		return nil, nil, err
	}
	return t.Samples(sampleSpec(c, features))
}

// loadUnits reads a training table for fold building. Only the unit, label
// and coordinate columns are parsed.
func loadUnits(ctx context.Context, c *config.Config, path string) ([]model.Sample, error) {
	opts, err := tableOptions(c)
	if err != nil {
		return nil, err
	}
	t, err := table.Read(ctx, path, opts)
	if err != nil {
		return nil, err
	}
	spec := sampleSpec(c, nil)
	spec.SkipFeatures = true
	samples, _, err := t.Samples(spec)
	return samples, err
}

// applyColumnFlags copies the training table column flags that were set on
// cmd into c.
func applyColumnFlags(cmd *cobra.Command, c *config.Config) {
	flags := map[string]*string{
		"unit-col":  &c.Folds.UnitCol,
		"label-col": &c.Folds.LabelCol,
		"x-col":     &c.Folds.XCol,
		"y-col":     &c.Folds.YCol,
	}
	for name, dst := range flags {
		if cmd.Flags().Changed(name) {
			*dst, _ = cmd.Flags().GetString(name)
		}
	}
}

func addColumnFlags(cmd *cobra.Command) {
	cmd.Flags().String("unit-col", "", "spatial unit column (default from folds.unit_col)")
	cmd.Flags().String("label-col", "", "class label column (default from folds.label_col)")
	cmd.Flags().String("x-col", "", "x coordinate column")
	cmd.Flags().String("y-col", "", "y coordinate column")
}

// splitList parses a comma separated flag value.
func splitList(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
