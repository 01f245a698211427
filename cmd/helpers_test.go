package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/landcover-aoa/internal/config"
	"github.com/sells-group/landcover-aoa/internal/store"
)

// testConfig returns a config backed by a SQLite file in a temp dir.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Store: config.StoreConfig{
			Driver:     "sqlite",
			SQLitePath: filepath.Join(t.TempDir(), "aoa.db"),
		},
		Log:   config.LogConfig{Level: "error", Format: "console"},
		Table: config.TableConfig{Delimiter: ","},
		Folds: config.FoldsConfig{K: 3, UnitCol: "ID", LabelCol: "Label"},
		AOA: config.AOAConfig{
			Workers:       2,
			TileRows:      1,
			Index:         "kdtree",
			Exclusion:     "unit",
			ThresholdRule: "whisker",
			IQRMultiplier: 1.5,
			Quantile:      0.95,
		},
		Grid: config.GridConfig{RowCol: "row", ColCol: "col"},
	}
}

// testConfigStore pairs a test config with the store it opens.
type testConfigStore struct {
	cfg *config.Config
	st  store.Store
}

func newTestEnv(t *testing.T) *testConfigStore {
	t.Helper()
	c := testConfig(t)
	return &testConfigStore{cfg: c, st: testStore(t, c)}
}

func testStore(t *testing.T, c *config.Config) store.Store {
	t.Helper()
	st, err := initStore(context.Background(), c)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func writeTestFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// triangleCSV holds three single-sample units at (0,0), (1,0) and (0,1).
const triangleCSV = `ID,Label,B1,B2
p1,water,0,0
p2,forest,1,0
p3,forest,0,1
`

// clusterCSV holds three units of three samples each.
const clusterCSV = `ID,Label,B1,B2,X,Y
u1,A,0,0,100,100
u1,A,0,1,101,100
u1,B,1,0,100,101
u2,B,5,5,200,200
u2,B,5,6,201,200
u2,B,6,5,200,201
u3,A,10,0,300,300
u3,A,10,1,301,300
u3,A,11,0,300,301
`
