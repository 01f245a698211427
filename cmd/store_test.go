package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/landcover-aoa/internal/store"
)

func TestInitStore_SQLite(t *testing.T) {
	c := testConfig(t)
	st, err := initStore(context.Background(), c)
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	models, err := st.ListModels(context.Background(), store.ModelFilter{})
	require.NoError(t, err)
	assert.Empty(t, models)
	assert.FileExists(t, c.Store.SQLitePath)
}

func TestInitStore_UnsupportedDriver(t *testing.T) {
	c := testConfig(t)
	c.Store.Driver = "mysql"
	_, err := initStore(context.Background(), c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver")
}

func TestInitStore_BadSQLitePath(t *testing.T) {
	c := testConfig(t)
	c.Store.SQLitePath = filepath.Join(t.TempDir(), "missing", "dir", "aoa.db")
	_, err := initStore(context.Background(), c)
	require.Error(t, err)
}
