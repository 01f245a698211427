package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/landcover-aoa/internal/config"
	"github.com/sells-group/landcover-aoa/internal/resilience"
	"github.com/sells-group/landcover-aoa/internal/store"
)

// initStore opens the configured model store and applies its migration,
// retrying while the database is busy or unreachable.
func initStore(ctx context.Context, c *config.Config) (store.Store, error) {
	if err := c.Validate("store"); err != nil {
		return nil, err
	}

	open := func(ctx context.Context) (store.Store, error) {
		switch c.Store.Driver {
		case "sqlite":
			return store.NewSQLite(c.Store.SQLitePath)
		case "postgres":
			return store.NewPostgres(ctx, c.Store.DatabaseURL, nil)
		default:
			return nil, eris.Errorf("unsupported store driver: %s", c.Store.Driver)
		}
	}

	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = resilience.RetryLogger("store", "open")
	st, err := resilience.DoVal(ctx, retry, open)
	if err != nil {
		return nil, err
	}

	retry.OnRetry = resilience.RetryLogger("store", "migrate")
	if err := resilience.Do(ctx, retry, st.Migrate); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}
