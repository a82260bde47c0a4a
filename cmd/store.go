package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/finprofile/internal/db"
	"github.com/sells-group/finprofile/internal/resilience"
	"github.com/sells-group/finprofile/internal/store"
)

// openStore validates the configuration and opens the configured backend.
func openStore(ctx context.Context) (store.Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := store.DefaultOptions()
	opts.FactBatchSize = cfg.Import.FactBatchSize
	opts.Timeout = cfg.Import.StoreTimeout
	if cfg.Import.MaxRetries > 0 {
		opts.Retry = resilience.NewRetryConfig(cfg.Import.MaxRetries, time.Second)
		opts.Retry.OnRetry = resilience.RetryLogger("store", "write")
	}

	switch cfg.Store.Driver {
	case "sqlite":
		return store.NewSQLite(cfg.Store.DatabaseURL, opts)
	case "postgres":
		return store.OpenPostgres(ctx, cfg.Store.DatabaseURL, db.PoolOptions{
			AuthToken: cfg.Store.AuthToken,
			MaxConns:  cfg.Store.MaxConns,
		}, opts)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}
