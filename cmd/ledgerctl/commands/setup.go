package commands

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	"taskledger/internal/config"
	"taskledger/internal/reconcile"
	"taskledger/internal/store"
)

// newReconciler builds the store gateway and reconciler from the configured
// ledger settings. The returned closer must be called when done.
func newReconciler() (*reconcile.Reconciler, *config.Config, func() error, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load %s: %w", configPath, err)
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("invalid redis_url: %w", err)
	}

	rs, err := store.NewRedisStore(redisOpts, cfg.Ledger.Instance)
	if err != nil {
		return nil, nil, nil, err
	}

	gw := store.NewGateway(rs, cfg.Ledger.Document, store.NewCache(cfg.Ledger.CacheTTL()))
	rec := reconcile.New(gw, reconcile.Options{
		MaxRetries:      *cfg.Ledger.MaxRetries,
		EmptyPolicy:     reconcile.EmptyPolicy(cfg.Ledger.EmptyMessagePolicy),
		TimestampLayout: cfg.Ledger.TimestampLayout,
	})

	return rec, cfg, rs.Close, nil
}
