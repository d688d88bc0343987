package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/jonesrussell/newsgate/internal/budget"
	"github.com/jonesrussell/newsgate/internal/cache"
	"github.com/jonesrussell/newsgate/internal/config"
	"github.com/jonesrussell/newsgate/internal/domain"
	"github.com/jonesrussell/newsgate/internal/logger"
)

// setupBudget opens the Tier B store and builds the budget cache. It is
// skipped when the news API is disabled.
func (a *App) setupBudget(ctx context.Context) error {
	cfg := a.Config
	if !cfg.NewsAPI.Enabled {
		return nil
	}

	store, err := a.openStore()
	if err != nil {
		return err
	}

	bc, err := cache.NewBudgetCache(ctx, cache.BudgetOptions{
		Store:         store,
		Ledger:        budget.NewLedger(cfg.NewsAPI.DailyCreditLimit, cfg.NewsAPI.ArticlesPerCredit),
		DefaultTTL:    cfg.Cache.DefaultTTL,
		EmergencyTTL:  cfg.Cache.EmergencyTTL,
		SoftThreshold: cfg.Cache.SoftThreshold,
		CategoryTTL:   categoryTTLs(cfg.Cache),
		Logger:        a.Logger.With(logger.String("component", "budget_cache")),
		Metrics:       a.Metrics,
	})
	if err != nil {
		return fmt.Errorf("create budget cache: %w", err)
	}
	a.Budget = bc
	return nil
}

func (a *App) openStore() (cache.Store, error) {
	cfg := a.Config
	switch cfg.Cache.Backend {
	case config.BackendRedis:
		client, err := cache.NewRedisClient(cache.RedisConfig{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		a.Logger.Info("Budget cache using Redis",
			logger.String("address", cfg.Redis.Address),
			logger.String("key", cfg.Redis.Key),
		)
		return cache.NewRedisStore(client, cfg.Redis.Key), nil
	case config.BackendNone:
		a.Logger.Warn("Budget cache is not persisted; credits reset on restart")
		return cache.NewMemoryStore(), nil
	default:
		a.Logger.Info("Budget cache using file", logger.String("path", cfg.Cache.FilePath))
		return cache.NewFileStore(cfg.Cache.FilePath), nil
	}
}

func categoryTTLs(cfg config.CacheConfig) map[domain.Category]time.Duration {
	out := make(map[domain.Category]time.Duration, len(cfg.CategoryTTL))
	for name, ttl := range cfg.CategoryTTL {
		if cat, err := domain.ParseCategory(name); err == nil {
			out[cat] = ttl
		}
	}
	return out
}
