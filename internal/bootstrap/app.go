// Package bootstrap wires configuration into a running newsgate instance.
//
// The bootstrap process follows these phases:
//   - Phase 1: Config & Logger - load configuration and create the logger
//   - Phase 2: Storage - open the budget cache store (file, Redis or memory)
//   - Phase 3: Sources - build the feed registry and scrape site table
//   - Phase 4: Services - feed, scrape, news API, moderation and aggregator
//   - Phase 5: Serve - HTTP API, cron refresh and source watcher (serve only)
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonesrussell/newsgate/internal/aggregator"
	"github.com/jonesrussell/newsgate/internal/cache"
	"github.com/jonesrussell/newsgate/internal/config"
	"github.com/jonesrussell/newsgate/internal/feed"
	"github.com/jonesrussell/newsgate/internal/logger"
	"github.com/jonesrussell/newsgate/internal/metrics"
	"github.com/jonesrussell/newsgate/internal/moderation"
	"github.com/jonesrussell/newsgate/internal/newsapi"
	"github.com/jonesrussell/newsgate/internal/scrape"
	"github.com/jonesrussell/newsgate/internal/sources"
)

var errConfigRequired = errors.New("config is required")

// App holds every long-lived component.
type App struct {
	Config  *config.Config
	Logger  logger.Logger
	Metrics *metrics.Metrics

	Sources    *sources.Registry
	Memory     *cache.MemoryCache
	Budget     *cache.BudgetCache
	Feeds      *feed.Client
	Scraper    *scrape.Client
	NewsAPI    *newsapi.Client
	Moderator  *moderation.Moderator
	Aggregator *aggregator.Aggregator

	closers []func() error
}

// New builds the application from cfg. A nil log creates one from
// cfg.Logger.
func New(ctx context.Context, cfg *config.Config, log logger.Logger) (*App, error) {
	if cfg == nil {
		return nil, errConfigRequired
	}

	// Phase 1: logger and metrics
	if log == nil {
		var err error
		if log, err = logger.New(cfg.Logger); err != nil {
			return nil, fmt.Errorf("create logger: %w", err)
		}
	}
	log = log.With(logger.String("service", cfg.App.Name))
	app := &App{Config: cfg, Logger: log, Metrics: metrics.New()}

	// Phase 2: budget storage
	if err := app.setupBudget(ctx); err != nil {
		app.Close()
		return nil, err
	}

	// Phase 3: sources and sites
	if err := app.setupSources(); err != nil {
		app.Close()
		return nil, err
	}

	// Phase 4: services
	if err := app.setupServices(); err != nil {
		app.Close()
		return nil, err
	}

	log.Info("newsgate initialized",
		logger.Int("sources", len(app.Sources.All())),
		logger.Int("scrape_sites", len(app.Scraper.Sites())),
		logger.Bool("newsapi", app.NewsAPI != nil),
		logger.String("cache_backend", cfg.Cache.Backend),
	)
	return app, nil
}

func (a *App) setupSources() error {
	a.Sources = sources.NewDefaultRegistry(a.Logger)
	if path := a.Config.Sources.File; path != "" {
		if err := a.Sources.LoadFile(path); err != nil {
			return fmt.Errorf("load sources: %w", err)
		}
	}

	sites := scrape.DefaultSites()
	if path := a.Config.Scrape.SitesFile; path != "" {
		loaded, err := scrape.LoadFile(path, a.Logger)
		if err != nil {
			return fmt.Errorf("load scrape sites: %w", err)
		}
		sites = loaded
	}
	a.Scraper = scrape.NewClient(scrape.Options{
		Timeout:    a.Config.Scrape.Timeout,
		UserAgents: a.Config.Fetch.UserAgents,
		Sites:      sites,
		Logger:     a.Logger.With(logger.String("component", "scrape")),
		Metrics:    a.Metrics,
	})
	return nil
}

func (a *App) setupServices() error {
	cfg := a.Config

	a.Memory = cache.NewMemoryCache(cache.MemoryOptions{
		TTL:                  cfg.Cache.MemoryTTL,
		MaxEntries:           cfg.Cache.MemoryMaxEntries,
		StaleWhileRevalidate: cfg.Cache.StaleWhileRevalidate,
		Logger:               a.Logger.With(logger.String("component", "memory_cache")),
		Metrics:              a.Metrics,
	})
	a.closers = append(a.closers, func() error {
		a.Memory.Wait()
		return nil
	})

	a.Feeds = feed.NewClient(feed.Options{
		Timeout:         cfg.Fetch.Timeout,
		MaxAttempts:     cfg.Fetch.MaxAttempts,
		BackoffBase:     cfg.Fetch.BackoffBase,
		MaxBackoff:      cfg.Fetch.MaxBackoff,
		EmptyFeedPolicy: cfg.Fetch.EmptyFeedPolicy,
		UserAgents:      cfg.Fetch.UserAgents,
		Cache:           a.Memory,
		Fallback:        a.Scraper,
		Logger:          a.Logger.With(logger.String("component", "feed")),
		Metrics:         a.Metrics,
	})

	if err := a.setupNewsAPI(); err != nil {
		return err
	}

	a.Moderator = moderation.New(moderation.Options{
		MinQualityScore:    cfg.Moderation.MinQualityScore,
		DuplicateThreshold: cfg.Moderation.DuplicateThreshold,
		Reliability:        moderation.NewReliability(reliabilityTable(cfg.Moderation.Reliability), cfg.Moderation.ReliabilityCacheTTL, nil),
		Logger:             a.Logger.With(logger.String("component", "moderation")),
		Metrics:            a.Metrics,
	})

	opts := aggregator.Options{
		Feeds:          a.Feeds,
		Sources:        a.Sources,
		Scraper:        a.Scraper,
		Moderator:      a.Moderator,
		Categories:     cfg.CategoryList(),
		TargetArticles: cfg.Aggregator.TargetArticles,
		BatchSize:      cfg.Aggregator.BatchSize,
		APIConcurrency: cfg.Aggregator.APIConcurrency,
		APILimit:       cfg.Aggregator.APILimit,
		IncludeScrape:  cfg.Aggregator.IncludeScrape,
		Logger:         a.Logger.With(logger.String("component", "aggregator")),
		Metrics:        a.Metrics,
	}
	if a.NewsAPI != nil {
		opts.API = a.NewsAPI
	}

	agg, err := aggregator.New(opts)
	if err != nil {
		return fmt.Errorf("create aggregator: %w", err)
	}
	a.Aggregator = agg
	return nil
}

func (a *App) setupNewsAPI() error {
	cfg := a.Config.NewsAPI
	if !cfg.Enabled || a.Budget == nil {
		a.Logger.Info("News API disabled")
		return nil
	}
	if cfg.APIKey == "" {
		a.Logger.Warn("News API key not set, running on feeds only")
		return nil
	}

	client, err := newsapi.NewClient(newsapi.Options{
		BaseURL:           cfg.BaseURL,
		APIKey:            cfg.APIKey,
		Language:          cfg.Language,
		Country:           cfg.Country,
		MaxPageSize:       cfg.MaxPageSize,
		MinInterval:       cfg.MinInterval,
		RateLimitCooldown: cfg.RateLimitCooldown,
		Timeout:           cfg.Timeout,
		Queries:           newsapi.QueriesFromConfig(cfg.Queries),
		Cache:             a.Budget,
		Logger:            a.Logger,
		Metrics:           a.Metrics,
	})
	if err != nil {
		return fmt.Errorf("create news api client: %w", err)
	}
	a.NewsAPI = client
	return nil
}

// CacheStats reports both cache tiers.
func (a *App) CacheStats() []cache.Stats {
	out := []cache.Stats{a.Memory.Stats()}
	if a.Budget != nil {
		out = append(out, a.Budget.Stats())
	}
	return out
}

// Close releases storage handles and waits for background refreshes.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Logger.Warn("Close failed", logger.Error(err))
		}
	}
	a.closers = nil
	_ = a.Logger.Sync()
}

// reliabilityTable overlays configured scores on the defaults.
func reliabilityTable(overrides map[string]float64) map[string]float64 {
	table := moderation.DefaultReliability()
	for name, score := range overrides {
		table[name] = score
	}
	return table
}
