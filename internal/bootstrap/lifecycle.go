package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/jonesrussell/newsgate/internal/aggregator"
	"github.com/jonesrussell/newsgate/internal/api"
	"github.com/jonesrussell/newsgate/internal/budget"
	"github.com/jonesrussell/newsgate/internal/logger"
	"github.com/jonesrussell/newsgate/internal/scheduler"
)

// ServeOptions tune serve mode.
type ServeOptions struct {
	Version string
	// RunOnStart triggers one aggregation as soon as the server is up.
	RunOnStart bool
}

// Serve runs the HTTP API, the cron refresh and the source watcher until
// SIGINT/SIGTERM or a server error.
func (a *App) Serve(ctx context.Context, opts ServeOptions) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := api.NewServer(api.Config{
		Address:      a.Config.Server.Address,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		Debug:        a.Config.App.Debug,
	}, api.NewHandler(a.handlerDeps(opts.Version)), a.Logger.With(logger.String("component", "http")))

	sched, err := a.startScheduler(ctx, opts)
	if err != nil {
		return err
	}
	if sched != nil {
		defer sched.Stop()
	}

	if path := a.Config.Sources.File; path != "" && a.Config.Sources.Watch {
		go func() {
			if watchErr := a.Sources.Watch(ctx, path); watchErr != nil {
				a.Logger.Error("Source watcher stopped", logger.Error(watchErr))
			}
		}()
	}

	if err = server.Run(ctx); err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	a.Logger.Info("Shutdown complete")
	return nil
}

func (a *App) startScheduler(ctx context.Context, opts ServeOptions) (*scheduler.Scheduler, error) {
	if !a.Config.Schedule.Enabled {
		if opts.RunOnStart {
			go a.runOnce(ctx)
		}
		return nil, nil
	}

	sched, err := scheduler.New(a.Aggregator, scheduler.Options{
		Spec:          a.Config.Schedule.Cron,
		RunOnStart:    opts.RunOnStart,
		IncludeScrape: a.Config.Aggregator.IncludeScrape,
		Logger:        a.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	if err = sched.Start(ctx); err != nil {
		return nil, fmt.Errorf("start scheduler: %w", err)
	}
	return sched, nil
}

func (a *App) runOnce(ctx context.Context) {
	if _, err := a.Aggregator.Run(ctx, aggregator.Request{}); err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error("Startup run failed", logger.Error(err))
	}
}

func (a *App) handlerDeps(version string) api.Deps {
	deps := api.Deps{
		Snapshot:   a.Aggregator.Snapshot(),
		Runner:     a.Aggregator,
		CacheStats: a.CacheStats,
		Usage: func() (budget.Usage, bool) {
			if a.Budget == nil {
				return budget.Usage{}, false
			}
			return a.Budget.Usage(), true
		},
		Metrics: a.Metrics.Handler(),
		Version: version,
		Logger:  a.Logger,
	}
	if a.NewsAPI != nil {
		deps.APIAvailable = a.NewsAPI.Available
	}
	return deps
}
