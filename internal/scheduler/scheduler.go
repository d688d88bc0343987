// Package scheduler triggers aggregation runs on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jonesrussell/newsgate/internal/aggregator"
	"github.com/jonesrussell/newsgate/internal/logger"
)

// ErrAlreadyStarted is returned by Start on a running scheduler.
var ErrAlreadyStarted = errors.New("scheduler already started")

// Runner runs one aggregation.
type Runner interface {
	Run(ctx context.Context, req aggregator.Request) (*aggregator.Result, error)
}

// Options configure a Scheduler.
type Options struct {
	// Spec is a standard five-field cron expression or a descriptor such as
	// "@every 15m".
	Spec string
	// RunOnStart triggers one run immediately on Start.
	RunOnStart    bool
	IncludeScrape bool
	Logger        logger.Logger
}

// Scheduler runs the aggregator on a cron schedule. Ticks that fire while a
// run is still in progress are skipped.
type Scheduler struct {
	runner Runner
	opts   Options
	log    logger.Logger
	cron   *cron.Cron
	parser cron.Parser

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// New validates the schedule and returns a stopped Scheduler.
func New(runner Runner, opts Options) (*Scheduler, error) {
	if runner == nil {
		return nil, errors.New("scheduler: runner is required")
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNop()
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(opts.Spec); err != nil {
		return nil, fmt.Errorf("parse cron expression %q: %w", opts.Spec, err)
	}

	return &Scheduler{
		runner: runner,
		opts:   opts,
		log:    opts.Logger.With(logger.String("component", "scheduler")),
		parser: parser,
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger)),
		),
	}, nil
}

// Start registers the job and starts the cron loop. Runs use a context
// derived from ctx that is cancelled by Stop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrAlreadyStarted
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	if _, err := s.cron.AddFunc(s.opts.Spec, func() { s.trigger("cron") }); err != nil {
		s.cancel()
		return fmt.Errorf("add cron job: %w", err)
	}
	s.cron.Start()
	s.started = true

	s.log.Info("Scheduler started",
		logger.String("schedule", s.opts.Spec),
		logger.Time("next_run", s.NextRun(time.Now())),
	)

	if s.opts.RunOnStart {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.trigger("startup")
		}()
	}
	return nil
}

// Stop cancels in-flight runs and waits for them to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.cancel()
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.wg.Wait()
	s.log.Info("Scheduler stopped")
}

// NextRun returns the next activation after now.
func (s *Scheduler) NextRun(now time.Time) time.Time {
	sched, err := s.parser.Parse(s.opts.Spec)
	if err != nil {
		return time.Time{}
	}
	return sched.Next(now)
}

func (s *Scheduler) trigger(reason string) {
	start := time.Now()
	s.log.Info("Scheduled run triggered", logger.String("reason", reason))

	res, err := s.runner.Run(s.ctx, aggregator.Request{IncludeScrape: s.opts.IncludeScrape})
	if err != nil {
		s.log.Error("Scheduled run failed",
			logger.String("reason", reason),
			logger.Duration("duration", time.Since(start)),
			logger.Error(err),
		)
		return
	}
	s.log.Info("Scheduled run completed",
		logger.String("reason", reason),
		logger.Int("articles", len(res.Articles)),
		logger.Duration("duration", time.Since(start)),
	)
}
