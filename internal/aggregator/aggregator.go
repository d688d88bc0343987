// Package aggregator runs the source priority chain: the budgeted API
// first, then tiered feed batches, then an optional scrape pass. Results are
// moderated per source, merged, deduplicated by link and sorted newest
// first.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonesrussell/newsgate/internal/domain"
	"github.com/jonesrussell/newsgate/internal/logger"
	"github.com/jonesrussell/newsgate/internal/metrics"
	"github.com/jonesrussell/newsgate/internal/moderation"
	"github.com/jonesrussell/newsgate/internal/newsapi"
)

const (
	DefaultTargetArticles = 100
	DefaultBatchSize      = 6
	MinBatchSize          = 4
	MaxBatchSize          = 8
	defaultAPIConcurrency = 3
	defaultAPILimit       = 10
)

var (
	// ErrNoFeedClient is returned by New without a feed client.
	ErrNoFeedClient = errors.New("aggregator requires a feed client")
	// ErrNoSourceList is returned by New without a source registry.
	ErrNoSourceList = errors.New("aggregator requires a source registry")
	// ErrInvalidBatchSize is returned for a batch size outside 4 to 8.
	ErrInvalidBatchSize = errors.New("batch size out of range")
	// ErrNothingToAggregate is returned by Run when there is no API client,
	// no active source and no scraper.
	ErrNothingToAggregate = errors.New("no api client, active sources or scraper")
)

// APIClient is the budgeted API.
type APIClient interface {
	FetchArticles(ctx context.Context, cat domain.Category, limit int, pageToken string) (*newsapi.Result, error)
	Available() bool
}

// FeedClient fetches one feed source.
type FeedClient interface {
	FetchSource(ctx context.Context, src domain.SourceDescriptor, skipCache bool) []domain.Article
}

// SourceList partitions active sources by tier.
type SourceList interface {
	Tiers() [][]domain.SourceDescriptor
}

// Scraper scrapes every active site.
type Scraper interface {
	ScrapeAll(ctx context.Context) []domain.Article
}

// Moderator gates a batch of articles.
type Moderator interface {
	ModerateArticles(batch []domain.Article) moderation.BatchResult
}

// Options configures an Aggregator. API and Scraper are optional.
type Options struct {
	API        APIClient
	Feeds      FeedClient
	Sources    SourceList
	Scraper    Scraper
	Moderator  Moderator
	Categories []domain.Category

	TargetArticles int
	BatchSize      int
	APIConcurrency int
	APILimit       int
	IncludeScrape  bool

	Logger  logger.Logger
	Metrics *metrics.Metrics
	Now     func() time.Time
}

// Request tunes a single run.
type Request struct {
	// IncludeScrape adds the scrape supplement. Options.IncludeScrape
	// enables it for every run.
	IncludeScrape bool
	// SkipCache bypasses the feed cache.
	SkipCache bool
}

// Aggregator runs aggregation and keeps the latest result.
type Aggregator struct {
	opts     Options
	log      logger.Logger
	snapshot *Snapshot

	// runMu serializes runs.
	runMu sync.Mutex
}

// New validates opts and creates an Aggregator.
func New(opts Options) (*Aggregator, error) {
	if opts.Feeds == nil {
		return nil, ErrNoFeedClient
	}
	if opts.Sources == nil {
		return nil, ErrNoSourceList
	}
	if opts.BatchSize == 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.BatchSize < MinBatchSize || opts.BatchSize > MaxBatchSize {
		return nil, fmt.Errorf("%w: %d (allowed %d-%d)", ErrInvalidBatchSize, opts.BatchSize, MinBatchSize, MaxBatchSize)
	}
	if opts.TargetArticles <= 0 {
		opts.TargetArticles = DefaultTargetArticles
	}
	if opts.APIConcurrency <= 0 {
		opts.APIConcurrency = defaultAPIConcurrency
	}
	if opts.APILimit <= 0 {
		opts.APILimit = defaultAPILimit
	}
	if len(opts.Categories) == 0 {
		opts.Categories = domain.Categories()
	}
	for _, c := range opts.Categories {
		if !c.Valid() {
			return nil, fmt.Errorf("unknown category %q", c)
		}
	}
	if opts.Moderator == nil {
		opts.Moderator = moderation.New(moderation.Options{Logger: opts.Logger, Metrics: opts.Metrics})
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Aggregator{
		opts:     opts,
		log:      opts.Logger.With(logger.String("component", "aggregator")),
		snapshot: NewSnapshot(),
	}, nil
}

// Snapshot returns the holder of the latest result.
func (a *Aggregator) Snapshot() *Snapshot {
	return a.snapshot
}

// Run executes one aggregation. Source failures are absorbed; the error is
// non-nil only when no stage could ever produce articles. With only a
// scraper configured the result is empty unless scraping is requested.
func (a *Aggregator) Run(ctx context.Context, req Request) (*Result, error) {
	a.runMu.Lock()
	defer a.runMu.Unlock()

	tiers := a.opts.Sources.Tiers()
	if a.opts.API == nil && a.opts.Scraper == nil && countSources(tiers) == 0 {
		return nil, ErrNothingToAggregate
	}

	r := &run{
		agg:     a,
		req:     req,
		tiers:   tiers,
		started: a.opts.Now(),
	}
	res := r.execute(ctx)

	a.snapshot.Store(res)
	a.opts.Metrics.RecordRun(res.Stats.Duration, len(res.Articles))
	a.log.Info("Aggregation run complete",
		logger.Int("articles", len(res.Articles)),
		logger.Int("api_articles", res.Stats.APIArticles),
		logger.Int("rss_sources_ok", res.Stats.RSSSourcesOK),
		logger.Int("rss_sources_failed", res.Stats.RSSSourcesFailed),
		logger.Int("scrape_articles", res.Stats.ScrapeArticles),
		logger.Int("rejected", res.Stats.Rejected),
		logger.Duration("duration", res.Stats.Duration),
	)
	return res, nil
}

func countSources(tiers [][]domain.SourceDescriptor) int {
	n := 0
	for _, t := range tiers {
		n += len(t)
	}
	return n
}
