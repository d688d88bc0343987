package aggregator

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/jonesrussell/newsgate/internal/domain"
	"github.com/jonesrussell/newsgate/internal/logger"
	"github.com/jonesrussell/newsgate/internal/newsapi"
	"golang.org/x/sync/errgroup"
)

type state int

const (
	stateTryAPI state = iota
	stateEvaluate
	stateRSS
	stateScrape
	stateMerge
	stateDone
)

func (s state) String() string {
	switch s {
	case stateTryAPI:
		return "try_budgeted_api"
	case stateEvaluate:
		return "evaluate_sufficiency"
	case stateRSS:
		return "batch_rss_fetch"
	case stateScrape:
		return "optional_scrape_supplement"
	case stateMerge:
		return "merge_sort_dedupe"
	case stateDone:
		return "done"
	default:
		return "unknown"
	}
}

// run is the state of one aggregation.
type run struct {
	agg     *Aggregator
	req     Request
	tiers   [][]domain.SourceDescriptor
	started time.Time

	mu       sync.Mutex
	api      []domain.Article
	rss      []domain.Article
	scraped  []domain.Article
	stats    Stats
	articles []domain.Article
}

func (r *run) execute(ctx context.Context) *Result {
	st := stateTryAPI
	for st != stateDone {
		r.agg.log.Debug("Aggregation state", logger.String("state", st.String()))
		switch st {
		case stateTryAPI:
			st = r.tryAPI(ctx)
		case stateEvaluate:
			st = r.evaluate()
		case stateRSS:
			st = r.batchRSS(ctx)
		case stateScrape:
			st = r.scrape(ctx)
		case stateMerge:
			st = r.merge()
		case stateDone:
		}
	}

	finished := r.agg.opts.Now()
	r.stats.Duration = finished.Sub(r.started)
	return &Result{
		Articles:   r.articles,
		Stats:      r.stats,
		StartedAt:  r.started,
		FinishedAt: finished,
	}
}

func (r *run) accumulated() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.api) + len(r.rss)
}

func (r *run) tryAPI(ctx context.Context) state {
	api := r.agg.opts.API
	if api == nil {
		return stateEvaluate
	}
	cats := r.agg.opts.Categories
	batches := make([][]domain.Article, len(cats))

	var g errgroup.Group
	g.SetLimit(r.agg.opts.APIConcurrency)
	for i, cat := range cats {
		g.Go(func() error {
			batches[i] = r.fetchCategory(ctx, api, cat)
			return nil
		})
	}
	_ = g.Wait()

	for _, b := range batches {
		r.api = append(r.api, b...)
	}
	r.stats.APIArticles = len(r.api)
	return stateEvaluate
}

func (r *run) fetchCategory(ctx context.Context, api APIClient, cat domain.Category) []domain.Article {
	res, err := api.FetchArticles(ctx, cat, r.agg.opts.APILimit, "")
	if err != nil {
		r.mu.Lock()
		r.stats.APIErrors++
		r.mu.Unlock()

		fields := []logger.Field{logger.Category(string(cat)), logger.Error(err)}
		if newsapi.IsBudgetExceeded(err) {
			r.agg.log.Info("Skipping api category, credit budget exhausted", fields...)
		} else {
			r.agg.log.Warn("Api category fetch failed", fields...)
		}
		return nil
	}

	if res.Cached {
		r.mu.Lock()
		r.stats.APICached++
		r.mu.Unlock()
	}
	return r.moderate(res.Articles)
}

// evaluate skips feeds once the API alone met the target and can still
// serve.
func (r *run) evaluate() state {
	api := r.agg.opts.API
	if api != nil && len(r.api) >= r.agg.opts.TargetArticles && api.Available() {
		r.stats.RSSSkipped = true
		r.agg.log.Info("Api met article target, skipping feeds",
			logger.Int("api_articles", len(r.api)),
			logger.Int("target", r.agg.opts.TargetArticles),
		)
		return r.afterRSS()
	}
	return stateRSS
}

func (r *run) afterRSS() state {
	if r.req.IncludeScrape || r.agg.opts.IncludeScrape {
		return stateScrape
	}
	return stateMerge
}

// batchRSS walks tiers in order in fixed-size batches. Sources in a batch
// run concurrently; batches run one after another so the run can stop once
// the target is met.
func (r *run) batchRSS(ctx context.Context) state {
	target := r.agg.opts.TargetArticles
	for _, tier := range r.tiers {
		for _, batch := range chunk(tier, r.agg.opts.BatchSize) {
			if ctx.Err() != nil {
				r.agg.log.Warn("Aggregation cancelled during feed batches", logger.Error(ctx.Err()))
				return r.afterRSS()
			}
			r.runBatch(ctx, batch)
			if r.accumulated() >= target {
				r.agg.log.Debug("Article target met, stopping feed batches",
					logger.Int("target", target),
					logger.Int("batches", r.stats.RSSBatches))
				return r.afterRSS()
			}
		}
	}
	return r.afterRSS()
}

func (r *run) runBatch(ctx context.Context, batch []domain.SourceDescriptor) {
	results := make([][]domain.Article, len(batch))

	var g errgroup.Group
	g.SetLimit(len(batch))
	for i, src := range batch {
		g.Go(func() error {
			articles := r.agg.opts.Feeds.FetchSource(ctx, src, r.req.SkipCache)
			r.mu.Lock()
			if len(articles) > 0 {
				r.stats.RSSSourcesOK++
			} else {
				r.stats.RSSSourcesFailed++
			}
			r.mu.Unlock()
			results[i] = r.moderate(articles)
			return nil
		})
	}
	_ = g.Wait()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats.RSSBatches++
	for _, res := range results {
		r.rss = append(r.rss, res...)
	}
	r.stats.RSSArticles = len(r.rss)
}

func (r *run) scrape(ctx context.Context) state {
	if r.agg.opts.Scraper == nil {
		r.agg.log.Warn("Scrape supplement requested but no scraper configured")
		return stateMerge
	}
	r.scraped = r.moderate(r.agg.opts.Scraper.ScrapeAll(ctx))
	r.stats.ScrapeArticles = len(r.scraped)
	return stateMerge
}

// merge concatenates stage output, drops repeated links and sorts newest
// first.
func (r *run) merge() state {
	all := make([]domain.Article, 0, len(r.api)+len(r.rss)+len(r.scraped))
	all = append(all, r.api...)
	all = append(all, r.rss...)
	all = append(all, r.scraped...)

	seen := make(map[string]bool, len(all))
	out := make([]domain.Article, 0, len(all))
	for _, a := range all {
		if a.Link != "" {
			if seen[a.Link] {
				r.stats.DuplicateLinks++
				continue
			}
			seen[a.Link] = true
		}
		out = append(out, a)
	}

	slices.SortStableFunc(out, func(x, y domain.Article) int {
		return y.PubDate.Compare(x.PubDate)
	})
	r.articles = out
	return stateDone
}

func (r *run) moderate(articles []domain.Article) []domain.Article {
	if len(articles) == 0 {
		return nil
	}
	res := r.agg.opts.Moderator.ModerateArticles(articles)
	r.mu.Lock()
	r.stats.Rejected += len(res.Rejected)
	r.mu.Unlock()
	return res.Approved
}

func chunk(sources []domain.SourceDescriptor, size int) [][]domain.SourceDescriptor {
	var out [][]domain.SourceDescriptor
	for len(sources) > 0 {
		n := min(size, len(sources))
		out = append(out, sources[:n])
		sources = sources[n:]
	}
	return out
}
