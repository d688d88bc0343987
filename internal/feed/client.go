package feed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/jonesrussell/newsgate/internal/cache"
	"github.com/jonesrussell/newsgate/internal/domain"
	"github.com/jonesrussell/newsgate/internal/httpclient"
	"github.com/jonesrussell/newsgate/internal/logger"
	"github.com/jonesrussell/newsgate/internal/metrics"
	"github.com/jonesrussell/newsgate/internal/retry"
)

// Empty feed policies.
const (
	EmptyFeedFallback = "fallback"
	EmptyFeedAccept   = "accept"
)

// ScrapeFallback supplies articles for a source whose feed failed. The
// lookup is by source name.
type ScrapeFallback interface {
	ScrapeByName(ctx context.Context, name string) []domain.Article
}

// Options configures a Client.
type Options struct {
	Timeout         time.Duration
	MaxAttempts     int
	BackoffBase     time.Duration
	MaxBackoff      time.Duration
	EmptyFeedPolicy string
	UserAgents      []string

	HTTPClient *http.Client
	Cache      *cache.MemoryCache
	Fallback   ScrapeFallback
	Logger     logger.Logger
	Metrics    *metrics.Metrics

	// Sleep waits between attempts. Defaults to retry.Sleep.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Client fetches feeds with retry, caching and scrape fallback.
type Client struct {
	fetcher     *HTTPFetcher
	cache       *cache.MemoryCache
	fallback    ScrapeFallback
	backoff     retry.Config
	timeout     time.Duration
	acceptEmpty bool
	sleep       func(ctx context.Context, d time.Duration) error
	log         logger.Logger
	metrics     *metrics.Metrics

	mu      sync.RWMutex
	sources map[string]domain.SourceDescriptor
}

// NewClient creates a feed client.
func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = httpclient.DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNop()
	}
	if opts.Sleep == nil {
		opts.Sleep = retry.Sleep
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = httpclient.NewClient(&httpclient.ClientConfig{Timeout: opts.Timeout})
	}

	c := &Client{
		fetcher:  NewHTTPFetcher(opts.HTTPClient, httpclient.NewUserAgents(opts.UserAgents)),
		cache:    opts.Cache,
		fallback: opts.Fallback,
		backoff: retry.Config{
			MaxAttempts:  opts.MaxAttempts,
			InitialDelay: opts.BackoffBase,
			MaxDelay:     opts.MaxBackoff,
		},
		timeout:     opts.Timeout,
		acceptEmpty: opts.EmptyFeedPolicy == EmptyFeedAccept,
		sleep:       opts.Sleep,
		log:         opts.Logger,
		metrics:     opts.Metrics,
		sources:     make(map[string]domain.SourceDescriptor),
	}

	if c.cache != nil {
		c.cache.SetRefresher(c.refresh)
	}
	return c
}

// SetFallback installs the scrape fallback after construction.
func (c *Client) SetFallback(f ScrapeFallback) {
	c.fallback = f
}

// FetchSource returns the articles of one source. Tier A is consulted first
// unless skipCache is set. Failures are absorbed: the result is an empty
// slice, never an error. Inactive sources are not contacted.
func (c *Client) FetchSource(ctx context.Context, src domain.SourceDescriptor, skipCache bool) []domain.Article {
	if !src.Active {
		return []domain.Article{}
	}
	c.remember(src)

	m := &machine{client: c, src: src}
	if !skipCache && c.cache != nil {
		// Capture the prior entry first: Get evicts it once expired, and a
		// 304 needs its payload.
		if prior, ok := c.cache.Peek(src.URL); ok {
			m.prior = &prior
		}
		if articles, ok := c.cache.Get(src.URL); ok {
			c.metrics.RecordFeedOutcome(src.Name, "cached")
			return articles
		}
	}
	return m.run(ctx)
}

func (c *Client) remember(src domain.SourceDescriptor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sources[src.URL] = src
}

// refresh is the Tier A background refresher: one unconditional attempt,
// no fallback.
func (c *Client) refresh(ctx context.Context, key string) ([]domain.Article, cache.Validators, error) {
	c.mu.RLock()
	src, ok := c.sources[key]
	c.mu.RUnlock()
	if !ok {
		return nil, cache.Validators{}, fmt.Errorf("no source registered for %s", key)
	}

	res, err := c.attempt(ctx, src, cache.Validators{})
	if err != nil {
		return nil, cache.Validators{}, err
	}
	if res.notModified {
		return nil, cache.Validators{}, errors.New("unexpected 304 on unconditional refresh")
	}
	return res.articles, res.validators, nil
}

type attemptResult struct {
	articles    []domain.Article
	validators  cache.Validators
	notModified bool
}

// attempt performs one bounded GET and parse.
func (c *Client) attempt(ctx context.Context, src domain.SourceDescriptor, v cache.Validators) (*attemptResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	c.metrics.RecordFeedAttempt(src.Name)

	resp, err := c.fetcher.Fetch(ctx, src.URL, v)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode == http.StatusNotModified:
		return &attemptResult{notModified: true}, nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, ClassifyHTTPStatus(resp.StatusCode, src.URL)
	case IsHTML(resp.ContentType, resp.Body):
		return nil, &FetchError{Kind: KindHTMLInsteadOfXML, URL: src.URL, Cause: errors.New("received HTML instead of a feed")}
	}

	articles, err := ParseFeed(ctx, resp.Body, src)
	if err != nil {
		return nil, err
	}
	if len(articles) == 0 && !c.acceptEmpty {
		return nil, &FetchError{Kind: KindEmptyFeed, URL: src.URL, Cause: errors.New("feed has no items")}
	}
	return &attemptResult{articles: articles, validators: resp.Validators}, nil
}
