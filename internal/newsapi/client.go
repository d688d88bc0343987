// Package newsapi fetches articles from a credit-budgeted news API. Calls
// are cached in the budget cache, serialized behind a minimum interval and
// debited against the daily credit ledger.
package newsapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonesrussell/newsgate/internal/budget"
	"github.com/jonesrussell/newsgate/internal/cache"
	"github.com/jonesrussell/newsgate/internal/circuitbreaker"
	"github.com/jonesrussell/newsgate/internal/domain"
	"github.com/jonesrussell/newsgate/internal/httpclient"
	"github.com/jonesrussell/newsgate/internal/logger"
	"github.com/jonesrussell/newsgate/internal/metrics"
	"golang.org/x/time/rate"
)

const (
	defaultMaxPageSize = 10
	defaultMinInterval = time.Second
	defaultCooldown    = 15 * time.Minute
	maxResponseBytes   = 5 << 20
)

// Options configures a Client.
type Options struct {
	BaseURL           string
	APIKey            string
	Language          string
	Country           string
	MaxPageSize       int
	MinInterval       time.Duration
	RateLimitCooldown time.Duration
	Timeout           time.Duration
	// Queries overrides DefaultQueries per category.
	Queries    map[domain.Category]Query
	HTTPClient *http.Client
	Cache      *cache.BudgetCache
	Logger     logger.Logger
	Metrics    *metrics.Metrics
}

// Result is one page of API results.
type Result struct {
	Articles     []domain.Article
	TotalResults int
	NextPage     string
	// Cached is set when the page came from the budget cache.
	Cached bool
}

// Client is the budgeted API client.
type Client struct {
	opts     Options
	http     *http.Client
	cache    *cache.BudgetCache
	ledger   *budget.Ledger
	limiter  *rate.Limiter
	breaker  *circuitbreaker.Breaker
	log      logger.Logger
	metrics  *metrics.Metrics
	disabled atomic.Bool

	// mu serializes upstream calls so the ledger check and debit pair up.
	mu sync.Mutex
}

// NewClient creates a client backed by the budget cache.
func NewClient(opts Options) (*Client, error) {
	if opts.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if opts.Cache == nil {
		return nil, ErrNoCache
	}
	if _, err := url.ParseRequestURI(opts.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", opts.BaseURL, err)
	}
	if opts.MaxPageSize <= 0 {
		opts.MaxPageSize = defaultMaxPageSize
	}
	if opts.MinInterval <= 0 {
		opts.MinInterval = defaultMinInterval
	}
	if opts.RateLimitCooldown <= 0 {
		opts.RateLimitCooldown = defaultCooldown
	}
	if opts.Timeout <= 0 {
		opts.Timeout = httpclient.DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNop()
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = httpclient.NewClient(&httpclient.ClientConfig{Timeout: opts.Timeout})
	}

	log := opts.Logger.With(logger.String("component", "newsapi"))
	return &Client{
		opts:    opts,
		http:    opts.HTTPClient,
		cache:   opts.Cache,
		ledger:  opts.Cache.Ledger(),
		limiter: rate.NewLimiter(rate.Every(opts.MinInterval), 1),
		breaker: circuitbreaker.New(circuitbreaker.Config{
			FailureThreshold: 3,
			Cooldown:         opts.RateLimitCooldown,
			OnStateChange: func(from, to circuitbreaker.State) {
				log.Info("News API breaker state changed",
					logger.String("from", from.String()),
					logger.String("to", to.String()),
				)
			},
		}),
		log:     log,
		metrics: opts.Metrics,
	}, nil
}

// Available reports whether the client can currently make new requests.
func (c *Client) Available() bool {
	if c.disabled.Load() || c.ledger.Exhausted() {
		return false
	}
	return c.breaker.Allow() == nil
}

// Usage returns the credit ledger position.
func (c *Client) Usage() budget.Usage {
	return c.ledger.Usage()
}

// CacheKey identifies a page in the budget cache.
func CacheKey(cat domain.Category, limit int, pageToken string) string {
	key := "newsapi:" + string(cat) + ":" + strconv.Itoa(limit)
	if pageToken != "" {
		key += ":" + pageToken
	}
	return key
}

// FetchArticles returns one page for category. The budget cache is served
// first; otherwise a request is made when the ledger has capacity for limit
// articles.
func (c *Client) FetchArticles(ctx context.Context, cat domain.Category, limit int, pageToken string) (*Result, error) {
	if !cat.Valid() {
		return nil, &APIError{Kind: KindParameter, Message: fmt.Sprintf("unknown category %q", cat)}
	}
	if limit <= 0 || limit > c.opts.MaxPageSize {
		limit = c.opts.MaxPageSize
	}

	key := CacheKey(cat, limit, pageToken)
	if p, ok := c.cache.Get(ctx, key); ok {
		c.metrics.RecordAPIRequest("cache")
		return &Result{Articles: p.Articles, TotalResults: p.TotalResults, NextPage: p.NextPage, Cached: true}, nil
	}

	if c.disabled.Load() {
		c.metrics.RecordAPIRequest("disabled")
		return nil, ErrClientDisabled
	}
	if err := c.breaker.Allow(); err != nil {
		c.metrics.RecordAPIRequest("cooling_down")
		return nil, fmt.Errorf("news api cooling down: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// A concurrent call may have fetched this page while we waited.
	if p, ok := c.cache.Lookup(ctx, key); ok {
		c.metrics.RecordAPIRequest("cache")
		return &Result{Articles: p.Articles, TotalResults: p.TotalResults, NextPage: p.NextPage, Cached: true}, nil
	}

	need := c.ledger.CreditsFor(limit)
	if !c.ledger.CanSpend(need) {
		c.metrics.RecordAPIRequest("budget_exceeded")
		u := c.ledger.Usage()
		return nil, fmt.Errorf("%w: need %d credits, %d of %d remaining",
			budget.ErrBudgetExceeded, need, u.Remaining, u.Limit)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("wait for rate limiter: %w", err)
	}

	result, err := c.request(ctx, cat, limit, pageToken)
	if err != nil {
		c.handleFailure(cat, err)
		return nil, err
	}
	c.breaker.Record(nil)

	credits := c.ledger.CreditsFor(len(result.Articles))
	if spendErr := c.cache.Spend(ctx, credits); spendErr != nil {
		c.log.Warn("Failed to debit credit ledger",
			logger.Category(string(cat)),
			logger.Int("credits", credits),
			logger.Error(spendErr),
		)
	}

	payload := cache.Payload{Articles: result.Articles, TotalResults: result.TotalResults, NextPage: result.NextPage}
	if setErr := c.cache.Set(ctx, key, cat, payload); setErr != nil {
		c.log.Warn("Failed to store api page", logger.String("key", key), logger.Error(setErr))
	}

	c.metrics.RecordAPIRequest("success")
	c.log.Info("Fetched api page",
		logger.Category(string(cat)),
		logger.Int("articles", len(result.Articles)),
		logger.Int("credits", credits),
		logger.Int("remaining", c.ledger.Usage().Remaining),
	)
	return result, nil
}

func (c *Client) handleFailure(cat domain.Category, err error) {
	apiErr, ok := AsAPIError(err)
	if !ok {
		c.metrics.RecordAPIRequest("error")
		return
	}
	c.metrics.RecordAPIRequest(string(apiErr.Kind))

	fields := []logger.Field{logger.Category(string(cat)), logger.Error(err)}
	switch apiErr.Kind {
	case KindAuth:
		c.disabled.Store(true)
		c.log.Error("News API rejected credentials, disabling client", fields...)
	case KindRateLimit:
		c.breaker.Trip(c.opts.RateLimitCooldown)
		c.log.Warn("News API rate limited, cooling down",
			append(fields, logger.Duration("cooldown", c.opts.RateLimitCooldown))...)
	case KindNetwork:
		c.breaker.Record(err)
		c.log.Warn("News API request failed", fields...)
	case KindParameter:
		c.log.Warn("News API rejected request parameters", fields...)
	}
}

func (c *Client) request(ctx context.Context, cat domain.Category, limit int, pageToken string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	endpoint := c.opts.BaseURL + "?" + c.params(cat, limit, pageToken).Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, networkError(err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.log.Debug("Failed to close response body", logger.Error(closeErr))
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, networkError(fmt.Errorf("read body: %w", err))
	}

	var env response
	decodeErr := json.Unmarshal(body, &env)

	if resp.StatusCode != http.StatusOK || env.Status == statusError {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var eb errorBody
		if decodeErr == nil && len(env.Results) > 0 && json.Unmarshal(env.Results, &eb) == nil {
			apiErr.Code = eb.Code
			apiErr.Message = eb.Message
		}
		apiErr.Kind = classify(resp.StatusCode, apiErr.Code)
		return nil, apiErr
	}
	if decodeErr != nil {
		return nil, &APIError{Kind: KindNetwork, StatusCode: resp.StatusCode, Message: "malformed response", Cause: decodeErr}
	}

	var items []item
	if len(env.Results) > 0 && string(env.Results) != "null" {
		if err = json.Unmarshal(env.Results, &items); err != nil {
			return nil, &APIError{Kind: KindNetwork, StatusCode: resp.StatusCode, Message: "malformed results", Cause: err}
		}
	}
	if len(items) > limit {
		items = items[:limit]
	}

	articles := make([]domain.Article, 0, len(items))
	for _, it := range items {
		if a, ok := it.toArticle(cat); ok {
			articles = append(articles, a)
		}
	}
	return &Result{Articles: articles, TotalResults: env.TotalResults, NextPage: env.NextPage}, nil
}

func (c *Client) params(cat domain.Category, limit int, pageToken string) url.Values {
	q := c.queryFor(cat)
	params := url.Values{}
	params.Set("apikey", c.opts.APIKey)
	params.Set("size", strconv.Itoa(limit))
	if c.opts.Language != "" {
		params.Set("language", c.opts.Language)
	}
	country := c.opts.Country
	if q.Country != "" {
		country = q.Country
	}
	if country != "" && country != NoCountry {
		params.Set("country", country)
	}
	if q.Category != "" {
		params.Set("category", q.Category)
	}
	if q.Q != "" {
		params.Set("q", q.Q)
	}
	if pageToken != "" {
		params.Set("page", pageToken)
	}
	return params
}

func (c *Client) queryFor(cat domain.Category) Query {
	if q, ok := c.opts.Queries[cat]; ok {
		return q
	}
	return DefaultQueries()[cat]
}

// IsBudgetExceeded reports whether err came from the credit ledger.
func IsBudgetExceeded(err error) bool {
	return errors.Is(err, budget.ErrBudgetExceeded)
}
