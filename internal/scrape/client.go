package scrape

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	colly "github.com/gocolly/colly/v2"
	"github.com/jonesrussell/newsgate/internal/domain"
	"github.com/jonesrussell/newsgate/internal/httpclient"
	"github.com/jonesrussell/newsgate/internal/logger"
	"github.com/jonesrussell/newsgate/internal/metrics"
	"golang.org/x/sync/errgroup"
)

const (
	defaultTimeout     = 15 * time.Second
	defaultParallelism = 4
	maxBodySize        = 10 << 20
)

// Options configures a Client.
type Options struct {
	Timeout     time.Duration
	Parallelism int
	UserAgents  []string
	Sites       []Site
	Logger      logger.Logger
	Metrics     *metrics.Metrics
	Now         func() time.Time
}

// Client scrapes configured sites. Failures are logged and yield no
// articles; no method returns an error.
type Client struct {
	timeout     time.Duration
	parallelism int
	agents      *httpclient.UserAgents
	log         logger.Logger
	metrics     *metrics.Metrics
	now         func() time.Time

	mu    sync.RWMutex
	sites []Site
}

// NewClient creates a scrape client.
func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Parallelism <= 0 {
		opts.Parallelism = defaultParallelism
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Client{
		timeout:     opts.Timeout,
		parallelism: opts.Parallelism,
		agents:      httpclient.NewUserAgents(opts.UserAgents),
		log:         opts.Logger,
		metrics:     opts.Metrics,
		now:         opts.Now,
		sites:       append([]Site(nil), opts.Sites...),
	}
}

// SetSites replaces the site table.
func (c *Client) SetSites(sites []Site) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sites = append([]Site(nil), sites...)
}

// Sites returns the configured sites.
func (c *Client) Sites() []Site {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Site(nil), c.sites...)
}

func (c *Client) activeSites(keep func(SiteInfo) bool) []Site {
	var out []Site
	for _, s := range c.Sites() {
		if info := s.Info(); info.Active && keep(info) {
			out = append(out, s)
		}
	}
	return out
}

// ScrapeSource scrapes one site. Inactive sites are not fetched.
func (c *Client) ScrapeSource(ctx context.Context, site Site) []domain.Article {
	info := site.Info()
	if !info.Active {
		return []domain.Article{}
	}

	articles, err := c.scrape(ctx, site)
	c.metrics.RecordScrape(info.Name, len(articles), err)
	if err != nil {
		c.log.Warn("Scrape failed",
			logger.Source(info.Name),
			logger.URL(info.URL),
			logger.Error(err),
		)
		return []domain.Article{}
	}

	c.log.Debug("Scraped site",
		logger.Source(info.Name),
		logger.String("kind", string(site.Kind())),
		logger.Int("articles", len(articles)),
	)
	return articles
}

// ScrapeByName scrapes the active site called name.
func (c *Client) ScrapeByName(ctx context.Context, name string) []domain.Article {
	return c.scrapeMany(ctx, c.activeSites(func(i SiteInfo) bool { return i.Name == name }))
}

// ScrapeByCategory scrapes every active site in cat.
func (c *Client) ScrapeByCategory(ctx context.Context, cat domain.Category) []domain.Article {
	return c.scrapeMany(ctx, c.activeSites(func(i SiteInfo) bool { return i.Category == cat }))
}

// ScrapeAll scrapes every active site.
func (c *Client) ScrapeAll(ctx context.Context) []domain.Article {
	return c.scrapeMany(ctx, c.activeSites(func(SiteInfo) bool { return true }))
}

// scrapeMany runs sites with bounded concurrency and keeps site order.
func (c *Client) scrapeMany(ctx context.Context, sites []Site) []domain.Article {
	results := make([][]domain.Article, len(sites))

	var g errgroup.Group
	g.SetLimit(c.parallelism)
	for i, site := range sites {
		g.Go(func() error {
			results[i] = c.ScrapeSource(ctx, site)
			return nil
		})
	}
	_ = g.Wait()

	out := []domain.Article{}
	for _, r := range results {
		out = append(out, r...)
	}
	return out
}

func (c *Client) scrape(ctx context.Context, site Site) ([]domain.Article, error) {
	body, page, err := c.fetch(ctx, site.Info().URL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return Extract(doc, site, page, c.now()), nil
}

// fetch downloads a page with a fresh synchronous collector and returns the
// body and final URL.
func (c *Client) fetch(ctx context.Context, pageURL string) ([]byte, *url.URL, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	collector := colly.NewCollector(
		colly.StdlibContext(ctx),
		colly.UserAgent(c.agents.Next()),
		colly.IgnoreRobotsTxt(),
		colly.MaxBodySize(maxBodySize),
		colly.AllowURLRevisit(),
	)
	collector.SetRequestTimeout(c.timeout)

	var (
		body    []byte
		final   *url.URL
		fetchEr error
	)
	collector.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	})
	collector.OnResponse(func(r *colly.Response) {
		body = r.Body
		final = r.Request.URL
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			fetchEr = fmt.Errorf("HTTP %d: %w", r.StatusCode, err)
			return
		}
		fetchEr = err
	})

	if err := collector.Visit(pageURL); err != nil {
		return nil, nil, fmt.Errorf("visit %s: %w", pageURL, err)
	}
	collector.Wait()

	if fetchEr != nil {
		return nil, nil, fmt.Errorf("fetch %s: %w", pageURL, fetchEr)
	}
	if body == nil {
		return nil, nil, fmt.Errorf("fetch %s: empty response", pageURL)
	}
	return body, final, nil
}
