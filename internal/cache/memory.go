// Package cache implements the two article cache tiers: an in-memory TTL
// cache for feed payloads and a durable, budget-aware cache for paid API
// responses.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/jonesrussell/newsgate/internal/domain"
	"github.com/jonesrussell/newsgate/internal/logger"
	"github.com/jonesrussell/newsgate/internal/metrics"
)

const (
	tierMemory = "memory"

	defaultMemoryTTL      = 15 * time.Minute
	defaultMaxEntries     = 500
	defaultRefreshTimeout = 30 * time.Second
)

// Validators are the HTTP cache validators returned with a payload.
type Validators struct {
	ETag         string `json:"etag,omitempty"`
	LastModified string `json:"lastModified,omitempty"`
}

// IsZero reports whether no validator is set.
func (v Validators) IsZero() bool {
	return v.ETag == "" && v.LastModified == ""
}

// Entry is a cached payload.
type Entry struct {
	Key        string
	Articles   []domain.Article
	CreatedAt  time.Time
	ExpiresAt  time.Time
	Validators Validators
}

// RefreshFunc reloads a key in the background.
type RefreshFunc func(ctx context.Context, key string) ([]domain.Article, Validators, error)

// MemoryOptions configures a MemoryCache.
type MemoryOptions struct {
	TTL                  time.Duration
	MaxEntries           int
	StaleWhileRevalidate bool
	RefreshTimeout       time.Duration
	Now                  func() time.Time
	Logger               logger.Logger
	Metrics              *metrics.Metrics
}

// MemoryCache is Tier A: a bounded in-memory TTL cache with optional
// stale-while-revalidate.
type MemoryCache struct {
	mu       sync.Mutex
	entries  map[string]*Entry
	inflight map[string]struct{}
	refresh  RefreshFunc
	wg       sync.WaitGroup

	ttl        time.Duration
	maxEntries int
	swr        bool
	refreshTTL time.Duration
	now        func() time.Time
	log        logger.Logger
	metrics    *metrics.Metrics

	hits   int64
	stale  int64
	misses int64
}

// NewMemoryCache creates a Tier A cache.
func NewMemoryCache(opts MemoryOptions) *MemoryCache {
	if opts.TTL <= 0 {
		opts.TTL = defaultMemoryTTL
	}
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = defaultMaxEntries
	}
	if opts.RefreshTimeout <= 0 {
		opts.RefreshTimeout = defaultRefreshTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNop()
	}
	return &MemoryCache{
		entries:    make(map[string]*Entry),
		inflight:   make(map[string]struct{}),
		ttl:        opts.TTL,
		maxEntries: opts.MaxEntries,
		swr:        opts.StaleWhileRevalidate,
		refreshTTL: opts.RefreshTimeout,
		now:        opts.Now,
		log:        opts.Logger,
		metrics:    opts.Metrics,
	}
}

// SetRefresher installs the background refresh used for stale entries.
func (c *MemoryCache) SetRefresher(fn RefreshFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refresh = fn
}

// Get returns a copy of the cached articles. A stale entry is served only
// when stale-while-revalidate is on, in which case one background refresh
// per key is started. Otherwise the stale entry is evicted.
func (c *MemoryCache) Get(key string) ([]domain.Article, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.misses++
		c.metrics.RecordCache(tierMemory, "miss")
		return nil, false
	}

	if c.now().Before(entry.ExpiresAt) {
		c.hits++
		c.metrics.RecordCache(tierMemory, "hit")
		return domain.CloneArticles(entry.Articles), true
	}

	if !c.swr {
		delete(c.entries, key)
		c.misses++
		c.metrics.RecordCache(tierMemory, "miss")
		return nil, false
	}

	c.stale++
	c.metrics.RecordCache(tierMemory, "stale")
	c.scheduleRefresh(key)
	return domain.CloneArticles(entry.Articles), true
}

// scheduleRefresh must be called with mu held.
func (c *MemoryCache) scheduleRefresh(key string) {
	if c.refresh == nil {
		return
	}
	if _, running := c.inflight[key]; running {
		return
	}
	c.inflight[key] = struct{}{}
	refresh := c.refresh

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer func() {
			c.mu.Lock()
			delete(c.inflight, key)
			c.mu.Unlock()
		}()

		ctx, cancel := context.WithTimeout(context.Background(), c.refreshTTL)
		defer cancel()

		articles, validators, err := refresh(ctx, key)
		if err != nil {
			c.log.Warn("Background cache refresh failed", logger.String("key", key), logger.Error(err))
			return
		}
		c.Set(key, articles, validators)
	}()
}

// Set stores a copy of articles. At capacity the entry with the oldest
// creation time is evicted first.
func (c *MemoryCache) Set(key string, articles []domain.Article, validators Validators) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictOldest()
	}

	now := c.now()
	c.entries[key] = &Entry{
		Key:        key,
		Articles:   domain.CloneArticles(articles),
		CreatedAt:  now,
		ExpiresAt:  now.Add(c.ttl),
		Validators: validators,
	}
}

func (c *MemoryCache) evictOldest() {
	var oldestKey string
	var oldest time.Time
	for k, e := range c.entries {
		if oldestKey == "" || e.CreatedAt.Before(oldest) {
			oldestKey, oldest = k, e.CreatedAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

// Peek returns a copy of the entry for key, fresh or stale, without
// touching counters or scheduling a refresh.
func (c *MemoryCache) Peek(key string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return Entry{}, false
	}
	cp := *entry
	cp.Articles = domain.CloneArticles(entry.Articles)
	return cp, true
}

// Validators returns the validators of the last stored fetch for key,
// fresh or not.
func (c *MemoryCache) Validators(key string) (Validators, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return Validators{}, false
	}
	return entry.Validators, true
}

// Touch extends an entry confirmed unchanged upstream and returns its
// payload.
func (c *MemoryCache) Touch(key string) ([]domain.Article, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	entry.ExpiresAt = c.now().Add(c.ttl)
	return domain.CloneArticles(entry.Articles), true
}

// Delete removes key.
func (c *MemoryCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear drops every entry and resets counters.
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*Entry)
	c.hits, c.stale, c.misses = 0, 0, 0
}

// Wait blocks until in-flight background refreshes finish.
func (c *MemoryCache) Wait() {
	c.wg.Wait()
}

// Stats returns counters and footprint.
func (c *MemoryCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	size := 0
	for _, e := range c.entries {
		size += len(e.Key)
		for i := range e.Articles {
			size += e.Articles[i].ApproxSize()
		}
	}
	return newStats(tierMemory, c.hits+c.stale, c.misses, len(c.entries), size)
}
