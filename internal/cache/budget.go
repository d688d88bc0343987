package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonesrussell/newsgate/internal/budget"
	"github.com/jonesrussell/newsgate/internal/domain"
	"github.com/jonesrussell/newsgate/internal/logger"
	"github.com/jonesrussell/newsgate/internal/metrics"
)

const (
	tierBudget = "budget"

	defaultBudgetTTL     = 2 * time.Hour
	defaultEmergencyTTL  = 12 * time.Hour
	defaultSoftThreshold = 0.85
)

// BudgetOptions configures a BudgetCache.
type BudgetOptions struct {
	Store         Store
	Ledger        *budget.Ledger
	DefaultTTL    time.Duration
	EmergencyTTL  time.Duration
	SoftThreshold float64
	CategoryTTL   map[domain.Category]time.Duration
	Now           func() time.Time
	Logger        logger.Logger
	Metrics       *metrics.Metrics
}

// BudgetCache is Tier B: a durable cache tied to the daily credit ledger.
// Every mutation runs under one mutex and is written through to the store.
type BudgetCache struct {
	mu      sync.Mutex
	store   Store
	ledger  *budget.Ledger
	entries map[string]StoredEntry
	date    string
	hits    int64
	misses  int64

	defaultTTL    time.Duration
	emergencyTTL  time.Duration
	softThreshold float64
	categoryTTL   map[domain.Category]time.Duration
	now           func() time.Time
	log           logger.Logger
	metrics       *metrics.Metrics
}

// NewBudgetCache loads the persisted record. A record from a previous day
// resets the ledger and counters; a same-day record restores them.
func NewBudgetCache(ctx context.Context, opts BudgetOptions) (*BudgetCache, error) {
	if opts.Store == nil {
		opts.Store = NewMemoryStore()
	}
	if opts.Ledger == nil {
		return nil, errors.New("budget cache requires a ledger")
	}
	if opts.DefaultTTL <= 0 {
		opts.DefaultTTL = defaultBudgetTTL
	}
	if opts.EmergencyTTL <= 0 {
		opts.EmergencyTTL = defaultEmergencyTTL
	}
	if opts.SoftThreshold <= 0 || opts.SoftThreshold > 1 {
		opts.SoftThreshold = defaultSoftThreshold
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNop()
	}

	c := &BudgetCache{
		store:         opts.Store,
		ledger:        opts.Ledger,
		entries:       make(map[string]StoredEntry),
		defaultTTL:    opts.DefaultTTL,
		emergencyTTL:  opts.EmergencyTTL,
		softThreshold: opts.SoftThreshold,
		categoryTTL:   opts.CategoryTTL,
		now:           opts.Now,
		log:           opts.Logger,
		metrics:       opts.Metrics,
	}

	if err := c.load(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *BudgetCache) load(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, err := c.store.Load(ctx)
	if err != nil && !errors.Is(err, ErrRecordNotFound) {
		return fmt.Errorf("load budget cache: %w", err)
	}

	today := c.ledger.Usage().Date
	c.date = today
	if rec == nil {
		return nil
	}

	if rec.Entries != nil {
		c.entries = rec.Entries
	}
	if c.ledger.Restore(rec.Date, rec.CreditsUsed) {
		c.hits, c.misses = rec.HitCount, rec.MissCount
	} else {
		c.log.Info("Budget cache record is from a previous day, resetting ledger",
			logger.String("stored_date", rec.Date),
			logger.String("today", today),
		)
	}
	c.purgeExpired()
	c.publishUsage()
	return c.persist(ctx)
}

// rollover must be called with mu held.
func (c *BudgetCache) rollover() {
	if today := c.ledger.Usage().Date; today != c.date {
		c.date = today
		c.hits, c.misses = 0, 0
	}
}

// purgeExpired must be called with mu held.
func (c *BudgetCache) purgeExpired() {
	if c.nearLimit() {
		return
	}
	now := c.now()
	for k, e := range c.entries {
		if !now.Before(e.ExpiresAt) {
			delete(c.entries, k)
		}
	}
}

func (c *BudgetCache) nearLimit() bool {
	return c.ledger.Usage().Ratio >= c.softThreshold
}

// NearLimit reports whether usage passed the soft threshold.
func (c *BudgetCache) NearLimit() bool {
	return c.nearLimit()
}

// TTLFor returns the entry lifetime for category. Near the limit every
// category uses the emergency TTL.
func (c *BudgetCache) TTLFor(cat domain.Category) time.Duration {
	if c.nearLimit() {
		return c.emergencyTTL
	}
	if ttl, ok := c.categoryTTL[cat]; ok && ttl > 0 {
		return ttl
	}
	return c.defaultTTL
}

// Get returns a cached payload. Expired entries are served only while the
// ledger is near its limit.
func (c *BudgetCache) Get(ctx context.Context, key string) (Payload, bool) {
	return c.get(ctx, key, true)
}

// Lookup is Get without touching the hit and miss counters. It serves a
// second check of a key whose miss was already counted.
func (c *BudgetCache) Lookup(ctx context.Context, key string) (Payload, bool) {
	return c.get(ctx, key, false)
}

func (c *BudgetCache) get(ctx context.Context, key string, count bool) (Payload, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rollover()

	entry, ok := c.entries[key]
	result := "miss"
	switch {
	case !ok:
	case c.now().Before(entry.ExpiresAt):
		result = "hit"
	case c.nearLimit():
		result = "stale"
	default:
		delete(c.entries, key)
		ok = false
	}

	if count {
		if ok {
			c.hits++
		} else {
			c.misses++
		}
		c.metrics.RecordCache(tierBudget, result)
		c.persistLogged(ctx)
	}

	if !ok {
		return Payload{}, false
	}
	p := entry.Payload
	p.Articles = domain.CloneArticles(p.Articles)
	return p, true
}

// Set stores a payload with the category TTL.
func (c *BudgetCache) Set(ctx context.Context, key string, cat domain.Category, p Payload) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rollover()

	now := c.now()
	p.Articles = domain.CloneArticles(p.Articles)
	c.entries[key] = StoredEntry{
		Payload:   p,
		Category:  cat,
		CreatedAt: now,
		ExpiresAt: now.Add(c.TTLFor(cat)),
	}
	return c.persist(ctx)
}

// Spend debits the ledger and persists the new position.
func (c *BudgetCache) Spend(ctx context.Context, credits int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rollover()

	if err := c.ledger.Spend(credits); err != nil {
		return err
	}
	c.publishUsage()
	return c.persist(ctx)
}

// Usage returns the ledger position.
func (c *BudgetCache) Usage() budget.Usage {
	return c.ledger.Usage()
}

// Ledger exposes the underlying ledger.
func (c *BudgetCache) Ledger() *budget.Ledger {
	return c.ledger
}

// Stats returns counters and footprint.
func (c *BudgetCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rollover()

	size := 0
	for k, e := range c.entries {
		size += len(k)
		for i := range e.Articles {
			size += e.Articles[i].ApproxSize()
		}
	}
	return newStats(tierBudget, c.hits, c.misses, len(c.entries), size)
}

func (c *BudgetCache) publishUsage() {
	u := c.ledger.Usage()
	c.metrics.SetCredits(u.CreditsUsed, u.Limit)
}

// persist must be called with mu held.
func (c *BudgetCache) persist(ctx context.Context) error {
	u := c.ledger.Usage()
	rec := &Record{
		Date:        u.Date,
		CreditsUsed: u.CreditsUsed,
		HitCount:    c.hits,
		MissCount:   c.misses,
		Entries:     c.entries,
	}
	if err := c.store.Save(ctx, rec); err != nil {
		return fmt.Errorf("persist budget cache: %w", err)
	}
	return nil
}

func (c *BudgetCache) persistLogged(ctx context.Context) {
	if err := c.persist(ctx); err != nil {
		c.log.Warn("Budget cache write-through failed", logger.Error(err))
	}
}
