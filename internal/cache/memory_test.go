package cache_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonesrussell/newsgate/internal/cache"
	"github.com/jonesrussell/newsgate/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 10, 12, 0, 0, 0, time.Local)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func articles(titles ...string) []domain.Article {
	out := make([]domain.Article, 0, len(titles))
	for _, title := range titles {
		out = append(out, domain.Article{ID: domain.NewID(), Title: title, Link: "https://example.test/" + title})
	}
	return out
}

func TestMemoryCache_RoundTripWithinTTL(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	c := cache.NewMemoryCache(cache.MemoryOptions{TTL: time.Minute, Now: clock.Now})
	want := articles("a", "b", "c")

	c.Set("feed", want, cache.Validators{ETag: `"v1"`})
	clock.Advance(30 * time.Second)

	got, ok := c.Get("feed")
	require.True(t, ok)
	assert.Equal(t, want, got)

	v, ok := c.Validators("feed")
	require.True(t, ok)
	assert.Equal(t, `"v1"`, v.ETag)
}

func TestMemoryCache_ExpiredWithoutSWRIsMiss(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	c := cache.NewMemoryCache(cache.MemoryOptions{TTL: time.Minute, Now: clock.Now})
	c.Set("feed", articles("a"), cache.Validators{})

	clock.Advance(2 * time.Minute)

	_, ok := c.Get("feed")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Stats().Entries)
}

func TestMemoryCache_StaleWhileRevalidate(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	c := cache.NewMemoryCache(cache.MemoryOptions{TTL: time.Minute, StaleWhileRevalidate: true, Now: clock.Now})

	var calls atomic.Int32
	release := make(chan struct{})
	c.SetRefresher(func(_ context.Context, _ string) ([]domain.Article, cache.Validators, error) {
		calls.Add(1)
		<-release
		return articles("fresh"), cache.Validators{}, nil
	})

	c.Set("feed", articles("old"), cache.Validators{})
	clock.Advance(2 * time.Minute)

	first, ok := c.Get("feed")
	require.True(t, ok)
	assert.Equal(t, "old", first[0].Title)

	second, ok := c.Get("feed")
	require.True(t, ok)
	assert.Equal(t, "old", second[0].Title)

	close(release)
	c.Wait()

	assert.Equal(t, int32(1), calls.Load())
	got, ok := c.Get("feed")
	require.True(t, ok)
	assert.Equal(t, "fresh", got[0].Title)
}

func TestMemoryCache_FailedRefreshKeepsStale(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	c := cache.NewMemoryCache(cache.MemoryOptions{TTL: time.Minute, StaleWhileRevalidate: true, Now: clock.Now})
	c.SetRefresher(func(context.Context, string) ([]domain.Article, cache.Validators, error) {
		return nil, cache.Validators{}, errors.New("upstream down")
	})

	c.Set("feed", articles("old"), cache.Validators{})
	clock.Advance(2 * time.Minute)

	_, ok := c.Get("feed")
	require.True(t, ok)
	c.Wait()

	got, ok := c.Get("feed")
	require.True(t, ok)
	assert.Equal(t, "old", got[0].Title)
}

func TestMemoryCache_EvictsOldestAtCapacity(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	c := cache.NewMemoryCache(cache.MemoryOptions{TTL: time.Hour, MaxEntries: 2, Now: clock.Now})

	c.Set("first", articles("1"), cache.Validators{})
	clock.Advance(time.Second)
	c.Set("second", articles("2"), cache.Validators{})
	clock.Advance(time.Second)
	c.Set("third", articles("3"), cache.Validators{})

	_, ok := c.Get("first")
	assert.False(t, ok)
	_, ok = c.Get("second")
	assert.True(t, ok)
	_, ok = c.Get("third")
	assert.True(t, ok)
}

func TestMemoryCache_TouchExtendsExpiry(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	c := cache.NewMemoryCache(cache.MemoryOptions{TTL: time.Minute, Now: clock.Now})
	c.Set("feed", articles("a"), cache.Validators{LastModified: "Mon, 10 Mar 2025 10:00:00 GMT"})

	clock.Advance(50 * time.Second)
	touched, ok := c.Touch("feed")
	require.True(t, ok)
	require.Len(t, touched, 1)

	clock.Advance(50 * time.Second)
	_, ok = c.Get("feed")
	assert.True(t, ok)
}

func TestMemoryCache_ReturnsCopies(t *testing.T) {
	t.Parallel()

	c := cache.NewMemoryCache(cache.MemoryOptions{})
	c.Set("feed", articles("a"), cache.Validators{})

	got, _ := c.Get("feed")
	got[0].Title = "mutated"

	again, _ := c.Get("feed")
	assert.Equal(t, "a", again[0].Title)
}

func TestMemoryCache_Stats(t *testing.T) {
	t.Parallel()

	c := cache.NewMemoryCache(cache.MemoryOptions{})
	c.Set("feed", articles("a"), cache.Validators{})
	c.Get("feed")
	c.Get("feed")
	c.Get("missing")

	s := c.Stats()
	assert.Equal(t, int64(2), s.Hits)
	assert.Equal(t, int64(1), s.Misses)
	assert.InDelta(t, 2.0/3.0, s.HitRate, 1e-9)
	assert.Equal(t, 1, s.Entries)
	assert.Positive(t, s.ApproxBytes)
}
