package aggregator

import (
	"sync"
	"time"

	"github.com/jonesrussell/newsgate/internal/domain"
)

// Stats describes what each stage contributed.
type Stats struct {
	APIArticles      int           `json:"api_articles"`
	APIErrors        int           `json:"api_errors"`
	APICached        int           `json:"api_cached"`
	RSSSkipped       bool          `json:"rss_skipped"`
	RSSBatches       int           `json:"rss_batches"`
	RSSSourcesOK     int           `json:"rss_sources_ok"`
	RSSSourcesFailed int           `json:"rss_sources_failed"`
	RSSArticles      int           `json:"rss_articles"`
	ScrapeArticles   int           `json:"scrape_articles"`
	Rejected         int           `json:"rejected"`
	DuplicateLinks   int           `json:"duplicate_links"`
	Duration         time.Duration `json:"duration"`
}

// Result is the output of one run.
type Result struct {
	Articles   []domain.Article `json:"articles"`
	Stats      Stats            `json:"stats"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
}

// Clone returns a deep copy.
func (r *Result) Clone() *Result {
	if r == nil {
		return nil
	}
	out := *r
	out.Articles = domain.CloneArticles(r.Articles)
	return &out
}

// Snapshot holds the latest result and hands out copies.
type Snapshot struct {
	mu     sync.RWMutex
	latest *Result
}

// NewSnapshot creates an empty snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{}
}

// Store replaces the latest result with a copy of res.
func (s *Snapshot) Store(res *Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = res.Clone()
}

// Latest returns a copy of the latest result.
func (s *Snapshot) Latest() (*Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return nil, false
	}
	return s.latest.Clone(), true
}

// Articles returns up to limit articles from the latest result, optionally
// filtered by category. A non-positive limit returns all.
func (s *Snapshot) Articles(cat domain.Category, limit int) []domain.Article {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.Article{}
	if s.latest == nil {
		return out
	}
	for _, a := range s.latest.Articles {
		if cat != "" && a.Category != cat {
			continue
		}
		out = append(out, a)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
