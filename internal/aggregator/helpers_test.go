package aggregator_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jonesrussell/newsgate/internal/domain"
	"github.com/jonesrussell/newsgate/internal/moderation"
	"github.com/jonesrussell/newsgate/internal/newsapi"
)

var base = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

// uniqueArticle builds an article whose words do not overlap with other
// generated articles.
func uniqueArticle(source string, cat domain.Category, offset time.Duration) domain.Article {
	id := domain.NewID()
	words := strings.ReplaceAll(id, "-", " ")
	return domain.Article{
		ID:          id,
		Title:       fmt.Sprintf("%s update %s", source, words),
		Link:        fmt.Sprintf("https://%s.test/%s", source, id),
		Description: "Officials shared details about case " + words,
		PubDate:     base.Add(offset),
		Category:    cat,
		Source:      source,
	}
}

func uniqueArticles(source string, n int, offset time.Duration) []domain.Article {
	out := make([]domain.Article, n)
	for i := range out {
		out[i] = uniqueArticle(source, domain.CategoryIndonesia, offset+time.Duration(i)*time.Minute)
	}
	return out
}

type fakeFeeds struct {
	mu       sync.Mutex
	calls    []string
	articles map[string][]domain.Article
}

func newFakeFeeds() *fakeFeeds {
	return &fakeFeeds{articles: make(map[string][]domain.Article)}
}

func (f *fakeFeeds) FetchSource(_ context.Context, src domain.SourceDescriptor, _ bool) []domain.Article {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, src.Name)
	return domain.CloneArticles(f.articles[src.Name])
}

func (f *fakeFeeds) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type fakeSources [][]domain.SourceDescriptor

func (s fakeSources) Tiers() [][]domain.SourceDescriptor { return s }

func tier(names ...string) []domain.SourceDescriptor {
	out := make([]domain.SourceDescriptor, len(names))
	for i, n := range names {
		out[i] = domain.SourceDescriptor{Name: n, URL: "https://" + n + ".test/rss", Category: domain.CategoryIndonesia, Active: true}
	}
	return out
}

type fakeAPI struct {
	mu        sync.Mutex
	available bool
	byCat     map[domain.Category][]domain.Article
	errs      map[domain.Category]error
	calls     int
}

func (f *fakeAPI) FetchArticles(_ context.Context, cat domain.Category, _ int, _ string) (*newsapi.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err := f.errs[cat]; err != nil {
		return nil, err
	}
	arts := domain.CloneArticles(f.byCat[cat])
	return &newsapi.Result{Articles: arts, TotalResults: len(arts)}, nil
}

func (f *fakeAPI) Available() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.available
}

type fakeScraper struct {
	mu       sync.Mutex
	calls    int
	articles []domain.Article
}

func (f *fakeScraper) ScrapeAll(context.Context) []domain.Article {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return domain.CloneArticles(f.articles)
}

func (f *fakeScraper) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// passModerator approves everything except titles in reject.
type passModerator struct {
	reject map[string]bool
}

func (m passModerator) ModerateArticles(batch []domain.Article) moderation.BatchResult {
	out := moderation.BatchResult{Approved: []domain.Article{}, Rejected: []domain.Article{}}
	for _, a := range batch {
		ok := !m.reject[a.Title]
		out.Results = append(out.Results, moderation.Result{Approved: ok, Score: 1})
		if ok {
			out.Approved = append(out.Approved, a)
		} else {
			out.Rejected = append(out.Rejected, a)
		}
	}
	return out
}
