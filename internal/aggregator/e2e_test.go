package aggregator_test

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonesrussell/newsgate/internal/aggregator"
	"github.com/jonesrussell/newsgate/internal/domain"
	"github.com/jonesrussell/newsgate/internal/feed"
	"github.com/jonesrussell/newsgate/internal/moderation"
	"github.com/jonesrussell/newsgate/internal/sources"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uniqueRSS(source string, n int, offset time.Duration) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><rss version="2.0"><channel><title>` + source + `</title>`)
	for i, a := range uniqueArticles(source, n, offset) {
		fmt.Fprintf(&b, `<item><title>%s</title><link>%s/%d</link><description>%s</description><pubDate>%s</pubDate></item>`,
			html.EscapeString(a.Title), a.Link, i, html.EscapeString(a.Description), a.PubDate.Format(time.RFC1123Z))
	}
	b.WriteString(`</channel></rss>`)
	return b.String()
}

type recordingFallback struct {
	mu       sync.Mutex
	calls    []string
	articles map[string][]domain.Article
}

func (f *recordingFallback) ScrapeByName(_ context.Context, name string) []domain.Article {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
	return domain.CloneArticles(f.articles[name])
}

func TestRun_EndToEndWithTimeoutFallback(t *testing.T) {
	t.Parallel()

	feeds := map[string]string{
		"/alpha": uniqueRSS("alpha", 5, 0),
		"/bravo": uniqueRSS("bravo", 7, 10*time.Hour),
	}
	var slowHits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if body, ok := feeds[r.URL.Path]; ok {
			w.Header().Set("Content-Type", "application/rss+xml")
			_, _ = w.Write([]byte(body))
			return
		}
		slowHits.Add(1)
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(srv.Close)

	registry := sources.NewRegistry(nil, []domain.SourceDescriptor{
		{Name: "alpha", URL: srv.URL + "/alpha", Category: domain.CategoryIndonesia, Active: true, Tier: domain.TierFast},
		{Name: "bravo", URL: srv.URL + "/bravo", Category: domain.CategoryBali, Active: true, Tier: domain.TierStandard},
		{Name: "charlie", URL: srv.URL + "/slow", Category: domain.CategoryBRICS, Active: true, Tier: domain.TierStandard},
		{Name: "dormant", URL: srv.URL + "/alpha", Category: domain.CategoryBali, Active: false, Tier: domain.TierFast},
	})

	fallback := &recordingFallback{articles: map[string][]domain.Article{
		"charlie": {
			uniqueArticle("charlie", domain.CategoryBRICS, 20*time.Hour),
			uniqueArticle("charlie", domain.CategoryBRICS, 21*time.Hour),
		},
	}}

	var sleeps []time.Duration
	var sleepMu sync.Mutex
	feedClient := feed.NewClient(feed.Options{
		Timeout:     100 * time.Millisecond,
		MaxAttempts: 3,
		BackoffBase: time.Second,
		Fallback:    fallback,
		Sleep: func(_ context.Context, d time.Duration) error {
			sleepMu.Lock()
			defer sleepMu.Unlock()
			sleeps = append(sleeps, d)
			return nil
		},
	})

	moderator := moderation.New(moderation.Options{
		Reliability: moderation.NewReliability(map[string]float64{"alpha": 0.9, "bravo": 0.9, "charlie": 0.9}, 0, nil),
	})

	agg, err := aggregator.New(aggregator.Options{
		Feeds:     feedClient,
		Sources:   registry,
		Moderator: moderator,
	})
	require.NoError(t, err)

	res, err := agg.Run(context.Background(), aggregator.Request{})
	require.NoError(t, err)

	require.Len(t, res.Articles, 14)
	assert.True(t, slices.IsSortedFunc(res.Articles, func(a, b domain.Article) int {
		return b.PubDate.Compare(a.PubDate)
	}))
	assert.Equal(t, "charlie", res.Articles[0].Source)
	assert.Zero(t, res.Stats.Rejected)

	counts := map[string]int{}
	for _, a := range res.Articles {
		counts[a.Source]++
	}
	assert.Equal(t, map[string]int{"alpha": 5, "bravo": 7, "charlie": 2}, counts)

	assert.Equal(t, []string{"charlie"}, fallback.calls)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, sleeps)
	assert.Equal(t, int32(3), slowHits.Load())
}
