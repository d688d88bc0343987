package feed_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jonesrussell/newsgate/internal/domain"
)

// rssWithItems builds an RSS document with n items.
func rssWithItems(prefix string, n int) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><rss version="2.0"><channel><title>Test</title>`)
	base := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	for i := range n {
		fmt.Fprintf(&b, `<item><title>%s story %d</title><link>https://news.test/%s/%d</link>`+
			`<description>&lt;p&gt;Body of %s story %d&lt;/p&gt;</description><pubDate>%s</pubDate></item>`,
			prefix, i, prefix, i, prefix, i, base.Add(time.Duration(i)*time.Hour).Format(time.RFC1123Z))
	}
	b.WriteString(`</channel></rss>`)
	return b.String()
}

type fakeFallback struct {
	mu       sync.Mutex
	calls    []string
	articles []domain.Article
}

func (f *fakeFallback) ScrapeByName(_ context.Context, name string) []domain.Article {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
	return f.articles
}

func (f *fakeFallback) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func noSleep(context.Context, time.Duration) error { return nil }
