// Package feed fetches RSS and Atom feeds and converts their items into
// canonical articles.
package feed

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/jonesrussell/newsgate/internal/domain"
	"github.com/jonesrussell/newsgate/internal/sanitize"
	"github.com/mmcdole/gofeed"
)

const httpPrefix = "http"

// htmlMarkers identify an HTML document served where a feed was expected.
var htmlMarkers = [][]byte{
	[]byte("<!doctype html"),
	[]byte("<html"),
}

// IsHTML reports whether a response looks like an HTML page rather than a feed.
func IsHTML(contentType string, body []byte) bool {
	head := bytes.ToLower(bytes.TrimSpace(body))
	if len(head) > 512 {
		head = head[:512]
	}
	for _, marker := range htmlMarkers {
		if bytes.HasPrefix(head, marker) {
			return true
		}
	}
	// Some servers label feeds text/html; only trust the header when the
	// body is not XML.
	return strings.Contains(strings.ToLower(contentType), "text/html") && !bytes.HasPrefix(head, []byte("<?xml"))
}

// ParseFeed parses an RSS or Atom body into articles for src. Items without
// a usable link are skipped. An empty feed returns an empty, non-nil slice.
func ParseFeed(ctx context.Context, body []byte, src domain.SourceDescriptor) ([]domain.Article, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	parsed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, &FetchError{Kind: KindParseError, URL: src.URL, Cause: err}
	}

	articles := make([]domain.Article, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		link := extractLink(item)
		if link == "" {
			continue
		}
		articles = append(articles, domain.Article{
			ID:          domain.NewID(),
			Title:       sanitize.Text(item.Title),
			Link:        link,
			Description: extractDescription(item),
			PubDate:     extractDate(item),
			Author:      extractAuthor(item),
			Category:    src.Category,
			Source:      src.Name,
			SourceURL:   src.URL,
			ImageURL:    extractImage(item),
		})
	}
	return articles, nil
}

// extractLink prefers the explicit link and falls back to a URL-shaped GUID.
func extractLink(item *gofeed.Item) string {
	if item.Link != "" {
		return strings.TrimSpace(item.Link)
	}
	if strings.HasPrefix(item.GUID, httpPrefix) {
		return item.GUID
	}
	return ""
}

func extractDescription(item *gofeed.Item) string {
	if d := sanitize.Text(item.Description); d != "" {
		return d
	}
	return sanitize.Text(item.Content)
}

// extractDate returns the zero time when no date can be parsed.
func extractDate(item *gofeed.Item) time.Time {
	switch {
	case item.PublishedParsed != nil:
		return *item.PublishedParsed
	case item.UpdatedParsed != nil:
		return *item.UpdatedParsed
	}
	for _, raw := range []string{item.Published, item.Updated} {
		if raw == "" {
			continue
		}
		if t, err := dateparse.ParseAny(raw); err == nil {
			return t
		}
	}
	return time.Time{}
}

func extractAuthor(item *gofeed.Item) string {
	if item.Author != nil && item.Author.Name != "" {
		return item.Author.Name
	}
	for _, a := range item.Authors {
		if a != nil && a.Name != "" {
			return a.Name
		}
	}
	return ""
}

func extractImage(item *gofeed.Item) string {
	if item.Image != nil && item.Image.URL != "" {
		return item.Image.URL
	}
	for _, enc := range item.Enclosures {
		if enc != nil && strings.HasPrefix(enc.Type, "image/") {
			return enc.URL
		}
	}
	return ""
}
