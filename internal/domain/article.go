// Package domain provides the canonical models shared by every pipeline stage.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Article is the canonical record produced by every source. Articles are
// passed by value; consumers must treat them as read-only.
type Article struct {
	// ID is unique within a pipeline run.
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Link        string    `json:"link"`
	Description string    `json:"description"`
	PubDate     time.Time `json:"pub_date"`
	Author      string    `json:"author,omitempty"`
	Category    Category  `json:"category"`
	// Source is the human name of the upstream origin.
	Source string `json:"source"`
	// SourceURL is the feed, page, or API endpoint the article came from.
	SourceURL string `json:"source_url"`
	ImageURL  string `json:"image_url,omitempty"`
}

// NewID returns a fresh article identifier.
func NewID() string {
	return uuid.NewString()
}

// CloneArticles returns a copy of the slice so callers cannot alias
// another consumer's backing array.
func CloneArticles(in []Article) []Article {
	if in == nil {
		return nil
	}
	out := make([]Article, len(in))
	copy(out, in)
	return out
}

// ApproxSize estimates the memory held by an article's strings.
func (a *Article) ApproxSize() int {
	const fixedOverhead = 64
	return fixedOverhead + len(a.ID) + len(a.Title) + len(a.Link) + len(a.Description) +
		len(a.Author) + len(a.Category) + len(a.Source) + len(a.SourceURL) + len(a.ImageURL)
}
