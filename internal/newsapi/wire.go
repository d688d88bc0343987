package newsapi

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/jonesrussell/newsgate/internal/domain"
	"github.com/jonesrussell/newsgate/internal/sanitize"
)

const statusError = "error"

// response is the API envelope. Results is an array on success and an
// error object otherwise.
type response struct {
	Status       string          `json:"status"`
	TotalResults int             `json:"totalResults"`
	Results      json.RawMessage `json:"results"`
	NextPage     string          `json:"nextPage,omitempty"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type item struct {
	ArticleID   string   `json:"article_id"`
	Title       string   `json:"title"`
	Link        string   `json:"link"`
	Description string   `json:"description"`
	PubDate     string   `json:"pubDate"`
	ImageURL    string   `json:"image_url"`
	SourceID    string   `json:"source_id"`
	SourceName  string   `json:"source_name"`
	SourceURL   string   `json:"source_url"`
	Creator     []string `json:"creator"`
}

const pubDateLayout = "2006-01-02 15:04:05"

func parsePubDate(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	if t, err := time.ParseInLocation(pubDateLayout, raw, time.UTC); err == nil {
		return t
	}
	if t, err := dateparse.ParseIn(raw, time.UTC); err == nil {
		return t.UTC()
	}
	return time.Time{}
}

// toArticle converts one result. Items with neither title nor link are
// dropped.
func (it item) toArticle(cat domain.Category) (domain.Article, bool) {
	title := sanitize.Text(it.Title)
	link := strings.TrimSpace(it.Link)
	if title == "" && link == "" {
		return domain.Article{}, false
	}

	source := it.SourceID
	if source == "" {
		source = "newsapi"
	}
	var author string
	for _, c := range it.Creator {
		if c = sanitize.Collapse(c); c != "" {
			author = c
			break
		}
	}

	return domain.Article{
		ID:          domain.NewID(),
		Title:       title,
		Link:        link,
		Description: sanitize.Text(it.Description),
		PubDate:     parsePubDate(it.PubDate),
		Author:      author,
		Category:    cat,
		Source:      source,
		SourceURL:   it.SourceURL,
		ImageURL:    strings.TrimSpace(it.ImageURL),
	}, true
}
