package scrape

import (
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/jonesrussell/newsgate/internal/domain"
	"github.com/jonesrussell/newsgate/internal/sanitize"
)

// Extract pulls articles from a parsed page according to the site variant.
// page is the final page URL, used for relative links when the site has no
// base URL.
func Extract(doc *goquery.Document, site Site, page *url.URL, now time.Time) []domain.Article {
	switch s := site.(type) {
	case *ListSite:
		return extractList(doc, s, page, now)
	case *JSONLDSite:
		return extractJSONLD(doc, s, page, now)
	default:
		return nil
	}
}

func newArticle(info SiteInfo, title, link, desc, author, image string, pub time.Time) domain.Article {
	return domain.Article{
		ID:          domain.NewID(),
		Title:       sanitize.Text(title),
		Link:        link,
		Description: sanitize.Text(desc),
		PubDate:     pub,
		Author:      sanitize.Collapse(author),
		Category:    info.Category,
		Source:      info.Name,
		SourceURL:   info.URL,
		ImageURL:    image,
	}
}

func extractList(doc *goquery.Document, site *ListSite, page *url.URL, now time.Time) []domain.Article {
	base := baseFor(site.SiteInfo, page)
	sel := site.Selectors
	var out []domain.Article

	doc.Find(sel.Container).Each(func(_ int, card *goquery.Selection) {
		link := resolve(base, findLink(card, sel.Link))
		title := textOf(card, sel.Title)
		if title == "" && sel.Link != "" {
			title = strings.TrimSpace(card.Find(sel.Link).First().Text())
		}
		if link == "" && title == "" {
			return
		}

		var rawDate string
		if sel.Date != "" {
			dateSel := card.Find(sel.Date).First()
			if sel.DateAttr != "" {
				rawDate = dateSel.AttrOr(sel.DateAttr, "")
			}
			if rawDate == "" {
				rawDate = dateSel.Text()
			}
		}

		out = append(out, newArticle(site.SiteInfo,
			title,
			link,
			textOf(card, sel.Description),
			textOf(card, sel.Author),
			resolve(base, findImage(card, sel.Image)),
			ParseDate(rawDate, now),
		))
	})
	return out
}

// findLink reads href from the link selector, the container itself, or the
// first anchor inside it.
func findLink(card *goquery.Selection, selector string) string {
	if selector != "" {
		return card.Find(selector).First().AttrOr("href", "")
	}
	if href, ok := card.Attr("href"); ok {
		return href
	}
	return card.Find("a[href]").First().AttrOr("href", "")
}

func findImage(card *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	img := card.Find(selector).First()
	for _, attr := range []string{"src", "data-src", "data-lazy-src", "content"} {
		if v := img.AttrOr(attr, ""); v != "" && !strings.HasPrefix(v, "data:") {
			return v
		}
	}
	return ""
}

func textOf(card *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	return strings.TrimSpace(card.Find(selector).First().Text())
}

// jsonLDArticleTypes are the schema.org types read as articles.
var jsonLDArticleTypes = map[string]bool{
	"NewsArticle":          true,
	"Article":              true,
	"BlogPosting":          true,
	"ReportageNewsArticle": true,
	"AnalysisNewsArticle":  true,
}

func extractJSONLD(doc *goquery.Document, site *JSONLDSite, page *url.URL, now time.Time) []domain.Article {
	base := baseFor(site.SiteInfo, page)
	var out []domain.Article
	seen := make(map[string]bool)

	add := func(obj map[string]any) {
		title := firstString(obj["headline"], obj["name"])
		link := resolve(base, firstString(obj["url"], obj["mainEntityOfPage"]))
		if link == "" && title == "" {
			return
		}
		key := link + "|" + title
		if seen[key] {
			return
		}
		seen[key] = true

		out = append(out, newArticle(site.SiteInfo,
			title,
			link,
			firstString(obj["description"]),
			personName(obj["author"]),
			resolve(base, imageURL(obj["image"])),
			ParseDate(firstString(obj["datePublished"], obj["dateCreated"], obj["dateModified"]), now),
		))
	}

	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text == "" {
			return
		}
		var data any
		if err := json.Unmarshal([]byte(text), &data); err != nil {
			return
		}
		for _, obj := range flattenJSONLD(data) {
			switch {
			case hasType(obj, "ItemList"):
				for _, item := range listItems(obj) {
					add(item)
				}
			case hasAnyType(obj, jsonLDArticleTypes):
				add(obj)
			}
		}
	})
	return out
}

// flattenJSONLD expands arrays and @graph containers into objects.
func flattenJSONLD(data any) []map[string]any {
	var out []map[string]any
	switch v := data.(type) {
	case []any:
		for _, item := range v {
			out = append(out, flattenJSONLD(item)...)
		}
	case map[string]any:
		if graph, ok := v["@graph"]; ok {
			out = append(out, flattenJSONLD(graph)...)
		}
		if _, ok := v["@type"]; ok {
			out = append(out, v)
		}
	}
	return out
}

func listItems(list map[string]any) []map[string]any {
	elements, _ := list["itemListElement"].([]any)
	out := make([]map[string]any, 0, len(elements))
	for _, el := range elements {
		obj, ok := el.(map[string]any)
		if !ok {
			continue
		}
		if item, ok := obj["item"].(map[string]any); ok {
			out = append(out, item)
			continue
		}
		if inner, ok := obj["item"].(string); ok && obj["url"] == nil {
			obj["url"] = inner
		}
		out = append(out, obj)
	}
	return out
}

func types(obj map[string]any) []string {
	switch t := obj["@type"].(type) {
	case string:
		return []string{t}
	case []any:
		out := make([]string, 0, len(t))
		for _, v := range t {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func hasType(obj map[string]any, want string) bool {
	for _, t := range types(obj) {
		if t == want {
			return true
		}
	}
	return false
}

func hasAnyType(obj map[string]any, set map[string]bool) bool {
	for _, t := range types(obj) {
		if set[t] {
			return true
		}
	}
	return false
}

// firstString returns the first non-empty string among values, looking
// inside {"@id": ...} and {"url": ...} objects.
func firstString(values ...any) string {
	for _, v := range values {
		switch t := v.(type) {
		case string:
			if s := strings.TrimSpace(t); s != "" {
				return s
			}
		case map[string]any:
			if s := firstString(t["@id"], t["url"]); s != "" {
				return s
			}
		}
	}
	return ""
}

func personName(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case map[string]any:
		return firstString(t["name"])
	case []any:
		for _, item := range t {
			if name := personName(item); name != "" {
				return name
			}
		}
	}
	return ""
}

func imageURL(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case map[string]any:
		return firstString(t["url"], t["contentUrl"])
	case []any:
		for _, item := range t {
			if u := imageURL(item); u != "" {
				return u
			}
		}
	}
	return ""
}
