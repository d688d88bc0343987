package scrape_test

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/jonesrussell/newsgate/internal/domain"
	"github.com/jonesrussell/newsgate/internal/scrape"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listPage = `<html><body>
<div class="news">
  <article class="card">
    <h2><a href="/news/ubud-festival">Ubud festival draws record crowds</a></h2>
    <p class="excerpt">The annual <b>festival</b> welcomed visitors.</p>
    <time datetime="2025-03-09T10:00:00Z">9 March</time>
    <span class="author"> Made Wijaya </span>
    <img data-src="/img/ubud.jpg">
  </article>
  <article class="card">
    <h2><a href="https://other.test/abs">Absolute link story</a></h2>
    <time>3 hours ago</time>
  </article>
  <article class="card">
    <p class="excerpt">No title and no link here</p>
  </article>
</div>
</body></html>`

const jsonLDPage = `<html><head>
<script type="application/ld+json">
{"@context":"https://schema.org","@type":"NewsArticle","headline":"Jakarta MRT extension opens",
 "url":"/2025/03/mrt","datePublished":"2025-03-08T06:00:00+07:00",
 "author":[{"@type":"Person","name":"Siti Rahma"}],"image":{"@type":"ImageObject","url":"https://cdn.test/mrt.jpg"},
 "description":"The new line links the north."}
</script>
<script type="application/ld+json">
{"@context":"https://schema.org","@graph":[
  {"@type":"WebSite","name":"ignored"},
  {"@type":"ItemList","itemListElement":[
    {"@type":"ListItem","position":1,"item":{"@type":"NewsArticle","headline":"Rupiah steadies","url":"https://news.test/rupiah"}},
    {"@type":"ListItem","position":2,"url":"https://news.test/bonds","name":"Bond yields fall"}
  ]}
]}
</script>
<script type="application/ld+json">{not valid json</script>
</head><body></body></html>`

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestExtract_List(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	site := &scrape.ListSite{
		SiteInfo: scrape.SiteInfo{Name: "bali-sun", URL: "https://thebalisun.com/news/", Category: domain.CategoryBali, Active: true},
		Selectors: scrape.ListSelectors{
			Container:   "article.card",
			Link:        "h2 a",
			Title:       "h2",
			Description: ".excerpt",
			Date:        "time",
			DateAttr:    "datetime",
			Author:      ".author",
			Image:       "img",
		},
	}
	page, _ := url.Parse("https://thebalisun.com/news/")

	got := scrape.Extract(mustDoc(t, listPage), site, page, now)
	require.Len(t, got, 2)

	first := got[0]
	assert.Equal(t, "Ubud festival draws record crowds", first.Title)
	assert.Equal(t, "https://thebalisun.com/news/ubud-festival", first.Link)
	assert.Equal(t, "The annual festival welcomed visitors.", first.Description)
	assert.Equal(t, "Made Wijaya", first.Author)
	assert.Equal(t, "https://thebalisun.com/img/ubud.jpg", first.ImageURL)
	assert.True(t, first.PubDate.Equal(time.Date(2025, 3, 9, 10, 0, 0, 0, time.UTC)))
	assert.Equal(t, domain.CategoryBali, first.Category)
	assert.Equal(t, "bali-sun", first.Source)

	second := got[1]
	assert.Equal(t, "https://other.test/abs", second.Link)
	assert.True(t, second.PubDate.Equal(now.Add(-3*time.Hour)))
}

func TestExtract_ListBaseURLOverridesPage(t *testing.T) {
	t.Parallel()

	site := &scrape.ListSite{
		SiteInfo:  scrape.SiteInfo{Name: "x", URL: "https://www.x.test/list", BaseURL: "https://cdn.x.test/", Category: domain.CategoryBRICS, Active: true},
		Selectors: scrape.ListSelectors{Container: "article.card", Link: "h2 a"},
	}
	page, _ := url.Parse("https://www.x.test/list")

	got := scrape.Extract(mustDoc(t, listPage), site, page, time.Now())
	require.NotEmpty(t, got)
	assert.Equal(t, "https://cdn.x.test/news/ubud-festival", got[0].Link)
	assert.Equal(t, "Ubud festival draws record crowds", got[0].Title)
}

func TestExtract_JSONLD(t *testing.T) {
	t.Parallel()

	site := &scrape.JSONLDSite{SiteInfo: scrape.SiteInfo{
		Name: "jakarta-globe", URL: "https://jakartaglobe.id/news", Category: domain.CategoryIndonesia, Active: true,
	}}
	page, _ := url.Parse("https://jakartaglobe.id/news")

	got := scrape.Extract(mustDoc(t, jsonLDPage), site, page, time.Now())
	require.Len(t, got, 3)

	mrt := got[0]
	assert.Equal(t, "Jakarta MRT extension opens", mrt.Title)
	assert.Equal(t, "https://jakartaglobe.id/2025/03/mrt", mrt.Link)
	assert.Equal(t, "Siti Rahma", mrt.Author)
	assert.Equal(t, "https://cdn.test/mrt.jpg", mrt.ImageURL)
	assert.Equal(t, "The new line links the north.", mrt.Description)
	assert.Equal(t, 2025, mrt.PubDate.Year())

	assert.Equal(t, "Rupiah steadies", got[1].Title)
	assert.Equal(t, "Bond yields fall", got[2].Title)
	assert.Equal(t, "https://news.test/bonds", got[2].Link)
}
