package moderation_test

import (
	"testing"
	"time"

	"github.com/jonesrussell/newsgate/internal/domain"
	"github.com/jonesrussell/newsgate/internal/metrics"
	"github.com/jonesrussell/newsgate/internal/moderation"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var published = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

func article(title, desc string) domain.Article {
	return domain.Article{
		ID:          domain.NewID(),
		Title:       title,
		Link:        "https://en.antaranews.com/news/" + domain.NewID(),
		Description: desc,
		PubDate:     published,
		Category:    domain.CategoryIndonesia,
		Source:      "antara-english",
	}
}

var (
	levy = article(
		"Bali governor announces new tourist levy for foreign visitors",
		"The provincial government will charge foreign tourists a new levy starting next month.",
	)
	levyParaphrase = article(
		"Bali governor announces new tourist levy for foreign travellers",
		"The provincial government will charge foreign tourists a new levy starting next month.",
	)
	rupiah = article(
		"Rupiah strengthens against dollar as exports climb",
		"Currency traders cited improved export figures and steady inflation data.",
	)
	rupiahParaphrase = article(
		"Rupiah strengthens against dollar as exports rise",
		"Currency traders cited improved export figures and steady inflation data.",
	)
)

func TestModerateArticle_CleanArticleApproved(t *testing.T) {
	t.Parallel()

	m := moderation.New(moderation.Options{})
	res := m.ModerateArticle(levy, nil)

	assert.True(t, res.Approved)
	assert.InDelta(t, 1.0, res.Score, 1e-9)
	assert.Empty(t, res.Flags)
	assert.Empty(t, res.Reason)
}

func TestModerateArticle_Duplicate(t *testing.T) {
	t.Parallel()

	assert.GreaterOrEqual(t, moderation.Similarity(levyParaphrase, levy), 0.65)

	m := moderation.New(moderation.Options{})
	res := m.ModerateArticle(levyParaphrase, []domain.Article{rupiah, levy})

	require.True(t, res.HasFlag(moderation.FlagDuplicate))
	assert.False(t, res.Approved)
	assert.InDelta(t, 0.2, res.Score, 1e-9)
	dup := res.Flags[0]
	assert.Equal(t, moderation.SeverityHigh, dup.Severity)
	assert.GreaterOrEqual(t, dup.Confidence, 0.65)
	assert.Contains(t, res.Reason, "duplicate of")
}

func TestModerateArticle_LowQuality(t *testing.T) {
	t.Parallel()

	a := domain.Article{Title: "Hey", Description: "short", Link: "not a url", PubDate: published, Source: "antara-english"}
	res := moderation.New(moderation.Options{}).ModerateArticle(a, nil)

	assert.False(t, res.Approved)
	assert.Less(t, res.Score, 0.3)
	assert.GreaterOrEqual(t, len(res.Flags), 2)
	assert.True(t, res.HasSeverity(moderation.SeverityHigh))
	assert.Equal(t, "title too short; missing or malformed link", res.Reason)
}

func TestModerateArticle_QualityRules(t *testing.T) {
	t.Parallel()

	longTitle := "One two three four five six seven eight nine ten eleven twelve thirteen fourteen fifteen sixteen seventeen eighteen nineteen twenty twentyone"

	tests := []struct {
		name      string
		mutate    func(*domain.Article)
		wantScore float64
		approved  bool
	}{
		{"zero date", func(a *domain.Article) { a.PubDate = time.Time{} }, 0.9, true},
		{"long title", func(a *domain.Article) { a.Title = longTitle }, 0.9, true},
		{"two word title", func(a *domain.Article) { a.Title = "Rupiah rallies" }, 0.8, true},
		{"shouting title", func(a *domain.Article) { a.Title = "BREAKING NEWS FROM JAKARTA TODAY" }, 0.8, true},
		{"missing link", func(a *domain.Article) { a.Link = "" }, 0.6, false},
		{"relative link", func(a *domain.Article) { a.Link = "/news/1" }, 0.6, false},
		{"short description", func(a *domain.Article) { a.Description = "Too brief." }, 0.7, true},
	}

	m := moderation.New(moderation.Options{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			a := rupiah
			tt.mutate(&a)
			res := m.ModerateArticle(a, nil)
			assert.InDelta(t, tt.wantScore, res.Score, 1e-9)
			assert.Equal(t, tt.approved, res.Approved)
			assert.True(t, res.HasFlag(moderation.FlagLowQuality))
		})
	}
}

func TestModerateArticle_UnreliableSource(t *testing.T) {
	t.Parallel()

	a := rupiah
	a.Source = "random-blog"
	res := moderation.New(moderation.Options{}).ModerateArticle(a, nil)

	require.True(t, res.HasFlag(moderation.FlagUnreliableSource))
	assert.True(t, res.Approved)
	assert.InDelta(t, 0.7, res.Score, 1e-9)
	assert.Contains(t, res.Reason, "random-blog")
}

func TestModerateArticle_Spam(t *testing.T) {
	t.Parallel()

	m := moderation.New(moderation.Options{})

	t.Run("keywords", func(t *testing.T) {
		t.Parallel()
		a := article("Click here to win big prizes", "Buy now and claim free money from our casino today only.")
		res := m.ModerateArticle(a, nil)
		require.True(t, res.HasFlag(moderation.FlagSpam))
		assert.False(t, res.Approved)
		assert.Contains(t, res.Reason, "spam keywords")
	})

	t.Run("promo", func(t *testing.T) {
		t.Parallel()
		a := article("Exclusive discount sale on Ubud hotel rooms", "Use promo code BALI for a special offer and free shipping.")
		res := m.ModerateArticle(a, nil)
		require.True(t, res.HasFlag(moderation.FlagSpam))
		assert.False(t, res.Approved)
		assert.Contains(t, res.Reason, "promotional content")
	})

	t.Run("single keyword is not spam", func(t *testing.T) {
		t.Parallel()
		a := article("Casino ban debated in Jakarta council", "Lawmakers discussed enforcement of the existing gambling prohibition.")
		res := m.ModerateArticle(a, nil)
		assert.False(t, res.HasFlag(moderation.FlagSpam))
		assert.True(t, res.Approved)
	})

	t.Run("punctuation", func(t *testing.T) {
		t.Parallel()
		a := article("Is this real? Really? Truly? Honestly?", "Residents asked officials about the sudden road closures near the port.")
		res := m.ModerateArticle(a, nil)
		require.True(t, res.HasFlag(moderation.FlagSpam))
		assert.True(t, res.Approved)
		assert.InDelta(t, 0.8, res.Score, 1e-9)
		assert.InDelta(t, 0.5, res.Flags[0].Confidence, 1e-9)
		assert.Equal(t, moderation.SeverityMedium, res.Flags[0].Severity)
	})
}

func TestModerateArticles_OrderDependence(t *testing.T) {
	t.Parallel()

	m := moderation.New(moderation.Options{})

	first := m.ModerateArticles([]domain.Article{levy, rupiah, rupiahParaphrase})
	require.Len(t, first.Results, 3)
	assert.True(t, first.Results[0].Approved)
	assert.True(t, first.Results[1].Approved)
	assert.True(t, first.Results[2].HasFlag(moderation.FlagDuplicate))
	assert.Equal(t, []domain.Article{levy, rupiah}, first.Approved)
	assert.Equal(t, []domain.Article{rupiahParaphrase}, first.Rejected)

	reordered := m.ModerateArticles([]domain.Article{rupiahParaphrase, levy, rupiah})
	assert.True(t, reordered.Results[0].Approved)
	assert.True(t, reordered.Results[2].HasFlag(moderation.FlagDuplicate))
	assert.Equal(t, []domain.Article{rupiah}, reordered.Rejected)
}

func TestModerateArticles_ComparesOnlyAgainstApproved(t *testing.T) {
	t.Parallel()

	m := moderation.New(moderation.Options{})
	spammy := article("Click here to read levy news for foreign visitors", "Buy now and claim free money from our casino today only.")
	nearSpammy := article("Click here to read levy news for foreign visitors", "Officials explained the new rules for foreign visitors arriving in Bali.")

	res := m.ModerateArticles([]domain.Article{spammy, nearSpammy})
	assert.False(t, res.Results[0].Approved)
	assert.False(t, res.Results[1].HasFlag(moderation.FlagDuplicate))
}

func TestModerateArticles_Empty(t *testing.T) {
	t.Parallel()

	res := moderation.New(moderation.Options{}).ModerateArticles(nil)
	assert.NotNil(t, res.Approved)
	assert.NotNil(t, res.Rejected)
	assert.Empty(t, res.Results)
}

func TestModerateArticle_RecordsMetrics(t *testing.T) {
	t.Parallel()

	met := metrics.NewWithRegistry(prometheus.NewRegistry())
	m := moderation.New(moderation.Options{Metrics: met})

	m.ModerateArticles([]domain.Article{levy, levyParaphrase})

	assert.InDelta(t, 1, testutil.ToFloat64(met.ModerationDecisions.WithLabelValues("approved")), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(met.ModerationDecisions.WithLabelValues("rejected")), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(met.ModerationFlags.WithLabelValues("duplicate")), 1e-9)
}
