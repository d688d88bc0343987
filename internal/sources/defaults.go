package sources

import "github.com/jonesrussell/newsgate/internal/domain"

// DefaultSources returns the compiled-in feed table.
func DefaultSources() []domain.SourceDescriptor {
	return []domain.SourceDescriptor{
		{Name: "antara-english", URL: "https://en.antaranews.com/rss/news.xml", Category: domain.CategoryIndonesia, Active: true, Tier: domain.TierFast},
		{Name: "jakarta-globe", URL: "https://jakartaglobe.id/rss", Category: domain.CategoryIndonesia, Active: true, Tier: domain.TierStandard},
		{Name: "tempo-english", URL: "https://en.tempo.co/rss/terkini", Category: domain.CategoryIndonesia, Active: true, Tier: domain.TierStandard},
		{Name: "jakarta-post", URL: "https://www.thejakartapost.com/rss", Category: domain.CategoryIndonesia, Active: false, Tier: domain.TierSlow},
		{Name: "bali-sun", URL: "https://thebalisun.com/feed/", Category: domain.CategoryBali, Active: true, Tier: domain.TierFast},
		{Name: "coconuts-bali", URL: "https://coconuts.co/bali/feed/", Category: domain.CategoryBali, Active: true, Tier: domain.TierSlow},
		{Name: "bali-discovery", URL: "https://www.balidiscovery.com/feed/", Category: domain.CategoryBali, Active: true, Tier: domain.TierStandard},
		{Name: "tass-world", URL: "https://tass.com/rss/v2.xml", Category: domain.CategoryBRICS, Active: true, Tier: domain.TierFast},
		{Name: "global-times", URL: "https://www.globaltimes.cn/rss/outbrain.xml", Category: domain.CategoryBRICS, Active: true, Tier: domain.TierStandard},
		{Name: "the-hindu-international", URL: "https://www.thehindu.com/news/international/feeder/default.rss", Category: domain.CategoryBRICS, Active: true, Tier: domain.TierStandard},
		{Name: "agencia-brasil", URL: "https://agenciabrasil.ebc.com.br/en/rss/ultimasnoticias/feed.xml", Category: domain.CategoryBRICS, Active: true, Tier: domain.TierSlow},
		{Name: "news24-world", URL: "https://feeds.news24.com/articles/news24/World/rss", Category: domain.CategoryBRICS, Active: false, Tier: domain.TierSlow},
	}
}
