package scrape

import "github.com/jonesrussell/newsgate/internal/domain"

// DefaultSites returns the compiled-in scrape table. Names match feed
// sources so a failing feed can fall back to its page.
func DefaultSites() []Site {
	return []Site{
		&ListSite{
			SiteInfo: SiteInfo{
				Name:     "antara-english",
				URL:      "https://en.antaranews.com/latest-news",
				Category: domain.CategoryIndonesia,
				Active:   true,
			},
			Selectors: ListSelectors{
				Container:   "div.card__post",
				Link:        "h2.card__post__title a",
				Title:       "h2.card__post__title a",
				Description: "p",
				Date:        "span.text-secondary",
				Image:       "img",
			},
		},
		&JSONLDSite{SiteInfo: SiteInfo{
			Name:     "jakarta-globe",
			URL:      "https://jakartaglobe.id/news",
			Category: domain.CategoryIndonesia,
			Active:   true,
		}},
		&ListSite{
			SiteInfo: SiteInfo{
				Name:     "bali-sun",
				URL:      "https://thebalisun.com/category/news/",
				Category: domain.CategoryBali,
				Active:   true,
			},
			Selectors: ListSelectors{
				Container:   "article",
				Link:        "h2 a, h3 a",
				Title:       "h2, h3",
				Description: ".entry-summary, .excerpt",
				Date:        "time",
				DateAttr:    "datetime",
				Author:      ".author",
				Image:       "img",
			},
		},
		&JSONLDSite{SiteInfo: SiteInfo{
			Name:     "coconuts-bali",
			URL:      "https://coconuts.co/bali/news/",
			Category: domain.CategoryBali,
			Active:   true,
		}},
		&ListSite{
			SiteInfo: SiteInfo{
				Name:     "tass-world",
				URL:      "https://tass.com/world",
				BaseURL:  "https://tass.com",
				Category: domain.CategoryBRICS,
				Active:   true,
			},
			Selectors: ListSelectors{
				Container: "div.news-list__item",
				Link:      "a",
				Title:     ".news-preview__title",
				Date:      ".news-preview__date",
			},
		},
		&JSONLDSite{SiteInfo: SiteInfo{
			Name:     "brics-portal",
			URL:      "https://infobrics.org/en/",
			Category: domain.CategoryBRICS,
			Active:   false,
		}},
	}
}
