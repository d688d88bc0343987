package newsapi

import "github.com/jonesrussell/newsgate/internal/domain"

// NoCountry disables the country filter for a query.
const NoCountry = "-"

// Query is the upstream filter for a category.
type Query struct {
	Category string `mapstructure:"category"`
	Q        string `mapstructure:"q"`
	Country  string `mapstructure:"country"`
}

// DefaultQueries maps each category to its upstream filter.
func DefaultQueries() map[domain.Category]Query {
	return map[domain.Category]Query{
		domain.CategoryBRICS:     {Category: "world,politics,business", Q: "BRICS", Country: NoCountry},
		domain.CategoryIndonesia: {Category: "top"},
		domain.CategoryBali:      {Q: "Bali"},
	}
}

// QueriesFromConfig builds overrides from a category to search-term map.
// Unknown categories are ignored.
func QueriesFromConfig(terms map[string]string) map[domain.Category]Query {
	defaults := DefaultQueries()
	out := make(map[domain.Category]Query, len(terms))
	for name, term := range terms {
		cat, err := domain.ParseCategory(name)
		if err != nil {
			continue
		}
		q := defaults[cat]
		q.Q = term
		out[cat] = q
	}
	return out
}
