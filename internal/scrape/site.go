// Package scrape extracts articles from HTML pages for sources without a
// usable feed.
package scrape

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/jonesrussell/newsgate/internal/domain"
)

// Kind tags a site configuration variant.
type Kind string

const (
	// KindList extracts repeated containers with CSS selectors.
	KindList Kind = "list"
	// KindJSONLD reads schema.org blocks from ld+json scripts.
	KindJSONLD Kind = "jsonld"
)

var (
	// ErrUnknownKind is returned for an unrecognised site kind.
	ErrUnknownKind = errors.New("unknown site kind")
	// ErrMissingField is returned when a required field is empty.
	ErrMissingField = errors.New("missing required field")
)

// Site is one scrape target. Concrete types are *ListSite and *JSONLDSite.
type Site interface {
	Kind() Kind
	Info() SiteInfo
	Validate() error
}

// SiteInfo holds the fields every variant shares.
type SiteInfo struct {
	Name     string          `mapstructure:"name"     yaml:"name"`
	URL      string          `mapstructure:"url"      yaml:"url"`
	BaseURL  string          `mapstructure:"base_url" yaml:"base_url"`
	Category domain.Category `mapstructure:"category" yaml:"category"`
	Active   bool            `mapstructure:"active"   yaml:"active"`
}

func (i SiteInfo) validate() error {
	if i.Name == "" {
		return fmt.Errorf("%w: name", ErrMissingField)
	}
	if i.URL == "" {
		return fmt.Errorf("%w: url", ErrMissingField)
	}
	if err := validateHTTPURL(i.URL); err != nil {
		return fmt.Errorf("url: %w", err)
	}
	if i.BaseURL != "" {
		if err := validateHTTPURL(i.BaseURL); err != nil {
			return fmt.Errorf("base_url: %w", err)
		}
	}
	if i.Category == "" {
		return fmt.Errorf("%w: category", ErrMissingField)
	}
	if !i.Category.Valid() {
		return fmt.Errorf("unknown category %q", i.Category)
	}
	return nil
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%q must be an absolute http(s) URL", raw)
	}
	return nil
}

// ListSelectors locate fields inside each repeated container.
type ListSelectors struct {
	Container   string `mapstructure:"container"   yaml:"container"`
	Link        string `mapstructure:"link"        yaml:"link"`
	Title       string `mapstructure:"title"       yaml:"title"`
	Description string `mapstructure:"description" yaml:"description"`
	Date        string `mapstructure:"date"        yaml:"date"`
	// DateAttr reads the date from an attribute (e.g. datetime) instead of text.
	DateAttr string `mapstructure:"date_attr" yaml:"date_attr"`
	Author   string `mapstructure:"author"    yaml:"author"`
	Image    string `mapstructure:"image"     yaml:"image"`
}

// ListSite scrapes a listing page of repeated article cards.
type ListSite struct {
	SiteInfo  `mapstructure:",squash" yaml:",inline"`
	Selectors ListSelectors `mapstructure:"selectors" yaml:"selectors"`
}

func (s *ListSite) Kind() Kind     { return KindList }
func (s *ListSite) Info() SiteInfo { return s.SiteInfo }

// Validate requires the shared fields, a container, and a title or link selector.
func (s *ListSite) Validate() error {
	if err := s.SiteInfo.validate(); err != nil {
		return err
	}
	if strings.TrimSpace(s.Selectors.Container) == "" {
		return fmt.Errorf("%w: selectors.container", ErrMissingField)
	}
	if s.Selectors.Title == "" && s.Selectors.Link == "" {
		return fmt.Errorf("%w: selectors.title or selectors.link", ErrMissingField)
	}
	return nil
}

// JSONLDSite scrapes schema.org NewsArticle and ItemList blocks.
type JSONLDSite struct {
	SiteInfo `mapstructure:",squash" yaml:",inline"`
}

func (s *JSONLDSite) Kind() Kind     { return KindJSONLD }
func (s *JSONLDSite) Info() SiteInfo { return s.SiteInfo }

// Validate requires the shared fields.
func (s *JSONLDSite) Validate() error {
	return s.SiteInfo.validate()
}

// ConfigError reports an invalid site entry.
type ConfigError struct {
	Index int
	Name  string
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("site %d (%s): %v", e.Index, e.Name, e.Err)
	}
	return fmt.Sprintf("site %d: %v", e.Index, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// baseFor returns the URL relative links resolve against.
func baseFor(info SiteInfo, page *url.URL) *url.URL {
	if info.BaseURL != "" {
		if u, err := url.Parse(info.BaseURL); err == nil {
			return u
		}
	}
	if page != nil {
		return page
	}
	u, _ := url.Parse(info.URL)
	return u
}

// resolve makes ref absolute against base. Empty input stays empty.
func resolve(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if base == nil {
		return u.String()
	}
	return base.ResolveReference(u).String()
}
