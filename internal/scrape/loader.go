package scrape

import (
	"fmt"
	"os"
	"strings"

	"github.com/jonesrussell/newsgate/internal/domain"
	"github.com/jonesrussell/newsgate/internal/logger"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

type sitesFile struct {
	Sites []map[string]any `yaml:"sites"`
}

// LoadFile reads a YAML `sites:` list. Invalid entries are logged and
// skipped.
func LoadFile(path string, log logger.Logger) ([]Site, error) {
	if log == nil {
		log = logger.NewNop()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sites file: %w", err)
	}

	var file sitesFile
	if err = yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse sites file: %w", err)
	}

	sites := make([]Site, 0, len(file.Sites))
	for i, raw := range file.Sites {
		site, decodeErr := DecodeSite(raw)
		if decodeErr != nil {
			name, _ := raw["name"].(string)
			cfgErr := &ConfigError{Index: i, Name: name, Err: decodeErr}
			log.Warn("Skipping invalid scrape site", logger.Error(cfgErr))
			continue
		}
		sites = append(sites, site)
	}
	return sites, nil
}

// DecodeSite decodes one raw entry into its variant by `kind` and validates
// it. Entries without a kind are list sites. Sites default to active.
func DecodeSite(raw map[string]any) (Site, error) {
	kind := KindList
	if k, ok := raw["kind"].(string); ok && k != "" {
		kind = Kind(strings.ToLower(k))
	}

	var site Site
	switch kind {
	case KindList:
		site = &ListSite{SiteInfo: SiteInfo{Active: true}}
	case KindJSONLD:
		site = &JSONLDSite{SiteInfo: SiteInfo{Active: true}}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	body := make(map[string]any, len(raw))
	for k, v := range raw {
		if k != "kind" {
			body[k] = v
		}
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           site,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("create decoder: %w", err)
	}
	if err = decoder.Decode(body); err != nil {
		return nil, fmt.Errorf("decode %s site: %w", kind, err)
	}

	normalizeCategory(site)
	if err = site.Validate(); err != nil {
		return nil, err
	}
	return site, nil
}

func normalizeCategory(site Site) {
	switch s := site.(type) {
	case *ListSite:
		s.Category = domain.Category(strings.ToLower(string(s.Category)))
	case *JSONLDSite:
		s.Category = domain.Category(strings.ToLower(string(s.Category)))
	}
}
