package sources

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/jonesrussell/newsgate/internal/domain"
	"github.com/jonesrussell/newsgate/internal/logger"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

var (
	// ErrNoSources indicates the file held no valid source.
	ErrNoSources = errors.New("no valid sources found in configuration")
	// ErrMissingRequiredField indicates a required field is missing.
	ErrMissingRequiredField = errors.New("missing required field")
	// ErrInvalidSource indicates a field has an unusable value.
	ErrInvalidSource = errors.New("invalid source")
)

type sourcesFile struct {
	Sources []map[string]any `yaml:"sources"`
}

// LoadFile reads a YAML `sources:` list. Invalid entries are skipped with a
// warning; an error is returned only when nothing valid remains.
func LoadFile(path string, log logger.Logger) ([]domain.SourceDescriptor, error) {
	if log == nil {
		log = logger.NewNop()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}

	var file sourcesFile
	if err = yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse sources file: %w", err)
	}

	out := make([]domain.SourceDescriptor, 0, len(file.Sources))
	for i, raw := range file.Sources {
		src, decodeErr := decodeSource(raw)
		if decodeErr == nil {
			decodeErr = Validate(src)
		}
		if decodeErr != nil {
			log.Warn("Skipping invalid source entry",
				logger.Int("index", i),
				logger.Any("name", raw["name"]),
				logger.Error(decodeErr),
			)
			continue
		}
		out = append(out, src)
	}

	if len(out) == 0 {
		return nil, ErrNoSources
	}
	return out, nil
}

// LoadFile replaces the registry table with the file's contents. The
// existing table is kept when loading fails.
func (r *Registry) LoadFile(path string) error {
	table, err := LoadFile(path, r.log)
	if err != nil {
		return err
	}
	r.Replace(table)
	r.log.Info("Source registry loaded",
		logger.String("path", path),
		logger.Int("sources", len(table)),
		logger.Int("active", len(r.Active())),
	)
	return nil
}

func decodeSource(raw map[string]any) (domain.SourceDescriptor, error) {
	src := domain.SourceDescriptor{Active: true, Tier: domain.TierStandard}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &src,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return src, fmt.Errorf("create decoder: %w", err)
	}
	if err = decoder.Decode(raw); err != nil {
		return src, fmt.Errorf("decode source: %w", err)
	}
	src.Category = domain.Category(strings.ToLower(strings.TrimSpace(string(src.Category))))
	return src, nil
}

// Validate checks a single descriptor.
func Validate(src domain.SourceDescriptor) error {
	if src.Name == "" {
		return fmt.Errorf("%w: name", ErrMissingRequiredField)
	}
	if src.URL == "" {
		return fmt.Errorf("%w: url", ErrMissingRequiredField)
	}
	u, err := url.Parse(src.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: url %q must be an absolute http(s) URL", ErrInvalidSource, src.URL)
	}
	if !src.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidSource, src.Category)
	}
	if !src.Tier.Valid() {
		return fmt.Errorf("%w: tier %d out of range 1-3", ErrInvalidSource, src.Tier)
	}
	return nil
}
