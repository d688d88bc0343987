package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/jonesrussell/newsgate/internal/domain"
)

// ValidationError reports an invalid configuration field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Validate checks every section and returns the first problem found.
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateLogger,
		c.validateServer,
		c.validateFetch,
		c.validateNewsAPI,
		c.validateCache,
		c.validateModeration,
		c.validateAggregator,
		c.validateSchedule,
	}
	for _, validate := range validators {
		if err := validate(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateLogger() error {
	switch strings.ToLower(c.Logger.Level) {
	case "debug", "info", "warn", "warning", "error", "fatal":
	default:
		return invalid("logger.level", "must be one of: debug, info, warn, error, fatal")
	}
	switch c.Logger.Format {
	case "json", "console":
	default:
		return invalid("logger.format", "must be one of: json, console")
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Address == "" {
		return invalid("server.address", "is required")
	}
	return nil
}

func (c *Config) validateFetch() error {
	if c.Fetch.Timeout <= 0 {
		return invalid("fetch.timeout", "must be positive")
	}
	if c.Fetch.MaxAttempts < 1 || c.Fetch.MaxAttempts > 10 {
		return invalid("fetch.max_attempts", "must be between 1 and 10")
	}
	if c.Fetch.BackoffBase < 0 {
		return invalid("fetch.backoff_base", "must not be negative")
	}
	switch c.Fetch.EmptyFeedPolicy {
	case EmptyFeedFallback, EmptyFeedAccept:
	default:
		return invalid("fetch.empty_feed_policy", "must be one of: %s, %s", EmptyFeedFallback, EmptyFeedAccept)
	}
	return nil
}

func (c *Config) validateNewsAPI() error {
	if !c.NewsAPI.Enabled {
		return nil
	}
	if _, err := url.ParseRequestURI(c.NewsAPI.BaseURL); err != nil {
		return invalid("newsapi.base_url", "must be a valid URL")
	}
	if c.NewsAPI.DailyCreditLimit <= 0 {
		return invalid("newsapi.daily_credit_limit", "must be positive")
	}
	if c.NewsAPI.ArticlesPerCredit <= 0 {
		return invalid("newsapi.articles_per_credit", "must be positive")
	}
	if c.NewsAPI.MaxPageSize <= 0 {
		return invalid("newsapi.max_page_size", "must be positive")
	}
	return nil
}

func (c *Config) validateCache() error {
	switch c.Cache.Backend {
	case BackendFile:
		if c.Cache.FilePath == "" {
			return invalid("cache.file_path", "is required for the file backend")
		}
	case BackendRedis:
		if c.Redis.Address == "" {
			return invalid("redis.address", "is required for the redis backend")
		}
	case BackendNone:
	default:
		return invalid("cache.backend", "must be one of: file, redis, none")
	}
	if c.Cache.MemoryTTL <= 0 {
		return invalid("cache.memory_ttl", "must be positive")
	}
	if c.Cache.SoftThreshold <= 0 || c.Cache.SoftThreshold > 1 {
		return invalid("cache.soft_threshold", "must be in (0, 1]")
	}
	for name := range c.Cache.CategoryTTL {
		if !domain.Category(name).Valid() {
			return invalid("cache.category_ttl", "unknown category %q", name)
		}
	}
	return nil
}

func (c *Config) validateModeration() error {
	if c.Moderation.MinQualityScore < 0 || c.Moderation.MinQualityScore > 1 {
		return invalid("moderation.min_quality_score", "must be in [0, 1]")
	}
	if c.Moderation.DuplicateThreshold <= 0 || c.Moderation.DuplicateThreshold > 1 {
		return invalid("moderation.duplicate_threshold", "must be in (0, 1]")
	}
	for name, score := range c.Moderation.Reliability {
		if score < 0 || score > 1 {
			return invalid("moderation.reliability", "score for %q must be in [0, 1]", name)
		}
	}
	return nil
}

func (c *Config) validateAggregator() error {
	if c.Aggregator.TargetArticles <= 0 {
		return invalid("aggregator.target_articles", "must be positive")
	}
	if c.Aggregator.BatchSize < 4 || c.Aggregator.BatchSize > 8 {
		return invalid("aggregator.batch_size", "must be between 4 and 8")
	}
	if c.Aggregator.APIConcurrency <= 0 {
		return invalid("aggregator.api_concurrency", "must be positive")
	}
	for _, name := range c.Aggregator.Categories {
		if _, err := domain.ParseCategory(name); err != nil {
			return invalid("aggregator.categories", "%v", err)
		}
	}
	return nil
}

func (c *Config) validateSchedule() error {
	if c.Schedule.Enabled && strings.TrimSpace(c.Schedule.Cron) == "" {
		return invalid("schedule.cron", "is required when scheduling is enabled")
	}
	return nil
}

// CategoryList parses Aggregator.Categories. Validate has already rejected
// unknown names.
func (c *Config) CategoryList() []domain.Category {
	out := make([]domain.Category, 0, len(c.Aggregator.Categories))
	for _, name := range c.Aggregator.Categories {
		if cat, err := domain.ParseCategory(name); err == nil {
			out = append(out, cat)
		}
	}
	return out
}
