package config

import (
	"time"

	"github.com/spf13/viper"
)

// Default values.
const (
	DefaultServerAddress      = ":8080"
	DefaultFetchTimeout       = 15 * time.Second
	DefaultMaxAttempts        = 3
	DefaultBackoffBase        = time.Second
	DefaultTargetArticles     = 100
	DefaultBatchSize          = 6
	DefaultMinQualityScore    = 0.3
	DefaultDuplicateThreshold = 0.65
	DefaultSoftThreshold      = 0.85
	DefaultRedisKey           = "newsgate:budget"
	DefaultNewsAPIBaseURL     = "https://newsdata.io/api/1/latest"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "newsgate")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.debug", false)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.output_paths", []string{"stdout"})

	v.SetDefault("server.address", DefaultServerAddress)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)

	v.SetDefault("fetch.timeout", DefaultFetchTimeout)
	v.SetDefault("fetch.max_attempts", DefaultMaxAttempts)
	v.SetDefault("fetch.backoff_base", DefaultBackoffBase)
	v.SetDefault("fetch.max_backoff", 30*time.Second)
	v.SetDefault("fetch.empty_feed_policy", EmptyFeedFallback)

	v.SetDefault("scrape.timeout", DefaultFetchTimeout)

	v.SetDefault("newsapi.enabled", true)
	v.SetDefault("newsapi.base_url", DefaultNewsAPIBaseURL)
	v.SetDefault("newsapi.language", "en")
	v.SetDefault("newsapi.country", "id")
	v.SetDefault("newsapi.max_page_size", 10)
	v.SetDefault("newsapi.daily_credit_limit", 200)
	v.SetDefault("newsapi.articles_per_credit", 10)
	v.SetDefault("newsapi.min_interval", time.Second)
	v.SetDefault("newsapi.rate_limit_cooldown", 15*time.Minute)
	v.SetDefault("newsapi.timeout", DefaultFetchTimeout)

	v.SetDefault("cache.memory_ttl", 15*time.Minute)
	v.SetDefault("cache.memory_max_entries", 500)
	v.SetDefault("cache.stale_while_revalidate", true)
	v.SetDefault("cache.backend", BackendFile)
	v.SetDefault("cache.file_path", "data/budget-cache.json")
	v.SetDefault("cache.default_ttl", 2*time.Hour)
	v.SetDefault("cache.emergency_ttl", 12*time.Hour)
	v.SetDefault("cache.soft_threshold", DefaultSoftThreshold)
	v.SetDefault("cache.category_ttl", map[string]string{
		"brics":     "1h",
		"indonesia": "2h",
		"bali":      "4h",
	})

	v.SetDefault("moderation.min_quality_score", DefaultMinQualityScore)
	v.SetDefault("moderation.duplicate_threshold", DefaultDuplicateThreshold)
	v.SetDefault("moderation.reliability_cache_ttl", 24*time.Hour)

	v.SetDefault("aggregator.target_articles", DefaultTargetArticles)
	v.SetDefault("aggregator.batch_size", DefaultBatchSize)
	v.SetDefault("aggregator.api_concurrency", 3)
	v.SetDefault("aggregator.api_limit", 10)
	v.SetDefault("aggregator.include_scrape", false)
	v.SetDefault("aggregator.categories", []string{"brics", "indonesia", "bali"})

	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key", DefaultRedisKey)

	v.SetDefault("schedule.enabled", true)
	v.SetDefault("schedule.cron", "*/15 * * * *")

	v.SetDefault("sources.watch", true)
}
