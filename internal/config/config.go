// Package config loads newsgate configuration from a YAML file, the
// environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonesrussell/newsgate/internal/logger"
	"github.com/spf13/viper"
)

// Config is the root configuration.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Logger     logger.Config    `mapstructure:"logger"`
	Server     ServerConfig     `mapstructure:"server"`
	Fetch      FetchConfig      `mapstructure:"fetch"`
	Scrape     ScrapeConfig     `mapstructure:"scrape"`
	NewsAPI    NewsAPIConfig    `mapstructure:"newsapi"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Moderation ModerationConfig `mapstructure:"moderation"`
	Aggregator AggregatorConfig `mapstructure:"aggregator"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Schedule   ScheduleConfig   `mapstructure:"schedule"`
	Sources    SourcesConfig    `mapstructure:"sources"`
}

// AppConfig holds process-level settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
}

// ServerConfig configures the read API.
type ServerConfig struct {
	Address      string        `mapstructure:"address"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Empty feed policies.
const (
	EmptyFeedFallback = "fallback"
	EmptyFeedAccept   = "accept"
)

// FetchConfig configures RSS/Atom fetching.
type FetchConfig struct {
	Timeout         time.Duration `mapstructure:"timeout"`
	MaxAttempts     int           `mapstructure:"max_attempts"`
	BackoffBase     time.Duration `mapstructure:"backoff_base"`
	MaxBackoff      time.Duration `mapstructure:"max_backoff"`
	EmptyFeedPolicy string        `mapstructure:"empty_feed_policy"`
	UserAgents      []string      `mapstructure:"user_agents"`
}

// ScrapeConfig configures the HTML scraper.
type ScrapeConfig struct {
	Timeout   time.Duration `mapstructure:"timeout"`
	SitesFile string        `mapstructure:"sites_file"`
}

// NewsAPIConfig configures the budgeted news API client.
type NewsAPIConfig struct {
	Enabled           bool              `mapstructure:"enabled"`
	BaseURL           string            `mapstructure:"base_url"`
	APIKey            string            `mapstructure:"api_key"`
	Language          string            `mapstructure:"language"`
	Country           string            `mapstructure:"country"`
	MaxPageSize       int               `mapstructure:"max_page_size"`
	DailyCreditLimit  int               `mapstructure:"daily_credit_limit"`
	ArticlesPerCredit int               `mapstructure:"articles_per_credit"`
	MinInterval       time.Duration     `mapstructure:"min_interval"`
	RateLimitCooldown time.Duration     `mapstructure:"rate_limit_cooldown"`
	Timeout           time.Duration     `mapstructure:"timeout"`
	Queries           map[string]string `mapstructure:"queries"`
}

// Budget cache backends.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendNone  = "none"
)

// CacheConfig configures both cache tiers.
type CacheConfig struct {
	MemoryTTL            time.Duration            `mapstructure:"memory_ttl"`
	MemoryMaxEntries     int                      `mapstructure:"memory_max_entries"`
	StaleWhileRevalidate bool                     `mapstructure:"stale_while_revalidate"`
	Backend              string                   `mapstructure:"backend"`
	FilePath             string                   `mapstructure:"file_path"`
	DefaultTTL           time.Duration            `mapstructure:"default_ttl"`
	EmergencyTTL         time.Duration            `mapstructure:"emergency_ttl"`
	SoftThreshold        float64                  `mapstructure:"soft_threshold"`
	CategoryTTL          map[string]time.Duration `mapstructure:"category_ttl"`
}

// ModerationConfig configures the moderation engine.
type ModerationConfig struct {
	MinQualityScore     float64            `mapstructure:"min_quality_score"`
	DuplicateThreshold  float64            `mapstructure:"duplicate_threshold"`
	ReliabilityCacheTTL time.Duration      `mapstructure:"reliability_cache_ttl"`
	Reliability         map[string]float64 `mapstructure:"reliability"`
}

// AggregatorConfig configures the orchestrator.
type AggregatorConfig struct {
	TargetArticles int      `mapstructure:"target_articles"`
	BatchSize      int      `mapstructure:"batch_size"`
	APIConcurrency int      `mapstructure:"api_concurrency"`
	APILimit       int      `mapstructure:"api_limit"`
	IncludeScrape  bool     `mapstructure:"include_scrape"`
	Categories     []string `mapstructure:"categories"`
}

// RedisConfig configures the Redis budget store.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Key      string `mapstructure:"key"`
}

// ScheduleConfig configures the serve-mode refresh job.
type ScheduleConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Cron    string `mapstructure:"cron"`
}

// SourcesConfig points at the optional registry override file.
type SourcesConfig struct {
	File  string `mapstructure:"file"`
	Watch bool   `mapstructure:"watch"`
}

// Load reads configuration. An empty path searches ./config.yaml and
// ./config/config.yaml; a missing file is not an error in that case.
// An explicit path must exist.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	if err := bindEnv(v); err != nil {
		return nil, err
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if cfg.App.Debug {
		cfg.Logger.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// bindEnv maps secrets and well-known variables to config keys.
func bindEnv(v *viper.Viper) error {
	bindings := map[string][]string{
		"app.environment":   {"APP_ENV"},
		"app.debug":         {"APP_DEBUG"},
		"logger.level":      {"LOG_LEVEL"},
		"logger.format":     {"LOG_FORMAT"},
		"newsapi.api_key":   {"NEWSAPI_KEY", "NEWSDATA_API_KEY"},
		"redis.address":     {"REDIS_ADDRESS", "REDIS_ADDR"},
		"redis.password":    {"REDIS_PASSWORD"},
		"server.address":    {"SERVER_ADDRESS"},
		"sources.file":      {"SOURCES_FILE"},
		"scrape.sites_file": {"SCRAPE_SITES_FILE"},
	}
	for key, envs := range bindings {
		args := append([]string{key}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return fmt.Errorf("bind %s: %w", key, err)
		}
	}
	return nil
}
