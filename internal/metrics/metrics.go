// Package metrics exports Prometheus collectors for the aggregation pipeline.
//
// A nil *Metrics is valid; every recorder is a no-op on nil so components can
// be built without a registry in tests.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "newsgate"

// Metrics holds the pipeline collectors.
type Metrics struct {
	registry *prometheus.Registry

	// Fetch metrics
	FeedAttempts *prometheus.CounterVec
	FeedOutcomes *prometheus.CounterVec

	// Scrape metrics
	ScrapeArticles *prometheus.CounterVec
	ScrapeFailures *prometheus.CounterVec

	// Cache metrics
	CacheLookups *prometheus.CounterVec

	// Budget metrics
	CreditsUsed      prometheus.Gauge
	CreditsRemaining prometheus.Gauge
	APIRequests      *prometheus.CounterVec

	// Moderation metrics
	ModerationDecisions *prometheus.CounterVec
	ModerationFlags     *prometheus.CounterVec

	// Run metrics
	RunDuration prometheus.Histogram
	RunArticles prometheus.Gauge
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.NewRegistry())
}

// NewWithRegistry registers every collector on reg.
func NewWithRegistry(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{registry: reg}
	initFetchMetrics(factory, m)
	initCacheMetrics(factory, m)
	initBudgetMetrics(factory, m)
	initModerationMetrics(factory, m)
	initRunMetrics(factory, m)
	return m
}

func initFetchMetrics(f promauto.Factory, m *Metrics) {
	m.FeedAttempts = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "feed_attempts_total",
		Help:      "Feed fetch attempts by source",
	}, []string{"source"})

	m.FeedOutcomes = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "feed_outcomes_total",
		Help:      "Feed fetch outcomes by source and kind (ok, cached, not_modified, fallback, timeout, ...)",
	}, []string{"source", "kind"})

	m.ScrapeArticles = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scrape_articles_total",
		Help:      "Articles extracted by the scraper per site",
	}, []string{"site"})

	m.ScrapeFailures = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scrape_failures_total",
		Help:      "Failed site scrapes",
	}, []string{"site"})
}

func initCacheMetrics(f promauto.Factory, m *Metrics) {
	m.CacheLookups = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_lookups_total",
		Help:      "Cache lookups by tier and result (hit, stale, miss)",
	}, []string{"tier", "result"})
}

func initBudgetMetrics(f promauto.Factory, m *Metrics) {
	m.CreditsUsed = f.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "api_credits_used",
		Help:      "Credits spent today",
	})

	m.CreditsRemaining = f.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "api_credits_remaining",
		Help:      "Credits remaining today",
	})

	m.APIRequests = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "api_requests_total",
		Help:      "Budgeted API requests by outcome",
	}, []string{"outcome"})
}

func initModerationMetrics(f promauto.Factory, m *Metrics) {
	m.ModerationDecisions = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "moderation_decisions_total",
		Help:      "Moderation decisions (approved, rejected)",
	}, []string{"decision"})

	m.ModerationFlags = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "moderation_flags_total",
		Help:      "Moderation flags raised by type",
	}, []string{"type"})
}

func initRunMetrics(f promauto.Factory, m *Metrics) {
	m.RunDuration = f.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "run_duration_seconds",
		Help:      "Aggregation run duration",
		Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
	})

	m.RunArticles = f.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "run_articles",
		Help:      "Articles emitted by the latest run",
	})
}

// Handler returns the /metrics handler for this registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordFeedAttempt counts one fetch attempt for source.
func (m *Metrics) RecordFeedAttempt(source string) {
	if m == nil {
		return
	}
	m.FeedAttempts.WithLabelValues(source).Inc()
}

// RecordFeedOutcome counts the final outcome of a source fetch.
func (m *Metrics) RecordFeedOutcome(source, kind string) {
	if m == nil {
		return
	}
	m.FeedOutcomes.WithLabelValues(source, kind).Inc()
}

// RecordScrape counts a site scrape result.
func (m *Metrics) RecordScrape(site string, articles int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.ScrapeFailures.WithLabelValues(site).Inc()
		return
	}
	m.ScrapeArticles.WithLabelValues(site).Add(float64(articles))
}

// RecordCache counts a cache lookup.
func (m *Metrics) RecordCache(tier, result string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(tier, result).Inc()
}

// SetCredits publishes the ledger position.
func (m *Metrics) SetCredits(used, limit int) {
	if m == nil {
		return
	}
	m.CreditsUsed.Set(float64(used))
	m.CreditsRemaining.Set(float64(max(0, limit-used)))
}

// RecordAPIRequest counts a budgeted API request outcome.
func (m *Metrics) RecordAPIRequest(outcome string) {
	if m == nil {
		return
	}
	m.APIRequests.WithLabelValues(outcome).Inc()
}

// RecordModeration counts one decision and its flags.
func (m *Metrics) RecordModeration(approved bool, flagTypes []string) {
	if m == nil {
		return
	}
	decision := "rejected"
	if approved {
		decision = "approved"
	}
	m.ModerationDecisions.WithLabelValues(decision).Inc()
	for _, t := range flagTypes {
		m.ModerationFlags.WithLabelValues(t).Inc()
	}
}

// RecordRun observes a completed aggregation run.
func (m *Metrics) RecordRun(duration time.Duration, articles int) {
	if m == nil {
		return
	}
	m.RunDuration.Observe(duration.Seconds())
	m.RunArticles.Set(float64(articles))
}
