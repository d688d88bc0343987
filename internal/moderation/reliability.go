package moderation

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

const (
	// UnknownReliability scores sources missing from the table.
	UnknownReliability = 0.4

	reliabilityThreshold = 0.5
	unreliablePenalty    = 0.3
	defaultLookupTTL     = 24 * time.Hour
)

// DefaultReliability scores the built-in sources.
func DefaultReliability() map[string]float64 {
	return map[string]float64{
		"newsapi":                 0.7,
		"antara-english":          0.9,
		"antaranews":              0.9,
		"jakarta-globe":           0.8,
		"tempo-english":           0.85,
		"jakarta-post":            0.85,
		"bali-sun":                0.7,
		"coconuts-bali":           0.65,
		"bali-discovery":          0.6,
		"tass-world":              0.6,
		"global-times":            0.55,
		"the-hindu-international": 0.85,
		"agencia-brasil":          0.8,
		"news24-world":            0.75,
		"brics-portal":            0.5,
	}
}

type lookup struct {
	score   float64
	expires time.Time
}

// Reliability scores sources from a table. Lookups are cached per source
// for the TTL, so table updates reach a source once its entry expires.
type Reliability struct {
	ttl time.Duration
	now func() time.Time

	mu     sync.Mutex
	table  map[string]float64
	cached map[string]lookup
}

// NewReliability creates a table. A nil table uses DefaultReliability.
func NewReliability(table map[string]float64, ttl time.Duration, now func() time.Time) *Reliability {
	if table == nil {
		table = DefaultReliability()
	}
	if ttl <= 0 {
		ttl = defaultLookupTTL
	}
	if now == nil {
		now = time.Now
	}
	r := &Reliability{ttl: ttl, now: now, cached: make(map[string]lookup)}
	r.table = normalizeTable(table)
	return r
}

func normalizeTable(table map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(table))
	for name, score := range table {
		out[strings.ToLower(name)] = min(max(score, 0), 1)
	}
	return out
}

// Update replaces the table.
func (r *Reliability) Update(table map[string]float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.table = normalizeTable(table)
}

// Score returns the reliability of source in [0, 1].
func (r *Reliability) Score(source string) float64 {
	key := strings.ToLower(strings.TrimSpace(source))
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	if l, ok := r.cached[key]; ok && now.Before(l.expires) {
		return l.score
	}
	score, ok := r.table[key]
	if !ok {
		score = UnknownReliability
	}
	r.cached[key] = lookup{score: score, expires: now.Add(r.ttl)}
	return score
}

func (r *Reliability) check(source string) []Flag {
	score := r.Score(source)
	if score >= reliabilityThreshold {
		return nil
	}
	return []Flag{{
		Type:        FlagUnreliableSource,
		Severity:    SeverityMedium,
		Confidence:  1 - score,
		Description: fmt.Sprintf("source %q has low reliability (%.2f)", source, score),
		Penalty:     unreliablePenalty,
	}}
}
