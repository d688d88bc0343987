// Package moderation scores articles for duplication, quality, source
// reliability and spam, and gates them on the result.
package moderation

import (
	"strings"

	"github.com/jonesrussell/newsgate/internal/domain"
)

// FlagType names a moderation finding.
type FlagType string

const (
	FlagDuplicate        FlagType = "duplicate"
	FlagSpam             FlagType = "spam"
	FlagLowQuality       FlagType = "low_quality"
	FlagUnreliableSource FlagType = "unreliable_source"
)

// Severity ranks a flag.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Flag is one finding against an article.
type Flag struct {
	Type        FlagType `json:"type"`
	Severity    Severity `json:"severity"`
	Confidence  float64  `json:"confidence"`
	Description string   `json:"description"`
	// Penalty is subtracted from the article score.
	Penalty float64 `json:"-"`
}

// Result is the moderation decision for one article.
type Result struct {
	Approved bool    `json:"approved"`
	Score    float64 `json:"score"`
	Flags    []Flag  `json:"flags"`
	Reason   string  `json:"reason,omitempty"`
}

// HasSeverity reports whether any flag has severity s.
func (r Result) HasSeverity(s Severity) bool {
	for _, f := range r.Flags {
		if f.Severity == s {
			return true
		}
	}
	return false
}

// HasFlag reports whether any flag has type t.
func (r Result) HasFlag(t FlagType) bool {
	for _, f := range r.Flags {
		if f.Type == t {
			return true
		}
	}
	return false
}

// FlagTypes lists the flag types in order, for metrics.
func (r Result) FlagTypes() []string {
	out := make([]string, 0, len(r.Flags))
	for _, f := range r.Flags {
		out = append(out, string(f.Type))
	}
	return out
}

// BatchResult holds the outcome of ModerateArticles. Results is parallel to
// the input batch.
type BatchResult struct {
	Approved []domain.Article
	Rejected []domain.Article
	Results  []Result
}

// reason joins high-severity descriptions, else medium, else all.
func reason(flags []Flag) string {
	for _, sev := range []Severity{SeverityHigh, SeverityMedium} {
		if d := descriptions(flags, func(f Flag) bool { return f.Severity == sev }); d != "" {
			return d
		}
	}
	return descriptions(flags, func(Flag) bool { return true })
}

func descriptions(flags []Flag, keep func(Flag) bool) string {
	var parts []string
	for _, f := range flags {
		if keep(f) {
			parts = append(parts, f.Description)
		}
	}
	return strings.Join(parts, "; ")
}
