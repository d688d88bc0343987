package moderation

import (
	"fmt"
	"strings"

	ahocorasick "github.com/cloudflare/ahocorasick"
)

const (
	minSpamKeywords    = 2
	minPromoIndicators = 3
	maxExclamations    = 5
	maxQuestions       = 3
	spamPenalty        = 0.6
	punctuationPenalty = 0.2
)

// DefaultSpamKeywords are phrases typical of spam.
var DefaultSpamKeywords = []string{
	"click here", "buy now", "free money", "act now", "limited time",
	"congratulations", "you won", "winner", "casino", "viagra", "earn money",
	"work from home", "100% free", "risk free", "no credit check", "miracle",
	"weight loss", "double your", "crypto giveaway", "make money fast",
}

// DefaultPromoIndicators are phrases typical of promotional copy.
var DefaultPromoIndicators = []string{
	"discount", "sale", "special offer", "deal", "coupon", "promo code",
	"subscribe", "order now", "shop now", "best price", "cheap",
	"free shipping", "save up to", "exclusive offer", "off today",
}

// keywordSet matches whole normalized phrases with Aho-Corasick.
type keywordSet struct {
	words   []string
	matcher *ahocorasick.Matcher
}

func newKeywordSet(words []string) *keywordSet {
	set := &keywordSet{}
	seen := make(map[string]bool)
	for _, w := range words {
		n := Normalize(w)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		set.words = append(set.words, " "+n+" ")
	}
	if len(set.words) > 0 {
		set.matcher = ahocorasick.NewStringMatcher(set.words)
	}
	return set
}

// matches returns the distinct phrases found in normalized text.
func (s *keywordSet) matches(text string) []string {
	if s.matcher == nil {
		return nil
	}
	hits := s.matcher.MatchThreadSafe([]byte(" " + text + " "))
	seen := make(map[int]bool, len(hits))
	out := make([]string, 0, len(hits))
	for _, idx := range hits {
		if idx < 0 || idx >= len(s.words) || seen[idx] {
			continue
		}
		seen[idx] = true
		out = append(out, strings.TrimSpace(s.words[idx]))
	}
	return out
}

// spamDetector flags keyword and punctuation spam.
type spamDetector struct {
	spam  *keywordSet
	promo *keywordSet
}

func newSpamDetector(spam, promo []string) *spamDetector {
	return &spamDetector{spam: newKeywordSet(spam), promo: newKeywordSet(promo)}
}

func (d *spamDetector) check(title, description string) []Flag {
	raw := title + " " + description
	text := Normalize(raw)
	var flags []Flag

	if hits := d.spam.matches(text); len(hits) >= minSpamKeywords {
		flags = append(flags, Flag{
			Type:        FlagSpam,
			Severity:    SeverityHigh,
			Confidence:  min(1, 0.5+0.1*float64(len(hits))),
			Description: fmt.Sprintf("spam keywords: %s", strings.Join(hits, ", ")),
			Penalty:     spamPenalty,
		})
	}
	if hits := d.promo.matches(text); len(hits) >= minPromoIndicators {
		flags = append(flags, Flag{
			Type:        FlagSpam,
			Severity:    SeverityHigh,
			Confidence:  min(1, 0.4+0.1*float64(len(hits))),
			Description: fmt.Sprintf("promotional content: %s", strings.Join(hits, ", ")),
			Penalty:     spamPenalty,
		})
	}

	excl, quest := strings.Count(raw, "!"), strings.Count(raw, "?")
	if excl > maxExclamations || quest > maxQuestions {
		flags = append(flags, Flag{
			Type:        FlagSpam,
			Severity:    SeverityMedium,
			Confidence:  0.5,
			Description: fmt.Sprintf("excessive punctuation (%d !, %d ?)", excl, quest),
			Penalty:     punctuationPenalty,
		})
	}
	return flags
}
