package moderation

import (
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jonesrussell/newsgate/internal/domain"
)

const (
	minTitleChars       = 5
	minDescriptionChars = 20
	maxTitleWords       = 20
	minTitleWords       = 3
	maxCapsRatio        = 0.5
)

// checkQuality applies the structural rules to a.
func checkQuality(a domain.Article) []Flag {
	var flags []Flag
	add := func(sev Severity, penalty float64, desc string) {
		flags = append(flags, Flag{
			Type:        FlagLowQuality,
			Severity:    sev,
			Confidence:  1,
			Description: desc,
			Penalty:     penalty,
		})
	}

	title := strings.TrimSpace(a.Title)
	if utf8.RuneCountInString(title) < minTitleChars {
		add(SeverityHigh, 0.5, "title too short")
	}
	if utf8.RuneCountInString(strings.TrimSpace(a.Description)) < minDescriptionChars {
		add(SeverityMedium, 0.3, "description too short")
	}
	if !validLink(a.Link) {
		add(SeverityHigh, 0.4, "missing or malformed link")
	}
	if a.PubDate.IsZero() {
		add(SeverityLow, 0.1, "missing or unparseable publish date")
	}

	switch words := len(strings.Fields(title)); {
	case words > maxTitleWords:
		add(SeverityLow, 0.1, "title too long")
	case words < minTitleWords:
		add(SeverityMedium, 0.2, "title has too few words")
	}

	if capsRatio(title) > maxCapsRatio {
		add(SeverityMedium, 0.2, "title is mostly capitals")
	}
	return flags
}

func validLink(raw string) bool {
	u, err := url.ParseRequestURI(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// capsRatio is the share of upper-case letters among the letters of s.
func capsRatio(s string) float64 {
	letters, upper := 0, 0
	for _, r := range s {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if unicode.IsUpper(r) {
			upper++
		}
	}
	if letters == 0 {
		return 0
	}
	return float64(upper) / float64(letters)
}
