package scrape

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

var dateLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"January 2, 2006",
	"2 January 2006",
	"Jan 2, 2006",
	"02/01/2006 15:04",
}

// relativePattern matches English and Indonesian "N units ago" phrases.
var relativePattern = regexp.MustCompile(
	`(?i)^(\d+|an?|one|se)\s*(second|sec|minute|min|hour|hr|day|week|month|year|detik|menit|jam|hari|minggu|bulan|tahun)s?\s+(ago|yang lalu|lalu)$`,
)

var unitDurations = map[string]time.Duration{
	"second": time.Second,
	"sec":    time.Second,
	"detik":  time.Second,
	"minute": time.Minute,
	"min":    time.Minute,
	"menit":  time.Minute,
	"hour":   time.Hour,
	"hr":     time.Hour,
	"jam":    time.Hour,
	"day":    24 * time.Hour,
	"hari":   24 * time.Hour,
	"week":   7 * 24 * time.Hour,
	"minggu": 7 * 24 * time.Hour,
	"month":  30 * 24 * time.Hour,
	"bulan":  30 * 24 * time.Hour,
	"year":   365 * 24 * time.Hour,
	"tahun":  365 * 24 * time.Hour,
}

// maxRelativeAge bounds "N units ago"; larger offsets are not dates.
const maxRelativeAge = 100 * 365 * 24 * time.Hour

// ParseDate reads a scraped date string. Absolute formats are tried first,
// then relative phrases such as "3 hours ago" or "yesterday". Anything
// unparseable yields now.
func ParseDate(raw string, now time.Time) time.Time {
	s := strings.TrimSpace(raw)
	if s == "" {
		return now
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	if t, err := dateparse.ParseAny(s); err == nil {
		return t
	}
	if t, ok := parseRelative(s, now); ok {
		return t
	}
	return now
}

func parseRelative(s string, now time.Time) (time.Time, bool) {
	lower := strings.Join(strings.Fields(strings.ToLower(s)), " ")

	switch lower {
	case "just now", "now", "today", "baru saja", "hari ini":
		return now, true
	case "yesterday", "kemarin":
		return now.Add(-24 * time.Hour), true
	}

	m := relativePattern.FindStringSubmatch(lower)
	if m == nil {
		return time.Time{}, false
	}

	n := 1
	switch m[1] {
	case "a", "an", "one", "se":
	default:
		v, err := strconv.Atoi(m[1])
		if err != nil {
			return time.Time{}, false
		}
		n = v
	}
	unit := unitDurations[m[2]]
	if time.Duration(n) > maxRelativeAge/unit {
		return time.Time{}, false
	}
	return now.Add(-time.Duration(n) * unit), true
}
