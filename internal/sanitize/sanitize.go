// Package sanitize turns upstream HTML fragments into plain text.
package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// Text strips every tag, decodes entities and collapses whitespace.
func Text(s string) string {
	if s == "" {
		return ""
	}
	return Collapse(html.UnescapeString(strict.Sanitize(s)))
}

// Collapse trims s and folds whitespace runs into single spaces.
func Collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
