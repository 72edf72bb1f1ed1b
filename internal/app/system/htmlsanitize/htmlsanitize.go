// Package htmlsanitize cleans user-supplied text before it is stored.
// Every free-text field, course descriptions included, is reduced to plain text.
package htmlsanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var plainPolicy = bluemonday.StrictPolicy()

// PlainText strips every tag and unescapes entities, for names, titles,
// categories, descriptions and bios.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(plainPolicy.Sanitize(s)))
}
