// Package normalize canonicalizes identity fields before they are stored
// or compared.
package normalize

import (
	"strings"
	"unicode/utf8"
)

// Email lowercases and trims an address. Uniqueness is enforced on this form.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims and collapses internal whitespace runs.
func Name(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// MaxQueryRunes caps a search query, counted in characters.
const MaxQueryRunes = 200

// QueryParam trims a raw query value. It never shortens the query; callers
// reject values that fail QueryFits.
func QueryParam(s string) string {
	return strings.TrimSpace(s)
}

// QueryFits reports whether s is valid UTF-8 and at most MaxQueryRunes long.
func QueryFits(s string) bool {
	return utf8.ValidString(s) && utf8.RuneCountInString(s) <= MaxQueryRunes
}
