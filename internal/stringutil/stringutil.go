// Package stringutil has small string helpers shared by the config reader,
// the sql builder glue, and the templates.
package stringutil

import (
	"strings"
	"unicode"
)

// PascalToSnake turns "PascalCase" into "pascal_case". Runs of capitals are
// kept together, so "APIKey" becomes "api_key" rather than "a_p_i_key".
func PascalToSnake(s string) string {
	var b strings.Builder

	for i, c := range s {
		if !unicode.IsUpper(c) {
			b.WriteRune(c)
			continue
		}

		if i > 0 && (unicode.IsLower(rune(s[i-1])) || (i+1 < len(s) && unicode.IsLower(rune(s[i+1])))) {
			b.WriteByte('_')
		}

		b.WriteRune(unicode.ToLower(c))
	}

	return b.String()
}

// PascalToTitle turns "PascalCase" into "Pascal Case" for display. Word
// boundaries follow the same rules as PascalToSnake, so "ChannelID" becomes
// "Channel ID".
func PascalToTitle(s string) string {
	var b strings.Builder

	for i, c := range s {
		if unicode.IsUpper(c) && i > 0 && (unicode.IsLower(rune(s[i-1])) || (i+1 < len(s) && unicode.IsLower(rune(s[i+1])))) {
			b.WriteByte(' ')
		}

		b.WriteRune(c)
	}

	return b.String()
}

// LooksTrue reports whether s reads as an affirmative value. The upstream API
// sends booleans as strings in a few places, so this is deliberately lenient.
func LooksTrue(s string) bool {
	switch strings.ToLower(s) {
	case "true", "yes", "1", "on", "enabled", "enable", "active", "ok", "okay":
		return true
	default:
		return false
	}
}
