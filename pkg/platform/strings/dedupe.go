// Package strings normalizes user-supplied code lists.
package strings

import (
	"strings"
	"unicode"
)

// DedupeFunc maps every element through fn and keeps the first occurrence of each
// mapped value. Empty results are kept so callers can validate them.
//
//	DedupeFunc([]string{" us", "CA", "US "}, StripUpper)
//	// Returns: []string{"US", "CA"}
func DedupeFunc(values []string, fn func(string) string) []string {
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))

	for _, v := range values {
		mapped := fn(v)
		if _, ok := seen[mapped]; ok {
			continue
		}
		seen[mapped] = struct{}{}
		result = append(result, mapped)
	}

	return result
}

// StripWhitespace removes every whitespace rune, including interior ones.
func StripWhitespace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// StripUpper removes all whitespace and upper-cases the remainder.
func StripUpper(s string) string {
	return strings.ToUpper(StripWhitespace(s))
}
