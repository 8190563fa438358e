package search

import (
	"strings"
	"unicode"
)

// splitWords lowercases text and splits it on every non-alphanumeric rune.
func splitWords(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
