package domain

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold normalizes text for matching: lowercased, accents stripped, outer
// whitespace trimmed. "Recogidas" and "recógidas" fold to the same key.
// Stop search and menu-label matching both go through here so the two
// never disagree on what counts as a match.
func Fold(s string) string {
	// transform.Chain transformers carry state, so build one per call
	// rather than sharing a package-level instance across goroutines.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(strings.TrimSpace(folded))
}
