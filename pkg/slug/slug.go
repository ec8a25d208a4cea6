// Package slug derives URL-safe catalog identifiers from display labels and
// keeps them unique within a run.
package slug

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks decomposes accented characters and removes the combining marks,
// so "Àmbits" folds to "Ambits" before lowercasing.
var stripMarks = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Make converts a display label into a lowercase, ASCII-folded,
// hyphen-delimited identifier. Runs of non-alphanumeric characters collapse
// to a single hyphen and leading/trailing hyphens are stripped, which makes
// Make idempotent: Make(Make(s)) == Make(s).
func Make(value string) string {
	if value == "" {
		return ""
	}

	folded, _, err := transform.String(stripMarks, value)
	if err != nil {
		folded = value
	}

	folded = strings.ToLower(folded)
	folded = strings.ReplaceAll(folded, "&", " and ")

	var b strings.Builder
	b.Grow(len(folded))
	pendingHyphen := false
	for _, r := range folded {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}

	return b.String()
}

// Truncate caps an identifier at max bytes. Identifiers are ASCII after
// Make, so byte truncation never splits a rune.
func Truncate(s string, max int) string {
	if max < 1 {
		max = 1
	}
	if len(s) <= max {
		return s
	}
	return s[:max]
}
