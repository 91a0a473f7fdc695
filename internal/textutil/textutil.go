// Package textutil holds whitespace and truncation helpers shared by the
// parser and the summarizer. All budgets are rune counts, not bytes, since
// most of the text flowing through here is CJK.
package textutil

import (
	"strings"
	"unicode/utf8"
)

// Ellipsis marks truncation performed off a clause boundary.
const Ellipsis = "..."

// clauseSeps are searched in order when truncating at a boundary. ASCII
// separators require the trailing space so decimals like "3.5" survive.
var clauseSeps = []string{". ", "。", "；", "; ", ", ", "，"}

// Normalize collapses every whitespace run (newlines and tabs included) to a
// single space and trims both ends. Idempotent.
func Normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// TruncateChars normalizes s and cuts it to at most limit runes, trimming
// trailing spaces. No ellipsis is added.
func TruncateChars(s string, limit int) string {
	s = Normalize(s)
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return strings.TrimRight(string(runes[:limit]), " ")
}

// TruncateAtBoundary cuts s to at most limit runes, preferring to break after
// a sentence or clause separator. A separator only qualifies when it sits
// past the first third of the limit, otherwise too much text would be lost.
// Falls back to the last space, then to a hard cut; both fallbacks append an
// ellipsis marker.
func TruncateAtBoundary(s string, limit int) string {
	s = Normalize(s)
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}

	chunk := string(runes[:limit])
	for _, sep := range clauseSeps {
		pos := strings.LastIndex(chunk, sep)
		if pos < 0 {
			continue
		}
		if utf8.RuneCountInString(chunk[:pos]) > limit/3 {
			return strings.TrimRight(chunk[:pos+len(sep)], " ")
		}
	}

	if pos := strings.LastIndex(chunk, " "); pos > 0 && utf8.RuneCountInString(chunk[:pos]) > limit/3 {
		return strings.TrimRight(chunk[:pos], " ") + Ellipsis
	}

	return strings.TrimRight(chunk, " ") + Ellipsis
}
