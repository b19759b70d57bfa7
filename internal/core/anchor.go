package core

import (
	"strings"
	"unicode"
)

// AnchorFunc derives the in-document anchor of a heading text.
type AnchorFunc func(heading string) string

// HeadingToAnchor is the default AnchorFunc: lowercase, each whitespace run
// becomes "-", punctuation is dropped, and leading or trailing hyphens are
// trimmed. "Old Title!" becomes "old-title".
func HeadingToAnchor(heading string) string {
	var b strings.Builder
	inSpace := false
	for _, r := range strings.ToLower(strings.TrimSpace(heading)) {
		if unicode.IsSpace(r) {
			if !inSpace {
				b.WriteByte('-')
			}
			inSpace = true
			continue
		}
		inSpace = false
		if r == '-' || r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r) {
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "-")
}
