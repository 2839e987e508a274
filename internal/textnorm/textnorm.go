// Package textnorm normalises free-text customer messages for keyword matching.
package textnorm

import (
	"strings"
	"unicode"
)

// Text is a normalised message: lowercased, punctuation folded to single
// spaces, and padded with one space on each side so phrases can be matched on
// word boundaries.
type Text string

// Normalize builds a Text from raw input.
func Normalize(raw string) Text {
	var b strings.Builder
	b.Grow(len(raw) + 2)
	b.WriteByte(' ')
	space := true
	for _, r := range strings.ToLower(raw) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	if !space {
		b.WriteByte(' ')
	}
	return Text(b.String())
}

// Has reports whether phrase occurs in t as whole words. The phrase must
// already be lowercase with single spaces.
func (t Text) Has(phrase string) bool {
	if phrase == "" {
		return false
	}
	return strings.Contains(string(t), " "+phrase+" ")
}

// Count returns how many of phrases occur in t.
func (t Text) Count(phrases []string) int {
	n := 0
	for _, p := range phrases {
		if t.Has(p) {
			n++
		}
	}
	return n
}

// HasAny reports whether any of phrases occur in t.
func (t Text) HasAny(phrases []string) bool {
	for _, p := range phrases {
		if t.Has(p) {
			return true
		}
	}
	return false
}

// Empty reports whether t carries no words.
func (t Text) Empty() bool {
	return strings.TrimSpace(string(t)) == ""
}
