package sanitizer

import (
	"strings"
	"unicode"
)

// TrimAndNormalize trims s and collapses every inner whitespace run to a
// single space.
func TrimAndNormalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeDescription also drops control characters other than whitespace.
func NormalizeDescription(description string) string {
	return TrimAndNormalize(strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return -1
		}
		return r
	}, description))
}

// NormalizeID joins the words of id with dashes, so "villa 1" and "villa-1"
// address the same property.
func NormalizeID(id string) string {
	return strings.Join(strings.Fields(id), "-")
}
