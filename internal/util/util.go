// internal/util/util.go
// Package util holds text helpers shared by the terminal front ends.
package util

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// TruncateRunes truncates a string to a maximum number of runes,
// appending an ellipsis if truncated.
func TruncateRunes(text string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	if utf8.RuneCountInString(text) <= maxRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[:maxRunes]) + "…"
}

// Preview collapses runs of whitespace to single spaces and truncates the
// result to maxRunes, for one-line passage previews.
func Preview(text string, maxRunes int) string {
	return TruncateRunes(strings.Join(strings.Fields(text), " "), maxRunes)
}

var (
	slugInvalid = regexp.MustCompile(`[^a-z0-9_]+`)
	slugDashes  = regexp.MustCompile(`-+`)
)

// Slugify converts a string into a filesystem-friendly "slug",
// replacing colons (:) with underscores (_).
func Slugify(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, ":", "_")
	s = slugInvalid.ReplaceAllString(s, "-")
	s = slugDashes.ReplaceAllString(s, "-")
	return strings.Trim(s, "-_")
}
