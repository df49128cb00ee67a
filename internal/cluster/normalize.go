package cluster

import (
	"regexp"
	"strings"
)

var (
	whitespaceRe  = regexp.MustCompile(`\s+`)
	punctuationRe = regexp.MustCompile(`[^\w\s]`)
)

// NormalizeTitle canonicalizes a headline for comparison: lower-case,
// collapsed whitespace, punctuation stripped. An empty or all-punctuation
// title normalizes to the empty string.
func NormalizeTitle(title string) string {
	t := punctuationRe.ReplaceAllString(strings.ToLower(title), "")
	t = whitespaceRe.ReplaceAllString(t, " ")
	return strings.TrimSpace(t)
}
