// Package slug derives URL-safe identifiers from titles.
package slug

import (
	"regexp"
	"strings"
)

var (
	disallowed = regexp.MustCompile(`[^\w\s-]`)
	whitespace = regexp.MustCompile(`\s+`)
	hyphenRuns = regexp.MustCompile(`-+`)
)

// Make lowercases the title, strips everything outside word characters,
// whitespace and hyphens, then collapses whitespace runs and repeated
// hyphens into single hyphens.
func Make(title string) string {
	s := strings.ToLower(title)
	s = disallowed.ReplaceAllString(s, "")
	s = whitespace.ReplaceAllString(s, "-")
	s = hyphenRuns.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
