// Package sanitize provides text cleanup for user-provided fields.
package sanitize

import (
	"regexp"
	"strings"
)

var (
	htmlTagRegex    = regexp.MustCompile(`<[^>]*>`)
	whitespaceRegex = regexp.MustCompile(`[ \t]+`)
)

// StripHTML removes HTML tags, decodes the common entities and strips any
// tags the decoding revealed.
func StripHTML(s string) string {
	result := htmlTagRegex.ReplaceAllString(s, "")
	result = strings.NewReplacer(
		"&lt;", "<",
		"&gt;", ">",
		"&amp;", "&",
		"&quot;", "\"",
		"&#39;", "'",
	).Replace(result)
	result = htmlTagRegex.ReplaceAllString(result, "")
	return strings.TrimSpace(result)
}

// Text sanitizes free text such as note bodies and follow-up notes.
// Line breaks are kept; runs of spaces collapse to one.
func Text(s string) string {
	return whitespaceRegex.ReplaceAllString(StripHTML(s), " ")
}

// Name sanitizes single-line fields such as person and city names.
func Name(s string) string {
	return strings.Join(strings.Fields(StripHTML(s)), " ")
}

// Email trims and lower-cases an address so it can be compared as a key.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
