package domain

import "strings"

// DisplayTitle converts a raw dump title to its display form: underscores
// become spaces and surrounding whitespace is trimmed.
func DisplayTitle(raw string) string {
	return strings.TrimSpace(strings.ReplaceAll(raw, "_", " "))
}

// ColonCount returns the number of colons in a title. Namespace prefixes are
// colon-delimited, so a translation with more colons than its source title
// carries a prefix the source does not.
func ColonCount(title string) int {
	return strings.Count(title, ":")
}
