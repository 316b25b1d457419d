package domain

import (
	"regexp"
	"strings"
)

// Pair is an ordered (source, target) language combination.
// (A, B) and (B, A) are distinct pairs with independent tables.
type Pair struct {
	Source string
	Target string
}

func (p Pair) String() string { return p.Source + "->" + p.Target }

// Reverse swaps source and target.
func (p Pair) Reverse() Pair { return Pair{Source: p.Target, Target: p.Source} }

var langCodeRe = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)

// NormalizeLangCode trims and lowercases a language code.
func NormalizeLangCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// ValidLangCode reports whether code is a plausible wiki language code
// ("sk", "zh-yue", "be_x_old"). Codes must already be normalized.
func ValidLangCode(code string) bool {
	return langCodeRe.MatchString(code)
}
