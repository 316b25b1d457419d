package titleindex

import (
	"math"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// DefaultMinSimilarity is the lowest similarity a suggestion may have.
const DefaultMinSimilarity = 0.75

// Similarity returns 1 - dist/max(len) over runes of two normalized titles.
func Similarity(a, b string) float64 {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	longest := max(la, lb)
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}

// Suggester picks the closest title to a normalized query among offered
// candidates. Higher similarity wins; ties go to the lexicographically
// smallest display title.
type Suggester struct {
	query string
	qlen  int
	min   float64

	best      string
	bestScore float64
	found     bool
}

// NewSuggester creates a Suggester for an already normalized query.
func NewSuggester(normalizedQuery string, minSimilarity float64) *Suggester {
	return &Suggester{
		query: normalizedQuery,
		qlen:  utf8.RuneCountInString(normalizedQuery),
		min:   minSimilarity,
	}
}

// LengthWindow returns the rune lengths a candidate must fall in for its
// similarity to possibly reach the minimum.
func (s *Suggester) LengthWindow() (lo, hi int) {
	if s.min <= 0 {
		return 0, math.MaxInt32
	}
	lo = int(math.Ceil(float64(s.qlen) * s.min))
	hi = int(math.Floor(float64(s.qlen) / s.min))
	return lo, hi
}

// Offer scores one candidate.
func (s *Suggester) Offer(normalized, display string) {
	if s.query == "" || normalized == "" {
		return
	}
	n := utf8.RuneCountInString(normalized)
	if lo, hi := s.LengthWindow(); n < lo || n > hi {
		return
	}

	score := Similarity(s.query, normalized)
	if score < s.min {
		return
	}
	if !s.found || score > s.bestScore || (score == s.bestScore && display < s.best) {
		s.best, s.bestScore, s.found = display, score, true
	}
}

// Result returns the best display title, if any candidate qualified.
func (s *Suggester) Result() (string, bool) {
	return s.best, s.found
}
