package titleindex

import (
	"cmp"
	"slices"
	"strings"

	"github.com/heartmarshall/wikititles/internal/domain"
)

type entry struct {
	id      int64
	display string
	norm    string
	tokens  []string
}

// Index is an immutable in-memory Title Index for one language.
// Duplicate titles with distinct page ids are separate entries.
type Index struct {
	entries       []entry
	postings      map[string][]int
	byID          map[int64]int
	minSimilarity float64
}

// Option configures an Index.
type Option func(*Index)

// WithMinSimilarity sets the similarity threshold used by Suggest.
func WithMinSimilarity(v float64) Option {
	return func(ix *Index) { ix.minSimilarity = v }
}

// Build indexes pages. Raw dump titles are converted to display form.
func Build(pages []domain.Page, opts ...Option) *Index {
	ix := &Index{
		entries:       make([]entry, 0, len(pages)),
		postings:      make(map[string][]int),
		byID:          make(map[int64]int, len(pages)),
		minSimilarity: DefaultMinSimilarity,
	}
	for _, o := range opts {
		o(ix)
	}

	for _, p := range pages {
		display := domain.DisplayTitle(p.Title)
		tokens := Tokens(display)
		e := entry{id: p.ID, display: display, norm: strings.Join(tokens, " "), tokens: tokens}

		pos := len(ix.entries)
		ix.entries = append(ix.entries, e)
		if _, ok := ix.byID[p.ID]; !ok {
			ix.byID[p.ID] = pos
		}
		for _, tok := range uniqueTokens(tokens) {
			ix.postings[tok] = append(ix.postings[tok], pos)
		}
	}
	return ix
}

// Len returns the number of indexed entries.
func (ix *Index) Len() int { return len(ix.entries) }

// Query returns every entry whose title contains all tokens of text,
// sorted by page id then title. An empty query matches nothing.
func (ix *Index) Query(text string) []domain.TitleMatch {
	tokens := uniqueTokens(Tokens(text))
	if len(tokens) == 0 {
		return nil
	}

	// Walk the shortest posting list and check the rest against it.
	lists := make([][]int, 0, len(tokens))
	for _, tok := range tokens {
		l, ok := ix.postings[tok]
		if !ok {
			return nil
		}
		lists = append(lists, l)
	}
	slices.SortFunc(lists, func(a, b []int) int { return cmp.Compare(len(a), len(b)) })

	var out []domain.TitleMatch
	for _, pos := range lists[0] {
		if containsAll(lists[1:], pos) {
			e := ix.entries[pos]
			out = append(out, domain.TitleMatch{PageID: e.id, Title: e.display})
		}
	}
	SortMatches(out)
	return out
}

// Suggest returns the indexed display title closest to text.
func (ix *Index) Suggest(text string) (string, bool) {
	s := NewSuggester(Normalize(text), ix.minSimilarity)
	for _, e := range ix.entries {
		s.Offer(e.norm, e.display)
	}
	return s.Result()
}

// Titles returns display titles for the given page ids. Unknown ids are absent.
func (ix *Index) Titles(ids []int64) map[int64]string {
	out := make(map[int64]string, len(ids))
	for _, id := range ids {
		if pos, ok := ix.byID[id]; ok {
			out[id] = ix.entries[pos].display
		}
	}
	return out
}

// SortMatches orders matches by page id then title.
func SortMatches(m []domain.TitleMatch) {
	slices.SortFunc(m, func(a, b domain.TitleMatch) int {
		if c := cmp.Compare(a.PageID, b.PageID); c != 0 {
			return c
		}
		return cmp.Compare(a.Title, b.Title)
	})
}

func containsAll(lists [][]int, pos int) bool {
	for _, l := range lists {
		if _, ok := slices.BinarySearch(l, pos); !ok {
			return false
		}
	}
	return true
}

func uniqueTokens(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
