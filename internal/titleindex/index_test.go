package titleindex

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/heartmarshall/wikititles/internal/domain"
)

func samplePages() []domain.Page {
	return []domain.Page{
		{ID: 30, Title: "Bratislava", Lang: "sk"},
		{ID: 12, Title: "Bratislavský_kraj", Lang: "sk"},
		{ID: 12, Title: "Bratislava", Lang: "sk"},
		{ID: 7, Title: "Nonexistent", Lang: "sk"},
		{ID: 8, Title: "Nonexistent_band", Lang: "sk"},
		{ID: 40, Title: "Rock'n'roll", Lang: "sk"},
		{ID: 41, Namespace: 14, Title: "Mestá_na_Slovensku", Lang: "sk"},
	}
}

func TestIndex_Query(t *testing.T) {
	t.Parallel()

	ix := Build(samplePages())

	tests := []struct {
		name  string
		query string
		want  []domain.TitleMatch
	}{
		{
			name:  "duplicates kept and sorted by id",
			query: "bratislava",
			want: []domain.TitleMatch{
				{PageID: 12, Title: "Bratislava"},
				{PageID: 30, Title: "Bratislava"},
			},
		},
		{
			name:  "all tokens required",
			query: "Nonexistent band",
			want:  []domain.TitleMatch{{PageID: 8, Title: "Nonexistent band"}},
		},
		{
			name:  "accent insensitive",
			query: "BRATISLAVSKY kraj",
			want:  []domain.TitleMatch{{PageID: 12, Title: "Bratislavský kraj"}},
		},
		{
			name:  "token order irrelevant",
			query: "slovensku mesta",
			want:  []domain.TitleMatch{{PageID: 41, Title: "Mestá na Slovensku"}},
		},
		{
			name:  "raw title form",
			query: "Mestá_na_Slovensku",
			want:  []domain.TitleMatch{{PageID: 41, Title: "Mestá na Slovensku"}},
		},
		{name: "unknown token", query: "bratislava zzz", want: nil},
		{name: "empty query", query: "", want: nil},
		{name: "punctuation only", query: "::", want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ix.Query(tt.query))
		})
	}
}

func TestIndex_Suggest(t *testing.T) {
	t.Parallel()

	ix := Build(samplePages())

	got, ok := ix.Suggest("Nonexistentt")
	assert.True(t, ok)
	assert.Equal(t, "Nonexistent", got)

	_, ok = ix.Suggest("completely different")
	assert.False(t, ok)

	_, ok = ix.Suggest("")
	assert.False(t, ok)
}

func TestIndex_SuggestThreshold(t *testing.T) {
	t.Parallel()

	pages := []domain.Page{{ID: 1, Title: "abcd"}}

	// "abxy" vs "abcd": distance 2 of 4, similarity 0.5.
	_, ok := Build(pages).Suggest("abxy")
	assert.False(t, ok)

	got, ok := Build(pages, WithMinSimilarity(0.5)).Suggest("abxy")
	assert.True(t, ok)
	assert.Equal(t, "abcd", got)
}

func TestIndex_Titles(t *testing.T) {
	t.Parallel()

	ix := Build(samplePages())
	got := ix.Titles([]int64{12, 41, 999})

	assert.Equal(t, map[int64]string{12: "Bratislavský kraj", 41: "Mestá na Slovensku"}, got)
	assert.Equal(t, 7, ix.Len())
}

func TestSuggester_TieBreak(t *testing.T) {
	t.Parallel()

	s := NewSuggester("cat", 0.5)
	s.Offer("cut", "Cut")
	s.Offer("bat", "Bat")
	s.Offer("cot", "Cot")

	got, ok := s.Result()
	assert.True(t, ok)
	assert.Equal(t, "Bat", got)
}

func TestSuggester_HigherScoreWins(t *testing.T) {
	t.Parallel()

	s := NewSuggester("praha", 0.5)
	s.Offer("prahy", "Prahy")
	s.Offer("praha", "Praha")
	s.Offer("aaaaa", "Aaaaa")

	got, _ := s.Result()
	assert.Equal(t, "Praha", got)
}

func TestSuggester_LengthWindow(t *testing.T) {
	t.Parallel()

	lo, hi := NewSuggester("abcdefgh", 0.75).LengthWindow()
	assert.Equal(t, 6, lo)
	assert.Equal(t, 10, hi)
}

func TestSimilarity(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 1.0, Similarity("", ""), 1e-9)
	assert.InDelta(t, 1.0, Similarity("kun", "kun"), 1e-9)
	assert.InDelta(t, 0.75, Similarity("abcd", "abce"), 1e-9)
	assert.InDelta(t, 0.0, Similarity("ab", "cd"), 1e-9)
}
