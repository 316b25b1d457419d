package partition

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/wikititles/internal/domain"
)

// --- mocks ---

type memSink[T any] struct {
	rows     []T
	closed   bool
	aborted  bool
	writeErr error
	closeErr error
}

func (s *memSink[T]) Write(row T) error {
	if s.writeErr != nil {
		return s.writeErr
	}
	s.rows = append(s.rows, row)
	return nil
}

func (s *memSink[T]) Close() error {
	s.closed = true
	return s.closeErr
}

func (s *memSink[T]) Abort() error {
	s.aborted = true
	return nil
}

type memFactory struct {
	pages    map[string]*memSink[domain.Page]
	links    map[domain.Pair]*memSink[domain.LangLink]
	closeErr map[string]error
	openErr  error
}

func newMemFactory() *memFactory {
	return &memFactory{
		pages:    make(map[string]*memSink[domain.Page]),
		links:    make(map[domain.Pair]*memSink[domain.LangLink]),
		closeErr: make(map[string]error),
	}
}

func (f *memFactory) PageSink(lang string) (Sink[domain.Page], error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	s := &memSink[domain.Page]{closeErr: f.closeErr[lang]}
	f.pages[lang] = s
	return s, nil
}

func (f *memFactory) LinkSink(pair domain.Pair) (Sink[domain.LangLink], error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	s := &memSink[domain.LangLink]{closeErr: f.closeErr[pair.String()]}
	f.links[pair] = s
	return s, nil
}

// --- tests ---

func TestRegistry_RoutesByType(t *testing.T) {
	t.Parallel()

	f := newMemFactory()
	r := NewRegistry(f)

	recs := []domain.Record{
		domain.Page{ID: 1, Title: "Praha", Lang: "cs"},
		domain.LangLink{PageID: 1, SourceLang: "cs", TargetLang: "en", TargetTitle: "Prague"},
		domain.LangLink{PageID: 1, SourceLang: "cs", TargetLang: "de", TargetTitle: "Prag"},
		domain.LangLink{PageID: 1, SourceLang: "cs", TargetLang: "en", TargetTitle: "Prague (city)"},
		domain.Page{ID: 2, Title: "Brno", Lang: "cs"},
	}
	for _, rec := range recs {
		require.NoError(t, r.Add(rec))
	}
	require.NoError(t, r.Close())

	assert.Len(t, f.pages["cs"].rows, 2)
	assert.Len(t, f.links[domain.Pair{Source: "cs", Target: "en"}].rows, 2, "duplicate links for one page are kept")
	assert.Len(t, f.links[domain.Pair{Source: "cs", Target: "de"}].rows, 1)
	assert.True(t, f.pages["cs"].closed)

	assert.Equal(t, []string{"de", "en"}, r.Targets())
	assert.Equal(t, []Count{
		{Key: "page/cs", Rows: 2},
		{Key: "langlinks/cs/to_en", Rows: 2},
		{Key: "langlinks/cs/to_de", Rows: 1},
	}, r.Counts())
}

func TestRegistry_CloseIsolatesFailures(t *testing.T) {
	t.Parallel()

	f := newMemFactory()
	f.closeErr["cs->en"] = errors.New("disk full")
	r := NewRegistry(f)

	require.NoError(t, r.Add(domain.LangLink{PageID: 1, SourceLang: "cs", TargetLang: "en", TargetTitle: "A"}))
	require.NoError(t, r.Add(domain.LangLink{PageID: 1, SourceLang: "cs", TargetLang: "de", TargetTitle: "B"}))
	require.NoError(t, r.Add(domain.Page{ID: 1, Title: "A", Lang: "cs"}))

	err := r.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "langlinks/cs/to_en")
	assert.Contains(t, err.Error(), "disk full")

	assert.True(t, f.links[domain.Pair{Source: "cs", Target: "de"}].closed)
	assert.True(t, f.pages["cs"].closed)

	assert.NoError(t, r.Close(), "second close is a no-op")
	assert.Error(t, r.Add(domain.Page{ID: 2, Lang: "cs"}))
}

func TestRegistry_Abort(t *testing.T) {
	t.Parallel()

	f := newMemFactory()
	r := NewRegistry(f)
	require.NoError(t, r.Add(domain.Page{ID: 1, Title: "Oulu", Lang: "fi"}))

	require.NoError(t, r.Abort())
	assert.True(t, f.pages["fi"].aborted)
	assert.False(t, f.pages["fi"].closed)
}

func TestRegistry_OpenError(t *testing.T) {
	t.Parallel()

	f := newMemFactory()
	f.openErr = errors.New("permission denied")
	r := NewRegistry(f)

	err := r.Add(domain.Page{ID: 1, Lang: "sk"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open page sink sk")
}

type bogusRecord struct{ domain.Page }

func TestRegistry_UnsupportedRecord(t *testing.T) {
	t.Parallel()

	r := NewRegistry(newMemFactory())
	assert.Error(t, r.Add(bogusRecord{}))
}
