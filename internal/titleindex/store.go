package titleindex

import (
	"context"
	"fmt"
	"sync"

	"github.com/heartmarshall/wikititles/internal/domain"
)

// Writer accumulates pages for one language. Nothing is visible to readers
// until Commit; Discard drops everything written so far.
type Writer interface {
	Add(ctx context.Context, pages ...domain.Page) error
	Commit(ctx context.Context) error
	Discard() error
}

// Reader serves queries against a committed index.
type Reader interface {
	Query(ctx context.Context, text string) ([]domain.TitleMatch, error)
	Suggest(ctx context.Context, text string) (string, bool, error)
	Titles(ctx context.Context, ids []int64) (map[int64]string, error)
	Close() error
}

// Store persists one index per language.
type Store interface {
	Exists(lang string) bool
	OpenWriter(ctx context.Context, lang string) (Writer, error)
	OpenReader(ctx context.Context, lang string) (Reader, error)
}

// MemoryStore keeps indexes in process. It is safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	indexes map[string]*Index
	opts    []Option
}

// NewMemoryStore creates an empty MemoryStore. opts apply to every built index.
func NewMemoryStore(opts ...Option) *MemoryStore {
	return &MemoryStore{indexes: make(map[string]*Index), opts: opts}
}

func (s *MemoryStore) Exists(lang string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.indexes[lang]
	return ok
}

func (s *MemoryStore) OpenWriter(_ context.Context, lang string) (Writer, error) {
	return &memoryWriter{store: s, lang: lang}, nil
}

func (s *MemoryStore) OpenReader(_ context.Context, lang string) (Reader, error) {
	s.mu.RLock()
	ix, ok := s.indexes[lang]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("title index %s: %w", lang, domain.ErrDataUnavailable)
	}
	return memoryReader{ix: ix}, nil
}

type memoryWriter struct {
	store *MemoryStore
	lang  string
	pages []domain.Page
	done  bool
}

func (w *memoryWriter) Add(_ context.Context, pages ...domain.Page) error {
	if w.done {
		return fmt.Errorf("title index %s: writer closed", w.lang)
	}
	w.pages = append(w.pages, pages...)
	return nil
}

func (w *memoryWriter) Commit(_ context.Context) error {
	if w.done {
		return fmt.Errorf("title index %s: writer closed", w.lang)
	}
	ix := Build(w.pages, w.store.opts...)
	w.store.mu.Lock()
	w.store.indexes[w.lang] = ix
	w.store.mu.Unlock()
	w.done, w.pages = true, nil
	return nil
}

func (w *memoryWriter) Discard() error {
	w.done, w.pages = true, nil
	return nil
}

type memoryReader struct {
	ix *Index
}

func (r memoryReader) Query(ctx context.Context, text string) ([]domain.TitleMatch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.ix.Query(text), nil
}

func (r memoryReader) Suggest(ctx context.Context, text string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	title, ok := r.ix.Suggest(text)
	return title, ok, nil
}

func (r memoryReader) Titles(ctx context.Context, ids []int64) (map[int64]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.ix.Titles(ids), nil
}

func (memoryReader) Close() error { return nil }
