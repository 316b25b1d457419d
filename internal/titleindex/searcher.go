package titleindex

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/heartmarshall/wikititles/internal/domain"
)

// Searcher serves queries for many languages from one Store, opening each
// language's reader on first use and keeping it until Close.
type Searcher struct {
	store Store

	mu      sync.Mutex
	readers map[string]Reader
}

// NewSearcher creates a Searcher over store.
func NewSearcher(store Store) *Searcher {
	return &Searcher{store: store, readers: make(map[string]Reader)}
}

// Query returns pages of lang whose title contains every token of text.
func (s *Searcher) Query(ctx context.Context, lang, text string) ([]domain.TitleMatch, error) {
	r, err := s.reader(ctx, lang)
	if err != nil {
		return nil, err
	}
	return r.Query(ctx, text)
}

// Suggest returns the closest title of lang to text.
func (s *Searcher) Suggest(ctx context.Context, lang, text string) (string, bool, error) {
	r, err := s.reader(ctx, lang)
	if err != nil {
		return "", false, err
	}
	return r.Suggest(ctx, text)
}

func (s *Searcher) reader(ctx context.Context, lang string) (Reader, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r, ok := s.readers[lang]; ok {
		return r, nil
	}
	r, err := s.store.OpenReader(ctx, lang)
	if err != nil {
		return nil, fmt.Errorf("open %s index: %w", lang, err)
	}
	s.readers[lang] = r
	return r, nil
}

// Close closes every open reader.
func (s *Searcher) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for lang, r := range s.readers {
		if err := r.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s index: %w", lang, err))
		}
		delete(s.readers, lang)
	}
	return errors.Join(errs...)
}
