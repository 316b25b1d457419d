package flatfile

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/heartmarshall/wikititles/internal/domain"
	"github.com/heartmarshall/wikititles/internal/titleindex"
)

// row is one (id, title) line of a table.
type row struct {
	id    int64
	title string
}

// table is a loaded page or link table.
type table struct {
	rows []row
	byID map[int64][]int

	searchOnce sync.Once
	search     *titleindex.Index
}

func newTable(rows []row) *table {
	t := &table{rows: rows, byID: make(map[int64][]int, len(rows))}
	for i, r := range rows {
		t.byID[r.id] = append(t.byID[r.id], i)
	}
	return t
}

// index lazily builds a token index over the table's titles.
func (t *table) index() *titleindex.Index {
	t.searchOnce.Do(func() {
		pages := make([]domain.Page, len(t.rows))
		for i, r := range t.rows {
			pages[i] = domain.Page{ID: r.id, Title: r.title}
		}
		t.search = titleindex.Build(pages)
	})
	return t.search
}

// Store reads tables written by SinkFactory. Loaded tables are kept in an
// LRU cache; it is safe for concurrent use.
type Store struct {
	layout Layout
	cache  *lru.Cache[string, *table]
}

// NewStore creates a Store over root caching up to cacheSize tables.
func NewStore(root string, cacheSize int) (*Store, error) {
	cache, err := lru.New[string, *table](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("flatfile: create cache: %w", err)
	}
	return &Store{layout: Layout{Root: root}, cache: cache}, nil
}

// Layout returns the table layout of the store.
func (s *Store) Layout() Layout { return s.layout }

// HasPages reports whether a page table exists for lang.
func (s *Store) HasPages(lang string) bool {
	return fileExists(s.layout.PagePath(lang))
}

// HasPair reports whether a link table exists for pair.
func (s *Store) HasPair(_ context.Context, pair domain.Pair) (bool, error) {
	return fileExists(s.layout.LinkPath(pair)), nil
}

// Languages returns the sorted languages with a page table.
func (s *Store) Languages() ([]string, error) {
	return listTables(s.layout.PageDir(), "")
}

// Targets returns the sorted target languages with a link table from lang.
func (s *Store) Targets(lang string) ([]string, error) {
	return listTables(s.layout.LinkDir(lang), "to_")
}

// LoadPages returns the pages of lang in file order.
func (s *Store) LoadPages(_ context.Context, lang string) ([]domain.Page, error) {
	t, err := s.load(s.layout.PagePath(lang))
	if err != nil {
		return nil, fmt.Errorf("page table %s: %w", lang, err)
	}
	pages := make([]domain.Page, len(t.rows))
	for i, r := range t.rows {
		pages[i] = domain.Page{ID: r.id, Title: r.title, Lang: lang}
	}
	return pages, nil
}

// LoadLinks returns the links of pair in file order.
func (s *Store) LoadLinks(_ context.Context, pair domain.Pair) ([]domain.LangLink, error) {
	t, err := s.load(s.layout.LinkPath(pair))
	if err != nil {
		return nil, fmt.Errorf("link table %s: %w", pair, err)
	}
	links := make([]domain.LangLink, len(t.rows))
	for i, r := range t.rows {
		links[i] = domain.LangLink{PageID: r.id, SourceLang: pair.Source, TargetLang: pair.Target, TargetTitle: r.title}
	}
	return links, nil
}

// Lookup returns every target title linked from each of ids, in file order.
// Ids without links are absent from the result.
func (s *Store) Lookup(_ context.Context, pair domain.Pair, ids []int64) (map[int64][]string, error) {
	t, err := s.load(s.layout.LinkPath(pair))
	if err != nil {
		return nil, fmt.Errorf("link table %s: %w", pair, err)
	}
	out := make(map[int64][]string, len(ids))
	for _, id := range ids {
		if _, done := out[id]; done {
			continue
		}
		for _, i := range t.byID[id] {
			out[id] = append(out[id], t.rows[i].title)
		}
	}
	return out, nil
}

// SearchLinks returns the links of pair whose target title contains every
// token of text, sorted by page id then title.
func (s *Store) SearchLinks(_ context.Context, pair domain.Pair, text string) ([]domain.LinkMatch, error) {
	t, err := s.load(s.layout.LinkPath(pair))
	if err != nil {
		return nil, fmt.Errorf("link table %s: %w", pair, err)
	}
	hits := t.index().Query(text)
	out := make([]domain.LinkMatch, len(hits))
	for i, h := range hits {
		out[i] = domain.LinkMatch{PageID: h.PageID, Title: h.Title}
	}
	return out, nil
}

// Titles returns display titles of lang pages by id. Unknown ids are absent.
func (s *Store) Titles(_ context.Context, lang string, ids []int64) (map[int64]string, error) {
	t, err := s.load(s.layout.PagePath(lang))
	if err != nil {
		return nil, fmt.Errorf("page table %s: %w", lang, err)
	}
	out := make(map[int64]string, len(ids))
	for _, id := range ids {
		if idx := t.byID[id]; len(idx) > 0 {
			out[id] = domain.DisplayTitle(t.rows[idx[0]].title)
		}
	}
	return out, nil
}

func (s *Store) load(path string) (*table, error) {
	if t, ok := s.cache.Get(path); ok {
		return t, nil
	}
	rows, err := readTable(path)
	if err != nil {
		return nil, err
	}
	t := newTable(rows)
	s.cache.Add(path, t)
	return t, nil
}

func readTable(path string) ([]row, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, domain.ErrDataUnavailable
	}
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(bufio.NewReaderSize(f, 1<<20))
	r.Comma = '\t'
	r.FieldsPerRecord = 2
	r.ReuseRecord = true

	var rows []row
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		id, err := strconv.ParseInt(rec[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("read %s: bad id %q", path, rec[0])
		}
		rows = append(rows, row{id: id, title: rec[1]})
	}
	return rows, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// listTables lists the table names in dir with prefix and extension stripped.
func listTables(dir, prefix string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}

	var out []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ext) {
			continue
		}
		out = append(out, strings.TrimSuffix(strings.TrimPrefix(name, prefix), ext))
	}
	slices.Sort(out)
	return out, nil
}
