// Package titlestore keeps each language's Title Index in its own SQLite
// database with an FTS5 table over normalized titles.
package titlestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"github.com/heartmarshall/wikititles/internal/domain"
	"github.com/heartmarshall/wikititles/internal/titleindex"
)

const (
	driverName = "sqlite"

	// maxParams bounds IN lists below SQLite's host parameter limit.
	maxParams = 500
)

// Store manages {dir}/{lang}_page_idx.db files.
type Store struct {
	dir           string
	minSimilarity float64
}

// New creates a Store rooted at dir.
func New(dir string, minSimilarity float64) *Store {
	return &Store{dir: dir, minSimilarity: minSimilarity}
}

// Path returns the database file of lang.
func (s *Store) Path(lang string) string {
	return filepath.Join(s.dir, lang+"_page_idx.db")
}

func (s *Store) Exists(lang string) bool {
	info, err := os.Stat(s.Path(lang))
	return err == nil && !info.IsDir()
}

// OpenWriter starts building a new index for lang in a temp file. The
// current index, if any, stays readable until Commit replaces it.
func (s *Store) OpenWriter(ctx context.Context, lang string) (titleindex.Writer, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("titlestore: mkdir %s: %w", s.dir, err)
	}
	f, err := os.CreateTemp(s.dir, "."+lang+"_page_idx.*.tmp")
	if err != nil {
		return nil, fmt.Errorf("titlestore: create temp: %w", err)
	}
	tmp := f.Name()
	f.Close()

	w, err := newWriter(ctx, tmp, s.Path(lang))
	if err != nil {
		os.Remove(tmp)
		return nil, err
	}
	return w, nil
}

// OpenReader opens the committed index of lang read-only.
func (s *Store) OpenReader(ctx context.Context, lang string) (titleindex.Reader, error) {
	path := s.Path(lang)
	if !s.Exists(lang) {
		return nil, fmt.Errorf("title index %s: %w", lang, domain.ErrDataUnavailable)
	}

	dsn := fmt.Sprintf("file:%s?mode=ro&_pragma=busy_timeout(2000)&_pragma=query_only(1)", path)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("titlestore: open %s: %w", path, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("titlestore: ping %s: %w", path, err)
	}
	return &reader{db: db, minSimilarity: s.minSimilarity}, nil
}

// --- writer ---

type writer struct {
	db    *sql.DB
	tx    *sql.Tx
	stmt  *sql.Stmt
	tmp   string
	final string
	done  bool
}

func newWriter(ctx context.Context, tmp, final string) (*writer, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(OFF)&_pragma=synchronous(OFF)", tmp)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("titlestore: open %s: %w", tmp, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("titlestore: create schema: %w", err)
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("titlestore: begin: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO titles (page_id, title, norm, norm_len) VALUES (?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		db.Close()
		return nil, fmt.Errorf("titlestore: prepare: %w", err)
	}
	return &writer{db: db, tx: tx, stmt: stmt, tmp: tmp, final: final}, nil
}

func (w *writer) Add(ctx context.Context, pages ...domain.Page) error {
	if w.done {
		return errors.New("titlestore: writer closed")
	}
	for _, p := range pages {
		display := domain.DisplayTitle(p.Title)
		norm := titleindex.Normalize(display)
		if _, err := w.stmt.ExecContext(ctx, p.ID, display, norm, utf8.RuneCountInString(norm)); err != nil {
			return fmt.Errorf("titlestore: insert page %d: %w", p.ID, err)
		}
	}
	return nil
}

func (w *writer) Commit(ctx context.Context) error {
	if w.done {
		return errors.New("titlestore: writer closed")
	}
	w.done = true

	err := w.finish(ctx)
	if err != nil {
		os.Remove(w.tmp)
		return err
	}
	if err := os.Rename(w.tmp, w.final); err != nil {
		os.Remove(w.tmp)
		return fmt.Errorf("titlestore: rename %s: %w", w.final, err)
	}
	return nil
}

func (w *writer) finish(ctx context.Context) error {
	w.stmt.Close()
	if err := w.tx.Commit(); err != nil {
		w.db.Close()
		return fmt.Errorf("titlestore: commit: %w", err)
	}
	if _, err := w.db.ExecContext(ctx, postLoad); err != nil {
		w.db.Close()
		return fmt.Errorf("titlestore: build fts: %w", err)
	}
	if err := w.db.Close(); err != nil {
		return fmt.Errorf("titlestore: close: %w", err)
	}
	return nil
}

func (w *writer) Discard() error {
	if w.done {
		return nil
	}
	w.done = true

	w.stmt.Close()
	err := errors.Join(w.tx.Rollback(), w.db.Close())
	if rmErr := os.Remove(w.tmp); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
		err = errors.Join(err, rmErr)
	}
	if err != nil {
		return fmt.Errorf("titlestore: discard: %w", err)
	}
	return nil
}

// --- reader ---

type reader struct {
	db            *sql.DB
	minSimilarity float64
}

func (r *reader) Query(ctx context.Context, text string) ([]domain.TitleMatch, error) {
	tokens := titleindex.Tokens(text)
	if len(tokens) == 0 {
		return nil, nil
	}

	quoted := make([]string, len(tokens))
	for i, t := range tokens {
		quoted[i] = `"` + t + `"`
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT t.page_id, t.title
		FROM titles_fts f
		JOIN titles t ON t.rowid = f.rowid
		WHERE titles_fts MATCH ?
		ORDER BY t.page_id, t.title`, strings.Join(quoted, " "))
	if err != nil {
		return nil, fmt.Errorf("titlestore: query: %w", err)
	}
	defer rows.Close()

	var out []domain.TitleMatch
	for rows.Next() {
		var m domain.TitleMatch
		if err := rows.Scan(&m.PageID, &m.Title); err != nil {
			return nil, fmt.Errorf("titlestore: scan: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *reader) Suggest(ctx context.Context, text string) (string, bool, error) {
	s := titleindex.NewSuggester(titleindex.Normalize(text), r.minSimilarity)
	lo, hi := s.LengthWindow()

	rows, err := r.db.QueryContext(ctx, `
		SELECT norm, MIN(title)
		FROM titles
		WHERE norm_len BETWEEN ? AND ?
		GROUP BY norm`, lo, hi)
	if err != nil {
		return "", false, fmt.Errorf("titlestore: suggest: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var norm, title string
		if err := rows.Scan(&norm, &title); err != nil {
			return "", false, fmt.Errorf("titlestore: scan: %w", err)
		}
		s.Offer(norm, title)
	}
	if err := rows.Err(); err != nil {
		return "", false, fmt.Errorf("titlestore: suggest: %w", err)
	}

	title, ok := s.Result()
	return title, ok, nil
}

func (r *reader) Titles(ctx context.Context, ids []int64) (map[int64]string, error) {
	out := make(map[int64]string, len(ids))
	for start := 0; start < len(ids); start += maxParams {
		end := min(start+maxParams, len(ids))

		query, args, err := sq.Select("page_id", "title").
			From("titles").
			Where(sq.Eq{"page_id": ids[start:end]}).
			OrderBy("rowid").
			ToSql()
		if err != nil {
			return nil, fmt.Errorf("titlestore: build titles query: %w", err)
		}

		if err := r.scanTitles(ctx, query, args, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *reader) scanTitles(ctx context.Context, query string, args []any, out map[int64]string) error {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("titlestore: titles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var title string
		if err := rows.Scan(&id, &title); err != nil {
			return fmt.Errorf("titlestore: scan: %w", err)
		}
		if _, ok := out[id]; !ok {
			out[id] = title
		}
	}
	return rows.Err()
}

func (r *reader) Close() error {
	return r.db.Close()
}
