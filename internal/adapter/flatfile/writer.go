package flatfile

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/heartmarshall/wikititles/internal/domain"
	"github.com/heartmarshall/wikititles/internal/partition"
)

// SinkFactory creates table writers under a Layout.
type SinkFactory struct {
	layout Layout
}

// NewSinkFactory creates a SinkFactory writing under root.
func NewSinkFactory(root string) *SinkFactory {
	return &SinkFactory{layout: Layout{Root: root}}
}

func (f *SinkFactory) PageSink(lang string) (partition.Sink[domain.Page], error) {
	tw, err := createTable(f.layout.PagePath(lang))
	if err != nil {
		return nil, err
	}
	return &pageSink{tw}, nil
}

func (f *SinkFactory) LinkSink(pair domain.Pair) (partition.Sink[domain.LangLink], error) {
	tw, err := createTable(f.layout.LinkPath(pair))
	if err != nil {
		return nil, err
	}
	return &linkSink{tw}, nil
}

// tableWriter writes rows into a temp file next to the final path and
// renames it into place on Close.
type tableWriter struct {
	final string
	f     *os.File
	bw    *bufio.Writer
	w     *csv.Writer
	rec   [2]string
	done  bool
}

func createTable(path string) (*tableWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("flatfile: mkdir: %w", err)
	}
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("flatfile: create temp: %w", err)
	}

	bw := bufio.NewWriterSize(f, 1<<20)
	w := csv.NewWriter(bw)
	w.Comma = '\t'
	return &tableWriter{final: path, f: f, bw: bw, w: w}, nil
}

func (t *tableWriter) write(id int64, title string) error {
	t.rec[0] = strconv.FormatInt(id, 10)
	t.rec[1] = title
	return t.w.Write(t.rec[:])
}

func (t *tableWriter) Close() error {
	if t.done {
		return nil
	}
	t.done = true

	t.w.Flush()
	err := errors.Join(t.w.Error(), t.bw.Flush(), t.f.Close())
	if err != nil {
		os.Remove(t.f.Name())
		return fmt.Errorf("flatfile: flush %s: %w", t.final, err)
	}
	if err := os.Rename(t.f.Name(), t.final); err != nil {
		os.Remove(t.f.Name())
		return fmt.Errorf("flatfile: rename %s: %w", t.final, err)
	}
	return nil
}

func (t *tableWriter) Abort() error {
	if t.done {
		return nil
	}
	t.done = true
	t.f.Close()
	if err := os.Remove(t.f.Name()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("flatfile: remove temp: %w", err)
	}
	return nil
}

type pageSink struct{ *tableWriter }

func (s *pageSink) Write(p domain.Page) error { return s.write(p.ID, p.Title) }

type linkSink struct{ *tableWriter }

func (s *linkSink) Write(l domain.LangLink) error { return s.write(l.PageID, l.TargetTitle) }
