package dump

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/heartmarshall/wikititles/internal/domain"
)

// Source identifies a dump file by language and table.
type Source struct {
	Path string
	Lang string
	Kind domain.TableKind
}

func (s Source) String() string { return s.Lang + "/" + string(s.Kind) }

var fileNameRe = regexp.MustCompile(`^([a-z][a-z0-9_-]*?)wiki-latest-([a-z_]+)\.sql(\.gz)?$`)

// ParseFileName recognizes "{lang}wiki-latest-{table}.sql" and its gzipped form.
// Only the page and langlinks tables are accepted.
func ParseFileName(path string) (Source, bool) {
	m := fileNameRe.FindStringSubmatch(filepath.Base(path))
	if m == nil {
		return Source{}, false
	}
	kind := domain.TableKind(m[2])
	if !kind.IsValid() {
		return Source{}, false
	}
	return Source{Path: path, Lang: m[1], Kind: kind}, true
}

// Discover lists the recognized dump files in dir, sorted by name.
// Unrecognized files are ignored.
func Discover(dir string) ([]Source, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dump dir: %w", err)
	}

	var sources []Source
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if src, ok := ParseFileName(filepath.Join(dir, e.Name())); ok {
			sources = append(sources, src)
		}
	}
	return sources, nil
}

type gzipFile struct {
	*gzip.Reader
	f *os.File
}

func (g gzipFile) Close() error {
	gzErr := g.Reader.Close()
	if err := g.f.Close(); err != nil {
		return err
	}
	return gzErr
}

// Open opens a dump file for reading, transparently decompressing ".gz" files.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dump: %w", err)
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, nil
	}

	zr, err := gzip.NewReader(bufio.NewReaderSize(f, 1<<20))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open gzip %s: %w", path, err)
	}
	return gzipFile{Reader: zr, f: f}, nil
}
