// Package flatfile persists page and link tables as tab-separated files:
//
//	{root}/page/{lang}.tsv
//	{root}/langlinks/{lang}/to_{target}.tsv
package flatfile

import (
	"path/filepath"

	"github.com/heartmarshall/wikititles/internal/domain"
)

const ext = ".tsv"

// Layout resolves table paths under a root directory.
type Layout struct {
	Root string
}

// PageDir returns the directory holding every page table.
func (l Layout) PageDir() string {
	return filepath.Join(l.Root, "page")
}

// PagePath returns the page table path of lang.
func (l Layout) PagePath(lang string) string {
	return filepath.Join(l.PageDir(), lang+ext)
}

// LinkDir returns the directory holding every link table of lang.
func (l Layout) LinkDir(lang string) string {
	return filepath.Join(l.Root, "langlinks", lang)
}

// LinkPath returns the link table path of pair.
func (l Layout) LinkPath(pair domain.Pair) string {
	return filepath.Join(l.LinkDir(pair.Source), "to_"+pair.Target+ext)
}
