package domain

import "github.com/google/uuid"

// Record is a typed row produced by the dump parser: either a Page or a LangLink.
// The set of implementations is closed; dispatch with a type switch.
type Record interface {
	record()
}

// Page is a row of a language's page table. Titles keep dump conventions
// (underscores instead of spaces) and never carry a namespace prefix; the
// namespace is the separate numeric column.
type Page struct {
	ID        int64
	Namespace int
	Title     string
	Lang      string
}

// LangLink is a row of a language's langlinks table. PageID references a Page
// of SourceLang but is not validated: dangling references are expected.
// TargetTitle may carry a namespace prefix (e.g. "Category:").
type LangLink struct {
	PageID      int64
	SourceLang  string
	TargetLang  string
	TargetTitle string
}

func (Page) record()     {}
func (LangLink) record() {}

// Pair returns the ordered language pair the link belongs to.
func (l LangLink) Pair() Pair {
	return Pair{Source: l.SourceLang, Target: l.TargetLang}
}

// TitleMatch is a Title Index hit.
type TitleMatch struct {
	PageID int64
	Title  string
}

// LinkMatch is a row of a translation table: page id of the source language
// and the linked title in the target language.
type LinkMatch struct {
	PageID int64
	Title  string
}

// TranslationRecord is a page joined with one of its translations, tagged with
// the language pair. It is the unit written by the bulk build.
type TranslationRecord struct {
	RunID         uuid.UUID
	PageID        int64
	OriginalTitle string
	Translated    string
	SourceLang    string
	TargetLang    string
}
