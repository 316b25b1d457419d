// Package dump turns encyclopedia SQL dump files into typed page and
// language-link records.
package dump

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"iter"
	"strconv"

	"github.com/heartmarshall/wikititles/internal/domain"
)

// maxLineSize is the buffer size for bufio.Scanner (64 MB). A single INSERT
// statement in a dump carries thousands of tuples.
const maxLineSize = 64 << 20

var insertPrefix = []byte("INSERT INTO")

// Stats holds counters collected while parsing a dump.
type Stats struct {
	Lines       int
	InsertLines int
	Tuples      int
	Pages       int
	LangLinks   int
	Malformed   int
}

// Parser decodes one dump table of one language.
type Parser struct {
	lang  string
	kind  domain.TableKind
	stats Stats
}

// NewParser creates a Parser for records of the given language and table.
func NewParser(lang string, kind domain.TableKind) *Parser {
	return &Parser{lang: lang, kind: kind}
}

// Stats returns the counters accumulated so far.
func (p *Parser) Stats() Stats {
	return p.stats
}

// Records lazily yields the records found in r. Lines that are not bulk
// INSERT statements are ignored; tuples that do not match the table grammar
// are counted as malformed and skipped. A read error is yielded once and ends
// the sequence. The sequence consumes r and cannot be restarted.
func (p *Parser) Records(r io.Reader) iter.Seq2[domain.Record, error] {
	return func(yield func(domain.Record, error) bool) {
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 1<<20), maxLineSize)

		var fields []field
		for scanner.Scan() {
			p.stats.Lines++
			line := scanner.Bytes()
			if !bytes.HasPrefix(line, insertPrefix) {
				continue
			}
			p.stats.InsertLines++

			start := valuesStart(line)
			if start < 0 {
				p.stats.Malformed++
				continue
			}

			ts := tupleScanner{buf: line, pos: start}
			for {
				var ok bool
				var err error
				fields, ok, err = ts.next(fields)
				if err != nil {
					p.stats.Malformed++
					break
				}
				if !ok {
					break
				}
				p.stats.Tuples++

				rec, matched := p.decode(fields)
				if !matched {
					p.stats.Malformed++
					continue
				}
				if !yield(rec, nil) {
					return
				}
			}
		}

		if err := scanner.Err(); err != nil {
			yield(nil, fmt.Errorf("scan %s %s dump: %w", p.lang, p.kind, err))
		}
	}
}

func (p *Parser) decode(fields []field) (domain.Record, bool) {
	switch p.kind {
	case domain.TableKindPage:
		return p.decodePage(fields)
	case domain.TableKindLangLinks:
		return p.decodeLangLink(fields)
	}
	return nil, false
}

// decodePage matches (int, int, 'title', ...rest).
func (p *Parser) decodePage(fields []field) (domain.Record, bool) {
	if len(fields) < 4 || fields[0].quoted || fields[1].quoted || !fields[2].quoted {
		return nil, false
	}
	id, err := strconv.ParseInt(fields[0].value, 10, 64)
	if err != nil {
		return nil, false
	}
	ns, err := strconv.Atoi(fields[1].value)
	if err != nil {
		return nil, false
	}
	p.stats.Pages++
	return domain.Page{ID: id, Namespace: ns, Title: fields[2].value, Lang: p.lang}, true
}

// decodeLangLink matches (int, lang, title) where lang and title may be
// quoted or bare.
func (p *Parser) decodeLangLink(fields []field) (domain.Record, bool) {
	if len(fields) != 3 || fields[0].quoted {
		return nil, false
	}
	id, err := strconv.ParseInt(fields[0].value, 10, 64)
	if err != nil {
		return nil, false
	}
	// The language becomes a table path segment, so anything that is not a
	// code is a grammar mismatch.
	target := domain.NormalizeLangCode(fields[1].value)
	if !domain.ValidLangCode(target) {
		return nil, false
	}
	p.stats.LangLinks++
	return domain.LangLink{
		PageID:      id,
		SourceLang:  p.lang,
		TargetLang:  target,
		TargetTitle: fields[2].value,
	}, true
}
