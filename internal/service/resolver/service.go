package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/heartmarshall/wikititles/internal/domain"
	"github.com/heartmarshall/wikititles/internal/titleindex"
)

type titleSearcher interface {
	Query(ctx context.Context, lang, text string) ([]domain.TitleMatch, error)
	Suggest(ctx context.Context, lang, text string) (string, bool, error)
}

type linkTables interface {
	HasPair(ctx context.Context, pair domain.Pair) (bool, error)
	Lookup(ctx context.Context, pair domain.Pair, ids []int64) (map[int64][]string, error)
	SearchLinks(ctx context.Context, pair domain.Pair, text string) ([]domain.LinkMatch, error)
	Titles(ctx context.Context, lang string, ids []int64) (map[int64]string, error)
}

// Service resolves titles across languages by combining Title Index lookups
// with link table joins. It is synchronous and holds no mutable state.
type Service struct {
	log     *slog.Logger
	primary map[string]struct{}
	titles  titleSearcher
	links   linkTables
}

// NewService creates a resolver. primary lists the languages that have a
// Title Index.
func NewService(logger *slog.Logger, primary []string, titles titleSearcher, links linkTables) *Service {
	set := make(map[string]struct{}, len(primary))
	for _, l := range primary {
		set[domain.NormalizeLangCode(l)] = struct{}{}
	}
	return &Service{
		log:     logger.With("service", "resolver"),
		primary: set,
		titles:  titles,
		links:   links,
	}
}

// IsPrimary reports whether lang has a Title Index.
func (s *Service) IsPrimary(lang string) bool {
	_, ok := s.primary[lang]
	return ok
}

// Resolve translates input from source to target.
//
// The pair is available when either the (source, target) or the
// (target, source) link table exists: a source without a Title Index can
// only be served in reverse, which reads the (target, source) table alone.
// With neither table the result is an UnavailableError naming the pair.
//
// Pages found without a translation are part of the result, not an error.
// A forward search that yields no translation is retried once in reverse
// against the (target, source) link table; the whole result set comes from
// one direction, never mixed per row.
func (s *Service) Resolve(ctx context.Context, input, source, target string, opts Options) (*Result, error) {
	pair, err := s.validatePair(source, target)
	if err != nil {
		return nil, err
	}

	fwdOK, err := s.links.HasPair(ctx, pair)
	if err != nil {
		return nil, fmt.Errorf("check %s: %w", pair, err)
	}
	revOK, err := s.links.HasPair(ctx, pair.Reverse())
	if err != nil {
		return nil, fmt.Errorf("check %s: %w", pair.Reverse(), err)
	}
	if !fwdOK && !revOK {
		return nil, &domain.UnavailableError{Source: pair.Source, Target: pair.Target, Reason: "no translation table"}
	}

	normalized := titleindex.Normalize(input)
	if normalized == "" {
		return nil, domain.NewValidationError("title", "required")
	}

	forward := s.IsPrimary(pair.Source)
	if !forward && !s.IsPrimary(pair.Target) {
		return nil, fmt.Errorf("%s: %w", pair, domain.ErrLanguageUnsupported)
	}

	res := &Result{
		Input:      input,
		Normalized: normalized,
		Source:     pair.Source,
		Target:     pair.Target,
	}

	var fwdRows []Row
	if forward {
		fwdRows, err = s.forward(ctx, pair, input, fwdOK)
		if err != nil {
			return nil, err
		}
		if hasTranslation(fwdRows) {
			return finish(res, domain.DirectionForward, fwdRows, opts), nil
		}
	}

	var revRows []Row
	if revOK {
		if forward {
			s.log.DebugContext(ctx, "forward search untranslated, trying reverse",
				slog.String("pair", pair.String()),
				slog.Int("found", len(fwdRows)),
			)
		}
		revRows, err = s.reverse(ctx, pair, input)
		if err != nil {
			return nil, err
		}
	}

	switch {
	case hasTranslation(revRows):
		return finish(res, domain.DirectionReverse, revRows, opts), nil
	case len(fwdRows) > 0:
		return finish(res, domain.DirectionForward, fwdRows, opts), nil
	case len(revRows) > 0:
		return finish(res, domain.DirectionReverse, revRows, opts), nil
	}

	notFound := &domain.PageNotFoundError{
		Input:      input,
		Normalized: normalized,
		Source:     pair.Source,
		Target:     pair.Target,
	}
	if forward {
		notFound.Suggestion, err = s.suggest(ctx, pair.Source, input)
		if err != nil {
			return nil, err
		}
	}
	return nil, notFound
}

func (s *Service) validatePair(source, target string) (domain.Pair, error) {
	pair := domain.Pair{
		Source: domain.NormalizeLangCode(source),
		Target: domain.NormalizeLangCode(target),
	}

	var errs []domain.FieldError
	if !domain.ValidLangCode(pair.Source) {
		errs = append(errs, domain.FieldError{Field: "source", Message: "invalid language code"})
	}
	if !domain.ValidLangCode(pair.Target) {
		errs = append(errs, domain.FieldError{Field: "target", Message: "invalid language code"})
	}
	if len(errs) == 0 && pair.Source == pair.Target {
		errs = append(errs, domain.FieldError{Field: "target", Message: "must differ from source"})
	}
	if len(errs) > 0 {
		return domain.Pair{}, &domain.ValidationError{Errors: errs}
	}
	return pair, nil
}

// forward searches the source Title Index and left-joins every candidate
// with the (source, target) table. Candidates without links keep an empty
// target.
func (s *Service) forward(ctx context.Context, pair domain.Pair, input string, joinable bool) ([]Row, error) {
	hits, err := s.titles.Query(ctx, pair.Source, input)
	if errors.Is(err, domain.ErrDataUnavailable) {
		s.log.WarnContext(ctx, "title index missing", slog.String("lang", pair.Source))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query %s index: %w", pair.Source, err)
	}
	if len(hits) == 0 {
		return nil, nil
	}

	links := map[int64][]string{}
	if joinable {
		links, err = s.links.Lookup(ctx, pair, matchIDs(hits))
		if err != nil {
			return nil, fmt.Errorf("lookup %s: %w", pair, err)
		}
	}

	rows := make([]Row, 0, len(hits))
	for _, h := range hits {
		src := domain.DisplayTitle(h.Title)
		targets := links[h.PageID]
		if len(targets) == 0 {
			rows = append(rows, Row{Source: src})
			continue
		}
		for _, t := range targets {
			rows = append(rows, Row{Source: src, Target: domain.DisplayTitle(t)})
		}
	}
	return rows, nil
}

// reverse searches the titles that (target, source) links point at and
// joins them back to target pages. Links to pages missing from the target
// page table keep an empty target.
func (s *Service) reverse(ctx context.Context, pair domain.Pair, input string) ([]Row, error) {
	back := pair.Reverse()
	hits, err := s.links.SearchLinks(ctx, back, input)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", back, err)
	}
	if len(hits) == 0 {
		return nil, nil
	}

	ids := make([]int64, 0, len(hits))
	for _, h := range hits {
		ids = append(ids, h.PageID)
	}
	titles, err := s.links.Titles(ctx, pair.Target, ids)
	if errors.Is(err, domain.ErrDataUnavailable) {
		s.log.WarnContext(ctx, "page table missing", slog.String("lang", pair.Target))
		titles, err = nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("titles %s: %w", pair.Target, err)
	}

	rows := make([]Row, 0, len(hits))
	for _, h := range hits {
		rows = append(rows, Row{
			Source: domain.DisplayTitle(h.Title),
			Target: domain.DisplayTitle(titles[h.PageID]),
		})
	}
	return rows, nil
}

func (s *Service) suggest(ctx context.Context, lang, input string) (string, error) {
	hint, ok, err := s.titles.Suggest(ctx, lang, input)
	if errors.Is(err, domain.ErrDataUnavailable) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("suggest %s: %w", lang, err)
	}
	if !ok {
		return "", nil
	}
	return domain.DisplayTitle(hint), nil
}

func finish(res *Result, dir domain.Direction, raw []Row, opts Options) *Result {
	res.Direction = dir
	res.Raw = raw
	res.Rows = cleanup(raw, opts)
	res.Untranslated = untranslated(raw)
	return res
}

func matchIDs(hits []domain.TitleMatch) []int64 {
	ids := make([]int64, 0, len(hits))
	seen := make(map[int64]struct{}, len(hits))
	for _, h := range hits {
		if _, dup := seen[h.PageID]; dup {
			continue
		}
		seen[h.PageID] = struct{}{}
		ids = append(ids, h.PageID)
	}
	return ids
}
