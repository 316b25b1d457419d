// Package stats reports on ingested page and link tables: sizes, duplicate
// pages, link coverage and links that do not lead back.
package stats

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/heartmarshall/wikititles/internal/domain"
)

type tableSource interface {
	HasPages(lang string) bool
	HasPair(ctx context.Context, pair domain.Pair) (bool, error)
	Targets(lang string) ([]string, error)
	LoadPages(ctx context.Context, lang string) ([]domain.Page, error)
	LoadLinks(ctx context.Context, pair domain.Pair) ([]domain.LangLink, error)
}

// Service computes table statistics.
type Service struct {
	log    *slog.Logger
	tables tableSource
}

// NewService creates a stats Service.
func NewService(logger *slog.Logger, tables tableSource) *Service {
	return &Service{
		log:    logger.With("service", "stats"),
		tables: tables,
	}
}

// LinkTable is the size of one link table.
type LinkTable struct {
	Target string
	Rows   int
}

// LangStats describes the tables of one language.
type LangStats struct {
	Lang           string
	PagesTotal     int
	DuplicatePages int
	// MostDuplicated holds every title sharing the highest row count.
	MostDuplicated      []string
	MostDuplicatedCount int

	Links          []LinkTable
	LinkCount      int
	LinkMean       float64
	LinkMax        int
	MostTranslated string
}

// Compute returns statistics for every language in langs. targets lists the
// link tables to look for; when empty, the tables found on disk are used.
// Missing link tables are left out of the link figures.
func (s *Service) Compute(ctx context.Context, langs, targets []string) ([]LangStats, error) {
	out := make([]LangStats, 0, len(langs))
	for _, lang := range langs {
		if !s.tables.HasPages(lang) {
			return nil, &domain.UnavailableError{Source: lang, Target: lang, Reason: "no page table"}
		}
		st := LangStats{Lang: lang}

		pages, err := s.tables.LoadPages(ctx, lang)
		if err != nil {
			return nil, fmt.Errorf("stats %s: %w", lang, err)
		}
		pageFigures(&st, pages)

		want := targets
		if len(want) == 0 {
			if want, err = s.tables.Targets(lang); err != nil {
				return nil, fmt.Errorf("stats %s: %w", lang, err)
			}
		}
		for _, target := range want {
			if target == lang {
				continue
			}
			pair := domain.Pair{Source: lang, Target: target}
			ok, err := s.tables.HasPair(ctx, pair)
			if err != nil {
				return nil, fmt.Errorf("stats %s: %w", pair, err)
			}
			if !ok {
				continue
			}
			links, err := s.tables.LoadLinks(ctx, pair)
			if err != nil {
				return nil, fmt.Errorf("stats %s: %w", pair, err)
			}
			st.Links = append(st.Links, LinkTable{Target: target, Rows: len(links)})
		}
		linkFigures(&st)

		s.log.DebugContext(ctx, "stats computed", slog.String("lang", lang), slog.Int("pages", st.PagesTotal))
		out = append(out, st)
	}
	return out, nil
}

func pageFigures(st *LangStats, pages []domain.Page) {
	st.PagesTotal = len(pages)

	type key struct {
		id    int64
		title string
	}
	distinct := make(map[key]struct{}, len(pages))
	perTitle := make(map[string]int)
	for _, p := range pages {
		distinct[key{p.ID, p.Title}] = struct{}{}
		perTitle[p.Title]++
	}
	st.DuplicatePages = len(pages) - len(distinct)

	for title, n := range perTitle {
		switch {
		case n > st.MostDuplicatedCount:
			st.MostDuplicatedCount = n
			st.MostDuplicated = []string{title}
		case n == st.MostDuplicatedCount:
			st.MostDuplicated = append(st.MostDuplicated, title)
		}
	}
	slices.Sort(st.MostDuplicated)
}

func linkFigures(st *LangStats) {
	st.LinkCount = len(st.Links)
	if st.LinkCount == 0 {
		return
	}
	total := 0
	best := slices.MaxFunc(st.Links, func(a, b LinkTable) int {
		// Ties resolve to the first target alphabetically.
		if c := cmp.Compare(a.Rows, b.Rows); c != 0 {
			return c
		}
		return cmp.Compare(b.Target, a.Target)
	})
	for _, l := range st.Links {
		total += l.Rows
	}
	st.LinkMean = float64(total) / float64(st.LinkCount)
	st.LinkMax = best.Rows
	st.MostTranslated = best.Target
}
