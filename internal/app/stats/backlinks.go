package stats

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/heartmarshall/wikititles/internal/domain"
)

// BacklinkReport lists a-language pages whose link to b is not returned by
// the b page it points at.
type BacklinkReport struct {
	Pair domain.Pair
	// Checked is the number of a->b links that resolved to a b page.
	Checked int
	// Broken holds distinct a titles with no return link, excluding titles
	// that have a return link through another page with the same title.
	Broken []string
	// FromDuplicates counts links without a return link whose a title does
	// come back through a duplicate page.
	FromDuplicates int
}

// Backlinks follows every a->b link to the b page of the same title and
// checks that the b page links back to a. Links to titles missing from the
// b page table are not counted.
func (s *Service) Backlinks(ctx context.Context, a, b string) (*BacklinkReport, error) {
	forward := domain.Pair{Source: a, Target: b}
	back := forward.Reverse()
	for _, p := range []domain.Pair{forward, back} {
		ok, err := s.tables.HasPair(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("backlinks %s: %w", p, err)
		}
		if !ok {
			return nil, &domain.UnavailableError{Source: p.Source, Target: p.Target, Reason: "no link table"}
		}
	}
	for _, lang := range []string{a, b} {
		if !s.tables.HasPages(lang) {
			return nil, &domain.UnavailableError{Source: a, Target: b, Reason: "no page table for " + lang}
		}
	}

	aPages, err := s.tables.LoadPages(ctx, a)
	if err != nil {
		return nil, fmt.Errorf("backlinks %s: %w", a, err)
	}
	bPages, err := s.tables.LoadPages(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("backlinks %s: %w", b, err)
	}
	links, err := s.tables.LoadLinks(ctx, forward)
	if err != nil {
		return nil, fmt.Errorf("backlinks %s: %w", forward, err)
	}
	backLinks, err := s.tables.LoadLinks(ctx, back)
	if err != nil {
		return nil, fmt.Errorf("backlinks %s: %w", back, err)
	}

	aTitles := make(map[int64][]string, len(aPages))
	for _, p := range aPages {
		aTitles[p.ID] = append(aTitles[p.ID], domain.DisplayTitle(p.Title))
	}
	bIDs := make(map[string][]int64, len(bPages))
	for _, p := range bPages {
		t := domain.DisplayTitle(p.Title)
		bIDs[t] = append(bIDs[t], p.ID)
	}
	returns := make(map[int64]struct{}, len(backLinks))
	for _, l := range backLinks {
		returns[l.PageID] = struct{}{}
	}

	report := &BacklinkReport{Pair: forward}
	var broken []string
	ok := make(map[string]struct{})
	for _, l := range links {
		for _, title := range aTitles[l.PageID] {
			for _, id := range bIDs[domain.DisplayTitle(l.TargetTitle)] {
				report.Checked++
				if _, back := returns[id]; back {
					ok[title] = struct{}{}
				} else {
					broken = append(broken, title)
				}
			}
		}
	}

	seen := make(map[string]struct{})
	for _, title := range broken {
		if _, dup := ok[title]; dup {
			report.FromDuplicates++
			continue
		}
		if _, dup := seen[title]; dup {
			continue
		}
		seen[title] = struct{}{}
		report.Broken = append(report.Broken, title)
	}

	s.log.InfoContext(ctx, "backlinks checked",
		slog.String("pair", forward.String()),
		slog.Int("checked", report.Checked),
		slog.Int("broken", len(report.Broken)),
		slog.Int("from_duplicates", report.FromDuplicates),
	)
	return report, nil
}
