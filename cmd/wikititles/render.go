package main

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/heartmarshall/wikititles/internal/app"
	"github.com/heartmarshall/wikititles/internal/app/builder"
	"github.com/heartmarshall/wikititles/internal/app/ingest"
	"github.com/heartmarshall/wikititles/internal/app/stats"
	"github.com/heartmarshall/wikititles/internal/domain"
	"github.com/heartmarshall/wikititles/internal/service/resolver"
)

// writeTable prints rows as aligned columns. Widths are display widths, so
// titles in wide scripts stay aligned.
func writeTable(w io.Writer, header []string, rows [][]string) {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			widths[i] = max(widths[i], runewidth.StringWidth(row[i]))
		}
	}

	line := func(cells []string) {
		var sb strings.Builder
		for i := range widths {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			if i == len(widths)-1 {
				sb.WriteString(cell)
				break
			}
			sb.WriteString(runewidth.FillRight(cell, widths[i]))
			sb.WriteString("  ")
		}
		fmt.Fprintln(w, strings.TrimRight(sb.String(), " "))
	}

	line(header)
	sep := make([]string, len(widths))
	for i, n := range widths {
		sep[i] = strings.Repeat("-", n)
	}
	line(sep)
	for _, row := range rows {
		line(row)
	}
}

func renderResult(w io.Writer, res *resolver.Result, showUntranslated, raw bool) {
	rows := res.Rows
	if raw {
		rows = res.Raw
	}

	switch res.Outcome() {
	case domain.OutcomeSingle:
		t := res.Translations()[0]
		fmt.Fprintf(w, "%s -> %s\n", t.Source, t.Target)
	case domain.OutcomeMultiple:
		fmt.Fprintf(w, "%d translations of %q (%s -> %s):\n", len(res.Translations()), res.Input, res.Source, res.Target)
		table := make([][]string, 0, len(rows))
		for _, r := range rows {
			if r.Translated() {
				table = append(table, []string{r.Source, r.Target})
			}
		}
		writeTable(w, []string{"title_" + res.Source, "title_" + res.Target}, table)
	case domain.OutcomeUntranslated:
		fmt.Fprintf(w, "%q was found in %s but has no %s translation\n", res.Input, res.Source, res.Target)
	}

	if res.Direction == domain.DirectionReverse {
		fmt.Fprintf(w, "(resolved through %s -> %s links)\n", res.Target, res.Source)
	}
	if showUntranslated && len(res.Untranslated) > 0 {
		fmt.Fprintf(w, "Not translated (%d):\n", len(res.Untranslated))
		for _, t := range res.Untranslated {
			fmt.Fprintf(w, "  %s\n", t)
		}
	}
}

func renderNotFound(w io.Writer, err *domain.PageNotFoundError) {
	fmt.Fprintf(w, "Page %q not found in %s.\n", err.Input, err.Source)
	if err.Suggestion != "" {
		fmt.Fprintf(w, "Did you mean %q?\n", err.Suggestion)
	}
}

func renderIngest(w io.Writer, r *ingest.Report) {
	rows := make([][]string, 0, len(r.Files))
	for _, f := range r.Files {
		rows = append(rows, []string{
			f.Source.String(),
			itoa(f.Stats.Tuples),
			itoa(f.Stats.Malformed),
			itoa(len(f.Partitions)),
			f.Duration.Round(time.Millisecond).String(),
		})
	}
	writeTable(w, []string{"source", "tuples", "malformed", "tables", "took"}, rows)
	fmt.Fprintf(w, "run %s: indexed [%s], languages [%s] in %s\n",
		r.RunID, strings.Join(r.Indexed, " "), strings.Join(r.Langs, " "), r.Duration.Round(time.Millisecond))
}

func renderBuild(w io.Writer, r *builder.Report) {
	rows := make([][]string, 0, len(r.Units))
	for _, u := range r.Units {
		note := u.Reason
		if u.Err != nil {
			note = u.Err.Error()
		}
		rows = append(rows, []string{u.Pair.String(), string(u.Status), itoa(u.Records), itoa(u.Dropped.Total()), note})
	}
	writeTable(w, []string{"pair", "status", "records", "dropped", "note"}, rows)
	fmt.Fprintf(w, "run %s: %d of %d completed, %d skipped, %d failed, %d records\n",
		r.RunID, r.Completed, r.Total, len(r.Skipped), len(r.Failed), r.Records)
	if d := r.Dropped; d.Total() > 0 {
		fmt.Fprintf(w, "links left out: %d without a page, %d without a target title\n", d.Dangling, d.EmptyTarget)
	}
}

func renderStats(w io.Writer, all []stats.LangStats) {
	header := []string{""}
	for _, st := range all {
		header = append(header, st.Lang)
	}
	row := func(name string, cell func(stats.LangStats) string) []string {
		out := []string{name}
		for _, st := range all {
			out = append(out, cell(st))
		}
		return out
	}

	writeTable(w, header, [][]string{
		row("pages_total", func(s stats.LangStats) string { return itoa(s.PagesTotal) }),
		row("duplicate_pages", func(s stats.LangStats) string { return itoa(s.DuplicatePages) }),
		row("most_duplicated_page", func(s stats.LangStats) string { return strings.Join(s.MostDuplicated, ", ") }),
		row("most_page_duplicates", func(s stats.LangStats) string { return itoa(s.MostDuplicatedCount) }),
		row("count", func(s stats.LangStats) string { return itoa(s.LinkCount) }),
		row("mean", func(s stats.LangStats) string { return strconv.FormatFloat(s.LinkMean, 'f', 1, 64) }),
		row("max", func(s stats.LangStats) string { return itoa(s.LinkMax) }),
		row("most_translated_language", func(s stats.LangStats) string { return s.MostTranslated }),
	})
}

func renderBacklinks(w io.Writer, r *stats.BacklinkReport) {
	fmt.Fprintf(w, "Backlinks %s -> %s -> %s: %d checked\n", r.Pair.Source, r.Pair.Target, r.Pair.Source, r.Checked)
	for _, t := range r.Broken {
		fmt.Fprintf(w, "  %s\n", t)
	}
	fmt.Fprintf(w, "Broken backlinks: %d\n", len(r.Broken))
	fmt.Fprintf(w, "Broken backlinks from duplicate pages: %d\n", r.FromDuplicates)
}

func itoa(n int) string { return strconv.Itoa(n) }

func renderStatus(w io.Writer, st *app.Status) {
	langs := make([]string, 0, len(st.Tables))
	for lang := range st.Tables {
		langs = append(langs, lang)
	}
	slices.Sort(langs)

	rows := make([][]string, 0, len(langs))
	for _, lang := range langs {
		indexed := "no"
		if slices.Contains(st.Indexed, lang) {
			indexed = "yes"
		}
		rows = append(rows, []string{lang, indexed, strings.Join(st.Tables[lang], " ")})
	}
	writeTable(w, []string{"lang", "indexed", "links to"}, rows)

	if st.Info.LastParse.IsZero() {
		fmt.Fprintln(w, "never ingested")
	} else {
		fmt.Fprintf(w, "last ingest %s (run %s), %d languages known\n",
			st.Info.LastParse.Format(time.DateTime), st.Info.RunID, len(st.Info.AllLangs))
	}
	if b := st.LastBuild; b != nil {
		fmt.Fprintf(w, "last build %s (run %s): %d of %d completed, %d skipped, %d failed, %d records\n",
			b.StartedAt.Format(time.DateTime), b.ID, b.Completed, b.Total, b.Skipped, b.Failed, b.Records)
	}
}
