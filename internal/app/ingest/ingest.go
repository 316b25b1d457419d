// Package ingest turns a directory of dump files into flat page and link
// tables and builds the Title Index of every primary language.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/heartmarshall/wikititles/internal/domain"
	"github.com/heartmarshall/wikititles/internal/dump"
	"github.com/heartmarshall/wikititles/internal/metadata"
	"github.com/heartmarshall/wikititles/internal/partition"
	"github.com/heartmarshall/wikititles/internal/titleindex"
	"github.com/heartmarshall/wikititles/pkg/ctxutil"
)

// indexBatch is the number of pages handed to an index writer at once.
const indexBatch = 1000

type indexStore interface {
	Exists(lang string) bool
	OpenWriter(ctx context.Context, lang string) (titleindex.Writer, error)
}

// Config holds the settings an ingestion run needs.
type Config struct {
	DumpDir      string
	MetadataPath string
	Primary      []string
	Workers      int
}

// Options narrows what a run does.
type Options struct {
	PagesOnly     bool
	LangLinksOnly bool
	// Force rebuilds Title Indexes that already exist.
	Force bool
	// Languages restricts the run to dumps of these languages. Empty means all.
	Languages []string
}

// FileReport describes one processed dump file.
type FileReport struct {
	Source     dump.Source
	Stats      dump.Stats
	Partitions []partition.Count
	Duration   time.Duration
}

// Report summarizes an ingestion run.
type Report struct {
	RunID    uuid.UUID
	Files    []FileReport
	Indexed  []string
	Langs    []string
	Duration time.Duration
}

// Ingester runs ingestion. Each file is processed by one worker that owns its
// own partition registry, so workers never share sinks.
type Ingester struct {
	log   *slog.Logger
	cfg   Config
	sinks partition.SinkFactory
	index indexStore
	now   func() time.Time
}

// New creates an Ingester.
func New(log *slog.Logger, cfg Config, sinks partition.SinkFactory, index indexStore) *Ingester {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Ingester{
		log:   log.With("service", "ingest"),
		cfg:   cfg,
		sinks: sinks,
		index: index,
		now:   time.Now,
	}
}

// Run ingests every recognized dump file. Title Indexes become visible only
// after all files succeeded; on failure they are discarded.
func (in *Ingester) Run(ctx context.Context, opts Options) (*Report, error) {
	if opts.PagesOnly && opts.LangLinksOnly {
		return nil, domain.NewValidationError("options", "pages-only and langlinks-only are exclusive")
	}

	start := in.now()
	sources, err := in.selectSources(opts)
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no dump files in %s: %w", in.cfg.DumpDir, domain.ErrDataUnavailable)
	}

	writers, err := in.openWriters(ctx, sources, opts.Force)
	if err != nil {
		return nil, err
	}

	report := &Report{RunID: uuid.New(), Files: make([]FileReport, len(sources))}
	ctx = ctxutil.WithRunID(ctx, report.RunID)
	var (
		mu      sync.Mutex
		targets = make(map[string]struct{})
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(in.cfg.Workers)
	for i, src := range sources {
		g.Go(func() error {
			fctx := ctxutil.WithUnit(gctx, src.String())
			fr, langs, err := in.processFile(fctx, src, writers[src.Lang])
			if err != nil {
				return fmt.Errorf("ingest %s: %w", src, err)
			}
			report.Files[i] = fr

			mu.Lock()
			for _, l := range langs {
				targets[l] = struct{}{}
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		discardAll(in.log, writers)
		return nil, err
	}

	if err := in.commitWriters(ctx, writers); err != nil {
		return nil, err
	}
	for lang := range writers {
		report.Indexed = append(report.Indexed, lang)
	}
	slices.Sort(report.Indexed)

	for l := range targets {
		report.Langs = append(report.Langs, l)
	}
	slices.Sort(report.Langs)

	info := metadata.Load(in.cfg.MetadataPath).Merge(metadata.Update{
		At:          in.now(),
		RunID:       report.RunID,
		Langs:       report.Langs,
		LinksParsed: !opts.PagesOnly,
		Partial:     len(opts.Languages) > 0,
	})
	if err := metadata.Save(in.cfg.MetadataPath, info); err != nil {
		return nil, err
	}

	report.Duration = in.now().Sub(start)
	in.log.InfoContext(ctx, "ingestion finished",
		slog.Int("files", len(report.Files)),
		slog.Int("indexed", len(report.Indexed)),
		slog.Duration("duration", report.Duration),
	)
	return report, nil
}

func (in *Ingester) selectSources(opts Options) ([]dump.Source, error) {
	all, err := dump.Discover(in.cfg.DumpDir)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(all))
	var out []dump.Source
	for _, src := range all {
		if opts.PagesOnly && src.Kind != domain.TableKindPage {
			continue
		}
		if opts.LangLinksOnly && src.Kind != domain.TableKindLangLinks {
			continue
		}
		if len(opts.Languages) > 0 && !slices.Contains(opts.Languages, src.Lang) {
			continue
		}
		if _, dup := seen[src.String()]; dup {
			in.log.Warn("duplicate dump ignored", slog.String("path", src.Path))
			continue
		}
		seen[src.String()] = struct{}{}
		out = append(out, src)
	}
	return out, nil
}

// openWriters opens an index writer for every primary language whose page
// dump is part of the run.
func (in *Ingester) openWriters(ctx context.Context, sources []dump.Source, force bool) (map[string]titleindex.Writer, error) {
	var langs []string
	for _, src := range sources {
		if src.Kind == domain.TableKindPage && slices.Contains(in.cfg.Primary, src.Lang) {
			langs = append(langs, src.Lang)
		}
	}
	if !force {
		for _, lang := range langs {
			if in.index.Exists(lang) {
				return nil, fmt.Errorf("title index %s: %w (use force to rebuild)", lang, domain.ErrAlreadyExists)
			}
		}
	}

	writers := make(map[string]titleindex.Writer, len(langs))
	for _, lang := range langs {
		w, err := in.index.OpenWriter(ctx, lang)
		if err != nil {
			discardAll(in.log, writers)
			return nil, fmt.Errorf("open title index %s: %w", lang, err)
		}
		writers[lang] = w
	}
	return writers, nil
}

func (in *Ingester) processFile(ctx context.Context, src dump.Source, index titleindex.Writer) (FileReport, []string, error) {
	start := in.now()
	in.log.InfoContext(ctx, "parsing dump", slog.String("path", src.Path))

	rc, err := dump.Open(src.Path)
	if err != nil {
		return FileReport{}, nil, err
	}
	defer rc.Close()

	reg := partition.NewRegistry(in.sinks)
	parser := dump.NewParser(src.Lang, src.Kind)

	err = in.route(ctx, parser, rc, reg, index)
	if err != nil {
		if abortErr := reg.Abort(); abortErr != nil {
			in.log.WarnContext(ctx, "abort partitions", slog.String("error", abortErr.Error()))
		}
		return FileReport{}, nil, err
	}
	if err := reg.Close(); err != nil {
		return FileReport{}, nil, fmt.Errorf("close partitions: %w", err)
	}

	fr := FileReport{
		Source:     src,
		Stats:      parser.Stats(),
		Partitions: reg.Counts(),
		Duration:   in.now().Sub(start),
	}
	in.log.InfoContext(ctx, "dump parsed",
		slog.Int("tuples", fr.Stats.Tuples),
		slog.Int("malformed", fr.Stats.Malformed),
		slog.Duration("duration", fr.Duration),
	)
	return fr, reg.Targets(), nil
}

func (in *Ingester) route(ctx context.Context, parser *dump.Parser, r io.Reader, reg *partition.Registry, index titleindex.Writer) error {
	var (
		batch []domain.Page
		n     int
	)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := index.Add(ctx, batch...); err != nil {
			return fmt.Errorf("index pages: %w", err)
		}
		batch = batch[:0]
		return nil
	}

	for rec, err := range parser.Records(r) {
		if err != nil {
			return err
		}
		if err := reg.Add(rec); err != nil {
			return err
		}
		if p, ok := rec.(domain.Page); ok && index != nil {
			batch = append(batch, p)
			if len(batch) >= indexBatch {
				if err := flush(); err != nil {
					return err
				}
			}
		}
		if n++; n%indexBatch == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}
	return ctx.Err()
}

func (in *Ingester) commitWriters(ctx context.Context, writers map[string]titleindex.Writer) error {
	langs := make([]string, 0, len(writers))
	for lang := range writers {
		langs = append(langs, lang)
	}
	slices.Sort(langs)

	for i, lang := range langs {
		if err := writers[lang].Commit(ctx); err != nil {
			for _, rest := range langs[i+1:] {
				_ = writers[rest].Discard()
			}
			return fmt.Errorf("commit title index %s: %w", lang, err)
		}
		in.log.InfoContext(ctx, "title index committed", slog.String("lang", lang))
	}
	return nil
}

func discardAll(log *slog.Logger, writers map[string]titleindex.Writer) {
	var errs []error
	for lang, w := range writers {
		if err := w.Discard(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", lang, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		log.Warn("discard title indexes", slog.String("error", err.Error()))
	}
}
