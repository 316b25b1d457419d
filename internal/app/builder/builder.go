// Package builder joins page and link tables into translation records for
// many language pairs at once and commits each pair to a translation store.
package builder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/heartmarshall/wikititles/internal/domain"
	"github.com/heartmarshall/wikititles/pkg/ctxutil"
)

type sourceTables interface {
	HasPages(lang string) bool
	HasPair(ctx context.Context, pair domain.Pair) (bool, error)
	LoadPages(ctx context.Context, lang string) ([]domain.Page, error)
	LoadLinks(ctx context.Context, pair domain.Pair) ([]domain.LangLink, error)
}

// BatchWriter commits all records of one pair atomically. It must be safe
// for concurrent use with distinct pairs.
type BatchWriter interface {
	WriteBatch(ctx context.Context, pair domain.Pair, records []domain.TranslationRecord) error
}

// RefreshController is implemented by writers whose read-side indexes can be
// switched off during a bulk load.
type RefreshController interface {
	SuspendRefresh(ctx context.Context) error
	ResumeRefresh(ctx context.Context) error
}

// Config holds worker pool and retry settings.
type Config struct {
	Workers              int
	UnitTimeout          time.Duration
	MaxRetries           uint64
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration
}

// Coordinator runs build units on a bounded worker pool.
type Coordinator struct {
	log    *slog.Logger
	cfg    Config
	tables sourceTables
	sink   BatchWriter
	now    func() time.Time
}

// New creates a Coordinator.
func New(log *slog.Logger, cfg Config, tables sourceTables, sink BatchWriter) *Coordinator {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Coordinator{
		log:    log.With("service", "builder"),
		cfg:    cfg,
		tables: tables,
		sink:   sink,
		now:    time.Now,
	}
}

// Combinations returns every ordered pair (p, s) with p from primary and s
// from secondary, p != s, in input order without repeats.
func Combinations(primary, secondary []string) []domain.Pair {
	seen := make(map[domain.Pair]struct{})
	var out []domain.Pair
	for _, p := range primary {
		for _, s := range secondary {
			pair := domain.Pair{Source: p, Target: s}
			if p == s {
				continue
			}
			if _, dup := seen[pair]; dup {
				continue
			}
			seen[pair] = struct{}{}
			out = append(out, pair)
		}
	}
	return out
}

// Run builds every pair. A failing or missing unit never aborts its
// siblings; it is recorded in the report instead. Cancelling ctx stops
// scheduling new units. The returned error is reserved for failures of the
// run itself, such as suspending the store's refresh.
func (c *Coordinator) Run(ctx context.Context, pairs []domain.Pair) (report *Report, err error) {
	report = &Report{
		RunID:     uuid.New(),
		StartedAt: c.now(),
		Total:     len(pairs),
		Units:     make([]UnitResult, len(pairs)),
	}

	ctx = ctxutil.WithRunID(ctx, report.RunID)

	if rc, ok := c.sink.(RefreshController); ok {
		if err := rc.SuspendRefresh(ctx); err != nil {
			return nil, fmt.Errorf("suspend refresh: %w", err)
		}
		defer func() {
			if rerr := rc.ResumeRefresh(context.WithoutCancel(ctx)); rerr != nil {
				err = errors.Join(err, fmt.Errorf("resume refresh: %w", rerr))
			}
		}()
	}

	c.log.InfoContext(ctx, "build started",
		slog.Int("units", len(pairs)),
		slog.Int("workers", c.cfg.Workers),
	)

	var (
		mu   sync.Mutex
		done int
	)
	var g errgroup.Group
	g.SetLimit(c.cfg.Workers)

	for i, pair := range pairs {
		if ctx.Err() != nil {
			report.Units[i] = UnitResult{Pair: pair, Status: StatusSkipped, Reason: "cancelled"}
			continue
		}
		g.Go(func() error {
			uctx := ctxutil.WithUnit(ctx, pair.String())
			res := c.runUnit(uctx, report.RunID, pair)

			mu.Lock()
			report.Units[i] = res
			done++
			c.log.InfoContext(uctx, fmt.Sprintf("unit %d of %d (%d%%)", done, len(pairs), done*100/len(pairs)),
				slog.String("status", string(res.Status)),
				slog.Int("records", res.Records),
				slog.Int("dropped", res.Dropped.Total()),
			)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	report.summarize()
	report.FinishedAt = c.now()
	c.log.InfoContext(ctx, "build finished",
		slog.Int("completed", report.Completed),
		slog.Int("skipped", len(report.Skipped)),
		slog.Int("failed", len(report.Failed)),
		slog.Int64("records", report.Records),
		slog.Int("dropped", report.Dropped.Total()),
		slog.Duration("duration", report.FinishedAt.Sub(report.StartedAt)),
	)
	return report, nil
}

func (c *Coordinator) runUnit(ctx context.Context, runID uuid.UUID, pair domain.Pair) UnitResult {
	start := c.now()
	res := UnitResult{Pair: pair}

	records, dropped, reason, err := c.load(ctx, runID, pair)
	res.Dropped = dropped
	switch {
	case err != nil:
		res.Status, res.Err = StatusFailed, err
	case reason != "":
		res.Status, res.Reason = StatusSkipped, reason
		c.log.WarnContext(ctx, "unit skipped", slog.String("reason", reason))
	default:
		if err := c.write(ctx, pair, records); err != nil {
			res.Status, res.Err = StatusFailed, err
		} else {
			res.Status, res.Records = StatusCompleted, len(records)
		}
	}

	if res.Err != nil {
		c.log.ErrorContext(ctx, "unit failed", slog.String("error", res.Err.Error()))
	}
	res.Duration = c.now().Sub(start)
	return res
}

// load reads both tables of pair and inner-joins them. A non-empty reason
// means the unit has no backing data and is skipped.
func (c *Coordinator) load(ctx context.Context, runID uuid.UUID, pair domain.Pair) ([]domain.TranslationRecord, Dropped, string, error) {
	if !c.tables.HasPages(pair.Source) {
		return nil, Dropped{}, "no page table for " + pair.Source, nil
	}
	ok, err := c.tables.HasPair(ctx, pair)
	if err != nil {
		return nil, Dropped{}, "", fmt.Errorf("check link table: %w", err)
	}
	if !ok {
		return nil, Dropped{}, "no link table for " + pair.String(), nil
	}

	pages, err := c.tables.LoadPages(ctx, pair.Source)
	if err != nil {
		return nil, Dropped{}, "", fmt.Errorf("load pages: %w", err)
	}
	links, err := c.tables.LoadLinks(ctx, pair)
	if err != nil {
		return nil, Dropped{}, "", fmt.Errorf("load links: %w", err)
	}
	records, dropped := Join(runID, pair, pages, links)
	if dropped.Total() > 0 {
		c.log.WarnContext(ctx, "links left out of join",
			slog.Int("dangling", dropped.Dangling),
			slog.Int("empty_target", dropped.EmptyTarget),
		)
	}
	return records, dropped, "", nil
}

// write commits records, retrying transient failures with exponential
// backoff. Every attempt is bounded by the unit timeout.
func (c *Coordinator) write(ctx context.Context, pair domain.Pair, records []domain.TranslationRecord) error {
	op := func() error {
		attemptCtx, cancel := c.attemptContext(ctx)
		defer cancel()

		err := c.sink.WriteBatch(attemptCtx, pair, records)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		if domain.IsTransient(err) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return backoff.Permanent(err)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.RetryInitialInterval
	b.MaxInterval = c.cfg.RetryMaxInterval
	b.MaxElapsedTime = 0

	notify := func(err error, wait time.Duration) {
		c.log.WarnContext(ctx, "retrying unit commit",
			slog.String("error", err.Error()),
			slog.Duration("wait", wait),
		)
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(b, c.cfg.MaxRetries), ctx)
	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		return fmt.Errorf("write batch: %w", err)
	}
	return nil
}

func (c *Coordinator) attemptContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.cfg.UnitTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.cfg.UnitTimeout)
}

// Join pairs every link with the page it belongs to. A page id listed
// several times yields one record per distinct title. Titles are in display
// form. Links without a page or with an empty target title are left out and
// counted in the returned Dropped.
func Join(runID uuid.UUID, pair domain.Pair, pages []domain.Page, links []domain.LangLink) ([]domain.TranslationRecord, Dropped) {
	titles := make(map[int64][]string, len(pages))
	for _, p := range pages {
		t := domain.DisplayTitle(p.Title)
		if !slices.Contains(titles[p.ID], t) {
			titles[p.ID] = append(titles[p.ID], t)
		}
	}

	var dropped Dropped
	out := make([]domain.TranslationRecord, 0, len(links))
	for _, l := range links {
		translated := domain.DisplayTitle(l.TargetTitle)
		if translated == "" {
			dropped.EmptyTarget++
			continue
		}
		originals, ok := titles[l.PageID]
		if !ok {
			dropped.Dangling++
			continue
		}
		for _, t := range originals {
			out = append(out, domain.TranslationRecord{
				RunID:         runID,
				PageID:        l.PageID,
				OriginalTitle: t,
				Translated:    translated,
				SourceLang:    pair.Source,
				TargetLang:    pair.Target,
			})
		}
	}
	return out, dropped
}
