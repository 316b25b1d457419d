// Package translation is the cluster index store: joined translation records
// of every built pair in one PostgreSQL table, searchable by token arrays.
package translation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/heartmarshall/wikititles/internal/adapter/postgres"
	"github.com/heartmarshall/wikititles/internal/domain"
	"github.com/heartmarshall/wikititles/internal/titleindex"
)

const entity = "translations"

var (
	builder = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

	copyColumns = []string{
		"run_id", "page_id", "source_lang", "target_lang",
		"original_title", "translated", "original_norm",
		"original_tokens", "translated_tokens",
	}
)

// Store provides translation persistence backed by PostgreSQL.
type Store struct {
	pool          *pgxpool.Pool
	txm           *postgres.TxManager
	log           *slog.Logger
	chunkSize     int
	minSimilarity float64
}

// New creates a new translation store. chunkSize bounds the rows sent per
// COPY round; minSimilarity is the Suggest threshold.
func New(log *slog.Logger, pool *pgxpool.Pool, txm *postgres.TxManager, chunkSize int, minSimilarity float64) *Store {
	return &Store{
		pool:          pool,
		txm:           txm,
		log:           log.With("store", entity),
		chunkSize:     max(chunkSize, 1),
		minSimilarity: minSimilarity,
	}
}

// ---------------------------------------------------------------------------
// Bulk build sink
// ---------------------------------------------------------------------------

// WriteBatch replaces every row of pair with records in one transaction.
// Either the whole unit is visible afterwards or none of it is.
func (s *Store) WriteBatch(ctx context.Context, pair domain.Pair, records []domain.TranslationRecord) error {
	return s.txm.RunInTx(ctx, func(ctx context.Context) error {
		q := postgres.QuerierFromCtx(ctx, s.pool)

		if _, err := q.Exec(ctx,
			`DELETE FROM translations WHERE source_lang = $1 AND target_lang = $2`,
			pair.Source, pair.Target,
		); err != nil {
			return postgres.MapError(err, entity, pair.String())
		}

		for start := 0; start < len(records); start += s.chunkSize {
			chunk := records[start:min(start+s.chunkSize, len(records))]
			if _, err := q.CopyFrom(ctx, pgx.Identifier{entity}, copyColumns, copySource(chunk)); err != nil {
				return postgres.MapError(err, entity, pair.String())
			}
		}
		return nil
	})
}

func copySource(records []domain.TranslationRecord) pgx.CopyFromSource {
	return pgx.CopyFromSlice(len(records), func(i int) ([]any, error) {
		r := records[i]
		origTokens := titleindex.Tokens(r.OriginalTitle)
		return []any{
			r.RunID, r.PageID, r.SourceLang, r.TargetLang,
			r.OriginalTitle, r.Translated, titleindex.Normalize(r.OriginalTitle),
			origTokens, titleindex.Tokens(r.Translated),
		}, nil
	})
}

// SuspendRefresh drops the search indexes and turns off WAL for the table so
// that bulk loading does not maintain them row by row.
func (s *Store) SuspendRefresh(ctx context.Context) error {
	for _, stmt := range []string{
		`DROP INDEX IF EXISTS translations_original_tokens_gin`,
		`DROP INDEX IF EXISTS translations_translated_tokens_gin`,
		`ALTER TABLE translations SET UNLOGGED`,
	} {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return postgres.MapError(err, entity, "suspend refresh")
		}
	}
	s.log.Info("search refresh suspended")
	return nil
}

// ResumeRefresh restores what SuspendRefresh removed and refreshes planner statistics.
func (s *Store) ResumeRefresh(ctx context.Context) error {
	start := time.Now()
	for _, stmt := range []string{
		`ALTER TABLE translations SET LOGGED`,
		`CREATE INDEX IF NOT EXISTS translations_original_tokens_gin ON translations USING gin (original_tokens)`,
		`CREATE INDEX IF NOT EXISTS translations_translated_tokens_gin ON translations USING gin (translated_tokens)`,
		`ANALYZE translations`,
	} {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return postgres.MapError(err, entity, "resume refresh")
		}
	}
	s.log.Info("search refresh resumed", slog.Duration("duration", time.Since(start)))
	return nil
}

// ---------------------------------------------------------------------------
// Build run bookkeeping
// ---------------------------------------------------------------------------

// RunSummary is the persisted outcome of one bulk build.
type RunSummary struct {
	ID         uuid.UUID
	StartedAt  time.Time
	FinishedAt time.Time
	Total      int
	Completed  int
	Skipped    int
	Failed     int
	Records    int64
}

// RecordRun upserts the summary of a build run.
func (s *Store) RecordRun(ctx context.Context, r RunSummary) error {
	query, args, err := builder.Insert("build_runs").
		Columns("id", "started_at", "finished_at", "total", "completed", "skipped", "failed", "records").
		Values(r.ID, r.StartedAt, r.FinishedAt, r.Total, r.Completed, r.Skipped, r.Failed, r.Records).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			finished_at = EXCLUDED.finished_at, total = EXCLUDED.total,
			completed = EXCLUDED.completed, skipped = EXCLUDED.skipped,
			failed = EXCLUDED.failed, records = EXCLUDED.records`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build record run query: %w", err)
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return postgres.MapError(err, "build_runs", r.ID.String())
	}
	return nil
}

// LastRun returns the most recently started build run.
func (s *Store) LastRun(ctx context.Context) (RunSummary, error) {
	var r RunSummary
	var finished *time.Time
	err := s.pool.QueryRow(ctx, `
		SELECT id, started_at, finished_at, total, completed, skipped, failed, records
		FROM build_runs ORDER BY started_at DESC LIMIT 1`,
	).Scan(&r.ID, &r.StartedAt, &finished, &r.Total, &r.Completed, &r.Skipped, &r.Failed, &r.Records)
	if err != nil {
		return RunSummary{}, postgres.MapError(err, "build_runs", "last")
	}
	if finished != nil {
		r.FinishedAt = *finished
	}
	return r, nil
}
