package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/heartmarshall/wikititles/internal/adapter/flatfile"
	"github.com/heartmarshall/wikititles/internal/adapter/postgres"
	"github.com/heartmarshall/wikititles/internal/adapter/postgres/translation"
	"github.com/heartmarshall/wikititles/internal/adapter/sqlite/titlestore"
	"github.com/heartmarshall/wikititles/internal/app/builder"
	"github.com/heartmarshall/wikititles/internal/app/ingest"
	"github.com/heartmarshall/wikititles/internal/app/stats"
	"github.com/heartmarshall/wikititles/internal/config"
	"github.com/heartmarshall/wikititles/internal/domain"
	"github.com/heartmarshall/wikititles/internal/metadata"
	"github.com/heartmarshall/wikititles/internal/service/resolver"
	"github.com/heartmarshall/wikititles/internal/titleindex"
)

// Compile-time interface assertions.
var (
	_ builder.BatchWriter       = (*translation.Store)(nil)
	_ builder.RefreshController = (*translation.Store)(nil)
)

// App wires configuration into the services behind each command.
// Database connections are opened lazily, only by commands that need them.
type App struct {
	cfg    *config.Config
	log    *slog.Logger
	tables *flatfile.Store
	index  *titlestore.Store

	pool    *pgxpool.Pool
	closers []func() error
}

// New creates an App over the configured data directories.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	tables, err := flatfile.NewStore(cfg.Data.TableDir, cfg.Resolver.TableCacheSize)
	if err != nil {
		return nil, err
	}
	return &App{
		cfg:    cfg,
		log:    logger,
		tables: tables,
		index:  titlestore.New(cfg.Data.IndexDir, cfg.Resolver.SuggestMinSimilarity),
	}, nil
}

// Close releases every resource opened by the App.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	if a.pool != nil {
		a.pool.Close()
		a.pool = nil
	}
	return errors.Join(errs...)
}

// Ingest parses the dump directory into tables and Title Indexes.
func (a *App) Ingest(ctx context.Context, opts ingest.Options) (*ingest.Report, error) {
	in := ingest.New(a.log, ingest.Config{
		DumpDir:      a.cfg.Data.DumpDir,
		MetadataPath: a.cfg.Data.MetadataPath,
		Primary:      a.cfg.Languages.Primary,
		Workers:      a.cfg.Build.Workers,
	}, flatfile.NewSinkFactory(a.cfg.Data.TableDir), a.index)
	return in.Run(ctx, opts)
}

// Build joins every (primary, secondary) pair into the cluster store.
// secondary overrides the configured list; when both are empty the
// languages discovered by the last ingestion are used.
func (a *App) Build(ctx context.Context, secondary []string) (*builder.Report, error) {
	store, err := a.translations(ctx)
	if err != nil {
		return nil, err
	}

	if len(secondary) == 0 {
		secondary = a.cfg.Languages.Secondary
	}
	if len(secondary) == 0 {
		secondary = metadata.Load(a.cfg.Data.MetadataPath).AllLangs
	}
	if len(secondary) == 0 {
		return nil, fmt.Errorf("no secondary languages: %w", domain.ErrDataUnavailable)
	}

	coord := builder.New(a.log, builder.Config{
		Workers:              a.cfg.Build.Workers,
		UnitTimeout:          a.cfg.Build.UnitTimeout,
		MaxRetries:           a.cfg.Build.MaxRetries,
		RetryInitialInterval: a.cfg.Build.RetryInitialInterval,
		RetryMaxInterval:     a.cfg.Build.RetryMaxInterval,
	}, a.tables, store)

	report, err := coord.Run(ctx, builder.Combinations(a.cfg.Languages.Primary, secondary))
	if report != nil {
		summary := translation.RunSummary{
			ID:         report.RunID,
			StartedAt:  report.StartedAt,
			FinishedAt: report.FinishedAt,
			Total:      report.Total,
			Completed:  report.Completed,
			Skipped:    len(report.Skipped),
			Failed:     len(report.Failed),
			Records:    report.Records,
		}
		if rerr := store.RecordRun(context.WithoutCancel(ctx), summary); rerr != nil {
			a.log.WarnContext(ctx, "record build run", slog.String("error", rerr.Error()))
		}
	}
	return report, err
}

// Translate resolves input from source to target on the configured backend.
// Target languages unknown to the last ingestion are rejected up front.
func (a *App) Translate(ctx context.Context, input, source, target string) (*resolver.Result, error) {
	info := metadata.Load(a.cfg.Data.MetadataPath)
	target = domain.NormalizeLangCode(target)
	if len(info.AllLangs) > 0 && !info.Has(target) {
		return nil, &domain.UnavailableError{
			Source: domain.NormalizeLangCode(source),
			Target: target,
			Reason: "language not found in ingested dumps",
		}
	}

	svc, err := a.Resolver(ctx)
	if err != nil {
		return nil, err
	}
	return svc.Resolve(ctx, input, source, target, resolver.Options{
		StripNamespaces:    a.cfg.Resolver.StripNamespaces,
		CollapseDuplicates: a.cfg.Resolver.CollapseDuplicates,
	})
}

// Resolver returns a resolver over the configured backend.
func (a *App) Resolver(ctx context.Context) (*resolver.Service, error) {
	switch a.cfg.Resolver.Backend {
	case config.BackendCluster:
		store, err := a.translations(ctx)
		if err != nil {
			return nil, err
		}
		return resolver.NewService(a.log, a.cfg.Languages.Primary, store, store), nil
	default:
		searcher := titleindex.NewSearcher(a.index)
		a.closers = append(a.closers, searcher.Close)
		return resolver.NewService(a.log, a.cfg.Languages.Primary, searcher, a.tables), nil
	}
}

// Stats returns the table statistics service.
func (a *App) Stats() *stats.Service {
	return stats.NewService(a.log, a.tables)
}

// Migrate applies the cluster store schema.
func (a *App) Migrate(ctx context.Context, direction string) error {
	if a.cfg.Database.DSN == "" {
		return domain.NewValidationError("database.dsn", "required for migrations")
	}
	return postgres.Migrate(ctx, a.log, a.cfg.Database.DSN, direction)
}

// Info returns the persisted run metadata.
func (a *App) Info() metadata.Info {
	return metadata.Load(a.cfg.Data.MetadataPath)
}

// Status describes what is ingested locally and, when a database is
// configured, the last bulk build.
type Status struct {
	Info metadata.Info
	// Tables lists languages with a page table, each with its link targets.
	Tables map[string][]string
	// Indexed lists primary languages with a committed Title Index.
	Indexed   []string
	LastBuild *translation.RunSummary
}

// Status collects the state of the data directories and the cluster store.
// A database that holds no build yet is not an error.
func (a *App) Status(ctx context.Context) (*Status, error) {
	langs, err := a.tables.Languages()
	if err != nil {
		return nil, err
	}
	st := &Status{Info: a.Info(), Tables: make(map[string][]string, len(langs))}
	for _, lang := range langs {
		targets, err := a.tables.Targets(lang)
		if err != nil {
			return nil, err
		}
		st.Tables[lang] = targets
	}
	for _, lang := range a.cfg.Languages.Primary {
		if a.index.Exists(lang) {
			st.Indexed = append(st.Indexed, lang)
		}
	}

	if a.cfg.Database.DSN == "" {
		return st, nil
	}
	store, err := a.translations(ctx)
	if err != nil {
		return nil, err
	}
	run, err := store.LastRun(ctx)
	switch {
	case errors.Is(err, domain.ErrNotFound):
	case err != nil:
		return nil, err
	default:
		st.LastBuild = &run
	}
	return st, nil
}

func (a *App) translations(ctx context.Context) (*translation.Store, error) {
	if a.cfg.Database.DSN == "" {
		return nil, domain.NewValidationError("database.dsn", "required for the cluster store")
	}
	if a.pool == nil {
		connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()

		pool, err := postgres.NewPool(connectCtx, a.cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		a.pool = pool
	}
	txm := postgres.NewTxManager(a.pool)
	return translation.New(a.log, a.pool, txm, a.cfg.Build.ChunkSize, a.cfg.Resolver.SuggestMinSimilarity), nil
}
