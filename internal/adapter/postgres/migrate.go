package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver for database/sql
	"github.com/pressly/goose/v3"

	"github.com/heartmarshall/wikititles/migrations"
)

// Migration directions accepted by Migrate.
const (
	MigrateUp     = "up"
	MigrateDown   = "down"
	MigrateStatus = "status"
)

// Migrate runs the embedded goose migrations against dsn.
// goose needs a *sql.DB, so this opens a short-lived database/sql handle
// instead of using the pool.
func Migrate(ctx context.Context, log *slog.Logger, dsn, direction string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("migrate: open: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return MapError(err, "database", "ping")
	}

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	if err != nil {
		return fmt.Errorf("migrate: new provider: %w", err)
	}

	switch direction {
	case MigrateUp:
		results, err := provider.Up(ctx)
		if err != nil {
			return fmt.Errorf("migrate: up: %w", err)
		}
		for _, r := range results {
			log.Info("migration applied", slog.String("source", r.Source.Path), slog.Duration("duration", r.Duration))
		}
	case MigrateDown:
		r, err := provider.Down(ctx)
		if err != nil {
			return fmt.Errorf("migrate: down: %w", err)
		}
		if r != nil {
			log.Info("migration rolled back", slog.String("source", r.Source.Path))
		}
	case MigrateStatus:
		statuses, err := provider.Status(ctx)
		if err != nil {
			return fmt.Errorf("migrate: status: %w", err)
		}
		for _, s := range statuses {
			log.Info("migration status",
				slog.String("source", s.Source.Path),
				slog.String("state", string(s.State)),
				slog.Time("applied_at", s.AppliedAt),
			)
		}
	default:
		return fmt.Errorf("migrate: unknown direction %q", direction)
	}
	return nil
}
