package postgres_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/heartmarshall/wikititles/internal/adapter/postgres"
	"github.com/heartmarshall/wikititles/internal/adapter/postgres/testhelper"
)

const insertRunSQL = `INSERT INTO build_runs (id, started_at) VALUES ($1, now())`

// runExists checks whether a build_runs row with the given ID exists.
func runExists(t *testing.T, pool *pgxpool.Pool, id uuid.UUID) bool {
	t.Helper()
	var exists bool
	err := pool.QueryRow(context.Background(),
		`SELECT EXISTS(SELECT 1 FROM build_runs WHERE id = $1)`, id,
	).Scan(&exists)
	if err != nil {
		t.Fatalf("runExists query: %v", err)
	}
	return exists
}

func TestRunInTx_Commit(t *testing.T) {
	pool := testhelper.SetupTestDB(t)
	tm := postgres.NewTxManager(pool)
	id := uuid.New()

	err := tm.RunInTx(context.Background(), func(ctx context.Context) error {
		_, err := postgres.QuerierFromCtx(ctx, pool).Exec(ctx, insertRunSQL, id)
		return err
	})
	if err != nil {
		t.Fatalf("RunInTx returned error: %v", err)
	}

	if !runExists(t, pool, id) {
		t.Fatal("expected run to exist after committed transaction")
	}
}

func TestRunInTx_RollbackOnError(t *testing.T) {
	pool := testhelper.SetupTestDB(t)
	tm := postgres.NewTxManager(pool)
	id := uuid.New()
	sentinel := errors.New("unit failed")

	err := tm.RunInTx(context.Background(), func(ctx context.Context) error {
		if _, execErr := postgres.QuerierFromCtx(ctx, pool).Exec(ctx, insertRunSQL, id); execErr != nil {
			t.Fatalf("insert inside tx failed: %v", execErr)
		}
		return sentinel
	})

	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got: %v", err)
	}
	if runExists(t, pool, id) {
		t.Fatal("expected run NOT to exist after rolled-back transaction")
	}
}

func TestRunInTx_RollbackOnCancel(t *testing.T) {
	pool := testhelper.SetupTestDB(t)
	tm := postgres.NewTxManager(pool)
	id := uuid.New()

	ctx, cancel := context.WithCancel(context.Background())
	err := tm.RunInTx(ctx, func(ctx context.Context) error {
		if _, execErr := postgres.QuerierFromCtx(ctx, pool).Exec(ctx, insertRunSQL, id); execErr != nil {
			t.Fatalf("insert inside tx failed: %v", execErr)
		}
		cancel()
		return ctx.Err()
	})

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got: %v", err)
	}
	if runExists(t, pool, id) {
		t.Fatal("expected run NOT to exist after cancelled unit")
	}
}

func TestRunInTx_RollbackOnPanic(t *testing.T) {
	pool := testhelper.SetupTestDB(t)
	tm := postgres.NewTxManager(pool)
	id := uuid.New()

	defer func() {
		r := recover()
		if r != "test panic" {
			t.Fatalf("expected panic value %q, got %v", "test panic", r)
		}
		if runExists(t, pool, id) {
			t.Fatal("expected run NOT to exist after panic-rolled-back transaction")
		}
	}()

	_ = tm.RunInTx(context.Background(), func(ctx context.Context) error {
		if _, err := postgres.QuerierFromCtx(ctx, pool).Exec(ctx, insertRunSQL, id); err != nil {
			t.Fatalf("insert inside tx failed: %v", err)
		}
		panic("test panic")
	})
}

func TestRunInTx_QuerierFromCtx_UsesTx(t *testing.T) {
	pool := testhelper.SetupTestDB(t)
	tm := postgres.NewTxManager(pool)
	id := uuid.New()

	err := tm.RunInTx(context.Background(), func(ctx context.Context) error {
		q := postgres.QuerierFromCtx(ctx, pool)
		if _, err := q.Exec(ctx, insertRunSQL, id); err != nil {
			return err
		}

		var exists bool
		if err := q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM build_runs WHERE id = $1)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			t.Fatal("expected run to be visible within the transaction")
		}
		if runExists(t, pool, id) {
			t.Fatal("expected run to be invisible outside the transaction before commit")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("RunInTx returned error: %v", err)
	}

	if !runExists(t, pool, id) {
		t.Fatal("expected run to exist after committed transaction")
	}
}
