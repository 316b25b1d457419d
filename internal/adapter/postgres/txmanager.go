package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TxManager runs a unit of cluster-store work in one transaction. The
// translation store uses it so the delete of a pair's previous rows and all
// CopyFrom chunks of the new batch commit together: readers see either the
// old pair or the complete new one, never a half-written unit.
//
// The transaction travels in the context; QuerierFromCtx picks it up.
// RunInTx does not nest: an inner call opens a second, independent
// transaction.
type TxManager struct {
	pool *pgxpool.Pool
	opts pgx.TxOptions
}

// NewTxManager creates a TxManager with the server's default isolation.
// Units touch disjoint pairs, so read committed is enough.
func NewTxManager(pool *pgxpool.Pool) *TxManager {
	return &TxManager{pool: pool}
}

// RunInTx commits when fn returns nil and rolls back otherwise, including
// when fn panics or ctx is cancelled mid-unit. The rollback runs on a
// context detached from cancellation so an aborted build still discards
// its partial batch. Begin and commit failures go through MapError, so a
// dropped connection is reported as transient and the coordinator retries
// the whole unit.
func (m *TxManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	tx, err := m.pool.BeginTx(ctx, m.opts)
	if err != nil {
		return MapError(err, "transaction", "begin")
	}

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
			panic(r)
		}
	}()

	if err := fn(withTx(ctx, tx)); err != nil {
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
			return fmt.Errorf("rollback failed: %w (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return MapError(err, "transaction", "commit")
	}

	return nil
}
