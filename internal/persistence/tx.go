package persistence

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "github.com/spec-kit/credit-line-service/pkg/util/errorutil"
)

// Querier is the subset of pgx operations shared by pools and transactions.
// Repositories are written against it so the same code runs pooled or inside
// an atomic scope.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxRunner executes a unit of work atomically: every write issued through the
// scope handle commits as one unit, or none do. If fn returns an error the
// transaction is rolled back and the original error is returned unchanged.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(q Querier) error) error
}

type pgxTxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner builds a TxRunner backed by the connection pool.
func NewTxRunner(pool *pgxpool.Pool) TxRunner {
	return &pgxTxRunner{pool: pool}
}

func (r *pgxTxRunner) WithinTx(ctx context.Context, fn func(q Querier) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return apperrors.NewStoreUnavailable(err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return apperrors.NewStoreUnavailable(err)
	}
	return nil
}
