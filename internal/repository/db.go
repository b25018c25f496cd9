package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound indicates the requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrStaleWrite indicates a conditional update whose predicate no longer held.
	ErrStaleWrite = errors.New("stale write")
)

// PgxPool is the subset of *pgxpool.Pool used by repositories.
// It is also implemented by pgxmock.PgxPoolIface.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

type rowScanner interface {
	Scan(dest ...any) error
}

// validID reports whether id can name a row. Primary keys are UUID columns, so
// any other string matches nothing and must not reach Postgres as a cast error.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func notFoundOr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func commitOrRollback(ctx context.Context, tx pgx.Tx, err *error) {
	if *err != nil {
		_ = tx.Rollback(ctx)
		return
	}
	if e := tx.Commit(ctx); e != nil {
		*err = e
	}
}
