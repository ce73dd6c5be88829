package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mugiisha/sop-sub001/internal/repository"
)

type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// pgPool is the subset of pgxpool.Pool the repositories need. pgxmock's pool
// interface satisfies it as well.
type pgPool interface {
	pgExecutor
	Begin(ctx context.Context) (pgx.Tx, error)
}

const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
)

// mapWriteError translates contention-shaped Postgres failures into
// repository.ErrConflict so callers can retry.
func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation, pgSerializationFailure:
			return repository.ErrConflict
		}
	}
	return err
}
