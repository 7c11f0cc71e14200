package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgx query methods the repositories need. Both
// *pgxpool.Pool and pgx.Tx satisfy it, so the same repository can run against
// the pool directly or inside a caller-owned transaction (the ingestion sync
// pass relies on this to keep all of its writes in one transaction).
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
