package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/phrazzld/engage-api/internal/store"
)

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// recordQuery is the shared read path of every store: it runs a query and
// turns rows into *T with a per-entity scan function. Missing single rows map
// to notFound; driver errors go through MapError.
type recordQuery[T any] struct {
	db       store.DBTX
	scan     func(rowScanner) (*T, error)
	notFound error
}

// one returns the single row produced by query.
func (q recordQuery[T]) one(ctx context.Context, query string, args ...any) (*T, error) {
	rec, err := q.scan(q.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, q.notFound
		}
		return nil, MapError(err, q.notFound)
	}
	return rec, nil
}

// many returns every row produced by query, in result order. An empty result
// is an empty, non-nil slice.
func (q recordQuery[T]) many(ctx context.Context, query string, args ...any) ([]*T, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, MapError(err, q.notFound)
	}
	defer func() { _ = rows.Close() }()

	out := make([]*T, 0)
	for rows.Next() {
		rec, err := q.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return out, nil
}

// withDB returns a copy of q bound to db, used by the WithTx methods.
func (q recordQuery[T]) withDB(db store.DBTX) recordQuery[T] {
	q.db = db
	return q
}
