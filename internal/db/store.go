package db

import (
	"context"
	"database/sql"
)

// querier is satisfied by both *sql.DB and *sql.Tx, letting Store methods
// run either standalone or inside a transaction without duplicating code.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Store is the C1 store-adapter contract: a thin wrapper over a
// row-oriented transactional executor. Callers never see *sql.DB or
// *sql.Tx directly; they get run/get/all, which is all the repository,
// queue, and dead-letter layers need.
type Store struct {
	q querier
}

// NewStore wraps the database's top-level connection.
func NewStore(db *DB) *Store {
	return &Store{q: db.conn}
}

// run executes a statement that returns no rows (INSERT/UPDATE/DELETE).
func (s *Store) run(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.q.ExecContext(ctx, query, args...)
}

// get executes a query expected to return at most one row and scans it
// with scan. Returns sql.ErrNoRows if nothing matched, unchanged, so
// callers can distinguish "absent" from a scan failure.
func (s *Store) get(ctx context.Context, scan func(*sql.Row) error, query string, args ...any) error {
	row := s.q.QueryRowContext(ctx, query, args...)
	return scan(row)
}

// all executes a query and invokes visit once per returned row. visit
// is responsible for scanning its own columns.
func (s *Store) all(ctx context.Context, visit func(*sql.Rows) error, query string, args ...any) error {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := visit(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

// withTx runs fn with a Store bound to a fresh transaction, committing on
// success and rolling back on any error. This is how the task repository
// satisfies I2: the row mutation and its sync-queue intent commit or fail
// together.
func (db *DB) withTx(ctx context.Context, fn func(*Store) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	store := &Store{q: tx}
	if err := fn(store); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}
