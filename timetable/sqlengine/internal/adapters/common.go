package adapters

import (
	"context"
	"database/sql"
	"errors"
)

// DBExecutor runs plain SQL strings, either against a pool or inside a transaction.
type DBExecutor interface {
	Query(ctx context.Context, query string) (DBRows, error)
	Exec(ctx context.Context, query string) (DBResult, error)
}

// DBAdapter defines the database operations needed by the event store.
type DBAdapter interface {
	DBExecutor

	// WithinTx runs fn in a transaction that is committed when fn returns nil and rolled back otherwise.
	WithinTx(ctx context.Context, fn func(tx DBExecutor) error) error
}

// DBRows defines the interface for query result rows.
type DBRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// DBResult defines the interface for execution results.
type DBResult interface {
	RowsAffected() (int64, error)
}

// stdQueryer is what *sql.DB, *sql.Tx, *sqlx.DB and *sqlx.Tx have in common.
type stdQueryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// stdExecutor adapts any stdQueryer to DBExecutor.
type stdExecutor struct {
	q stdQueryer
}

func (s stdExecutor) Query(ctx context.Context, query string) (DBRows, error) {
	rows, err := s.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}

	return &stdRows{rows: rows}, nil
}

func (s stdExecutor) Exec(ctx context.Context, query string) (DBResult, error) {
	result, err := s.q.ExecContext(ctx, query)
	if err != nil {
		return nil, err
	}

	return &stdResult{result: result}, nil
}

// stdTx is the commit/rollback half of *sql.Tx and *sqlx.Tx.
type stdTx interface {
	stdQueryer
	Commit() error
	Rollback() error
}

func runStdTx(tx stdTx, fn func(tx DBExecutor) error) error {
	if err := fn(stdExecutor{q: tx}); err != nil {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return errors.Join(err, rollbackErr)
		}

		return err
	}

	return tx.Commit()
}

// stdRows wraps standard library sql.Rows to implement DBRows interface.
type stdRows struct {
	rows *sql.Rows
}

// Next advances to the next row.
func (s *stdRows) Next() bool {
	return s.rows.Next()
}

// Scan copies row values into provided destinations.
func (s *stdRows) Scan(dest ...any) error {
	return s.rows.Scan(dest...)
}

func (s *stdRows) Err() error {
	return s.rows.Err()
}

// Close closes the rows iterator.
func (s *stdRows) Close() error {
	return s.rows.Close()
}

// stdResult wraps standard library sql.Result to implement DBResult interface.
type stdResult struct {
	result sql.Result
}

// RowsAffected returns the number of rows affected by the command.
func (s *stdResult) RowsAffected() (int64, error) {
	return s.result.RowsAffected()
}
