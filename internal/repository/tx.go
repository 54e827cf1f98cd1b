package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// Querier is the subset of database operations shared by *sql.DB and
// *sql.Tx. Repository methods that must participate in a caller-owned
// transaction take a Querier instead of using the pooled handle directly.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// TxRunner executes a function inside a single database transaction.
// If fn returns an error the transaction is rolled back and no write made
// inside it remains visible.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(q Querier) error) error
}

type sqlTxRunner struct {
	db *sql.DB
}

// NewTxRunner creates a TxRunner backed by the given database handle
func NewTxRunner(db *sql.DB) TxRunner {
	return &sqlTxRunner{db: db}
}

// WithinTx begins a transaction, runs fn against it, and commits only if
// fn returned nil. A panic inside fn also rolls back before re-panicking.
func (r *sqlTxRunner) WithinTx(ctx context.Context, fn func(q Querier) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
