package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// TxFunc runs inside a transaction.
type TxFunc func(tx pgx.Tx) error

// WithTransaction runs fn in a read-write transaction, committing on success
// and rolling back on error or panic.
func WithTransaction(ctx context.Context, db DB, fn TxFunc) error {
	_, err := WithTransactionResult(ctx, db, func(tx pgx.Tx) (struct{}, error) {
		return struct{}{}, fn(tx)
	})
	return err
}

// WithTransactionResult is WithTransaction for functions with a result.
func WithTransactionResult[T any](ctx context.Context, db DB, fn func(tx pgx.Tx) (T, error)) (T, error) {
	return InTx(ctx, db, pgx.TxOptions{}, fn)
}

// InTx runs fn in a transaction with the given options.
func InTx[T any](ctx context.Context, db DB, opts pgx.TxOptions, fn func(tx pgx.Tx) (T, error)) (result T, err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return result, fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx) //nolint:errcheck // best effort on panic
			panic(p)
		}
	}()

	result, err = fn(tx)
	if err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return result, fmt.Errorf("tx error: %w, rollback error: %v", err, rbErr)
		}
		return result, err
	}

	if err := tx.Commit(ctx); err != nil {
		return result, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return result, nil
}
