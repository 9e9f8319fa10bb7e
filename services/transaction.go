package services

import (
	"context"
	"fmt"

	"github.com/awwsmm/subway/repositories"
)

// WithTransaction runs fn inside one transaction and commits when fn returns
// nil. The context handed to fn carries the transaction so repositories join
// it. An error or panic from fn rolls back. Failing to begin or commit is
// reported as ErrTransactionFailed.
func WithTransaction(ctx context.Context, txMgr repositories.TransactionManager, fn func(ctx context.Context, tx repositories.Transaction) error) error {
	tx, err := txMgr.Begin(ctx)
	if err != nil {
		return WrapError(ErrTransactionFailed, fmt.Errorf("failed to begin transaction: %w", err))
	}

	// Use defer to ensure rollback on panic
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p) // Re-panic after rollback
		}
	}()

	if err := fn(repositories.ContextWithTransaction(ctx, tx), tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction error: %v, rollback error: %w", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return WrapError(ErrTransactionFailed, fmt.Errorf("failed to commit transaction: %w", err))
	}

	return nil
}
