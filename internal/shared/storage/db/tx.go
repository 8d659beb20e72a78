package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"test-report-backend/internal/shared/telemetry"
)

// ExecTx runs fn inside a transaction, committing on nil and rolling back otherwise.
func ExecTx(ctx context.Context, database *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			telemetry.Error("db.rollback_failed", map[string]any{"error": err})
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
