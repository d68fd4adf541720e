package database

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// WithTransaction runs fn inside a transaction. The transaction commits
// when fn returns nil and rolls back otherwise. Rollback errors are
// swallowed in favour of fn's error.
func WithTransaction(ctx context.Context, db Database, fn func(tx *gorm.DB) error) error {
	tx := db.Session(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("begin transaction: %w", tx.Error)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback().Error
		return err
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
