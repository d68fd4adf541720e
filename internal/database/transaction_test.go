package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"gorm.io/gorm"
)

func openTestDB(t *testing.T) Database {
	t.Helper()
	ctx := context.Background()

	db, err := NewDatabase(ctx, "sqlite:///"+filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewDatabase: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := db.Session(ctx).Exec("CREATE TABLE test_items (id INTEGER PRIMARY KEY, name TEXT)").Error; err != nil {
		t.Fatalf("create table: %v", err)
	}
	return db
}

func countItems(t *testing.T, db Database) int64 {
	t.Helper()
	var count int64
	if err := db.Session(context.Background()).Raw("SELECT COUNT(*) FROM test_items").Scan(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return count
}

func TestWithTransaction_CommitsOnSuccess(t *testing.T) {
	db := openTestDB(t)

	err := WithTransaction(context.Background(), db, func(tx *gorm.DB) error {
		return tx.Exec("INSERT INTO test_items (name) VALUES (?)", "item1").Error
	})
	if err != nil {
		t.Fatalf("WithTransaction: %v", err)
	}

	if got := countItems(t, db); got != 1 {
		t.Errorf("rows = %d, want 1", got)
	}
}

func TestWithTransaction_RollsBackOnError(t *testing.T) {
	db := openTestDB(t)

	testErr := errors.New("test error")
	err := WithTransaction(context.Background(), db, func(tx *gorm.DB) error {
		if err := tx.Exec("INSERT INTO test_items (name) VALUES (?)", "item1").Error; err != nil {
			return err
		}
		return testErr
	})
	if !errors.Is(err, testErr) {
		t.Errorf("err = %v, want test error", err)
	}

	if got := countItems(t, db); got != 0 {
		t.Errorf("rows = %d, want 0 after rollback", got)
	}
}

func TestWithTransaction_MultipleStatementsAtomic(t *testing.T) {
	db := openTestDB(t)

	err := WithTransaction(context.Background(), db, func(tx *gorm.DB) error {
		for _, name := range []string{"a", "b", "c"} {
			if err := tx.Exec("INSERT INTO test_items (name) VALUES (?)", name).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithTransaction: %v", err)
	}

	if got := countItems(t, db); got != 3 {
		t.Errorf("rows = %d, want 3", got)
	}
}
