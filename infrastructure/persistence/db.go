package persistence

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"gorm.io/gorm"

	"github.com/finsight-ai/finsight/domain/search"
	"github.com/finsight-ai/finsight/internal/database"
)

// AutoMigrate runs GORM auto migration for the corpus models. The
// embedding table is created by the backend-specific embedding store
// because its vector column type depends on the dialect.
func AutoMigrate(db database.Database) error {
	return db.GORM().AutoMigrate(
		&CompanyModel{},
		&FilingModel{},
		&ChunkModel{},
	)
}

// NewEmbeddingStore selects the vector backend for the connected
// database: pgvector on PostgreSQL, in-memory cosine over JSON columns
// on SQLite.
func NewEmbeddingStore(ctx context.Context, db database.Database, dimension int, logger *slog.Logger) (search.EmbeddingStore, error) {
	if db.IsPostgres() {
		return NewPgvectorEmbeddingStore(ctx, db, dimension, logger)
	}
	return NewSQLiteEmbeddingStore(db, logger)
}

// allModels returns every GORM model that AutoMigrate manages.
func allModels() []interface{} {
	return []interface{}{
		&CompanyModel{},
		&FilingModel{},
		&ChunkModel{},
	}
}

// ValidateSchema verifies every GORM model field has a corresponding column
// in the database. Returns an error listing any missing columns.
func ValidateSchema(db database.Database) error {
	gdb := db.GORM()
	migrator := gdb.Migrator()

	var missing []string
	for _, model := range allModels() {
		stmt := &gorm.Statement{DB: gdb}
		if err := stmt.Parse(model); err != nil {
			return fmt.Errorf("parse model schema: %w", err)
		}

		columnTypes, err := migrator.ColumnTypes(model)
		if err != nil {
			return fmt.Errorf("get column types for %s: %w", stmt.Table, err)
		}

		actual := make(map[string]bool, len(columnTypes))
		for _, ct := range columnTypes {
			actual[ct.Name()] = true
		}

		for _, field := range stmt.Schema.Fields {
			if field.DBName == "" || field.DBName == "-" {
				continue
			}
			if !actual[field.DBName] {
				missing = append(missing, stmt.Table+"."+field.DBName)
			}
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("schema validation failed, missing columns: %s", strings.Join(missing, ", "))
	}
	return nil
}
