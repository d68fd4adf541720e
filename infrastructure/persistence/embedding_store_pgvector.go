package persistence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/finsight-ai/finsight/domain/search"
	"github.com/finsight-ai/finsight/domain/store"
	"github.com/finsight-ai/finsight/internal/database"
)

// SQL queries specific to pgvector (extensions, indexes, catalog).
const (
	pgvCreateExtension = `CREATE EXTENSION IF NOT EXISTS vector`

	pgvCreateIndexTemplate = `
CREATE INDEX IF NOT EXISTS %s_idx
ON %s
USING ivfflat (embedding vector_cosine_ops)
WITH (lists = 100)`

	pgvCheckDimensionTemplate = `
SELECT a.atttypmod as dimension
FROM pg_attribute a
JOIN pg_class c ON a.attrelid = c.oid
WHERE c.relname = '%s'
AND a.attname = 'embedding'`
)

// Pgvector store errors.
var (
	ErrPgvectorInitializationFailed = errors.New("failed to initialize pgvector store")
	ErrDimensionMismatch            = errors.New("embedding dimension mismatch")
)

// PgvectorEmbeddingStore implements search.EmbeddingStore using the
// PostgreSQL pgvector extension. Distance ranking happens in SQL via the
// cosine distance operator.
type PgvectorEmbeddingStore struct {
	repo   database.Repository[search.Embedding, PgEmbeddingModel]
	logger *slog.Logger
}

// NewPgvectorEmbeddingStore creates a new PgvectorEmbeddingStore, eagerly
// initializing the extension, table, index, and verifying the dimension.
func NewPgvectorEmbeddingStore(ctx context.Context, db database.Database, dimension int, logger *slog.Logger) (*PgvectorEmbeddingStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &PgvectorEmbeddingStore{
		repo:   database.NewRepository[search.Embedding, PgEmbeddingModel](db, pgEmbeddingMapper{}, "embedding"),
		logger: logger,
	}

	rawDB := db.Session(ctx)

	if err := rawDB.Exec(pgvCreateExtension).Error; err != nil {
		return nil, errors.Join(ErrPgvectorInitializationFailed, fmt.Errorf("create extension: %w", err))
	}

	// Create table with the configured vector dimension (dynamic dimension
	// requires raw SQL).
	createTableSQL := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
    id BIGSERIAL PRIMARY KEY,
    chunk_id BIGINT NOT NULL UNIQUE,
    filing_id BIGINT NOT NULL,
    ticker VARCHAR(16) NOT NULL DEFAULT '',
    filing_type VARCHAR(16) NOT NULL DEFAULT '',
    fiscal_year INTEGER NOT NULL DEFAULT 0,
    section VARCHAR(255) NOT NULL DEFAULT '',
    embedding VECTOR(%d) NOT NULL
)`, embeddingTable, dimension)
	if err := rawDB.Exec(createTableSQL).Error; err != nil {
		return nil, errors.Join(ErrPgvectorInitializationFailed, fmt.Errorf("create table: %w", err))
	}

	// Create index (ignore errors if index already exists with different parameters)
	indexSQL := fmt.Sprintf(pgvCreateIndexTemplate, embeddingTable, embeddingTable)
	if err := rawDB.Exec(indexSQL).Error; err != nil {
		logger.Warn("failed to create index (may already exist)", "error", err)
	}

	// Verify the table's dimension matches the configured one.
	var dbDimension int
	checkDimensionSQL := fmt.Sprintf(pgvCheckDimensionTemplate, embeddingTable)
	result := rawDB.Raw(checkDimensionSQL).Scan(&dbDimension)
	if result.Error != nil && !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, errors.Join(ErrPgvectorInitializationFailed, fmt.Errorf("check dimension: %w", result.Error))
	}
	if result.RowsAffected > 0 && dbDimension != dimension {
		return nil, fmt.Errorf("%w: database has %d, provider has %d", ErrDimensionMismatch, dbDimension, dimension)
	}

	return s, nil
}

// SaveAll persists pre-computed embeddings using upsert.
func (s *PgvectorEmbeddingStore) SaveAll(ctx context.Context, embeddings []search.Embedding) error {
	if len(embeddings) == 0 {
		return nil
	}

	return s.repo.DB(ctx).Transaction(func(tx *gorm.DB) error {
		for _, emb := range embeddings {
			model := pgEmbeddingMapper{}.ToModel(emb)
			err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "chunk_id"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"filing_id", "ticker", "filing_type", "fiscal_year", "section", "embedding",
				}),
			}).Create(&model).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// Search performs vector similarity search in SQL, ordered by ascending
// cosine distance with chunk ID as the tie-break.
func (s *PgvectorEmbeddingStore) Search(ctx context.Context, options ...store.Option) ([]search.Result, error) {
	q := store.Build(options...)
	queryVector, ok := search.VectorFrom(q)
	if !ok || len(queryVector) == 0 {
		return []search.Result{}, nil
	}

	limit := q.LimitValue()
	if limit <= 0 {
		limit = 10
	}

	queryEmbedding := database.NewPgVector(queryVector).String()

	tx := s.repo.DB(ctx).Table(embeddingTable).
		Select("chunk_id, embedding <=> ? as distance", queryEmbedding)
	tx = database.ApplyConditions(tx, options...)

	if filters, ok := search.FiltersFrom(q); ok {
		tx = applySearchFilters(tx, filters)
	}

	tx = tx.Order("distance ASC, chunk_id ASC").Limit(limit)

	var rows []struct {
		ChunkID  int64   `gorm:"column:chunk_id"`
		Distance float64 `gorm:"column:distance"`
	}
	if err := tx.Scan(&rows).Error; err != nil {
		return nil, err
	}

	results := make([]search.Result, len(rows))
	for i, row := range rows {
		results[i] = search.NewResult(row.ChunkID, row.Distance)
	}
	return results, nil
}

// Exists checks if any embedding matches the given options.
func (s *PgvectorEmbeddingStore) Exists(ctx context.Context, options ...store.Option) (bool, error) {
	return s.repo.Exists(ctx, options...)
}

// Has reports which of the given chunk IDs have a stored vector.
func (s *PgvectorEmbeddingStore) Has(ctx context.Context, chunkIDs []int64) (map[int64]bool, error) {
	return storedChunkIDs(s.repo.DB(ctx), &PgEmbeddingModel{}, chunkIDs)
}

// DeleteBy removes embeddings matching the given options.
func (s *PgvectorEmbeddingStore) DeleteBy(ctx context.Context, options ...store.Option) error {
	return s.repo.DeleteBy(ctx, options...)
}

// Ensure both backends implement the domain store interface.
var (
	_ search.EmbeddingStore = (*SQLiteEmbeddingStore)(nil)
	_ search.EmbeddingStore = (*PgvectorEmbeddingStore)(nil)
)
