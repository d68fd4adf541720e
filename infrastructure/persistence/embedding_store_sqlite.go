package persistence

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/finsight-ai/finsight/domain/search"
	"github.com/finsight-ai/finsight/domain/store"
	"github.com/finsight-ai/finsight/internal/database"
)

// SQLiteEmbeddingStore implements search.EmbeddingStore for SQLite.
// Vectors are stored as JSON and similarity search runs in memory over
// the filtered candidate set.
type SQLiteEmbeddingStore struct {
	database.Repository[search.Embedding, SQLiteEmbeddingModel]
	logger *slog.Logger
}

// NewSQLiteEmbeddingStore creates a new SQLiteEmbeddingStore.
func NewSQLiteEmbeddingStore(db database.Database, logger *slog.Logger) (*SQLiteEmbeddingStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &SQLiteEmbeddingStore{
		Repository: database.NewRepository[search.Embedding, SQLiteEmbeddingModel](
			db, sqliteEmbeddingMapper{}, "embedding",
		),
		logger: logger,
	}

	if err := db.GORM().AutoMigrate(&SQLiteEmbeddingModel{}); err != nil {
		return nil, fmt.Errorf("create table %s: %w", embeddingTable, err)
	}

	return s, nil
}

// SaveAll persists pre-computed embeddings using batched upsert.
func (s *SQLiteEmbeddingStore) SaveAll(ctx context.Context, embeddings []search.Embedding) error {
	if len(embeddings) == 0 {
		return nil
	}

	models := make([]SQLiteEmbeddingModel, len(embeddings))
	for i, emb := range embeddings {
		models[i] = s.Mapper().ToModel(emb)
	}

	return s.DB(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "chunk_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"filing_id", "ticker", "filing_type", "fiscal_year", "section", "embedding",
			}),
		}).CreateInBatches(models, saveAllBatchSize).Error
	})
}

// Search performs vector similarity search using the pre-computed query
// vector passed via search.WithVector. Results come back ordered by
// ascending cosine distance, ties broken by insertion order.
func (s *SQLiteEmbeddingStore) Search(ctx context.Context, options ...store.Option) ([]search.Result, error) {
	q := store.Build(options...)
	queryVector, ok := search.VectorFrom(q)
	if !ok || len(queryVector) == 0 {
		return []search.Result{}, nil
	}

	limit := q.LimitValue()
	if limit <= 0 {
		limit = 10
	}

	vectors, err := s.loadVectors(ctx, options...)
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return []search.Result{}, nil
	}

	matches := TopKNearest(queryVector, vectors, limit)

	results := make([]search.Result, len(matches))
	for i, m := range matches {
		results[i] = search.NewResult(m.ChunkID(), m.Distance())
	}
	return results, nil
}

// Has reports which of the given chunk IDs have a stored vector.
func (s *SQLiteEmbeddingStore) Has(ctx context.Context, chunkIDs []int64) (map[int64]bool, error) {
	return storedChunkIDs(s.DB(ctx), &SQLiteEmbeddingModel{}, chunkIDs)
}

// loadVectors loads candidate vectors, applying filters in SQL so only
// the matching slice of the corpus is ranked in memory. Insertion order
// is preserved for stable tie-breaks.
func (s *SQLiteEmbeddingStore) loadVectors(ctx context.Context, options ...store.Option) ([]StoredVector, error) {
	var entities []SQLiteEmbeddingModel

	q := store.Build(options...)
	db := database.ApplyConditions(s.DB(ctx).Model(&SQLiteEmbeddingModel{}), options...)

	if filters, ok := search.FiltersFrom(q); ok {
		db = applySearchFilters(db, filters)
	}

	if err := db.Order("id ASC").Find(&entities).Error; err != nil {
		return nil, err
	}

	vectors := make([]StoredVector, 0, len(entities))
	for _, e := range entities {
		if len(e.Embedding) == 0 {
			s.logger.Warn("skipping empty embedding", "chunk_id", e.ChunkID)
			continue
		}
		vectors = append(vectors, NewStoredVector(e.ChunkID, e.Embedding))
	}
	return vectors, nil
}

// storedChunkIDs is the shared Has implementation for both backends.
func storedChunkIDs(db *gorm.DB, model any, chunkIDs []int64) (map[int64]bool, error) {
	result := make(map[int64]bool, len(chunkIDs))
	if len(chunkIDs) == 0 {
		return result, nil
	}

	var found []int64
	err := db.Model(model).Where("chunk_id IN ?", chunkIDs).Pluck("chunk_id", &found).Error
	if err != nil {
		return nil, fmt.Errorf("check stored embeddings: %w", err)
	}

	for _, id := range chunkIDs {
		result[id] = false
	}
	for _, id := range found {
		result[id] = true
	}
	return result, nil
}
