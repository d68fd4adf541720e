package persistence

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/finsight-ai/finsight/domain/corpus"
	"github.com/finsight-ai/finsight/domain/store"
	"github.com/finsight-ai/finsight/internal/database"
)

const saveAllBatchSize = 500

// ChunkStore persists filing chunks using GORM. Chunks are keyed by
// (filing, seq) so re-chunking a filing replaces rows instead of
// duplicating them.
type ChunkStore struct {
	database.Repository[corpus.Chunk, ChunkModel]
	db database.Database
}

// NewChunkStore creates a new ChunkStore.
func NewChunkStore(db database.Database) ChunkStore {
	return ChunkStore{
		Repository: database.NewRepository[corpus.Chunk, ChunkModel](db, ChunkMapper{}, "chunk"),
		db:         db,
	}
}

// SaveAll creates or updates chunks using batched upsert and returns the
// persisted chunks in filing order with IDs set.
func (s ChunkStore) SaveAll(ctx context.Context, filingID int64, chunks []corpus.Chunk) ([]corpus.Chunk, error) {
	if len(chunks) == 0 {
		return []corpus.Chunk{}, nil
	}

	models := make([]ChunkModel, len(chunks))
	for i, c := range chunks {
		models[i] = s.Mapper().ToModel(c)
	}

	err := database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "filing_id"}, {Name: "seq"}},
			DoUpdates: clause.AssignmentColumns([]string{"section", "text", "token_count"}),
		}).CreateInBatches(models, saveAllBatchSize).Error
	})
	if err != nil {
		return nil, fmt.Errorf("save chunks: %w", err)
	}

	// Upserted rows may come back without IDs; re-read in filing order.
	return s.ByFiling(ctx, filingID)
}

// ByFiling returns a filing's chunks ordered by sequence.
func (s ChunkStore) ByFiling(ctx context.Context, filingID int64) ([]corpus.Chunk, error) {
	return s.Find(ctx,
		store.WithFilingID(filingID),
		store.WithOrderAsc("seq"),
	)
}

// Unembedded returns a filing's chunks that do not have a stored vector
// yet, ordered by sequence.
func (s ChunkStore) Unembedded(ctx context.Context, filingID int64) ([]corpus.Chunk, error) {
	return s.Find(ctx,
		store.WithFilingID(filingID),
		store.WithEmbedded(false),
		store.WithOrderAsc("seq"),
	)
}

// MarkEmbedded flips the embedded checkpoint for the given chunks.
func (s ChunkStore) MarkEmbedded(ctx context.Context, chunkIDs []int64) error {
	if len(chunkIDs) == 0 {
		return nil
	}
	result := s.DB(ctx).Model(&ChunkModel{}).Where("id IN ?", chunkIDs).Update("embedded", true)
	if result.Error != nil {
		return fmt.Errorf("mark chunks embedded: %w", result.Error)
	}
	return nil
}

var _ corpus.ChunkStore = ChunkStore{}
