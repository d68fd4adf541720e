package persistence

import (
	"context"
	"fmt"

	"gorm.io/gorm/clause"

	"github.com/finsight-ai/finsight/domain/corpus"
	"github.com/finsight-ai/finsight/domain/store"
	"github.com/finsight-ai/finsight/internal/database"
)

// FilingStore persists filings using GORM. The accession number is the
// natural key, which makes repeated discovery runs idempotent.
type FilingStore struct {
	database.Repository[corpus.Filing, FilingModel]
}

// NewFilingStore creates a new FilingStore.
func NewFilingStore(db database.Database) FilingStore {
	return FilingStore{
		Repository: database.NewRepository[corpus.Filing, FilingModel](db, FilingMapper{}, "filing"),
	}
}

// Save creates or updates a filing keyed by accession number and returns
// the persisted filing with its ID set.
func (s FilingStore) Save(ctx context.Context, filing corpus.Filing) (corpus.Filing, error) {
	model := s.Mapper().ToModel(filing)

	result := s.DB(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "accession_number"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"source_url", "filed_at", "fetch_status", "fetch_error", "chunked", "updated_at",
		}),
	}).Create(&model)
	if result.Error != nil {
		return corpus.Filing{}, fmt.Errorf("save filing: %w", result.Error)
	}

	return s.FindOne(ctx, store.WithAccessionNumber(filing.AccessionNumber()))
}

// Unchunked returns the company's filings whose text has not been split
// and stored yet.
func (s FilingStore) Unchunked(ctx context.Context, companyID int64) ([]corpus.Filing, error) {
	return s.Find(ctx,
		store.WithCompanyID(companyID),
		store.WithChunked(false),
		store.WithOrderAsc("id"),
	)
}

var _ corpus.FilingStore = FilingStore{}
