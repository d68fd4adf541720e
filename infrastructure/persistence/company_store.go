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

// CompanyStore persists companies using GORM. The ticker is the natural
// key: saving an existing ticker updates the row in place.
type CompanyStore struct {
	database.Repository[corpus.Company, CompanyModel]
	db database.Database
}

// NewCompanyStore creates a new CompanyStore.
func NewCompanyStore(db database.Database) CompanyStore {
	return CompanyStore{
		Repository: database.NewRepository[corpus.Company, CompanyModel](db, CompanyMapper{}, "company"),
		db:         db,
	}
}

// Save creates or updates a company keyed by ticker and returns the
// persisted company with its ID set.
func (s CompanyStore) Save(ctx context.Context, company corpus.Company) (corpus.Company, error) {
	model := s.Mapper().ToModel(company)

	result := s.DB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "ticker"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "cik", "sector", "industry", "updated_at"}),
	}).Create(&model)
	if result.Error != nil {
		return corpus.Company{}, fmt.Errorf("save company: %w", result.Error)
	}

	// On conflict some dialects leave the ID unset; re-read by ticker.
	return s.FindOne(ctx, store.WithTicker(company.Ticker()))
}

// Delete removes a company along with its filings and chunks.
func (s CompanyStore) Delete(ctx context.Context, company corpus.Company) error {
	err := database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		var filingIDs []int64
		if err := tx.Model(&FilingModel{}).Where("company_id = ?", company.ID()).Pluck("id", &filingIDs).Error; err != nil {
			return err
		}

		if len(filingIDs) > 0 {
			if err := tx.Where("filing_id IN ?", filingIDs).Delete(&ChunkModel{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("company_id = ?", company.ID()).Delete(&FilingModel{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", company.ID()).Delete(&CompanyModel{}).Error
	})
	if err != nil {
		return fmt.Errorf("delete company %s: %w", company.Ticker(), err)
	}
	return nil
}

// FilingIDs returns the IDs of all filings owned by the company.
func (s CompanyStore) FilingIDs(ctx context.Context, companyID int64) ([]int64, error) {
	var ids []int64
	err := s.db.Session(ctx).Model(&FilingModel{}).Where("company_id = ?", companyID).Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list filing ids: %w", err)
	}
	return ids, nil
}

var _ corpus.CompanyStore = CompanyStore{}
