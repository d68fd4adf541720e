package persistence

import (
	"time"

	"github.com/finsight-ai/finsight/domain/corpus"
)

// CompanyMapper maps between domain Company and persistence CompanyModel.
type CompanyMapper struct{}

// ToDomain converts a CompanyModel to a domain Company.
func (m CompanyMapper) ToDomain(e CompanyModel) corpus.Company {
	return corpus.RestoreCompany(
		e.ID,
		e.Ticker,
		e.Name,
		e.CIK,
		e.Sector,
		e.Industry,
		e.CreatedAt,
		e.UpdatedAt,
	)
}

// ToModel converts a domain Company to a CompanyModel.
func (m CompanyMapper) ToModel(c corpus.Company) CompanyModel {
	return CompanyModel{
		ID:        c.ID(),
		Ticker:    c.Ticker(),
		Name:      c.Name(),
		CIK:       c.CIK(),
		Sector:    c.Sector(),
		Industry:  c.Industry(),
		CreatedAt: c.CreatedAt(),
		UpdatedAt: c.UpdatedAt(),
	}
}

// FilingMapper maps between domain Filing and persistence FilingModel.
type FilingMapper struct{}

// ToDomain converts a FilingModel to a domain Filing.
func (m FilingMapper) ToDomain(e FilingModel) corpus.Filing {
	var filedAt time.Time
	if e.FiledAt != nil {
		filedAt = *e.FiledAt
	}

	return corpus.RestoreFiling(
		e.ID,
		e.CompanyID,
		corpus.FilingType(e.FilingType),
		e.FiscalYear,
		e.AccessionNumber,
		e.SourceURL,
		filedAt,
		corpus.FetchStatus(e.FetchStatus),
		e.FetchError,
		e.Chunked,
		e.CreatedAt,
		e.UpdatedAt,
	)
}

// ToModel converts a domain Filing to a FilingModel.
func (m FilingMapper) ToModel(f corpus.Filing) FilingModel {
	var filedAt *time.Time
	if !f.FiledAt().IsZero() {
		t := f.FiledAt()
		filedAt = &t
	}

	return FilingModel{
		ID:              f.ID(),
		CompanyID:       f.CompanyID(),
		FilingType:      string(f.Type()),
		FiscalYear:      f.FiscalYear(),
		AccessionNumber: f.AccessionNumber(),
		SourceURL:       f.SourceURL(),
		FiledAt:         filedAt,
		FetchStatus:     string(f.Status()),
		FetchError:      f.FetchError(),
		Chunked:         f.IsChunked(),
		CreatedAt:       f.CreatedAt(),
		UpdatedAt:       f.UpdatedAt(),
	}
}

// ChunkMapper maps between domain Chunk and persistence ChunkModel.
type ChunkMapper struct{}

// ToDomain converts a ChunkModel to a domain Chunk.
func (m ChunkMapper) ToDomain(e ChunkModel) corpus.Chunk {
	return corpus.RestoreChunk(
		e.ID,
		e.FilingID,
		e.Section,
		e.Seq,
		e.Text,
		e.TokenCount,
		e.Embedded,
		e.CreatedAt,
	)
}

// ToModel converts a domain Chunk to a ChunkModel.
func (m ChunkMapper) ToModel(c corpus.Chunk) ChunkModel {
	return ChunkModel{
		ID:         c.ID(),
		FilingID:   c.FilingID(),
		Section:    c.Section(),
		Seq:        c.Seq(),
		Text:       c.Text(),
		TokenCount: c.TokenCount(),
		Embedded:   c.IsEmbedded(),
		CreatedAt:  c.CreatedAt(),
	}
}
