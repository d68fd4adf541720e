// Package persistence provides database storage implementations.
package persistence

import "time"

// CompanyModel is the GORM model for companies.
type CompanyModel struct {
	ID        int64  `gorm:"column:id;primaryKey;autoIncrement"`
	Ticker    string `gorm:"column:ticker;size:16;uniqueIndex;not null"`
	Name      string `gorm:"column:name;size:255;not null"`
	CIK       string `gorm:"column:cik;size:10;index"`
	Sector    string `gorm:"column:sector;size:128"`
	Industry  string `gorm:"column:industry;size:128"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the table name.
func (CompanyModel) TableName() string { return "companies" }

// FilingModel is the GORM model for SEC filings.
type FilingModel struct {
	ID              int64      `gorm:"column:id;primaryKey;autoIncrement"`
	CompanyID       int64      `gorm:"column:company_id;index;not null"`
	FilingType      string     `gorm:"column:filing_type;size:16;not null"`
	FiscalYear      int        `gorm:"column:fiscal_year;index"`
	AccessionNumber string     `gorm:"column:accession_number;size:32;uniqueIndex;not null"`
	SourceURL       string     `gorm:"column:source_url;size:1024"`
	FiledAt         *time.Time `gorm:"column:filed_at"`
	FetchStatus     string     `gorm:"column:fetch_status;size:16;index;not null"`
	FetchError      string     `gorm:"column:fetch_error;type:text"`
	Chunked         bool       `gorm:"column:chunked;index;not null;default:false"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TableName returns the table name.
func (FilingModel) TableName() string { return "filings" }

// ChunkModel is the GORM model for filing text chunks.
type ChunkModel struct {
	ID         int64  `gorm:"column:id;primaryKey;autoIncrement"`
	FilingID   int64  `gorm:"column:filing_id;index;uniqueIndex:idx_chunks_filing_seq;not null"`
	Section    string `gorm:"column:section;size:255"`
	Seq        int    `gorm:"column:seq;uniqueIndex:idx_chunks_filing_seq;not null"`
	Text       string `gorm:"column:text;type:text;not null"`
	TokenCount int    `gorm:"column:token_count;not null"`
	Embedded   bool   `gorm:"column:embedded;index;not null;default:false"`
	CreatedAt  time.Time
}

// TableName returns the table name.
func (ChunkModel) TableName() string { return "chunks" }
