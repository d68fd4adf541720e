package persistence

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"gorm.io/gorm"

	"github.com/finsight-ai/finsight/domain/search"
	"github.com/finsight-ai/finsight/internal/database"
)

// embeddingTable is the shared table name for both vector backends. Only
// one backend is active per process, selected by the database dialect.
const embeddingTable = "chunk_embeddings"

// PgEmbeddingModel is the GORM model for the pgvector embedding table.
type PgEmbeddingModel struct {
	ID         int64             `gorm:"column:id;primaryKey;autoIncrement"`
	ChunkID    int64             `gorm:"column:chunk_id;uniqueIndex"`
	FilingID   int64             `gorm:"column:filing_id;index"`
	Ticker     string            `gorm:"column:ticker;size:16;index"`
	FilingType string            `gorm:"column:filing_type;size:16"`
	FiscalYear int               `gorm:"column:fiscal_year;index"`
	Section    string            `gorm:"column:section;size:255"`
	Embedding  database.PgVector `gorm:"column:embedding;type:vector"`
}

// TableName returns the table name.
func (PgEmbeddingModel) TableName() string { return embeddingTable }

// pgEmbeddingMapper maps between search.Embedding and PgEmbeddingModel.
type pgEmbeddingMapper struct{}

func (pgEmbeddingMapper) ToDomain(entity PgEmbeddingModel) search.Embedding {
	return search.NewEmbedding(
		entity.ChunkID,
		entity.FilingID,
		entity.Ticker,
		entity.FilingType,
		entity.FiscalYear,
		entity.Section,
		entity.Embedding.Floats(),
	)
}

func (pgEmbeddingMapper) ToModel(domain search.Embedding) PgEmbeddingModel {
	return PgEmbeddingModel{
		ChunkID:    domain.ChunkID(),
		FilingID:   domain.FilingID(),
		Ticker:     domain.Ticker(),
		FilingType: domain.FilingType(),
		FiscalYear: domain.FiscalYear(),
		Section:    domain.Section(),
		Embedding:  database.NewPgVector(domain.Vector()),
	}
}

// Float64Slice is a custom type for JSON serialization of []float64 in SQLite.
type Float64Slice []float64

// Scan implements sql.Scanner for reading JSON from SQLite.
func (f *Float64Slice) Scan(value any) error {
	if value == nil {
		*f = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into Float64Slice", value)
	}

	return json.Unmarshal(data, f)
}

// Value implements driver.Valuer for writing JSON to SQLite.
func (f Float64Slice) Value() (driver.Value, error) {
	if f == nil {
		return nil, nil
	}
	return json.Marshal(f)
}

// SQLiteEmbeddingModel is the GORM model for the SQLite embedding table.
type SQLiteEmbeddingModel struct {
	ID         int64        `gorm:"column:id;primaryKey;autoIncrement"`
	ChunkID    int64        `gorm:"column:chunk_id;uniqueIndex"`
	FilingID   int64        `gorm:"column:filing_id;index"`
	Ticker     string       `gorm:"column:ticker;size:16;index"`
	FilingType string       `gorm:"column:filing_type;size:16"`
	FiscalYear int          `gorm:"column:fiscal_year;index"`
	Section    string       `gorm:"column:section;size:255"`
	Embedding  Float64Slice `gorm:"column:embedding;type:json"`
}

// TableName returns the table name.
func (SQLiteEmbeddingModel) TableName() string { return embeddingTable }

// sqliteEmbeddingMapper maps between search.Embedding and SQLiteEmbeddingModel.
type sqliteEmbeddingMapper struct{}

func (sqliteEmbeddingMapper) ToDomain(entity SQLiteEmbeddingModel) search.Embedding {
	return search.NewEmbedding(
		entity.ChunkID,
		entity.FilingID,
		entity.Ticker,
		entity.FilingType,
		entity.FiscalYear,
		entity.Section,
		[]float64(entity.Embedding),
	)
}

func (sqliteEmbeddingMapper) ToModel(domain search.Embedding) SQLiteEmbeddingModel {
	vec := domain.Vector()
	cp := make(Float64Slice, len(vec))
	copy(cp, vec)
	return SQLiteEmbeddingModel{
		ChunkID:    domain.ChunkID(),
		FilingID:   domain.FilingID(),
		Ticker:     domain.Ticker(),
		FilingType: domain.FilingType(),
		FiscalYear: domain.FiscalYear(),
		Section:    domain.Section(),
		Embedding:  cp,
	}
}

// applySearchFilters translates retrieval filters into WHERE clauses on
// the embedding table's denormalized metadata columns.
func applySearchFilters(db *gorm.DB, f search.Filters) *gorm.DB {
	if f.Ticker() != "" {
		db = db.Where("ticker = ?", f.Ticker())
	}
	if f.FilingType() != "" {
		db = db.Where("filing_type = ?", f.FilingType())
	}
	if f.FiscalYear() != 0 {
		db = db.Where("fiscal_year = ?", f.FiscalYear())
	}
	if f.Section() != "" {
		db = db.Where("section = ?", f.Section())
	}
	if ids := f.FilingIDs(); len(ids) > 0 {
		db = db.Where("filing_id IN ?", ids)
	}
	return db
}

// StoredVector holds an embedding vector with its chunk ID.
type StoredVector struct {
	chunkID   int64
	embedding []float64
}

// NewStoredVector creates a new StoredVector.
func NewStoredVector(chunkID int64, embedding []float64) StoredVector {
	vec := make([]float64, len(embedding))
	copy(vec, embedding)
	return StoredVector{
		chunkID:   chunkID,
		embedding: vec,
	}
}

// ChunkID returns the chunk identifier.
func (v StoredVector) ChunkID() int64 { return v.chunkID }

// Embedding returns the embedding vector (copy).
func (v StoredVector) Embedding() []float64 {
	result := make([]float64, len(v.embedding))
	copy(result, v.embedding)
	return result
}

// DistanceMatch holds a chunk ID and its cosine distance from the query.
type DistanceMatch struct {
	chunkID  int64
	distance float64
}

// NewDistanceMatch creates a new DistanceMatch.
func NewDistanceMatch(chunkID int64, distance float64) DistanceMatch {
	return DistanceMatch{
		chunkID:  chunkID,
		distance: distance,
	}
}

// ChunkID returns the chunk identifier.
func (m DistanceMatch) ChunkID() int64 { return m.chunkID }

// Distance returns the cosine distance.
func (m DistanceMatch) Distance() float64 { return m.distance }

// CosineSimilarity computes the cosine similarity between two vectors.
// Returns a value between -1 (opposite) and 1 (identical).
// Returns 0 if either vector has zero magnitude.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, magA, magB float64
	for i := range a {
		dotProduct += a[i] * b[i]
		magA += a[i] * a[i]
		magB += b[i] * b[i]
	}

	if magA == 0 || magB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(magA) * math.Sqrt(magB))
}

// CosineDistance computes the cosine distance between two vectors:
// 0 = identical, 1 = orthogonal, 2 = opposite.
func CosineDistance(a, b []float64) float64 {
	return 1.0 - CosineSimilarity(a, b)
}

// TopKNearest finds the k vectors closest to the query by cosine
// distance. Results are sorted ascending; ties keep the input order, so
// callers that load vectors in insertion order get a stable ranking.
func TopKNearest(query []float64, vectors []StoredVector, k int) []DistanceMatch {
	if len(vectors) == 0 || k <= 0 {
		return []DistanceMatch{}
	}

	matches := make([]DistanceMatch, 0, len(vectors))
	for _, v := range vectors {
		matches = append(matches, NewDistanceMatch(v.chunkID, CosineDistance(query, v.embedding)))
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].distance < matches[j].distance
	})

	if k > len(matches) {
		k = len(matches)
	}
	return matches[:k]
}
