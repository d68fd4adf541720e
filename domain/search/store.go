package search

import (
	"context"

	"github.com/finsight-ai/finsight/domain/store"
)

// EmbeddingStore defines persistence operations for stored vectors.
// VectorIndex implementations compose an Embedder with an EmbeddingStore.
type EmbeddingStore interface {
	// SaveAll persists pre-computed embeddings.
	SaveAll(ctx context.Context, embeddings []Embedding) error

	// Search performs vector similarity search using options.
	// The query vector must be passed via WithVector.
	Search(ctx context.Context, options ...store.Option) ([]Result, error)

	// Exists checks whether any row matches the given options.
	Exists(ctx context.Context, options ...store.Option) (bool, error)

	// Has reports which of the given chunk IDs have a stored vector.
	Has(ctx context.Context, chunkIDs []int64) (map[int64]bool, error)

	// DeleteBy removes vectors matching the given options.
	DeleteBy(ctx context.Context, options ...store.Option) error
}

// Embedding pairs a chunk with its stored vector and the denormalized
// citation metadata used for filtered search.
type Embedding struct {
	chunkID    int64
	filingID   int64
	ticker     string
	filingType string
	fiscalYear int
	section    string
	vector     []float64
}

// NewEmbedding creates a new Embedding.
func NewEmbedding(chunkID, filingID int64, ticker, filingType string, fiscalYear int, section string, vector []float64) Embedding {
	v := make([]float64, len(vector))
	copy(v, vector)
	return Embedding{
		chunkID:    chunkID,
		filingID:   filingID,
		ticker:     ticker,
		filingType: filingType,
		fiscalYear: fiscalYear,
		section:    section,
		vector:     v,
	}
}

// ChunkID returns the chunk ID.
func (e Embedding) ChunkID() int64 { return e.chunkID }

// FilingID returns the filing ID.
func (e Embedding) FilingID() int64 { return e.filingID }

// Ticker returns the company ticker.
func (e Embedding) Ticker() string { return e.ticker }

// FilingType returns the filing form type.
func (e Embedding) FilingType() string { return e.filingType }

// FiscalYear returns the fiscal year.
func (e Embedding) FiscalYear() int { return e.fiscalYear }

// Section returns the filing section.
func (e Embedding) Section() string { return e.section }

// Vector returns the stored vector.
func (e Embedding) Vector() []float64 {
	v := make([]float64, len(e.vector))
	copy(v, e.vector)
	return v
}
