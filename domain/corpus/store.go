package corpus

import (
	"context"

	"github.com/finsight-ai/finsight/domain/store"
)

// CompanyStore defines persistence operations for companies.
type CompanyStore interface {
	// Save upserts a company by ticker and returns the persisted row.
	Save(ctx context.Context, company Company) (Company, error)

	// Find returns companies matching the given options.
	Find(ctx context.Context, options ...store.Option) ([]Company, error)

	// FindOne returns the first company matching the given options, or
	// store.ErrNotFound-compatible error when none matches.
	FindOne(ctx context.Context, options ...store.Option) (Company, error)

	// Delete removes a company with its filings and chunks.
	Delete(ctx context.Context, company Company) error

	// FilingIDs returns the IDs of the company's filings.
	FilingIDs(ctx context.Context, companyID int64) ([]int64, error)
}

// FilingStore defines persistence operations for filings.
type FilingStore interface {
	// Save upserts a filing by accession number and returns the
	// persisted row.
	Save(ctx context.Context, filing Filing) (Filing, error)

	// Find returns filings matching the given options.
	Find(ctx context.Context, options ...store.Option) ([]Filing, error)

	// FindOne returns the first filing matching the given options.
	FindOne(ctx context.Context, options ...store.Option) (Filing, error)

	// Unchunked returns the company's filings that still need chunking,
	// oldest first.
	Unchunked(ctx context.Context, companyID int64) ([]Filing, error)
}

// ChunkStore defines persistence operations for chunks.
type ChunkStore interface {
	// SaveAll upserts a filing's chunks keyed by (filing, seq) and
	// returns the persisted rows in seq order.
	SaveAll(ctx context.Context, filingID int64, chunks []Chunk) ([]Chunk, error)

	// Find returns chunks matching the given options.
	Find(ctx context.Context, options ...store.Option) ([]Chunk, error)

	// ByFiling returns a filing's chunks in seq order.
	ByFiling(ctx context.Context, filingID int64) ([]Chunk, error)

	// Unembedded returns a filing's chunks that have no stored vector
	// yet, in seq order.
	Unembedded(ctx context.Context, filingID int64) ([]Chunk, error)

	// MarkEmbedded flips the embedded flag for the given chunk IDs.
	MarkEmbedded(ctx context.Context, chunkIDs []int64) error
}
