package search

import "context"

// VectorIndex defines operations for vector similarity search over
// filing chunks. Index computes and stores embeddings; Search compares a
// pre-computed query vector against stored vectors by cosine distance.
type VectorIndex interface {
	// Index embeds the request's documents and stores the vectors.
	// Documents that already have a stored vector are skipped.
	Index(ctx context.Context, request IndexRequest, opts ...IndexOption) error

	// Search returns chunks ordered by ascending cosine distance from
	// the query vector.
	Search(ctx context.Context, request Request) ([]Result, error)

	// HasEmbeddings reports which of the given chunk IDs already have a
	// stored vector.
	HasEmbeddings(ctx context.Context, chunkIDs []int64) (map[int64]bool, error)

	// DeleteByFiling removes all vectors belonging to a filing.
	DeleteByFiling(ctx context.Context, filingID int64) error
}
