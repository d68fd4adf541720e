// Package search implements the vector index over filing chunks by
// composing an embedding provider with an embedding store.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/finsight-ai/finsight/domain/search"
	"github.com/finsight-ai/finsight/domain/store"
)

// ErrEmbeddingDimension indicates the provider returned vectors whose
// dimension does not match the configured index dimension.
var ErrEmbeddingDimension = errors.New("embedding dimension mismatch")

const defaultTopK = 10

// ChunkIndex is the production search.VectorIndex. Index batches chunk
// text within a token budget, embeds batches with bounded parallelism
// and upserts the vectors; Search delegates cosine-distance ranking to
// the store and applies the request's distance ceiling.
type ChunkIndex struct {
	store    search.EmbeddingStore
	embedder search.Embedder

	dimension int
	budget    search.TokenBudget
	parallel  int
	logger    *slog.Logger
}

// ChunkIndexOption configures a ChunkIndex.
type ChunkIndexOption func(*ChunkIndex)

// WithDimension sets the expected embedding dimension. When set, Index
// rejects batches whose vectors have a different dimension.
func WithDimension(d int) ChunkIndexOption {
	return func(c *ChunkIndex) {
		if d > 0 {
			c.dimension = d
		}
	}
}

// WithTokenBudget sets the batching budget for embedding requests.
func WithTokenBudget(b search.TokenBudget) ChunkIndexOption {
	return func(c *ChunkIndex) { c.budget = b }
}

// WithBatchSize caps the number of documents per embedding request.
func WithBatchSize(n int) ChunkIndexOption {
	return func(c *ChunkIndex) {
		if n > 0 {
			c.budget = c.budget.WithMaxBatchSize(n)
		}
	}
}

// WithParallelTasks sets how many embedding batches run concurrently.
// Values <= 0 are clamped to 1.
func WithParallelTasks(n int) ChunkIndexOption {
	return func(c *ChunkIndex) {
		if n > 0 {
			c.parallel = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ChunkIndexOption {
	return func(c *ChunkIndex) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewChunkIndex creates a ChunkIndex over the given store and embedder.
func NewChunkIndex(embeddingStore search.EmbeddingStore, embedder search.Embedder, opts ...ChunkIndexOption) *ChunkIndex {
	c := &ChunkIndex{
		store:    embeddingStore,
		embedder: embedder,
		budget:   search.DefaultTokenBudget().WithMaxBatchSize(20),
		parallel: 1,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Index embeds the request's documents and stores the vectors. Documents
// that already have a stored vector are skipped. Batches fail
// independently: a failed batch is reported through the BatchError
// callback and the remaining batches still run. The returned error joins
// all batch failures.
func (c *ChunkIndex) Index(ctx context.Context, request search.IndexRequest, opts ...search.IndexOption) error {
	cfg := search.NewIndexConfig(opts...)

	documents := request.Documents()
	if len(documents) == 0 {
		return nil
	}

	toIndex, err := c.pending(ctx, documents)
	if err != nil {
		return err
	}
	if len(toIndex) == 0 {
		c.logger.Info("no new documents to index")
		return nil
	}

	batches := c.budget.Batches(toIndex)
	total := len(toIndex)

	var (
		mu        sync.Mutex
		completed int
		failures  []error
	)

	g := &errgroup.Group{}
	g.SetLimit(c.parallel)

	offset := 0
	for _, batch := range batches {
		batch := batch
		start := offset
		offset += len(batch)
		end := offset

		g.Go(func() error {
			if err := c.indexBatch(ctx, batch); err != nil {
				c.logger.Warn("embedding batch failed",
					"batch_start", start, "batch_end", end, "error", err)
				if fn := cfg.BatchError(); fn != nil {
					fn(start, end, err)
				}
				mu.Lock()
				failures = append(failures, fmt.Errorf("batch %d-%d: %w", start, end, err))
				mu.Unlock()
				return nil
			}

			mu.Lock()
			completed += len(batch)
			done := completed
			mu.Unlock()

			if fn := cfg.Progress(); fn != nil {
				fn(done, total)
			}
			return nil
		})
	}

	_ = g.Wait()
	return errors.Join(failures...)
}

// pending returns the documents that do not yet have a stored vector,
// preserving input order.
func (c *ChunkIndex) pending(ctx context.Context, documents []search.Document) ([]search.Document, error) {
	ids := make([]int64, len(documents))
	for i, doc := range documents {
		ids[i] = doc.ChunkID()
	}

	stored, err := c.store.Has(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("check stored embeddings: %w", err)
	}

	var toIndex []search.Document
	for _, doc := range documents {
		if !stored[doc.ChunkID()] {
			toIndex = append(toIndex, doc)
		}
	}
	return toIndex, nil
}

// indexBatch embeds one batch and upserts the resulting vectors.
func (c *ChunkIndex) indexBatch(ctx context.Context, batch []search.Document) error {
	texts := make([]string, len(batch))
	for i, doc := range batch {
		texts[i] = c.budget.Truncate(doc.Text())
	}

	vectors, err := c.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("generate embeddings: %w", err)
	}
	if len(vectors) != len(batch) {
		return fmt.Errorf("embedding count mismatch: got %d, expected %d", len(vectors), len(batch))
	}

	embeddings := make([]search.Embedding, len(batch))
	for i, doc := range batch {
		if c.dimension > 0 && len(vectors[i]) != c.dimension {
			return fmt.Errorf("%w: got %d, want %d", ErrEmbeddingDimension, len(vectors[i]), c.dimension)
		}
		cit := doc.Citation()
		embeddings[i] = search.NewEmbedding(
			doc.ChunkID(),
			cit.FilingID(),
			cit.Ticker(),
			cit.FilingType(),
			cit.FiscalYear(),
			cit.Section(),
			vectors[i],
		)
	}

	if err := c.store.SaveAll(ctx, embeddings); err != nil {
		return fmt.Errorf("save embeddings: %w", err)
	}
	return nil
}

// Search returns chunks ordered by ascending cosine distance from the
// request's query vector. When the request carries a distance ceiling,
// results beyond it are dropped.
func (c *ChunkIndex) Search(ctx context.Context, request search.Request) ([]search.Result, error) {
	vector := request.Vector()
	if len(vector) == 0 {
		return []search.Result{}, nil
	}

	topK := request.TopK()
	if topK <= 0 {
		topK = defaultTopK
	}

	options := []store.Option{
		search.WithVector(vector),
		store.WithLimit(topK),
	}
	if filters := request.Filters(); !filters.IsEmpty() {
		options = append(options, search.WithSearchFilters(filters))
	}

	results, err := c.store.Search(ctx, options...)
	if err != nil {
		return nil, err
	}

	if max := request.MaxDistance(); max > 0 {
		kept := results[:0]
		for _, r := range results {
			if r.Distance() <= max {
				kept = append(kept, r)
			}
		}
		results = kept
	}

	return results, nil
}

// HasEmbeddings reports which chunk IDs already have a stored vector.
func (c *ChunkIndex) HasEmbeddings(ctx context.Context, chunkIDs []int64) (map[int64]bool, error) {
	return c.store.Has(ctx, chunkIDs)
}

// DeleteByFiling removes all vectors belonging to a filing.
func (c *ChunkIndex) DeleteByFiling(ctx context.Context, filingID int64) error {
	return c.store.DeleteBy(ctx, store.WithFilingID(filingID))
}

var _ search.VectorIndex = (*ChunkIndex)(nil)
