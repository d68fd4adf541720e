package search

// BatchProgress is called after each embedding batch is stored.
// completed is the running count of chunks embedded so far; total is
// the number of chunks in the Index call.
type BatchProgress func(completed, total int)

// BatchError is called when one batch fails while the rest of the run
// continues. batchStart and batchEnd are chunk offsets within the
// request; err carries the provider failure (rate limit, timeout,
// auth).
type BatchError func(batchStart, batchEnd int, err error)

// IndexOption configures a single Index call.
type IndexOption func(*IndexConfig)

// IndexConfig is the resolved per-call configuration.
type IndexConfig struct {
	progress   BatchProgress
	batchError BatchError
}

// NewIndexConfig applies opts over the zero config.
func NewIndexConfig(opts ...IndexOption) IndexConfig {
	var cfg IndexConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// Progress returns the progress callback, nil when unset.
func (c IndexConfig) Progress() BatchProgress { return c.progress }

// BatchError returns the batch error callback, nil when unset.
func (c IndexConfig) BatchError() BatchError { return c.batchError }

// WithProgress registers a callback invoked after each batch of chunk
// embeddings is generated and saved.
func WithProgress(fn BatchProgress) IndexOption {
	return func(c *IndexConfig) { c.progress = fn }
}

// WithBatchError registers a callback invoked per failed batch, so the
// ingestor can record each provider error against the filing it was
// embedding.
func WithBatchError(fn BatchError) IndexOption {
	return func(c *IndexConfig) { c.batchError = fn }
}
