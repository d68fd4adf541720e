package finsight

import (
	"io"
	"log/slog"

	"github.com/finsight-ai/finsight/application/service"
	"github.com/finsight-ai/finsight/domain/corpus"
	"github.com/finsight-ai/finsight/domain/search"
	"github.com/finsight-ai/finsight/internal/config"
)

// databaseType identifies the database backend.
type databaseType int

const (
	databaseUnset databaseType = iota
	databaseSQLite
	databasePostgres
)

// clientConfig holds configuration for Client construction.
// Use newClientConfig() to create with defaults from internal/config.
type clientConfig struct {
	database  databaseType
	dbPath    string
	dbDSN     string
	app       config.AppConfig
	source    corpus.DocumentSource
	embedder  search.Embedder
	generator search.Generator
	logger    *slog.Logger
	apiKeys   []string
	ingest    []service.IngestorOption
	skipProbe bool
	closers   []io.Closer
}

// newClientConfig creates a clientConfig with defaults from internal/config.
func newClientConfig() *clientConfig {
	return &clientConfig{
		app: config.NewAppConfig(),
	}
}

// Option configures the Client.
type Option func(*clientConfig)

// WithSQLite configures SQLite as the database. Vectors are stored as
// JSON and scanned in memory, which is fine for a few hundred filings.
func WithSQLite(path string) Option {
	return func(c *clientConfig) {
		c.database = databaseSQLite
		c.dbPath = path
	}
}

// WithPostgres configures PostgreSQL with the pgvector extension.
func WithPostgres(dsn string) Option {
	return func(c *clientConfig) {
		c.database = databasePostgres
		c.dbDSN = dsn
	}
}

// WithConfig sets the application configuration. The database selected
// by WithSQLite or WithPostgres takes precedence over the config's
// database URL.
func WithConfig(cfg config.AppConfig) Option {
	return func(c *clientConfig) {
		c.app = cfg
	}
}

// WithDocumentSource sets a custom filing source. Defaults to the SEC
// EDGAR client built from the configured user agent.
func WithDocumentSource(s corpus.DocumentSource) Option {
	return func(c *clientConfig) {
		c.source = s
	}
}

// WithEmbedder sets a custom embedding gateway, bypassing the provider
// selected by the configuration.
func WithEmbedder(e search.Embedder) Option {
	return func(c *clientConfig) {
		c.embedder = e
	}
}

// WithGenerator sets a custom generation gateway, bypassing the
// provider selected by the configuration.
func WithGenerator(g search.Generator) Option {
	return func(c *clientConfig) {
		c.generator = g
	}
}

// WithIngestOptions passes options through to the ingestion pipeline,
// e.g. service.WithFilingLimit.
func WithIngestOptions(opts ...service.IngestorOption) Option {
	return func(c *clientConfig) {
		c.ingest = append(c.ingest, opts...)
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *clientConfig) {
		c.logger = l
	}
}

// WithAPIKeys sets the API keys for HTTP API write protection.
func WithAPIKeys(keys ...string) Option {
	return func(c *clientConfig) {
		c.apiKeys = keys
	}
}

// WithSkipDimensionProbe skips the startup embedding call that
// discovers the vector dimension. Intended for tests with stub
// embedders; PostgreSQL vector tables then require the dimension to be
// set in the embedding config.
func WithSkipDimensionProbe() Option {
	return func(c *clientConfig) {
		c.skipProbe = true
	}
}

// WithCloser registers a resource to be closed when the Client shuts
// down.
func WithCloser(closer io.Closer) Option {
	return func(c *clientConfig) {
		c.closers = append(c.closers, closer)
	}
}
