// Package finsight provides retrieval-augmented question answering over
// SEC 10-K filings.
//
// Finsight downloads annual reports from EDGAR, splits them into
// section-aware chunks, embeds the chunks into a vector index, and
// answers natural-language questions grounded in the retrieved text.
//
// Basic usage:
//
//	client, err := finsight.New(
//	    finsight.WithSQLite(".finsight/data.db"),
//	    finsight.WithConfig(cfg),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Track a company and ingest its recent 10-K filings
//	_, err = client.Companies.Import(ctx, "AAPL", "", "")
//	report, err := client.Ingest.IngestCompany(ctx, "AAPL")
//
//	// Ask a question grounded in the corpus
//	answer, err := client.Answers.Ask(ctx, "What were Apple's main revenue drivers?",
//	    service.ForTicker("AAPL"),
//	)
//	fmt.Println(answer.Text())
package finsight

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/finsight-ai/finsight/application/service"
	"github.com/finsight-ai/finsight/domain/corpus"
	"github.com/finsight-ai/finsight/domain/search"
	"github.com/finsight-ai/finsight/infrastructure/edgar"
	"github.com/finsight-ai/finsight/infrastructure/persistence"
	"github.com/finsight-ai/finsight/infrastructure/provider"
	infrasearch "github.com/finsight-ai/finsight/infrastructure/search"
	"github.com/finsight-ai/finsight/internal/config"
	"github.com/finsight-ai/finsight/internal/database"
)

// ErrNoDatabase indicates no database was configured.
var ErrNoDatabase = errors.New("no database configured: use WithSQLite, WithPostgres, or a config with a database URL")

// Client is the main entry point for the finsight library.
//
// Access resources via struct fields:
//
//	client.Companies.List(ctx)
//	client.Ingest.IngestAll(ctx)
//	client.Answers.Ask(ctx, "question")
type Client struct {
	// Public resource fields (direct service access)
	Answers   *service.Answerer
	Ingest    *service.Ingestor
	Companies *service.Companies

	db      database.Database
	source  corpus.DocumentSource
	index   *infrasearch.ChunkIndex
	closers []io.Closer

	logger  *slog.Logger
	app     config.AppConfig
	apiKeys []string
	closed  atomic.Bool
	mu      sync.Mutex
}

// New creates a new Client with the given options.
func New(opts ...Option) (*Client, error) {
	cfg := newClientConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	dbURL, err := databaseURL(cfg)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	db, err := database.NewDatabase(ctx, dbURL)
	if err != nil {
		return nil, service.ConfigurationError("open database", err)
	}
	if err := persistence.AutoMigrate(db); err != nil {
		errClose := db.Close()
		return nil, errors.Join(fmt.Errorf("auto migrate: %w", err), errClose)
	}

	closers := cfg.closers

	// An HTTP cache dir turns on disk caching of provider and EDGAR
	// exchanges. One transport backs every outbound client.
	var transport *provider.CachingTransport
	if cacheDir := cfg.app.HTTPCacheDir(); cacheDir != "" {
		transport, err = provider.NewCachingTransport(cacheDir, nil)
		if err != nil {
			errClose := db.Close()
			return nil, errors.Join(service.ConfigurationError("http cache", err), errClose)
		}
		closers = append(closers, transport)
		logger.Info("http response caching enabled", "dir", cacheDir)
	}

	embedder := cfg.embedder
	if embedder == nil {
		p, err := provider.NewEmbedderFromConfig(cfg.app.Embedding(), cfg.app.Credentials(), roundTripper(transport))
		if err != nil {
			errClose := db.Close()
			return nil, errors.Join(service.ConfigurationError("embedding provider", err), errClose)
		}
		if closer, ok := p.(io.Closer); ok {
			closers = append(closers, closer)
		}
		embedder = provider.NewTextEmbedder(p, cfg.app.Embedding().RatePerSecond())
	}

	generator := cfg.generator
	if generator == nil {
		p, err := provider.NewGeneratorFromConfig(cfg.app.Generation(), cfg.app.Credentials(), roundTripper(transport))
		if err != nil {
			errClose := db.Close()
			return nil, errors.Join(service.ConfigurationError("generation provider", err), errClose)
		}
		if closer, ok := p.(io.Closer); ok {
			closers = append(closers, closer)
		}
		generator = provider.NewPromptGenerator(p,
			cfg.app.Generation().MaxTokens(), cfg.app.Generation().Temperature())
	}

	source := cfg.source
	if source == nil {
		var edgarOpts []edgar.ClientOption
		if transport != nil {
			edgarOpts = append(edgarOpts, edgar.WithHTTPClient(&http.Client{
				Transport: transport,
				Timeout:   30 * time.Second,
			}))
		}
		edgarClient, err := edgar.NewClient(cfg.app.SECUserAgent(), edgarOpts...)
		if err != nil {
			errClose := db.Close()
			return nil, errors.Join(service.ConfigurationError("edgar client", err), errClose)
		}
		source = edgarClient
	}

	// Discover the vector dimension with one probe call. This fails
	// fast on bad credentials and pins the dimension every later
	// embedding must match.
	dimension := cfg.app.Embedding().Dimension()
	if !cfg.skipProbe {
		probed, err := probeDimension(ctx, embedder)
		if err != nil {
			errClose := db.Close()
			return nil, errors.Join(service.ConfigurationError("probe embedding dimension", err), errClose)
		}
		if dimension > 0 && dimension != probed {
			errClose := db.Close()
			return nil, errors.Join(service.ConfigurationError("probe embedding dimension",
				fmt.Errorf("provider returns %d-dimensional vectors, config expects %d", probed, dimension)), errClose)
		}
		dimension = probed
	}

	embeddingStore, err := persistence.NewEmbeddingStore(ctx, db, dimension, logger)
	if err != nil {
		errClose := db.Close()
		return nil, errors.Join(fmt.Errorf("embedding store: %w", err), errClose)
	}

	companyStore := persistence.NewCompanyStore(db)
	filingStore := persistence.NewFilingStore(db)
	chunkStore := persistence.NewChunkStore(db)

	index := infrasearch.NewChunkIndex(embeddingStore, embedder,
		infrasearch.WithDimension(dimension),
		infrasearch.WithBatchSize(cfg.app.Embedding().BatchSize()),
		infrasearch.WithParallelTasks(cfg.app.Embedding().ParallelTasks()),
		infrasearch.WithLogger(logger),
	)

	client := &Client{
		db:      db,
		source:  source,
		index:   index,
		closers: closers,
		logger:  logger,
		app:     cfg.app,
		apiKeys: cfg.apiKeys,
	}

	client.Answers = service.NewAnswerer(
		embedder, index, generator,
		chunkStore, filingStore, companyStore,
		cfg.app.Retrieval(), &client.closed, logger,
	)
	client.Ingest = service.NewIngestor(
		source, companyStore, filingStore, chunkStore, index,
		cfg.app.Chunking(), &client.closed, logger, cfg.ingest...,
	)
	client.Companies = service.NewCompanies(
		companyStore, source, index, &client.closed, logger,
	)

	logger.Info("finsight client ready", "dimension", dimension)
	return client, nil
}

// Close releases all resources. Subsequent service calls return
// service.ErrClientClosed.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return service.ErrClientClosed
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, closer := range c.closers {
		if err := closer.Close(); err != nil {
			c.logger.Error("failed to close resource", slog.Any("error", err))
		}
	}

	if err := c.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}

	c.logger.Info("finsight client closed")
	return nil
}

// Logger returns the client's logger.
func (c *Client) Logger() *slog.Logger {
	return c.logger
}

// APIKeys returns the configured HTTP API keys.
func (c *Client) APIKeys() []string {
	keys := make([]string, len(c.apiKeys))
	copy(keys, c.apiKeys)
	return keys
}

// Config returns the application configuration the client was built
// with.
func (c *Client) Config() config.AppConfig {
	return c.app
}

// databaseURL resolves the database selection to a connection URL.
func databaseURL(cfg *clientConfig) (string, error) {
	switch cfg.database {
	case databaseSQLite:
		return "sqlite:///" + cfg.dbPath, nil
	case databasePostgres:
		return cfg.dbDSN, nil
	default:
		if url := cfg.app.DBURL(); url != "" {
			return url, nil
		}
		return "", ErrNoDatabase
	}
}

// roundTripper converts an optional caching transport to the interface
// the provider factories take. A typed nil must become a nil interface.
func roundTripper(t *provider.CachingTransport) http.RoundTripper {
	if t == nil {
		return nil
	}
	return t
}

// probeDimension embeds a short text to learn the provider's vector
// dimension.
func probeDimension(ctx context.Context, embedder search.Embedder) (int, error) {
	vectors, err := embedder.Embed(ctx, []string{"dimension probe"})
	if err != nil {
		return 0, err
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return 0, errors.New("provider returned no vector")
	}
	return len(vectors[0]), nil
}
