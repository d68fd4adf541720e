package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/finsight-ai/finsight/domain/corpus"
	"github.com/finsight-ai/finsight/domain/store"
	"github.com/finsight-ai/finsight/infrastructure/persistence"
	infrasearch "github.com/finsight-ai/finsight/infrastructure/search"
	"github.com/finsight-ai/finsight/internal/config"
	"github.com/finsight-ai/finsight/internal/database"
)

// featureEmbedder produces deterministic vectors from keyword counts so
// similarity in tests tracks topical overlap.
type featureEmbedder struct {
	err   error
	calls int
}

var embedderKeywords = []string{"revenue", "risk", "product"}

func featureVector(text string) []float64 {
	lower := strings.ToLower(text)
	vector := make([]float64, len(embedderKeywords))
	for i, keyword := range embedderKeywords {
		vector[i] = float64(strings.Count(lower, keyword)) + 0.001
	}
	return vector
}

func (e *featureEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	vectors := make([][]float64, len(texts))
	for i, text := range texts {
		vectors[i] = featureVector(text)
	}
	return vectors, nil
}

// scriptedGenerator returns a fixed answer and records prompts.
type scriptedGenerator struct {
	answer  string
	err     error
	systems []string
	users   []string
}

func (g *scriptedGenerator) Generate(_ context.Context, system, user string) (string, error) {
	g.systems = append(g.systems, system)
	g.users = append(g.users, user)
	if g.err != nil {
		return "", g.err
	}
	return g.answer, nil
}

// fakeSource is an in-memory corpus.DocumentSource.
type fakeSource struct {
	registrants map[string]corpus.Registrant
	filingRefs  map[string][]corpus.FilingRef
	documents   map[string]string
	fetchErrs   map[string]error
	fetchCalls  int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		registrants: map[string]corpus.Registrant{},
		filingRefs:  map[string][]corpus.FilingRef{},
		documents:   map[string]string{},
		fetchErrs:   map[string]error{},
	}
}

func (s *fakeSource) Lookup(_ context.Context, ticker string) (corpus.Registrant, error) {
	registrant, ok := s.registrants[corpus.NormalizeTicker(ticker)]
	if !ok {
		return corpus.Registrant{}, fmt.Errorf("unknown ticker %s", ticker)
	}
	return registrant, nil
}

func (s *fakeSource) Filings(_ context.Context, cik string, _ corpus.FilingType, limit int) ([]corpus.FilingRef, error) {
	refs := s.filingRefs[cik]
	if limit > 0 && len(refs) > limit {
		refs = refs[:limit]
	}
	return refs, nil
}

func (s *fakeSource) Fetch(_ context.Context, ref corpus.FilingRef) (string, error) {
	s.fetchCalls++
	if err := s.fetchErrs[ref.AccessionNumber()]; err != nil {
		return "", err
	}
	return s.documents[ref.SourceURL()], nil
}

// testEnv wires real sqlite-backed stores with stub gateways.
type testEnv struct {
	db        database.Database
	companies persistence.CompanyStore
	filings   persistence.FilingStore
	chunks    persistence.ChunkStore
	index     *infrasearch.ChunkIndex
	embedder  *featureEmbedder
	generator *scriptedGenerator
	source    *fakeSource
	closed    *atomic.Bool
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.NewDatabase(context.Background(), "sqlite:///:memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, persistence.AutoMigrate(db))

	logger := slog.Default()
	embStore, err := persistence.NewSQLiteEmbeddingStore(db, logger)
	require.NoError(t, err)

	embedder := &featureEmbedder{}
	return &testEnv{
		db:        db,
		companies: persistence.NewCompanyStore(db),
		filings:   persistence.NewFilingStore(db),
		chunks:    persistence.NewChunkStore(db),
		index: infrasearch.NewChunkIndex(embStore, embedder,
			infrasearch.WithDimension(len(embedderKeywords))),
		embedder:  embedder,
		generator: &scriptedGenerator{answer: "Revenue was $2.1 billion."},
		source:    newFakeSource(),
		closed:    &atomic.Bool{},
	}
}

func (e *testEnv) answerer(t *testing.T, retrieval config.RetrievalConfig) *Answerer {
	t.Helper()
	return NewAnswerer(
		e.embedder, e.index, e.generator,
		e.chunks, e.filings, e.companies,
		retrieval, e.closed, slog.Default(),
	)
}

func (e *testEnv) ingestor(t *testing.T, opts ...IngestorOption) *Ingestor {
	t.Helper()
	return NewIngestor(
		e.source, e.companies, e.filings, e.chunks, e.index,
		config.NewChunkingConfig(), e.closed, slog.Default(), opts...,
	)
}

func (e *testEnv) companiesService(t *testing.T) *Companies {
	t.Helper()
	return NewCompanies(e.companies, e.source, e.index, e.closed, slog.Default())
}

// seedCorpus stores a company, one fetched and chunked filing, and the
// given chunk texts, then indexes them. Returns the stored chunks.
func (e *testEnv) seedCorpus(t *testing.T, ticker, name string, fiscalYear int, texts []string) []corpus.Chunk {
	t.Helper()
	ctx := context.Background()

	company, err := corpus.NewCompany(ticker, name)
	require.NoError(t, err)
	company, err = e.companies.Save(ctx, company.WithCIK("0000320193"))
	require.NoError(t, err)

	filing, err := corpus.NewFiling(company.ID(), corpus.FilingType10K, fiscalYear,
		fmt.Sprintf("%s-%d-000001", ticker, fiscalYear))
	require.NoError(t, err)
	filing = filing.
		WithFiledAt(time.Date(fiscalYear, 11, 3, 0, 0, 0, 0, time.UTC)).
		MarkFetched("https://example.com/" + ticker).
		MarkChunked()
	filing, err = e.filings.Save(ctx, filing)
	require.NoError(t, err)

	chunks := make([]corpus.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = corpus.NewChunk(filing.ID(), "ITEM 7. MANAGEMENT'S DISCUSSION AND ANALYSIS", i, text)
	}
	stored, err := e.chunks.SaveAll(ctx, filing.ID(), chunks)
	require.NoError(t, err)

	ingestor := e.ingestor(t)
	company, err = e.companies.FindOne(ctx, store.WithTicker(corpus.NormalizeTicker(ticker)))
	require.NoError(t, err)
	_, err = ingestor.embedFiling(ctx, company, filing)
	require.NoError(t, err)

	return stored
}
