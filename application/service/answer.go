// Package service provides application layer services that orchestrate
// domain operations: answering questions over the corpus and ingesting
// filings into it.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/finsight-ai/finsight/domain/corpus"
	"github.com/finsight-ai/finsight/domain/search"
	"github.com/finsight-ai/finsight/domain/store"
	"github.com/finsight-ai/finsight/internal/config"
)

// QueryState tracks a question through the answer pipeline. Every
// request walks received → query_embedded → context_retrieved →
// answer_generated → done; failed is terminal from any step.
type QueryState string

// Query states.
const (
	StateReceived         QueryState = "received"
	StateQueryEmbedded    QueryState = "query_embedded"
	StateContextRetrieved QueryState = "context_retrieved"
	StateAnswerGenerated  QueryState = "answer_generated"
	StateDone             QueryState = "done"
	StateFailed           QueryState = "failed"
)

// systemPrompt instructs the model to answer only from the supplied
// context and to say so when the context is insufficient.
const systemPrompt = "You are a financial analyst assistant that provides information from company SEC filings. " +
	"Answer the user's question based ONLY on the context provided. " +
	"If the context doesn't contain the relevant information, say that you don't have enough information to answer. " +
	"Don't make up any information. Be clear, concise, and informative. " +
	"Format your answers in plain text with line breaks for readability."

// noContextAnswer is returned without a generation call when retrieval
// finds nothing.
const noContextAnswer = "I couldn't find any relevant information for your query. " +
	"Please try asking something about the companies' 10-K filings in the corpus."

// Source attributes part of an answer to a filing chunk.
type Source struct {
	citation search.Citation
	snippet  string
	distance float64
}

// Citation returns the filing citation.
func (s Source) Citation() search.Citation { return s.citation }

// Snippet returns the chunk text the answer drew on.
func (s Source) Snippet() string { return s.snippet }

// Distance returns the cosine distance from the query vector.
func (s Source) Distance() float64 { return s.distance }

// Answer is the result of a question: generated text plus the ordered
// citations it was grounded on.
type Answer struct {
	id       string
	question string
	text     string
	sources  []Source
	state    QueryState
}

// ID returns the request ID.
func (a Answer) ID() string { return a.id }

// Question returns the question asked.
func (a Answer) Question() string { return a.question }

// Text returns the generated answer text.
func (a Answer) Text() string { return a.text }

// Sources returns citations ordered by ascending distance.
func (a Answer) Sources() []Source {
	result := make([]Source, len(a.sources))
	copy(result, a.sources)
	return result
}

// State returns the terminal state the request reached.
func (a Answer) State() QueryState { return a.state }

// AnswerOption configures a single Ask call.
type AnswerOption func(*answerConfig)

type answerConfig struct {
	ticker     string
	fiscalYear int
	topK       int
}

// ForTicker restricts retrieval to one company.
func ForTicker(ticker string) AnswerOption {
	return func(c *answerConfig) { c.ticker = corpus.NormalizeTicker(ticker) }
}

// ForFiscalYear restricts retrieval to one fiscal year.
func ForFiscalYear(year int) AnswerOption {
	return func(c *answerConfig) {
		if year > 0 {
			c.fiscalYear = year
		}
	}
}

// WithTopK overrides the configured number of retrieved chunks.
func WithTopK(k int) AnswerOption {
	return func(c *answerConfig) {
		if k > 0 {
			c.topK = k
		}
	}
}

// Answerer orchestrates retrieval-augmented answering: embed the
// question, search the vector index, assemble a grounded context block,
// generate. Requests are independent; the only shared state is the
// read-only index and configuration.
type Answerer struct {
	embedder  search.Embedder
	index     search.VectorIndex
	generator search.Generator
	chunks    corpus.ChunkStore
	filings   corpus.FilingStore
	companies corpus.CompanyStore
	retrieval config.RetrievalConfig
	closed    *atomic.Bool
	logger    *slog.Logger
}

// NewAnswerer creates an Answerer.
func NewAnswerer(
	embedder search.Embedder,
	index search.VectorIndex,
	generator search.Generator,
	chunks corpus.ChunkStore,
	filings corpus.FilingStore,
	companies corpus.CompanyStore,
	retrieval config.RetrievalConfig,
	closed *atomic.Bool,
	logger *slog.Logger,
) *Answerer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Answerer{
		embedder:  embedder,
		index:     index,
		generator: generator,
		chunks:    chunks,
		filings:   filings,
		companies: companies,
		retrieval: retrieval,
		closed:    closed,
		logger:    logger,
	}
}

// Ask answers a question from the corpus.
func (a *Answerer) Ask(ctx context.Context, question string, opts ...AnswerOption) (Answer, error) {
	if a.closed != nil && a.closed.Load() {
		return Answer{}, ErrClientClosed
	}

	cfg := answerConfig{topK: a.retrieval.TopK()}
	for _, opt := range opts {
		opt(&cfg)
	}

	answer := Answer{
		id:       uuid.NewString(),
		question: question,
		state:    StateReceived,
	}
	logger := a.logger.With("request_id", answer.id)

	question = strings.TrimSpace(question)
	if question == "" {
		answer.state = StateFailed
		return answer, fmt.Errorf("question is empty")
	}

	vectors, err := a.embedder.Embed(ctx, []string{question})
	if err != nil {
		answer.state = StateFailed
		return answer, EmbeddingError("embed question", err)
	}
	if len(vectors) == 0 {
		answer.state = StateFailed
		return answer, EmbeddingError("embed question", fmt.Errorf("provider returned no vector"))
	}
	answer.state = StateQueryEmbedded

	request := search.NewRequest(vectors[0], cfg.topK, a.filters(cfg)).
		WithMaxDistance(a.retrieval.MaxDistance())
	results, err := a.index.Search(ctx, request)
	if err != nil {
		answer.state = StateFailed
		return answer, RetrievalError("vector search", err)
	}
	answer.state = StateContextRetrieved
	logger.Info("context retrieved", "results", len(results))

	if len(results) == 0 {
		answer.text = noContextAnswer
		answer.state = StateDone
		return answer, nil
	}

	sources, err := a.resolveSources(ctx, results)
	if err != nil {
		answer.state = StateFailed
		return answer, RetrievalError("resolve sources", err)
	}

	kept, contextBlock := a.buildContext(sources)
	if len(kept) < len(sources) {
		logger.Info("dropped lowest-ranked chunks to fit context budget",
			"kept", len(kept), "retrieved", len(sources))
	}

	user := fmt.Sprintf("Context:\n%s\n\nUser Query: %s", contextBlock, question)
	text, err := a.generator.Generate(ctx, systemPrompt, user)
	if err != nil {
		answer.state = StateFailed
		return answer, GenerationError("generate answer", err)
	}
	answer.state = StateAnswerGenerated

	answer.text = strings.TrimSpace(text)
	answer.sources = kept
	answer.state = StateDone
	return answer, nil
}

func (a *Answerer) filters(cfg answerConfig) search.Filters {
	var opts []search.FiltersOption
	if cfg.ticker != "" {
		opts = append(opts, search.WithTicker(cfg.ticker))
	}
	if cfg.fiscalYear > 0 {
		opts = append(opts, search.WithFiscalYear(cfg.fiscalYear))
	}
	return search.NewFilters(opts...)
}

// resolveSources joins retrieval hits back to chunk, filing, and
// company rows, preserving result order. Hits whose rows have since
// been deleted are skipped.
func (a *Answerer) resolveSources(ctx context.Context, results []search.Result) ([]Source, error) {
	chunkIDs := make([]int64, len(results))
	for i, r := range results {
		chunkIDs[i] = r.ChunkID()
	}

	chunkRows, err := a.chunks.Find(ctx, store.WithIDIn(chunkIDs))
	if err != nil {
		return nil, fmt.Errorf("load chunks: %w", err)
	}
	chunksByID := make(map[int64]corpus.Chunk, len(chunkRows))
	filingIDs := make([]int64, 0, len(chunkRows))
	for _, c := range chunkRows {
		chunksByID[c.ID()] = c
		filingIDs = append(filingIDs, c.FilingID())
	}

	filingRows, err := a.filings.Find(ctx, store.WithIDIn(filingIDs))
	if err != nil {
		return nil, fmt.Errorf("load filings: %w", err)
	}
	filingsByID := make(map[int64]corpus.Filing, len(filingRows))
	companyIDs := make([]int64, 0, len(filingRows))
	for _, f := range filingRows {
		filingsByID[f.ID()] = f
		companyIDs = append(companyIDs, f.CompanyID())
	}

	companyRows, err := a.companies.Find(ctx, store.WithIDIn(companyIDs))
	if err != nil {
		return nil, fmt.Errorf("load companies: %w", err)
	}
	companiesByID := make(map[int64]corpus.Company, len(companyRows))
	for _, c := range companyRows {
		companiesByID[c.ID()] = c
	}

	sources := make([]Source, 0, len(results))
	for _, r := range results {
		chunk, ok := chunksByID[r.ChunkID()]
		if !ok {
			a.logger.Warn("retrieval hit has no chunk row", "chunk_id", r.ChunkID())
			continue
		}
		filing, ok := filingsByID[chunk.FilingID()]
		if !ok {
			continue
		}
		company := companiesByID[filing.CompanyID()]

		sources = append(sources, Source{
			citation: search.NewCitation(
				filing.ID(),
				company.Ticker(),
				company.Name(),
				string(filing.Type()),
				filing.FiscalYear(),
				chunk.Section(),
				filing.FiledAt(),
			),
			snippet:  chunk.Text(),
			distance: r.Distance(),
		})
	}
	return sources, nil
}

// buildContext assembles the grounded context block from ranked
// sources, dropping whole lowest-ranked chunks once the estimated token
// budget is reached. Chunks are never truncated mid-text.
func (a *Answerer) buildContext(sources []Source) ([]Source, string) {
	budget := a.retrieval.ContextTokenBudget()

	var blocks []string
	var kept []Source
	used := 0
	for _, src := range sources {
		section := src.citation.Section()
		if section == "" {
			section = "N/A"
		}
		block := fmt.Sprintf("Source: %s\nSection: %s\nContent: %s\n",
			src.citation.Source(), section, src.snippet)

		tokens := corpus.EstimateTokens(block)
		if budget > 0 && used+tokens > budget && len(kept) > 0 {
			break
		}
		blocks = append(blocks, block)
		kept = append(kept, src)
		used += tokens
	}

	return kept, strings.Join(blocks, "\n---\n")
}
