package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/finsight-ai/finsight/domain/corpus"
	"github.com/finsight-ai/finsight/domain/search"
	"github.com/finsight-ai/finsight/domain/store"
	"github.com/finsight-ai/finsight/infrastructure/chunking"
	"github.com/finsight-ai/finsight/internal/config"
	"github.com/finsight-ai/finsight/internal/database"
)

// DefaultFilingLimit is how many recent filings per company the
// discovery stage picks up when no limit is configured.
const DefaultFilingLimit = 2

// FilingFailure records one filing that could not be processed. The
// filing stays in the corpus so the next run retries it.
type FilingFailure struct {
	accession string
	kind      ErrorKind
	reason    string
}

// Accession returns the filing's accession number.
func (f FilingFailure) Accession() string { return f.accession }

// Kind returns the failure classification.
func (f FilingFailure) Kind() ErrorKind { return f.kind }

// Reason returns the failure description.
func (f FilingFailure) Reason() string { return f.reason }

// IngestReport summarizes one ingestion run. Failures never abort the
// run; they are collected here.
type IngestReport struct {
	companies      int
	discovered     int
	fetched        int
	chunksStored   int
	chunksEmbedded int
	failures       []FilingFailure
}

// Companies returns how many companies were processed.
func (r IngestReport) Companies() int { return r.companies }

// Discovered returns how many filings discovery saw this run.
func (r IngestReport) Discovered() int { return r.discovered }

// Fetched returns how many filings were fetched and chunked this run.
func (r IngestReport) Fetched() int { return r.fetched }

// ChunksStored returns how many chunks were written this run.
func (r IngestReport) ChunksStored() int { return r.chunksStored }

// ChunksEmbedded returns how many chunks got vectors this run.
func (r IngestReport) ChunksEmbedded() int { return r.chunksEmbedded }

// Failures returns the per-filing failures, in processing order.
func (r IngestReport) Failures() []FilingFailure {
	result := make([]FilingFailure, len(r.failures))
	copy(result, r.failures)
	return result
}

func (r *IngestReport) merge(other IngestReport) {
	r.companies += other.companies
	r.discovered += other.discovered
	r.fetched += other.fetched
	r.chunksStored += other.chunksStored
	r.chunksEmbedded += other.chunksEmbedded
	r.failures = append(r.failures, other.failures...)
}

// IngestorOption configures an Ingestor.
type IngestorOption func(*Ingestor)

// WithFilingLimit sets how many recent filings per company discovery
// picks up.
func WithFilingLimit(n int) IngestorOption {
	return func(i *Ingestor) {
		if n > 0 {
			i.filingLimit = n
		}
	}
}

// WithFilingType sets the form type to ingest.
func WithFilingType(t corpus.FilingType) IngestorOption {
	return func(i *Ingestor) {
		if t != "" {
			i.filingType = t
		}
	}
}

// WithChunkParams sets the chunking parameters.
func WithChunkParams(p chunking.ChunkParams) IngestorOption {
	return func(i *Ingestor) { i.params = p }
}

// Ingestor runs the resumable ingestion pipeline: discover filings,
// fetch and chunk their documents, embed and store vectors. Each stage
// is checkpointed (Filing.Status, Filing.IsChunked, Chunk.IsEmbedded)
// so a crashed or re-run ingestion only does the remaining work.
type Ingestor struct {
	source    corpus.DocumentSource
	companies corpus.CompanyStore
	filings   corpus.FilingStore
	chunks    corpus.ChunkStore
	index     search.VectorIndex

	filingType  corpus.FilingType
	filingLimit int
	params      chunking.ChunkParams

	closed *atomic.Bool
	logger *slog.Logger
}

// NewIngestor creates an Ingestor.
func NewIngestor(
	source corpus.DocumentSource,
	companies corpus.CompanyStore,
	filings corpus.FilingStore,
	chunks corpus.ChunkStore,
	index search.VectorIndex,
	chunkCfg config.ChunkingConfig,
	closed *atomic.Bool,
	logger *slog.Logger,
	opts ...IngestorOption,
) *Ingestor {
	if logger == nil {
		logger = slog.Default()
	}
	i := &Ingestor{
		source:      source,
		companies:   companies,
		filings:     filings,
		chunks:      chunks,
		index:       index,
		filingType:  corpus.FilingType10K,
		filingLimit: DefaultFilingLimit,
		params:      chunking.ParamsForTokens(chunkCfg.MaxTokens(), chunkCfg.OverlapTokens()),
		closed:      closed,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// IngestAll runs the pipeline for every company in the corpus. A
// company that fails entirely is recorded and the run continues.
func (i *Ingestor) IngestAll(ctx context.Context) (IngestReport, error) {
	if i.closed != nil && i.closed.Load() {
		return IngestReport{}, ErrClientClosed
	}

	all, err := i.companies.Find(ctx)
	if err != nil {
		return IngestReport{}, fmt.Errorf("list companies: %w", err)
	}

	var report IngestReport
	for _, company := range all {
		companyReport, err := i.IngestCompany(ctx, company.Ticker())
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return report, err
			}
			i.logger.Warn("company ingestion failed",
				"ticker", company.Ticker(), "error", err)
			continue
		}
		report.merge(companyReport)
	}
	return report, nil
}

// IngestCompany runs the pipeline for one company. The company is
// created from the registry when the corpus does not know the ticker
// yet.
func (i *Ingestor) IngestCompany(ctx context.Context, ticker string) (IngestReport, error) {
	if i.closed != nil && i.closed.Load() {
		return IngestReport{}, ErrClientClosed
	}

	company, err := i.resolveCompany(ctx, ticker)
	if err != nil {
		return IngestReport{}, err
	}

	report := IngestReport{companies: 1}
	logger := i.logger.With("ticker", company.Ticker())

	discovered, err := i.discover(ctx, company)
	if err != nil {
		return report, err
	}
	report.discovered = discovered

	pending, err := i.filings.Unchunked(ctx, company.ID())
	if err != nil {
		return report, fmt.Errorf("list unchunked filings: %w", err)
	}
	for _, filing := range pending {
		stored, err := i.fetchAndChunk(ctx, filing)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return report, err
			}
			logger.Warn("filing fetch failed",
				"accession", filing.AccessionNumber(), "error", err)
			report.failures = append(report.failures, FilingFailure{
				accession: filing.AccessionNumber(),
				kind:      KindFetch,
				reason:    err.Error(),
			})
			continue
		}
		report.fetched++
		report.chunksStored += stored
	}

	embedded, failures, err := i.embedCompany(ctx, company)
	if err != nil {
		return report, err
	}
	report.chunksEmbedded = embedded
	report.failures = append(report.failures, failures...)

	logger.Info("company ingested",
		"discovered", report.discovered,
		"fetched", report.fetched,
		"chunks_stored", report.chunksStored,
		"chunks_embedded", report.chunksEmbedded,
		"failures", len(report.failures))
	return report, nil
}

// resolveCompany loads the company, creating or completing it from the
// registry when the ticker or its CIK is unknown.
func (i *Ingestor) resolveCompany(ctx context.Context, ticker string) (corpus.Company, error) {
	ticker = corpus.NormalizeTicker(ticker)

	company, err := i.companies.FindOne(ctx, store.WithTicker(ticker))
	switch {
	case err == nil && company.CIK() != "":
		return company, nil
	case err != nil && !errors.Is(err, database.ErrNotFound):
		return corpus.Company{}, fmt.Errorf("load company %s: %w", ticker, err)
	}

	registrant, lookupErr := i.source.Lookup(ctx, ticker)
	if lookupErr != nil {
		return corpus.Company{}, FetchError("lookup "+ticker, lookupErr)
	}

	if err != nil {
		company, err = corpus.NewCompany(ticker, registrant.Name())
		if err != nil {
			return corpus.Company{}, err
		}
	}
	company = company.WithCIK(registrant.CIK())

	saved, err := i.companies.Save(ctx, company)
	if err != nil {
		return corpus.Company{}, fmt.Errorf("save company %s: %w", ticker, err)
	}
	return saved, nil
}

// discover upserts filing rows for the company's recent filings.
// Existing rows keep their checkpoints untouched.
func (i *Ingestor) discover(ctx context.Context, company corpus.Company) (int, error) {
	refs, err := i.source.Filings(ctx, company.CIK(), i.filingType, i.filingLimit)
	if err != nil {
		return 0, FetchError("discover filings for "+company.Ticker(), err)
	}

	for _, ref := range refs {
		_, err := i.filings.FindOne(ctx, store.WithAccessionNumber(ref.AccessionNumber()))
		if err == nil {
			continue
		}
		if !errors.Is(err, database.ErrNotFound) {
			return 0, fmt.Errorf("check filing %s: %w", ref.AccessionNumber(), err)
		}

		filing, err := corpus.NewFiling(company.ID(), ref.Type(), ref.FiscalYear(), ref.AccessionNumber())
		if err != nil {
			return 0, err
		}
		filing = filing.WithFiledAt(ref.FiledAt()).WithSourceURL(ref.SourceURL())
		if _, err := i.filings.Save(ctx, filing); err != nil {
			return 0, fmt.Errorf("save filing %s: %w", ref.AccessionNumber(), err)
		}
	}
	return len(refs), nil
}

// fetchAndChunk downloads one filing's document, splits it into section
// chunks, and stores them. Returns the number of chunks stored. On
// failure the filing is marked failed and the error returned.
func (i *Ingestor) fetchAndChunk(ctx context.Context, filing corpus.Filing) (int, error) {
	ref := corpus.NewFilingRef(
		filing.AccessionNumber(), filing.Type(), filing.FiledAt(),
		filing.FiscalYear(), filing.SourceURL(),
	)

	text, err := i.source.Fetch(ctx, ref)
	if err != nil {
		i.markFailed(ctx, filing, err.Error())
		return 0, err
	}
	if text == "" {
		err := fmt.Errorf("document empty after markup stripped")
		i.markFailed(ctx, filing, err.Error())
		return 0, err
	}

	var chunks []corpus.Chunk
	seq := 0
	for _, section := range chunking.SplitSections(text) {
		textChunks, err := chunking.NewTextChunks(section.Text(), i.params)
		if err != nil {
			return 0, err
		}
		for _, c := range textChunks.Chunks() {
			chunks = append(chunks, corpus.NewChunk(filing.ID(), section.Name(), seq, c.Content()))
			seq++
		}
	}

	if _, err := i.chunks.SaveAll(ctx, filing.ID(), chunks); err != nil {
		return 0, fmt.Errorf("store chunks for %s: %w", filing.AccessionNumber(), err)
	}

	filing = filing.MarkFetched(filing.SourceURL()).MarkChunked()
	if _, err := i.filings.Save(ctx, filing); err != nil {
		return 0, fmt.Errorf("checkpoint filing %s: %w", filing.AccessionNumber(), err)
	}
	return len(chunks), nil
}

func (i *Ingestor) markFailed(ctx context.Context, filing corpus.Filing, reason string) {
	if _, err := i.filings.Save(ctx, filing.MarkFailed(reason)); err != nil {
		i.logger.Warn("could not record filing failure",
			"accession", filing.AccessionNumber(), "error", err)
	}
}

// embedCompany embeds every stored chunk of the company that has no
// vector yet, filing by filing. A filing whose batch partially fails
// keeps the vectors that did land; only chunks with stored vectors are
// checkpointed.
func (i *Ingestor) embedCompany(ctx context.Context, company corpus.Company) (int, []FilingFailure, error) {
	filingIDs, err := i.companies.FilingIDs(ctx, company.ID())
	if err != nil {
		return 0, nil, fmt.Errorf("list filings for %s: %w", company.Ticker(), err)
	}

	embedded := 0
	var failures []FilingFailure
	for _, filingID := range filingIDs {
		filing, err := i.filings.FindOne(ctx, store.WithID(filingID))
		if err != nil {
			return embedded, failures, fmt.Errorf("load filing %d: %w", filingID, err)
		}
		if !filing.IsChunked() {
			continue
		}

		count, err := i.embedFiling(ctx, company, filing)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return embedded, failures, err
			}
			i.logger.Warn("embedding failed",
				"accession", filing.AccessionNumber(), "error", err)
			failures = append(failures, FilingFailure{
				accession: filing.AccessionNumber(),
				kind:      KindEmbedding,
				reason:    err.Error(),
			})
		}
		embedded += count
	}
	return embedded, failures, nil
}

// embedFiling indexes one filing's unembedded chunks. Returns how many
// chunks were checkpointed as embedded; the error reports batch
// failures even when some chunks succeeded.
func (i *Ingestor) embedFiling(ctx context.Context, company corpus.Company, filing corpus.Filing) (int, error) {
	pending, err := i.chunks.Unembedded(ctx, filing.ID())
	if err != nil {
		return 0, fmt.Errorf("list unembedded chunks: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	documents := make([]search.Document, len(pending))
	chunkIDs := make([]int64, len(pending))
	for idx, chunk := range pending {
		citation := search.NewCitation(
			filing.ID(), company.Ticker(), company.Name(),
			string(filing.Type()), filing.FiscalYear(), chunk.Section(),
			filing.FiledAt(),
		)
		documents[idx] = search.NewDocument(chunk.ID(), chunk.Text(), citation)
		chunkIDs[idx] = chunk.ID()
	}

	indexErr := i.index.Index(ctx, search.NewIndexRequest(documents),
		search.WithProgress(func(completed, total int) {
			i.logger.Debug("embedding progress",
				"accession", filing.AccessionNumber(),
				"completed", completed, "total", total)
		}),
		search.WithBatchError(func(start, end int, err error) {
			i.logger.Warn("embedding batch failed",
				"accession", filing.AccessionNumber(),
				"batch_start", start, "batch_end", end, "error", err)
		}),
	)

	stored, err := i.index.HasEmbeddings(ctx, chunkIDs)
	if err != nil {
		if indexErr != nil {
			return 0, indexErr
		}
		return 0, fmt.Errorf("verify stored vectors: %w", err)
	}

	var storedIDs []int64
	for _, id := range chunkIDs {
		if stored[id] {
			storedIDs = append(storedIDs, id)
		}
	}
	if len(storedIDs) > 0 {
		if err := i.chunks.MarkEmbedded(ctx, storedIDs); err != nil {
			return 0, fmt.Errorf("checkpoint embedded chunks: %w", err)
		}
	}

	return len(storedIDs), indexErr
}
