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
	"github.com/finsight-ai/finsight/internal/database"
)

// ErrCompanyNotFound indicates the ticker is not in the corpus.
var ErrCompanyNotFound = errors.New("company not found")

// Companies manages the corpus membership: which companies are tracked
// and therefore ingested.
type Companies struct {
	companies corpus.CompanyStore
	source    corpus.DocumentSource
	index     search.VectorIndex
	closed    *atomic.Bool
	logger    *slog.Logger
}

// NewCompanies creates a Companies service.
func NewCompanies(
	companies corpus.CompanyStore,
	source corpus.DocumentSource,
	index search.VectorIndex,
	closed *atomic.Bool,
	logger *slog.Logger,
) *Companies {
	if logger == nil {
		logger = slog.Default()
	}
	return &Companies{
		companies: companies,
		source:    source,
		index:     index,
		closed:    closed,
		logger:    logger,
	}
}

// List returns all tracked companies ordered by ticker.
func (c *Companies) List(ctx context.Context) ([]corpus.Company, error) {
	if c.closed != nil && c.closed.Load() {
		return nil, ErrClientClosed
	}
	return c.companies.Find(ctx, store.WithOrderAsc("ticker"))
}

// Get returns one company by ticker.
func (c *Companies) Get(ctx context.Context, ticker string) (corpus.Company, error) {
	if c.closed != nil && c.closed.Load() {
		return corpus.Company{}, ErrClientClosed
	}

	company, err := c.companies.FindOne(ctx, store.WithTicker(corpus.NormalizeTicker(ticker)))
	if errors.Is(err, database.ErrNotFound) {
		return corpus.Company{}, fmt.Errorf("%w: %s", ErrCompanyNotFound, corpus.NormalizeTicker(ticker))
	}
	return company, err
}

// Import adds a company to the corpus. Missing name or CIK is resolved
// through the filing registry. Importing an existing ticker updates it.
func (c *Companies) Import(ctx context.Context, ticker, name, cik string) (corpus.Company, error) {
	if c.closed != nil && c.closed.Load() {
		return corpus.Company{}, ErrClientClosed
	}

	company, err := corpus.NewCompany(ticker, name)
	if err != nil {
		return corpus.Company{}, err
	}

	if name == "" || cik == "" {
		registrant, err := c.source.Lookup(ctx, company.Ticker())
		if err != nil {
			return corpus.Company{}, FetchError("lookup "+company.Ticker(), err)
		}
		if name == "" {
			name = registrant.Name()
		}
		if cik == "" {
			cik = registrant.CIK()
		}
		company, err = corpus.NewCompany(ticker, name)
		if err != nil {
			return corpus.Company{}, err
		}
	}
	company = company.WithCIK(cik)

	saved, err := c.companies.Save(ctx, company)
	if err != nil {
		return corpus.Company{}, fmt.Errorf("save company %s: %w", company.Ticker(), err)
	}
	c.logger.Info("company imported", "ticker", saved.Ticker(), "cik", saved.CIK())
	return saved, nil
}

// Delete removes a company with its filings, chunks, and vectors.
func (c *Companies) Delete(ctx context.Context, ticker string) error {
	if c.closed != nil && c.closed.Load() {
		return ErrClientClosed
	}

	company, err := c.Get(ctx, ticker)
	if err != nil {
		return err
	}

	filingIDs, err := c.companies.FilingIDs(ctx, company.ID())
	if err != nil {
		return fmt.Errorf("list filings for %s: %w", company.Ticker(), err)
	}
	for _, filingID := range filingIDs {
		if err := c.index.DeleteByFiling(ctx, filingID); err != nil {
			return fmt.Errorf("delete vectors for filing %d: %w", filingID, err)
		}
	}

	if err := c.companies.Delete(ctx, company); err != nil {
		return fmt.Errorf("delete company %s: %w", company.Ticker(), err)
	}
	c.logger.Info("company deleted", "ticker", company.Ticker(), "filings", len(filingIDs))
	return nil
}
