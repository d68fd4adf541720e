package corpus

import (
	"context"
	"time"
)

// Registrant is a company as known to the filing registry.
type Registrant struct {
	cik  string
	name string
}

// NewRegistrant creates a Registrant.
func NewRegistrant(cik, name string) Registrant {
	return Registrant{cik: cik, name: name}
}

// CIK returns the Central Index Key, zero-padded to ten digits.
func (r Registrant) CIK() string { return r.cik }

// Name returns the registrant's legal name.
func (r Registrant) Name() string { return r.name }

// FilingRef identifies a filing discovered at the registry but not yet
// fetched. SourceURL points at the primary document.
type FilingRef struct {
	accessionNumber string
	filingType      FilingType
	filedAt         time.Time
	fiscalYear      int
	sourceURL       string
}

// NewFilingRef creates a FilingRef.
func NewFilingRef(accessionNumber string, filingType FilingType, filedAt time.Time, fiscalYear int, sourceURL string) FilingRef {
	return FilingRef{
		accessionNumber: accessionNumber,
		filingType:      filingType,
		filedAt:         filedAt,
		fiscalYear:      fiscalYear,
		sourceURL:       sourceURL,
	}
}

// AccessionNumber returns the SEC accession number.
func (r FilingRef) AccessionNumber() string { return r.accessionNumber }

// Type returns the filing form type.
func (r FilingRef) Type() FilingType { return r.filingType }

// FiledAt returns the filing date.
func (r FilingRef) FiledAt() time.Time { return r.filedAt }

// FiscalYear returns the fiscal year the filing covers.
func (r FilingRef) FiscalYear() int { return r.fiscalYear }

// SourceURL returns the primary document URL.
func (r FilingRef) SourceURL() string { return r.sourceURL }

// DocumentSource discovers and fetches filings from an external
// registry such as SEC EDGAR.
type DocumentSource interface {
	// Lookup resolves a ticker symbol to a registrant.
	Lookup(ctx context.Context, ticker string) (Registrant, error)

	// Filings lists a registrant's most recent filings of the given
	// type, newest first, up to limit.
	Filings(ctx context.Context, cik string, filingType FilingType, limit int) ([]FilingRef, error)

	// Fetch downloads a filing's primary document and returns its text
	// content with markup stripped.
	Fetch(ctx context.Context, ref FilingRef) (string, error)
}
