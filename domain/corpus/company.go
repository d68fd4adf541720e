// Package corpus defines the document corpus domain: companies, their
// SEC filings, and the text chunks derived from them.
package corpus

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidTicker indicates an empty or malformed ticker symbol.
var ErrInvalidTicker = errors.New("invalid ticker symbol")

// Company represents a public company tracked in the corpus.
type Company struct {
	id        int64
	ticker    string
	name      string
	cik       string
	sector    string
	industry  string
	createdAt time.Time
	updatedAt time.Time
}

// NewCompany creates a new Company. The ticker is normalized to upper
// case; it is the natural key used for idempotent ingestion.
func NewCompany(ticker, name string) (Company, error) {
	ticker = NormalizeTicker(ticker)
	if ticker == "" {
		return Company{}, ErrInvalidTicker
	}
	now := time.Now().UTC()
	return Company{
		ticker:    ticker,
		name:      name,
		createdAt: now,
		updatedAt: now,
	}, nil
}

// RestoreCompany reconstructs a Company from persisted state.
func RestoreCompany(id int64, ticker, name, cik, sector, industry string, createdAt, updatedAt time.Time) Company {
	return Company{
		id:        id,
		ticker:    NormalizeTicker(ticker),
		name:      name,
		cik:       cik,
		sector:    sector,
		industry:  industry,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}

// NormalizeTicker upper-cases and trims a ticker symbol.
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

// ID returns the company ID (0 until persisted).
func (c Company) ID() int64 { return c.id }

// Ticker returns the normalized ticker symbol.
func (c Company) Ticker() string { return c.ticker }

// Name returns the company name.
func (c Company) Name() string { return c.name }

// CIK returns the SEC Central Index Key, zero-padded to ten digits.
func (c Company) CIK() string { return c.cik }

// Sector returns the GICS sector, if known.
func (c Company) Sector() string { return c.sector }

// Industry returns the GICS industry, if known.
func (c Company) Industry() string { return c.industry }

// CreatedAt returns the creation timestamp.
func (c Company) CreatedAt() time.Time { return c.createdAt }

// UpdatedAt returns the last update timestamp.
func (c Company) UpdatedAt() time.Time { return c.updatedAt }

// WithID returns a copy with the persisted ID set.
func (c Company) WithID(id int64) Company {
	c.id = id
	return c
}

// WithCIK returns a copy with the CIK set.
func (c Company) WithCIK(cik string) Company {
	c.cik = cik
	c.updatedAt = time.Now().UTC()
	return c
}

// WithClassification returns a copy with sector and industry set.
func (c Company) WithClassification(sector, industry string) Company {
	c.sector = sector
	c.industry = industry
	c.updatedAt = time.Now().UTC()
	return c
}

// Label returns a human-readable "Name (TICKER)" label used in citations.
func (c Company) Label() string {
	if c.name == "" {
		return c.ticker
	}
	return fmt.Sprintf("%s (%s)", c.name, c.ticker)
}
