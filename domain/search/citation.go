package search

import (
	"fmt"
	"time"
)

// Citation identifies the filing a chunk came from. It travels with a
// Document through indexing, where its fields become filterable columns,
// and with retrieval results, where it attributes an answer to a source.
type Citation struct {
	filingID    int64
	ticker      string
	companyName string
	filingType  string
	fiscalYear  int
	section     string
	filedAt     time.Time
}

// NewCitation creates a new Citation.
func NewCitation(
	filingID int64,
	ticker string,
	companyName string,
	filingType string,
	fiscalYear int,
	section string,
	filedAt time.Time,
) Citation {
	return Citation{
		filingID:    filingID,
		ticker:      ticker,
		companyName: companyName,
		filingType:  filingType,
		fiscalYear:  fiscalYear,
		section:     section,
		filedAt:     filedAt,
	}
}

// FilingID returns the filing ID.
func (c Citation) FilingID() int64 { return c.filingID }

// Ticker returns the company ticker symbol.
func (c Citation) Ticker() string { return c.ticker }

// CompanyName returns the company name.
func (c Citation) CompanyName() string { return c.companyName }

// FilingType returns the filing type, e.g. "10-K".
func (c Citation) FilingType() string { return c.filingType }

// FiscalYear returns the fiscal year the filing covers.
func (c Citation) FiscalYear() int { return c.fiscalYear }

// Section returns the filing section the chunk belongs to.
func (c Citation) Section() string { return c.section }

// FiledAt returns the date the filing was submitted.
func (c Citation) FiledAt() time.Time { return c.filedAt }

// Source renders the citation as a human-readable source line, e.g.
// "Apple Inc. (AAPL) - 10-K 2023".
func (c Citation) Source() string {
	name := c.companyName
	if name == "" {
		name = c.ticker
	}
	return fmt.Sprintf("%s (%s) - %s %d", name, c.ticker, c.filingType, c.fiscalYear)
}
