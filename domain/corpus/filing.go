package corpus

import (
	"errors"
	"fmt"
	"time"
)

// FilingType identifies an SEC filing form.
type FilingType string

// Filing types.
const (
	FilingType10K FilingType = "10-K"
	FilingType10Q FilingType = "10-Q"
)

// FetchStatus tracks a filing's progress through document retrieval.
// Ingestion is resumable: a crashed run leaves filings in their last
// completed state and the next run picks up from there.
type FetchStatus string

// Fetch statuses.
const (
	FetchStatusPending FetchStatus = "pending"
	FetchStatusFetched FetchStatus = "fetched"
	FetchStatusFailed  FetchStatus = "failed"
)

// ErrInvalidAccession indicates a missing accession number.
var ErrInvalidAccession = errors.New("invalid accession number")

// Filing represents a single SEC filing for a company. The accession
// number is the SEC-assigned natural key; together with the company it
// makes ingestion idempotent.
type Filing struct {
	id              int64
	companyID       int64
	filingType      FilingType
	fiscalYear      int
	accessionNumber string
	sourceURL       string
	filedAt         time.Time
	fetchStatus     FetchStatus
	fetchError      string
	chunked         bool
	createdAt       time.Time
	updatedAt       time.Time
}

// NewFiling creates a pending Filing.
func NewFiling(companyID int64, filingType FilingType, fiscalYear int, accessionNumber string) (Filing, error) {
	if accessionNumber == "" {
		return Filing{}, ErrInvalidAccession
	}
	now := time.Now().UTC()
	return Filing{
		companyID:       companyID,
		filingType:      filingType,
		fiscalYear:      fiscalYear,
		accessionNumber: accessionNumber,
		fetchStatus:     FetchStatusPending,
		createdAt:       now,
		updatedAt:       now,
	}, nil
}

// RestoreFiling reconstructs a Filing from persisted state.
func RestoreFiling(
	id, companyID int64,
	filingType FilingType,
	fiscalYear int,
	accessionNumber, sourceURL string,
	filedAt time.Time,
	fetchStatus FetchStatus,
	fetchError string,
	chunked bool,
	createdAt, updatedAt time.Time,
) Filing {
	return Filing{
		id:              id,
		companyID:       companyID,
		filingType:      filingType,
		fiscalYear:      fiscalYear,
		accessionNumber: accessionNumber,
		sourceURL:       sourceURL,
		filedAt:         filedAt,
		fetchStatus:     fetchStatus,
		fetchError:      fetchError,
		chunked:         chunked,
		createdAt:       createdAt,
		updatedAt:       updatedAt,
	}
}

// ID returns the filing ID (0 until persisted).
func (f Filing) ID() int64 { return f.id }

// CompanyID returns the owning company's ID.
func (f Filing) CompanyID() int64 { return f.companyID }

// Type returns the filing form type.
func (f Filing) Type() FilingType { return f.filingType }

// FiscalYear returns the fiscal year the filing covers.
func (f Filing) FiscalYear() int { return f.fiscalYear }

// AccessionNumber returns the SEC accession number.
func (f Filing) AccessionNumber() string { return f.accessionNumber }

// SourceURL returns the document URL the filing was fetched from.
func (f Filing) SourceURL() string { return f.sourceURL }

// FiledAt returns the filing date.
func (f Filing) FiledAt() time.Time { return f.filedAt }

// Status returns the fetch status.
func (f Filing) Status() FetchStatus { return f.fetchStatus }

// FetchError returns the last fetch error message, if any.
func (f Filing) FetchError() string { return f.fetchError }

// IsChunked reports whether the filing's text has been chunked.
func (f Filing) IsChunked() bool { return f.chunked }

// CreatedAt returns the creation timestamp.
func (f Filing) CreatedAt() time.Time { return f.createdAt }

// UpdatedAt returns the last update timestamp.
func (f Filing) UpdatedAt() time.Time { return f.updatedAt }

// WithID returns a copy with the persisted ID set.
func (f Filing) WithID(id int64) Filing {
	f.id = id
	return f
}

// WithSourceURL returns a copy with the document URL set. Discovery
// records the URL up front so a resumed run can fetch without going
// back to the registry.
func (f Filing) WithSourceURL(url string) Filing {
	f.sourceURL = url
	f.updatedAt = time.Now().UTC()
	return f
}

// WithFiledAt returns a copy with the filing date set.
func (f Filing) WithFiledAt(t time.Time) Filing {
	f.filedAt = t
	f.updatedAt = time.Now().UTC()
	return f
}

// MarkFetched records a successful document fetch.
func (f Filing) MarkFetched(sourceURL string) Filing {
	f.sourceURL = sourceURL
	f.fetchStatus = FetchStatusFetched
	f.fetchError = ""
	f.updatedAt = time.Now().UTC()
	return f
}

// MarkFailed records a failed document fetch. The filing stays in the
// corpus so a later run can retry it.
func (f Filing) MarkFailed(reason string) Filing {
	f.fetchStatus = FetchStatusFailed
	f.fetchError = reason
	f.updatedAt = time.Now().UTC()
	return f
}

// MarkChunked records that the filing's text has been split and stored.
func (f Filing) MarkChunked() Filing {
	f.chunked = true
	f.updatedAt = time.Now().UTC()
	return f
}

// String returns a readable representation.
func (f Filing) String() string {
	return fmt.Sprintf("%s %d (%s)", f.filingType, f.fiscalYear, f.accessionNumber)
}
