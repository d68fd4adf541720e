package store

// WithTicker filters by the "ticker" column.
func WithTicker(ticker string) Option {
	return WithCondition("ticker", ticker)
}

// WithCIK filters by the "cik" column.
func WithCIK(cik string) Option {
	return WithCondition("cik", cik)
}

// WithCompanyID filters by the "company_id" column.
func WithCompanyID(id int64) Option {
	return WithCondition("company_id", id)
}

// WithFilingID filters by the "filing_id" column.
func WithFilingID(id int64) Option {
	return WithCondition("filing_id", id)
}

// WithFilingIDIn filters by the "filing_id" column using IN.
func WithFilingIDIn(ids []int64) Option {
	return WithConditionIn("filing_id", ids)
}

// WithAccessionNumber filters by the "accession_number" column.
func WithAccessionNumber(accession string) Option {
	return WithCondition("accession_number", accession)
}

// WithFilingType filters by the "filing_type" column.
func WithFilingType(filingType string) Option {
	return WithCondition("filing_type", filingType)
}

// WithFiscalYear filters by the "fiscal_year" column.
func WithFiscalYear(year int) Option {
	return WithCondition("fiscal_year", year)
}

// WithFetchStatus filters by the "fetch_status" column.
func WithFetchStatus(status string) Option {
	return WithCondition("fetch_status", status)
}

// WithChunked filters by the "chunked" column.
func WithChunked(chunked bool) Option {
	return WithCondition("chunked", chunked)
}

// WithEmbedded filters by the "embedded" column.
func WithEmbedded(embedded bool) Option {
	return WithCondition("embedded", embedded)
}

// WithSection filters by the "section" column.
func WithSection(section string) Option {
	return WithCondition("section", section)
}
