package search

// Filters narrows retrieval to a slice of the corpus. All set filters
// are combined with AND; an empty Filters matches every chunk.
type Filters struct {
	ticker     string
	filingType string
	fiscalYear int
	section    string
	filingIDs  []int64
}

// FiltersOption is a functional option for Filters.
type FiltersOption func(*Filters)

// WithTicker restricts results to one company's filings.
func WithTicker(ticker string) FiltersOption {
	return func(f *Filters) {
		f.ticker = ticker
	}
}

// WithFilingType restricts results to one filing form type.
func WithFilingType(filingType string) FiltersOption {
	return func(f *Filters) {
		f.filingType = filingType
	}
}

// WithFiscalYear restricts results to one fiscal year.
func WithFiscalYear(year int) FiltersOption {
	return func(f *Filters) {
		f.fiscalYear = year
	}
}

// WithSection restricts results to one filing section.
func WithSection(section string) FiltersOption {
	return func(f *Filters) {
		f.section = section
	}
}

// WithFilingIDs restricts results to specific filings.
func WithFilingIDs(ids []int64) FiltersOption {
	return func(f *Filters) {
		if ids != nil {
			f.filingIDs = make([]int64, len(ids))
			copy(f.filingIDs, ids)
		}
	}
}

// NewFilters creates a new Filters with options.
func NewFilters(opts ...FiltersOption) Filters {
	f := Filters{}
	for _, opt := range opts {
		opt(&f)
	}
	return f
}

// Ticker returns the ticker filter.
func (f Filters) Ticker() string { return f.ticker }

// FilingType returns the filing type filter.
func (f Filters) FilingType() string { return f.filingType }

// FiscalYear returns the fiscal year filter (0 means any).
func (f Filters) FiscalYear() int { return f.fiscalYear }

// Section returns the section filter.
func (f Filters) Section() string { return f.section }

// FilingIDs returns the filing ID filter.
func (f Filters) FilingIDs() []int64 {
	if f.filingIDs == nil {
		return nil
	}
	result := make([]int64, len(f.filingIDs))
	copy(result, f.filingIDs)
	return result
}

// IsEmpty returns true if no filters are set.
func (f Filters) IsEmpty() bool {
	return f.ticker == "" &&
		f.filingType == "" &&
		f.fiscalYear == 0 &&
		f.section == "" &&
		len(f.filingIDs) == 0
}
