package search

// Request represents a vector search request. The query vector is
// computed by the caller so that embedding failures surface before the
// store is touched.
type Request struct {
	vector      []float64
	topK        int
	maxDistance float64
	filters     Filters
}

// NewRequest creates a new Request.
func NewRequest(vector []float64, topK int, filters Filters) Request {
	v := make([]float64, len(vector))
	copy(v, vector)
	return Request{
		vector:  v,
		topK:    topK,
		filters: filters,
	}
}

// WithMaxDistance returns a copy with a cosine-distance ceiling applied.
// Results further than the ceiling are dropped even if fewer than topK
// remain.
func (r Request) WithMaxDistance(d float64) Request {
	if d > 0 {
		r.maxDistance = d
	}
	return r
}

// Vector returns the query vector.
func (r Request) Vector() []float64 {
	v := make([]float64, len(r.vector))
	copy(v, r.vector)
	return v
}

// TopK returns the number of results to return.
func (r Request) TopK() int { return r.topK }

// MaxDistance returns the cosine-distance ceiling (0 means none).
func (r Request) MaxDistance() float64 { return r.maxDistance }

// Filters returns the search filters.
func (r Request) Filters() Filters { return r.filters }
