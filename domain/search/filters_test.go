package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finsight-ai/finsight/domain/store"
)

func buildQuery(opts ...store.Option) store.Query {
	return store.Build(opts...)
}

func TestFilters_Empty(t *testing.T) {
	assert.True(t, NewFilters().IsEmpty())
	assert.False(t, NewFilters(WithTicker("AAPL")).IsEmpty())
	assert.False(t, NewFilters(WithFiscalYear(2023)).IsEmpty())
}

func TestFilters_DefensiveCopy(t *testing.T) {
	ids := []int64{1, 2, 3}
	f := NewFilters(WithFilingIDs(ids))

	ids[0] = 99
	assert.Equal(t, []int64{1, 2, 3}, f.FilingIDs())

	got := f.FilingIDs()
	got[1] = 42
	assert.Equal(t, []int64{1, 2, 3}, f.FilingIDs())
}

func TestRequest_MaxDistance(t *testing.T) {
	req := NewRequest([]float64{0.1, 0.2}, 5, NewFilters())
	assert.Equal(t, 0.0, req.MaxDistance())

	req = req.WithMaxDistance(0.4)
	assert.Equal(t, 0.4, req.MaxDistance())

	// Non-positive ceilings are ignored.
	req2 := NewRequest(nil, 5, NewFilters()).WithMaxDistance(-1)
	assert.Equal(t, 0.0, req2.MaxDistance())
}

func TestRequest_VectorCopy(t *testing.T) {
	v := []float64{1, 2}
	req := NewRequest(v, 3, NewFilters())

	v[0] = 9
	assert.Equal(t, []float64{1, 2}, req.Vector())
}

func TestOptions_VectorRoundTrip(t *testing.T) {
	q := buildQuery(WithVector([]float64{0.5, 0.5}), WithChunkIDs([]int64{4, 5}))

	vec, ok := VectorFrom(q)
	require.True(t, ok)
	assert.Equal(t, []float64{0.5, 0.5}, vec)

	assert.Equal(t, []int64{4, 5}, ChunkIDsFrom(q))
}

func TestOptions_FiltersRoundTrip(t *testing.T) {
	filters := NewFilters(WithTicker("MSFT"), WithFilingType("10-K"))
	q := buildQuery(WithSearchFilters(filters))

	got, ok := FiltersFrom(q)
	require.True(t, ok)
	assert.Equal(t, "MSFT", got.Ticker())
	assert.Equal(t, "10-K", got.FilingType())

	_, ok = VectorFrom(q)
	assert.False(t, ok)
}
