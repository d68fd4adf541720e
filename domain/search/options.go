package search

import "github.com/finsight-ai/finsight/domain/store"

// WithChunkID filters by a single chunk ID.
func WithChunkID(id int64) store.Option {
	return store.WithCondition("chunk_id", id)
}

// WithChunkIDs filters by multiple chunk IDs.
func WithChunkIDs(ids []int64) store.Option {
	return store.WithConditionIn("chunk_id", ids)
}

// WithVector passes a pre-computed query vector through options.
func WithVector(vector []float64) store.Option {
	return store.WithParam("vector", vector)
}

// VectorFrom extracts the query vector from a built query.
func VectorFrom(q store.Query) ([]float64, bool) {
	v, ok := q.Param("vector")
	if !ok {
		return nil, false
	}
	vec, ok := v.([]float64)
	return vec, ok
}

// WithSearchFilters passes retrieval filters through the option system.
func WithSearchFilters(filters Filters) store.Option {
	return store.WithParam("search_filters", filters)
}

// FiltersFrom extracts retrieval filters from a built query.
func FiltersFrom(q store.Query) (Filters, bool) {
	v, ok := q.Param("search_filters")
	if !ok {
		return Filters{}, false
	}
	f, ok := v.(Filters)
	return f, ok
}

// ChunkIDsFrom extracts chunk IDs from conditions on a built query.
func ChunkIDsFrom(q store.Query) []int64 {
	for _, cond := range q.Conditions() {
		if cond.Field() == "chunk_id" && cond.In() {
			if ids, ok := cond.Value().([]int64); ok {
				return ids
			}
		}
	}
	return nil
}
