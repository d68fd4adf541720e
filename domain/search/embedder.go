// Package search provides retrieval domain types for filing search.
package search

import "context"

// Embedder converts text into embedding vectors. Implementations must
// return one vector per input text, in input order, all with the same
// dimension.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// Generator produces an answer from a system and user prompt.
type Generator interface {
	Generate(ctx context.Context, system, user string) (string, error)
}
