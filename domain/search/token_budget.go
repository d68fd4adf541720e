package search

import (
	"fmt"
	"unicode/utf8"
)

// TokenBudget keeps embedding batches inside model token limits using a
// character proxy. A batch holds at most maxBatchSize chunks and its
// total truncated text stays under maxChars; individual texts longer
// than maxChars are truncated.
type TokenBudget struct {
	maxChars     int
	maxBatchSize int
}

// NewTokenBudget creates a TokenBudget with the given character limit.
// maxChars must be positive.
func NewTokenBudget(maxChars int) (TokenBudget, error) {
	if maxChars <= 0 {
		return TokenBudget{}, fmt.Errorf("NewTokenBudget: maxChars must be positive, got %d", maxChars)
	}
	return TokenBudget{maxChars: maxChars, maxBatchSize: 1}, nil
}

// DefaultTokenBudget returns a conservative 16 000 character budget,
// roughly 5 300 tokens, safe for 8 192-token embedding models.
func DefaultTokenBudget() TokenBudget {
	b, _ := NewTokenBudget(16000)
	return b
}

// WithMaxBatchSize returns a copy with the given maximum chunks per
// batch. Values <= 0 are clamped to 1.
func (b TokenBudget) WithMaxBatchSize(n int) TokenBudget {
	if n <= 0 {
		n = 1
	}
	b.maxBatchSize = n
	return b
}

// Truncate caps text at the rune limit.
func (b TokenBudget) Truncate(text string) string {
	if utf8.RuneCountInString(text) <= b.maxChars {
		return text
	}
	return string([]rune(text)[:b.maxChars])
}

// Batches partitions documents into groups that respect both limits. A
// chunk whose truncated text alone exceeds the character budget gets a
// batch to itself rather than being dropped.
func (b TokenBudget) Batches(documents []Document) [][]Document {
	if len(documents) == 0 {
		return nil
	}

	var batches [][]Document
	for i := 0; i < len(documents); {
		start := i
		chars := 0

		for i < len(documents) {
			if i-start >= b.maxBatchSize && i > start {
				break
			}
			textLen := min(utf8.RuneCountInString(documents[i].Text()), b.maxChars)
			if chars+textLen > b.maxChars && i > start {
				break
			}
			chars += textLen
			i++
		}

		batch := make([]Document, i-start)
		copy(batch, documents[start:i])
		batches = append(batches, batch)
	}
	return batches
}
