// Package chunking provides fixed-size text chunking with overlap for RAG indexing.
package chunking

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// charsPerToken is the character-to-token ratio used to translate the
// token-denominated configuration into character windows.
const charsPerToken = 4

// ChunkParams configures the chunking algorithm. Sizes are measured in
// runes (Unicode code points).
type ChunkParams struct {
	Size    int
	Overlap int
	MinSize int
}

// DefaultChunkParams returns defaults tuned for filing prose.
func DefaultChunkParams() ChunkParams {
	return ChunkParams{
		Size:    1600,
		Overlap: 160,
		MinSize: 50,
	}
}

// ParamsForTokens converts a token-denominated chunk size and overlap
// into rune-denominated ChunkParams.
func ParamsForTokens(maxTokens, overlapTokens int) ChunkParams {
	p := DefaultChunkParams()
	if maxTokens > 0 {
		p.Size = maxTokens * charsPerToken
	}
	if overlapTokens >= 0 {
		p.Overlap = overlapTokens * charsPerToken
	}
	return p
}

// Chunk represents a single text chunk and its position in the sequence.
type Chunk struct {
	content string
	seq     int
}

// Content returns the chunk text.
func (c Chunk) Content() string { return c.content }

// Seq returns the chunk's 0-based position in the split output.
func (c Chunk) Seq() int { return c.seq }

// TextChunks holds the result of splitting content into chunks.
type TextChunks struct {
	chunks []Chunk
}

// NewTextChunks splits content into overlapping chunks. The split is a
// pure function of content and params: the same input always produces
// the same chunks, which keeps re-ingestion idempotent.
//
// Each window is at most Size runes. When a window does not end the
// text, the split point prefers, in order:
//   - the last paragraph break (blank line) past the window midpoint
//   - the last sentence break (". ") past the window midpoint
//   - the raw window edge
//
// Consecutive chunks share Overlap runes of trailing context so that
// sentences cut by a boundary remain retrievable from either side.
func NewTextChunks(content string, params ChunkParams) (TextChunks, error) {
	if params.Size <= 0 {
		return TextChunks{}, fmt.Errorf("chunk size must be positive, got %d", params.Size)
	}
	if params.Overlap < 0 || params.Overlap >= params.Size {
		return TextChunks{}, fmt.Errorf("overlap (%d) must be in [0, size) with size %d", params.Overlap, params.Size)
	}

	text := strings.TrimSpace(content)
	if text == "" {
		return TextChunks{}, nil
	}

	runes := []rune(text)
	var chunks []Chunk
	start := 0

	for start < len(runes) {
		end := start + params.Size
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = splitPoint(runes, start, end)
		}

		piece := strings.TrimSpace(string(runes[start:end]))
		if utf8.RuneCountInString(piece) >= params.MinSize || end == len(runes) {
			if piece != "" {
				chunks = append(chunks, Chunk{content: piece, seq: len(chunks)})
			}
		}

		if end == len(runes) {
			break
		}
		next := end - params.Overlap
		if next <= start {
			next = start + 1
		}
		start = next
	}

	return TextChunks{chunks: chunks}, nil
}

// splitPoint finds the best break position in runes[start:end]. Breaks
// before the window midpoint are rejected so chunks never collapse to
// half the configured size.
func splitPoint(runes []rune, start, end int) int {
	window := string(runes[start:end])
	mid := (end - start) / 2

	if idx := strings.LastIndex(window, "\n\n"); idx >= 0 {
		if pos := utf8.RuneCountInString(window[:idx]); pos > mid {
			return start + pos + 2
		}
	}

	if idx := strings.LastIndex(window, ". "); idx >= 0 {
		if pos := utf8.RuneCountInString(window[:idx]); pos > mid {
			return start + pos + 2
		}
	}

	return end
}

// Chunks returns the chunks in order.
func (t TextChunks) Chunks() []Chunk {
	result := make([]Chunk, len(t.chunks))
	copy(result, t.chunks)
	return result
}

// Len returns the number of chunks.
func (t TextChunks) Len() int {
	return len(t.chunks)
}

// Texts returns just the chunk contents in order.
func (t TextChunks) Texts() []string {
	texts := make([]string, len(t.chunks))
	for i, c := range t.chunks {
		texts[i] = c.content
	}
	return texts
}
