package corpus

import (
	"time"
	"unicode/utf8"
)

// EstimateTokens estimates the token count of a text. The estimate is a
// rune-count heuristic (roughly four characters per token for English
// prose) so the same text always yields the same estimate.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return (utf8.RuneCountInString(text) + 3) / 4
}

// Chunk is a contiguous span of filing text, the unit of embedding and
// retrieval. Chunks are ordered by sequence within their filing. The
// embedded flag is the ingestion checkpoint: chunks are written before
// any embedding call, and a resumed run only embeds chunks still
// marked false.
type Chunk struct {
	id         int64
	filingID   int64
	section    string
	seq        int
	text       string
	tokenCount int
	embedded   bool
	createdAt  time.Time
}

// NewChunk creates a new Chunk.
func NewChunk(filingID int64, section string, seq int, text string) Chunk {
	return Chunk{
		filingID:   filingID,
		section:    section,
		seq:        seq,
		text:       text,
		tokenCount: EstimateTokens(text),
		createdAt:  time.Now().UTC(),
	}
}

// RestoreChunk reconstructs a Chunk from persisted state.
func RestoreChunk(id, filingID int64, section string, seq int, text string, tokenCount int, embedded bool, createdAt time.Time) Chunk {
	return Chunk{
		id:         id,
		filingID:   filingID,
		section:    section,
		seq:        seq,
		text:       text,
		tokenCount: tokenCount,
		embedded:   embedded,
		createdAt:  createdAt,
	}
}

// ID returns the chunk ID (0 until persisted).
func (c Chunk) ID() int64 { return c.id }

// FilingID returns the owning filing's ID.
func (c Chunk) FilingID() int64 { return c.filingID }

// Section returns the filing section the chunk came from.
func (c Chunk) Section() string { return c.section }

// Seq returns the chunk's position within its filing.
func (c Chunk) Seq() int { return c.seq }

// Text returns the chunk text.
func (c Chunk) Text() string { return c.text }

// TokenCount returns the estimated token count.
func (c Chunk) TokenCount() int { return c.tokenCount }

// IsEmbedded reports whether the chunk's vector has been stored.
func (c Chunk) IsEmbedded() bool { return c.embedded }

// CreatedAt returns the creation timestamp.
func (c Chunk) CreatedAt() time.Time { return c.createdAt }

// WithID returns a copy with the persisted ID set.
func (c Chunk) WithID(id int64) Chunk {
	c.id = id
	return c
}

// MarkEmbedded records that the chunk's vector has been stored.
func (c Chunk) MarkEmbedded() Chunk {
	c.embedded = true
	return c
}
