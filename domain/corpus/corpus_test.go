package corpus

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCompany_NormalizesTicker(t *testing.T) {
	c, err := NewCompany(" aapl ", "Apple Inc.")
	require.NoError(t, err)

	assert.Equal(t, "AAPL", c.Ticker())
	assert.Equal(t, "Apple Inc.", c.Name())
	assert.Zero(t, c.ID())
}

func TestNewCompany_EmptyTicker(t *testing.T) {
	_, err := NewCompany("   ", "Nameless")
	assert.ErrorIs(t, err, ErrInvalidTicker)
}

func TestCompany_Label(t *testing.T) {
	c, err := NewCompany("MSFT", "Microsoft Corporation")
	require.NoError(t, err)
	assert.Equal(t, "Microsoft Corporation (MSFT)", c.Label())

	anon, err := NewCompany("MSFT", "")
	require.NoError(t, err)
	assert.Equal(t, "MSFT", anon.Label())
}

func TestFiling_Lifecycle(t *testing.T) {
	f, err := NewFiling(7, FilingType10K, 2023, "0000320193-23-000106")
	require.NoError(t, err)

	assert.Equal(t, FetchStatusPending, f.Status())
	assert.False(t, f.IsChunked())

	f = f.MarkFetched("https://www.sec.gov/Archives/doc.htm")
	assert.Equal(t, FetchStatusFetched, f.Status())
	assert.Equal(t, "https://www.sec.gov/Archives/doc.htm", f.SourceURL())
	assert.Empty(t, f.FetchError())

	f = f.MarkChunked()
	assert.True(t, f.IsChunked())
}

func TestFiling_MarkFailedKeepsFiling(t *testing.T) {
	f, err := NewFiling(7, FilingType10K, 2023, "0000320193-23-000106")
	require.NoError(t, err)

	f = f.MarkFailed("connection reset")
	assert.Equal(t, FetchStatusFailed, f.Status())
	assert.Equal(t, "connection reset", f.FetchError())

	// A retry clears the recorded failure.
	f = f.MarkFetched("https://example.com/doc.htm")
	assert.Equal(t, FetchStatusFetched, f.Status())
	assert.Empty(t, f.FetchError())
}

func TestNewFiling_EmptyAccession(t *testing.T) {
	_, err := NewFiling(7, FilingType10K, 2023, "")
	assert.ErrorIs(t, err, ErrInvalidAccession)
}

func TestChunk_TokenEstimate(t *testing.T) {
	c := NewChunk(1, "Item 7", 0, strings.Repeat("a", 400))
	assert.Equal(t, 100, c.TokenCount())

	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("hi"))
}

func TestChunk_MarkEmbedded(t *testing.T) {
	c := NewChunk(1, "Item 7", 3, "some text")
	assert.False(t, c.IsEmbedded())

	c = c.MarkEmbedded()
	assert.True(t, c.IsEmbedded())
	assert.Equal(t, 3, c.Seq())
}

func TestEstimateTokens_Deterministic(t *testing.T) {
	text := "Total net sales increased 8% or $29.3 billion during 2023."
	assert.Equal(t, EstimateTokens(text), EstimateTokens(text))
}
