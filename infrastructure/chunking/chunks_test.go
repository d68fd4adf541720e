package chunking

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTextChunks_Empty(t *testing.T) {
	chunks, err := NewTextChunks("", DefaultChunkParams())
	require.NoError(t, err)
	assert.Zero(t, chunks.Len())

	chunks, err = NewTextChunks("   \n\t  ", DefaultChunkParams())
	require.NoError(t, err)
	assert.Zero(t, chunks.Len())
}

func TestNewTextChunks_InvalidParams(t *testing.T) {
	_, err := NewTextChunks("text", ChunkParams{Size: 0})
	assert.Error(t, err)

	_, err = NewTextChunks("text", ChunkParams{Size: 100, Overlap: 100})
	assert.Error(t, err)

	_, err = NewTextChunks("text", ChunkParams{Size: 100, Overlap: -1})
	assert.Error(t, err)
}

func TestNewTextChunks_ShortTextSingleChunk(t *testing.T) {
	text := "Revenue grew modestly during the period."
	chunks, err := NewTextChunks(text, DefaultChunkParams())
	require.NoError(t, err)

	require.Equal(t, 1, chunks.Len())
	assert.Equal(t, text, chunks.Chunks()[0].Content())
	assert.Equal(t, 0, chunks.Chunks()[0].Seq())
}

func TestNewTextChunks_PrefersParagraphBreak(t *testing.T) {
	para1 := strings.Repeat("a", 70)
	para2 := strings.Repeat("b", 70)
	text := para1 + "\n\n" + para2

	chunks, err := NewTextChunks(text, ChunkParams{Size: 100, Overlap: 10, MinSize: 5})
	require.NoError(t, err)

	require.GreaterOrEqual(t, chunks.Len(), 2)
	// First chunk ends at the paragraph boundary past the midpoint,
	// not at the raw 100-rune edge.
	assert.Equal(t, para1, chunks.Chunks()[0].Content())
}

func TestNewTextChunks_PrefersSentenceBreak(t *testing.T) {
	s1 := "The company reported total revenue of two billion dollars for the year. "
	s2 := strings.Repeat("x", 60)
	text := s1 + s2

	chunks, err := NewTextChunks(text, ChunkParams{Size: 100, Overlap: 10, MinSize: 5})
	require.NoError(t, err)

	require.GreaterOrEqual(t, chunks.Len(), 2)
	assert.Equal(t, strings.TrimSpace(s1), chunks.Chunks()[0].Content())
}

func TestNewTextChunks_IgnoresBreaksBeforeMidpoint(t *testing.T) {
	// The only sentence break sits in the first quarter of the window,
	// so the splitter must fall back to the raw window edge.
	text := "Short. " + strings.Repeat("y", 200)
	chunks, err := NewTextChunks(text, ChunkParams{Size: 100, Overlap: 0, MinSize: 1})
	require.NoError(t, err)

	require.GreaterOrEqual(t, chunks.Len(), 2)
	first := []rune(chunks.Chunks()[0].Content())
	assert.Greater(t, len(first), 50)
}

func TestNewTextChunks_OverlapCarriesContext(t *testing.T) {
	text := strings.Repeat("z", 250)
	chunks, err := NewTextChunks(text, ChunkParams{Size: 100, Overlap: 20, MinSize: 1})
	require.NoError(t, err)

	require.GreaterOrEqual(t, chunks.Len(), 3)
	// 250 runes with windows of 100 stepping by 80: 0-100, 80-180, 160-250.
	all := chunks.Chunks()
	assert.Equal(t, 100, len([]rune(all[0].Content())))
	assert.Equal(t, 100, len([]rune(all[1].Content())))
}

func TestNewTextChunks_Deterministic(t *testing.T) {
	text := strings.Repeat("Net sales increased due to higher demand. ", 60)

	a, err := NewTextChunks(text, DefaultChunkParams())
	require.NoError(t, err)
	b, err := NewTextChunks(text, DefaultChunkParams())
	require.NoError(t, err)

	require.Equal(t, a.Len(), b.Len())
	assert.Equal(t, a.Texts(), b.Texts())
}

func TestNewTextChunks_SequencesAreOrdered(t *testing.T) {
	text := strings.Repeat("Operating income decreased year over year. ", 40)
	chunks, err := NewTextChunks(text, ChunkParams{Size: 200, Overlap: 20, MinSize: 10})
	require.NoError(t, err)

	for i, c := range chunks.Chunks() {
		assert.Equal(t, i, c.Seq())
	}
}

// mergeOnOverlap stitches ordered chunks back together by dropping the
// longest suffix of the accumulated text that prefixes the next chunk.
func mergeOnOverlap(texts []string) string {
	var merged string
	for _, text := range texts {
		max := len(merged)
		if len(text) < max {
			max = len(text)
		}
		k := 0
		for n := max; n > 0; n-- {
			if strings.HasSuffix(merged, text[:n]) {
				k = n
				break
			}
		}
		merged += text[k:]
	}
	return merged
}

func TestNewTextChunks_ReconstructsSource(t *testing.T) {
	// Distinct numbered sentences so overlapping regions match in
	// exactly one place.
	var b strings.Builder
	for i := 0; i < 80; i++ {
		fmt.Fprintf(&b, "Item %04d contributed %d million dollars of segment revenue. ", i, i*3)
	}
	text := strings.TrimSpace(b.String())

	chunks, err := NewTextChunks(text, ChunkParams{Size: 200, Overlap: 40, MinSize: 10})
	require.NoError(t, err)
	require.Greater(t, chunks.Len(), 1)

	assert.Equal(t, text, mergeOnOverlap(chunks.Texts()))
}

func TestParamsForTokens(t *testing.T) {
	p := ParamsForTokens(400, 40)
	assert.Equal(t, 1600, p.Size)
	assert.Equal(t, 160, p.Overlap)

	// Zero values keep the defaults.
	p = ParamsForTokens(0, -1)
	assert.Equal(t, DefaultChunkParams().Size, p.Size)
	assert.Equal(t, DefaultChunkParams().Overlap, p.Overlap)
}
