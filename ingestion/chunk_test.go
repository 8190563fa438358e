package ingestion

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkTextShortInput(t *testing.T) {
	chunks := ChunkText("short text", 1500, 200)
	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].Start)
	assert.Equal(t, "short text", chunks[0].Text)
}

func TestChunkTextEmpty(t *testing.T) {
	assert.Nil(t, ChunkText("", 1500, 200))
}

func TestChunkTextOverlapAndCoverage(t *testing.T) {
	text := strings.Repeat("abcdefghij", 50) // 500 runes, no sentence breaks
	chunks := ChunkText(text, 200, 50)
	require.Greater(t, len(chunks), 1)

	runes := []rune(text)
	for i, c := range chunks {
		chunkRunes := []rune(c.Text)
		assert.Equal(t, string(runes[c.Start:c.Start+len(chunkRunes)]), c.Text, "chunk %d anchored", i)
		if i > 0 {
			prev := chunks[i-1]
			prevEnd := prev.Start + len([]rune(prev.Text))
			assert.LessOrEqual(t, c.Start, prevEnd, "no gaps")
		}
	}

	last := chunks[len(chunks)-1]
	assert.Equal(t, len(runes), last.Start+len([]rune(last.Text)), "full coverage")
}

func TestChunkTextPrefersSentenceBoundary(t *testing.T) {
	// A sentence break 30 runes before the window end should become the cut.
	sentence := strings.Repeat("x", 170) + ". "
	text := sentence + strings.Repeat("y", 400)
	chunks := ChunkText(text, 200, 50)

	require.Greater(t, len(chunks), 1)
	assert.Equal(t, sentence, chunks[0].Text)
}

func TestChunkTextRuneOffsets(t *testing.T) {
	// Multi-byte runes: offsets must count runes, not bytes.
	text := strings.Repeat("é", 300)
	chunks := ChunkText(text, 100, 20)

	runes := []rune(text)
	for _, c := range chunks {
		chunkRunes := []rune(c.Text)
		assert.Equal(t, string(runes[c.Start:c.Start+len(chunkRunes)]), c.Text)
	}
}
