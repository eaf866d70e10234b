package chunker

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragc/internal/domain"
)

func TestChunkRejectsBadWindow(t *testing.T) {
	c := NewWindowChunker()
	doc := domain.Document{ID: "d", Content: "text"}

	_, err := c.Chunk(doc, 0, 0)
	assert.Error(t, err)
	_, err = c.Chunk(doc, 10, 10)
	assert.Error(t, err)
	_, err = c.Chunk(doc, 10, -1)
	assert.Error(t, err)
}

func TestChunkEmptyAndShort(t *testing.T) {
	c := NewWindowChunker()

	chunks, err := c.Chunk(domain.Document{ID: "d", Content: "   \n "}, 10, 2)
	require.NoError(t, err)
	assert.Empty(t, chunks)

	chunks, err = c.Chunk(domain.Document{ID: "d", Content: "  short text  "}, 100, 10)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, domain.Chunk{DocumentID: "d", ChunkID: "d:0", Text: "short text", Index: 0}, chunks[0])
}

func TestChunkWindows(t *testing.T) {
	c := NewWindowChunker()
	content := strings.Repeat("Channels connect goroutines. Select waits on many channels. ", 20)

	chunks, err := c.Chunk(domain.Document{ID: "doc", Content: content}, 120, 30)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	for i, ch := range chunks {
		assert.Equal(t, i, ch.Index)
		assert.Equal(t, "doc", ch.DocumentID)
		assert.Equal(t, fmt.Sprintf("doc:%d", i), ch.ChunkID)
		assert.LessOrEqual(t, utf8.RuneCountInString(ch.Text), 120)
		assert.NotEmpty(t, ch.Text)
	}
	assert.True(t, strings.HasSuffix(strings.TrimSpace(content), chunks[len(chunks)-1].Text))
}

func TestChunkPrefersSentenceEnds(t *testing.T) {
	c := NewWindowChunker()
	content := "First sentence here. Second sentence is a bit longer than the first."

	chunks, err := c.Chunk(domain.Document{ID: "d", Content: content}, 30, 0)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	assert.Equal(t, "First sentence here.", chunks[0].Text)
}

func TestChunkCountsRunes(t *testing.T) {
	c := NewWindowChunker()
	content := strings.Repeat("ünïcödé ", 10)

	chunks, err := c.Chunk(domain.Document{ID: "d", Content: content}, 16, 0)
	require.NoError(t, err)
	for _, ch := range chunks {
		assert.True(t, utf8.ValidString(ch.Text))
		assert.LessOrEqual(t, utf8.RuneCountInString(ch.Text), 16)
	}
}
