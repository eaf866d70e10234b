package chunker

import (
	"errors"
	"strconv"
	"strings"
	"unicode"

	"ragc/internal/domain"
)

// WindowChunker splits text into windows of at most size characters, each
// starting overlap characters before the previous one ended. A window end is
// pulled back to the last sentence or word boundary in its second half.
type WindowChunker struct{}

func NewWindowChunker() *WindowChunker { return &WindowChunker{} }

func (c *WindowChunker) Chunk(document domain.Document, size, overlap int) ([]domain.Chunk, error) {
	if size <= 0 {
		return nil, errors.New("chunk size must be positive")
	}
	if overlap < 0 || overlap >= size {
		return nil, errors.New("chunk overlap must be in [0, chunk size)")
	}
	text := []rune(strings.TrimSpace(document.Content))
	if len(text) == 0 {
		return nil, nil
	}

	var chunks []domain.Chunk
	start, idx := 0, 0
	for start < len(text) {
		end := start + size
		if end >= len(text) {
			end = len(text)
		} else {
			end = boundary(text, start, end)
		}
		piece := strings.TrimSpace(string(text[start:end]))
		if piece != "" {
			chunks = append(chunks, domain.Chunk{
				DocumentID: document.ID,
				ChunkID:    document.ID + ":" + strconv.Itoa(idx),
				Text:       piece,
				Index:      idx,
			})
			idx++
		}
		if end == len(text) {
			break
		}
		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks, nil
}

// boundary returns the best cut in text[start:end], preferring sentence ends
// over whitespace, and never cutting in the first half of the window.
func boundary(text []rune, start, end int) int {
	floor := start + (end-start)/2
	for i := end; i > floor; i-- {
		switch text[i-1] {
		case '.', '!', '?', '\n':
			return i
		}
	}
	for i := end; i > floor; i-- {
		if unicode.IsSpace(text[i-1]) {
			return i
		}
	}
	return end
}
