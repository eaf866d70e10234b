package domain

import "context"

// Document represents a single uploaded file.
type Document struct {
	ID      string
	Name    string
	Content string
}

// Chunk is a part of a document used for indexing.
type Chunk struct {
	DocumentID string
	ChunkID    string
	Text       string
	Index      int
}

// Point is a stored vector with its payload.
type Point struct {
	ID      string
	Vector  []float64
	Payload Payload
}

// Embedder converts free text into a vector of the requested dimension.
type Embedder interface {
	Name() string
	Embed(ctx context.Context, text string, dimension int) ([]float64, error)
}

// Chunker splits documents into chunks suitable for retrieval indexing.
type Chunker interface {
	Chunk(document Document, size, overlap int) ([]Chunk, error)
}

// Summarizer extracts the sentences of text most relevant to query.
// An empty query ranks by word frequency alone.
type Summarizer interface {
	Summarize(text, query string, maxSentences int) (string, error)
}
