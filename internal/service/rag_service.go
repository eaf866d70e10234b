package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"ragc/internal/domain"
	"ragc/internal/vectorstore"
)

// ErrInvalid marks a request the service refuses before touching storage.
var ErrInvalid = errors.New("invalid request")

// NoContextMessage is returned by Chat when retrieval finds nothing.
const NoContextMessage = "No relevant documents were found for this question."

// DefaultChatLimit is the number of chunks retrieved for a chat answer.
const DefaultChatLimit = 5

// RAGService ties embedding, chunking, storage and summarization together.
type RAGService struct {
	chunker             domain.Chunker
	embedder            domain.Embedder
	store               vectorstore.Storage
	summarizer          domain.Summarizer
	summaryMaxSentences int
	log                 *slog.Logger
}

func NewRAGService(chunker domain.Chunker, embedder domain.Embedder, store vectorstore.Storage, summarizer domain.Summarizer, summaryMaxSentences int, log *slog.Logger) *RAGService {
	if log == nil {
		log = slog.Default()
	}
	return &RAGService{
		chunker:             chunker,
		embedder:            embedder,
		store:               store,
		summarizer:          summarizer,
		summaryMaxSentences: summaryMaxSentences,
		log:                 log,
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

func (s *RAGService) CreateCollection(ctx context.Context, name string, size int, distance string) error {
	if strings.TrimSpace(name) == "" {
		return invalid("collection_name must not be empty")
	}
	if size <= 0 {
		return invalid("vector_size must be positive")
	}
	d, ok := domain.ParseDistance(distance)
	if !ok {
		return invalid("unknown distance %q", distance)
	}
	if err := s.store.CreateCollection(ctx, name, size, d); err != nil {
		return err
	}
	s.log.Info("collection created", "collection", name, "size", size, "distance", d)
	return nil
}

func (s *RAGService) DeleteCollection(ctx context.Context, name string) error {
	if err := s.store.DeleteCollection(ctx, name); err != nil {
		return err
	}
	s.log.Info("collection deleted", "collection", name)
	return nil
}

func (s *RAGService) ListCollections(ctx context.Context) ([]string, error) {
	return s.store.ListCollections(ctx)
}

func (s *RAGService) CollectionInfo(ctx context.Context, name string) (domain.CollectionInfo, error) {
	return s.store.CollectionInfo(ctx, name)
}

// Add embeds chunk once and stores one point per payload, each with "text" set
// to chunk. Without payloads a single point carrying only the text is stored.
func (s *RAGService) Add(ctx context.Context, collection, chunk string, payloads []domain.Payload) ([]string, error) {
	if strings.TrimSpace(chunk) == "" {
		return nil, invalid("chunk must not be empty")
	}
	info, err := s.store.CollectionInfo(ctx, collection)
	if err != nil {
		return nil, err
	}
	vec, err := s.embedder.Embed(ctx, chunk, info.VectorSize)
	if err != nil {
		return nil, fmt.Errorf("embed chunk: %w", err)
	}
	if len(payloads) == 0 {
		payloads = []domain.Payload{{}}
	}
	points := make([]domain.Point, 0, len(payloads))
	ids := make([]string, 0, len(payloads))
	for _, p := range payloads {
		merged := make(domain.Payload, len(p)+1)
		for k, v := range p {
			merged[k] = v
		}
		merged["text"] = chunk
		id := uuid.NewString()
		points = append(points, domain.Point{ID: id, Vector: vec, Payload: merged})
		ids = append(ids, id)
	}
	if err := s.store.Upsert(ctx, collection, points); err != nil {
		return nil, err
	}
	return ids, nil
}

// Upload splits a document into chunks and adds each one with its source name.
// It returns the number of chunks stored.
func (s *RAGService) Upload(ctx context.Context, collection string, doc domain.Document, size, overlap int) (int, error) {
	if size <= 0 {
		return 0, invalid("chunk_size must be positive")
	}
	if overlap < 0 || overlap >= size {
		return 0, invalid("chunk_overlap must be at least 0 and below chunk_size")
	}
	info, err := s.store.CollectionInfo(ctx, collection)
	if err != nil {
		return 0, err
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	chunks, err := s.chunker.Chunk(doc, size, overlap)
	if err != nil {
		return 0, invalid("%v", err)
	}
	points := make([]domain.Point, 0, len(chunks))
	for _, ch := range chunks {
		vec, err := s.embedder.Embed(ctx, ch.Text, info.VectorSize)
		if err != nil {
			return 0, fmt.Errorf("embed chunk %d: %w", ch.Index, err)
		}
		points = append(points, domain.Point{
			ID:     uuid.NewString(),
			Vector: vec,
			Payload: domain.Payload{
				"text":        ch.Text,
				"source":      doc.Name,
				"document_id": doc.ID,
				"chunk_index": ch.Index,
			},
		})
	}
	if len(points) > 0 {
		if err := s.store.Upsert(ctx, collection, points); err != nil {
			return 0, err
		}
	}
	s.log.Info("document uploaded", "collection", collection, "file", doc.Name, "chunks", len(points))
	return len(points), nil
}

func (s *RAGService) Search(ctx context.Context, collection, query string, limit int, scoreThreshold float64) ([]domain.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, invalid("query must not be empty")
	}
	info, err := s.store.CollectionInfo(ctx, collection)
	if err != nil {
		return nil, err
	}
	vec, err := s.embedder.Embed(ctx, query, info.VectorSize)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return s.store.Search(ctx, collection, vec, limit, scoreThreshold)
}

// ChatAnswer is either a grounded Response or an informational Message.
type ChatAnswer struct {
	Response string
	Message  string
}

// Chat retrieves the best chunks for prompt and answers with the sentences
// most relevant to it.
func (s *RAGService) Chat(ctx context.Context, collection, prompt string, limit int) (ChatAnswer, error) {
	if limit <= 0 {
		limit = DefaultChatLimit
	}
	results, err := s.Search(ctx, collection, prompt, limit, 0)
	if err != nil {
		return ChatAnswer{}, err
	}
	texts := make([]string, 0, len(results))
	for _, r := range results {
		if t, ok := r.Text(); ok && strings.TrimSpace(t) != "" {
			texts = append(texts, t)
		}
	}
	if len(texts) == 0 {
		return ChatAnswer{Message: NoContextMessage}, nil
	}
	answer, err := s.summarizer.Summarize(strings.Join(texts, "\n"), prompt, s.summaryMaxSentences)
	if err != nil {
		return ChatAnswer{}, fmt.Errorf("summarize: %w", err)
	}
	if strings.TrimSpace(answer) == "" {
		return ChatAnswer{Message: NoContextMessage}, nil
	}
	return ChatAnswer{Response: answer}, nil
}
