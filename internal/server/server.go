package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"ragc/internal/domain"
	"ragc/internal/service"
	"ragc/internal/vectorstore"
)

// MaxUploadBytes bounds a multipart upload.
const MaxUploadBytes = 32 << 20

// Service is what the HTTP layer needs from the RAG service.
type Service interface {
	CreateCollection(ctx context.Context, name string, size int, distance string) error
	DeleteCollection(ctx context.Context, name string) error
	ListCollections(ctx context.Context) ([]string, error)
	CollectionInfo(ctx context.Context, name string) (domain.CollectionInfo, error)
	Add(ctx context.Context, collection, chunk string, payloads []domain.Payload) ([]string, error)
	Upload(ctx context.Context, collection string, doc domain.Document, size, overlap int) (int, error)
	Search(ctx context.Context, collection, query string, limit int, scoreThreshold float64) ([]domain.SearchResult, error)
	Chat(ctx context.Context, collection, prompt string, limit int) (service.ChatAnswer, error)
}

type API struct {
	svc    Service
	apiKey string
	log    *slog.Logger
}

// NewAPI wires the handlers. A non-empty apiKey is required in the api-key header.
func NewAPI(svc Service, apiKey string, log *slog.Logger) *API {
	if log == nil {
		log = slog.Default()
	}
	return &API{svc: svc, apiKey: apiKey, log: log}
}

// Handler returns the routed handler with request logging.
func (a *API) Handler() http.Handler {
	return a.logMiddleware(a.mux())
}

func (a *API) mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /collections", a.handleListCollections)
	mux.HandleFunc("POST /collection/create", a.handleCreateCollection)
	mux.HandleFunc("GET /collection/{name}/info", a.handleCollectionInfo)
	mux.HandleFunc("DELETE /collection/{name}", a.handleDeleteCollection)
	mux.HandleFunc("POST /add", a.handleAdd)
	mux.HandleFunc("POST /upload", a.handleUpload)
	mux.HandleFunc("POST /search", a.handleSearch)
	mux.HandleFunc("POST /chat", a.handleChat)
	return mux
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, addr string, api *API) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		errs <- srv.ListenAndServe()
	}()
	api.log.Info("server listening", "addr", addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errs:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	nbytes int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.nbytes += n
	return n, err
}

func (a *API) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		// request-id propagation: accept client-provided or generate
		reqID := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", reqID)
		rec := &statusRecorder{ResponseWriter: w}
		if a.authorize(rec, r) {
			next.ServeHTTP(rec, r)
		}
		a.log.Info("http.req",
			"req_id", reqID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
			"bytes", rec.nbytes,
		)
	})
}

func (a *API) authorize(w http.ResponseWriter, r *http.Request) bool {
	if a.apiKey == "" || r.Header.Get("api-key") == a.apiKey {
		return true
	}
	writeError(w, http.StatusUnauthorized, "invalid api key")
	return false
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type apiError struct {
	Detail string `json:"detail"`
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, apiError{Detail: detail})
}

// writeServiceError maps service and storage errors onto HTTP statuses.
func (a *API) writeServiceError(w http.ResponseWriter, op string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, vectorstore.ErrCollectionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, vectorstore.ErrCollectionExists):
		status = http.StatusConflict
	case errors.Is(err, service.ErrInvalid):
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		a.log.Error(op+" failed", "error", err)
	}
	writeError(w, status, err.Error())
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	return nil
}

func (a *API) handleListCollections(w http.ResponseWriter, r *http.Request) {
	names, err := a.svc.ListCollections(r.Context())
	if err != nil {
		a.writeServiceError(w, "list collections", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"collections": names})
}

type createCollectionRequest struct {
	CollectionName string `json:"collection_name"`
	VectorSize     int    `json:"vector_size"`
	Distance       string `json:"distance"`
}

func (a *API) handleCreateCollection(w http.ResponseWriter, r *http.Request) {
	req := createCollectionRequest{CollectionName: "default_collection", VectorSize: 1024, Distance: string(domain.DistanceCosine)}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.svc.CreateCollection(r.Context(), req.CollectionName, req.VectorSize, req.Distance); err != nil {
		a.writeServiceError(w, "create collection", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Collection %s created successfully", req.CollectionName),
	})
}

func (a *API) handleCollectionInfo(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	info, err := a.svc.CollectionInfo(r.Context(), name)
	if err != nil {
		a.writeServiceError(w, "collection info", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"vectors_count": info.VectorsCount,
		"points_count":  info.VectorsCount,
		"config": map[string]any{
			"params": map[string]any{
				"vectors": map[string]any{
					"size":     info.VectorSize,
					"distance": info.Distance,
				},
			},
		},
	})
}

func (a *API) handleDeleteCollection(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if err := a.svc.DeleteCollection(r.Context(), name); err != nil {
		a.writeServiceError(w, "delete collection", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Collection %s deleted successfully", name),
	})
}

type addRequest struct {
	CollectionName string           `json:"collection_name"`
	Chunk          string           `json:"chunk"`
	Payloads       []domain.Payload `json:"payloads"`
}

func (a *API) handleAdd(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ids, err := a.svc.Add(r.Context(), req.CollectionName, req.Chunk, req.Payloads)
	if err != nil {
		a.writeServiceError(w, "add", err)
		return
	}
	resp := map[string]any{"message": "Vectors added successfully", "ids": ids}
	if len(ids) > 0 {
		resp["id"] = ids[0]
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	if err := r.ParseMultipartForm(MaxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()
	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "read file: "+err.Error())
		return
	}

	size, err := formInt(r, "chunk_size", 1000)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	overlap, err := formInt(r, "chunk_overlap", 200)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	doc := domain.Document{Name: header.Filename, Content: string(content)}
	n, err := a.svc.Upload(r.Context(), r.FormValue("collection_name"), doc, size, overlap)
	if err != nil {
		a.writeServiceError(w, "upload", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": fmt.Sprintf("File %s uploaded successfully", header.Filename),
		"chunks":  n,
	})
}

func formInt(r *http.Request, key string, def int) (int, error) {
	v := strings.TrimSpace(r.FormValue(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", key)
	}
	return n, nil
}

type searchRequest struct {
	CollectionName string   `json:"collection_name"`
	Query          string   `json:"query"`
	Limit          *int     `json:"limit"`
	ScoreThreshold *float64 `json:"score_threshold"`
}

type searchHit struct {
	ID      string         `json:"id"`
	Score   float64        `json:"score"`
	Payload domain.Payload `json:"payload"`
}

func (a *API) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit := 10
	if req.Limit != nil {
		limit = *req.Limit
	}
	threshold := 0.0
	if req.ScoreThreshold != nil {
		threshold = *req.ScoreThreshold
	}
	results, err := a.svc.Search(r.Context(), req.CollectionName, req.Query, limit, threshold)
	if err != nil {
		a.writeServiceError(w, "search", err)
		return
	}
	hits := make([]searchHit, 0, len(results))
	for _, res := range results {
		hits = append(hits, searchHit{ID: res.ID, Score: res.Score, Payload: res.Payload})
	}
	writeJSON(w, http.StatusOK, hits)
}

type chatRequest struct {
	Prompt         string `json:"prompt"`
	CollectionName string `json:"collection_name"`
	Limit          int    `json:"limit"`
}

// handleChat reads query parameters first and falls back to a JSON body.
func (a *API) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	q := r.URL.Query()
	if v := q.Get("prompt"); v != "" {
		req.Prompt = v
	}
	if v := q.Get("collection_name"); v != "" {
		req.CollectionName = v
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "limit must be an integer")
			return
		}
		req.Limit = n
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeError(w, http.StatusUnprocessableEntity, "prompt must not be empty")
		return
	}
	answer, err := a.svc.Chat(r.Context(), req.CollectionName, req.Prompt, req.Limit)
	if err != nil {
		a.writeServiceError(w, "chat", err)
		return
	}
	if answer.Response != "" {
		writeJSON(w, http.StatusOK, map[string]string{"response": answer.Response})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": answer.Message})
}
