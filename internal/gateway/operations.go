package gateway

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"ragc/internal/domain"
)

// DefaultSearchLimit is used when the caller does not provide a usable limit.
const DefaultSearchLimit = 10

// ListCollections returns the collection names in the order the remote reports them.
func (c *Client) ListCollections(ctx context.Context) ([]string, error) {
	var out struct {
		Collections []string `json:"collections"`
	}
	err := c.do(ctx, request{
		op:      "list collections",
		method:  http.MethodGet,
		path:    "/collections",
		generic: "failed to load collections",
	}, &out)
	if err != nil {
		return nil, err
	}
	if out.Collections == nil {
		return []string{}, nil
	}
	return out.Collections, nil
}

// CreateCollection creates a collection with the given vector size and metric.
func (c *Client) CreateCollection(ctx context.Context, name string, vectorSize int, distance domain.Distance) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return &ValidationError{Field: "collection_name", Message: "must not be empty"}
	}
	if vectorSize <= 0 {
		return &ValidationError{Field: "vector_size", Message: "must be a positive integer"}
	}
	d, ok := domain.ParseDistance(string(distance))
	if !ok {
		return &ValidationError{Field: "distance", Message: fmt.Sprintf("unknown metric %q", distance)}
	}
	body := map[string]any{
		"collection_name": name,
		"vector_size":     vectorSize,
		"distance":        string(d),
	}
	return c.postJSON(ctx, "create collection", "/collection/create", "failed to create collection", nil, body, nil)
}

// DeleteCollection removes a collection. Deleting an absent collection is a RequestError.
func (c *Client) DeleteCollection(ctx context.Context, name string) error {
	if strings.TrimSpace(name) == "" {
		return &ValidationError{Field: "collection_name", Message: "must not be empty"}
	}
	return c.do(ctx, request{
		op:      "delete collection",
		method:  http.MethodDelete,
		path:    "/collection/" + segment(name),
		generic: "failed to delete collection",
	}, nil)
}

type vectorsParams struct {
	Size     int    `json:"size"`
	Distance string `json:"distance"`
}

type infoBody struct {
	VectorsCount *int `json:"vectors_count"`
	PointsCount  *int `json:"points_count"`
	Config       struct {
		Params struct {
			Vectors vectorsParams `json:"vectors"`
		} `json:"params"`
	} `json:"config"`
	Result *infoBody `json:"result"`
}

// CollectionInfo fetches vector count, size and metric for one collection.
func (c *Client) CollectionInfo(ctx context.Context, name string) (domain.CollectionInfo, error) {
	if strings.TrimSpace(name) == "" {
		return domain.CollectionInfo{}, &ValidationError{Field: "collection_name", Message: "must not be empty"}
	}
	var out infoBody
	err := c.do(ctx, request{
		op:      "collection info",
		method:  http.MethodGet,
		path:    "/collection/" + segment(name) + "/info",
		generic: "failed to load collection info",
	}, &out)
	if err != nil {
		return domain.CollectionInfo{}, notFound(err, "collection", name)
	}
	body := &out
	if body.Result != nil {
		body = body.Result
	}
	info := domain.CollectionInfo{
		Name:       name,
		VectorSize: body.Config.Params.Vectors.Size,
	}
	switch {
	case body.VectorsCount != nil:
		info.VectorsCount = *body.VectorsCount
	case body.PointsCount != nil:
		info.VectorsCount = *body.PointsCount
	}
	if d, ok := domain.ParseDistance(body.Config.Params.Vectors.Distance); ok {
		info.Distance = d
	} else {
		info.Distance = domain.Distance(strings.ToUpper(body.Config.Params.Vectors.Distance))
	}
	return info, nil
}

// AddVector stores one chunk of text; the remote embeds it.
func (c *Client) AddVector(ctx context.Context, collection, chunk string, payloads []domain.Payload) error {
	if strings.TrimSpace(collection) == "" {
		return &ValidationError{Field: "collection_name", Message: "select a collection"}
	}
	if strings.TrimSpace(chunk) == "" {
		return &ValidationError{Field: "chunk", Message: "must not be empty"}
	}
	if payloads == nil {
		payloads = []domain.Payload{}
	}
	body := map[string]any{
		"collection_name": collection,
		"chunk":           chunk,
		"payloads":        payloads,
	}
	return c.postJSON(ctx, "add vector", "/add", "failed to add vector", nil, body, nil)
}

// UploadRequest describes a file to be chunked and ingested remotely.
type UploadRequest struct {
	Collection   string
	FileName     string
	Content      io.Reader
	ChunkSize    int
	ChunkOverlap int
}

// UploadFile streams a multipart form to /upload. The response body is not interpreted.
func (c *Client) UploadFile(ctx context.Context, r UploadRequest) error {
	if r.Content == nil || strings.TrimSpace(r.FileName) == "" {
		return &ValidationError{Field: "file", Message: "select a file"}
	}
	if strings.TrimSpace(r.Collection) == "" {
		return &ValidationError{Field: "collection_name", Message: "select a collection"}
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeUploadForm(mw, r))
	}()
	err := c.do(ctx, request{
		op:          "upload file",
		method:      http.MethodPost,
		path:        "/upload",
		body:        pr,
		contentType: mw.FormDataContentType(),
		generic:     "failed to upload file",
	}, nil)
	// Unblocks the writer if the transport gave up before draining the body.
	_ = pr.CloseWithError(io.ErrClosedPipe)
	return err
}

func writeUploadForm(mw *multipart.Writer, r UploadRequest) error {
	part, err := mw.CreateFormFile("file", r.FileName)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, r.Content); err != nil {
		return err
	}
	fields := [][2]string{
		{"collection_name", r.Collection},
		{"chunk_size", strconv.Itoa(r.ChunkSize)},
		{"chunk_overlap", strconv.Itoa(r.ChunkOverlap)},
	}
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return err
		}
	}
	return mw.Close()
}

// SearchRequest is a similarity query against one collection.
type SearchRequest struct {
	Collection     string
	Query          string
	Limit          int
	ScoreThreshold float64
}

type searchHit struct {
	ID      any            `json:"id"`
	Score   float64        `json:"score"`
	Payload domain.Payload `json:"payload"`
}

// Search runs a similarity query. Results keep the remote's ordering.
func (c *Client) Search(ctx context.Context, r SearchRequest) ([]domain.SearchResult, error) {
	if strings.TrimSpace(r.Collection) == "" {
		return nil, &ValidationError{Field: "collection_name", Message: "select a collection"}
	}
	if strings.TrimSpace(r.Query) == "" {
		return nil, &ValidationError{Field: "query", Message: "must not be empty"}
	}
	body := map[string]any{
		"collection_name": r.Collection,
		"query":           r.Query,
		"limit":           r.Limit,
	}
	if r.ScoreThreshold > 0 {
		body["score_threshold"] = r.ScoreThreshold
	}
	var hits []searchHit
	if err := c.postJSON(ctx, "search", "/search", "search failed", nil, body, &hits); err != nil {
		return nil, err
	}
	results := make([]domain.SearchResult, 0, len(hits))
	for _, h := range hits {
		res := domain.SearchResult{Score: h.Score, Payload: h.Payload}
		if h.ID != nil {
			res.ID = fmt.Sprint(h.ID)
		}
		results = append(results, res)
	}
	return results, nil
}

// ChatRequest asks the assistant a question grounded on a collection.
type ChatRequest struct {
	Prompt     string
	Collection string
	Limit      int
}

// ChatReply carries the assistant text; Present is false when the remote
// answered 2xx without a usable response or message field.
type ChatReply struct {
	Text    string
	Present bool
}

// Chat asks the assistant. A 2xx body that is not a JSON object yields an empty reply.
func (c *Client) Chat(ctx context.Context, r ChatRequest) (ChatReply, error) {
	if strings.TrimSpace(r.Prompt) == "" {
		return ChatReply{}, &ValidationError{Field: "prompt", Message: "must not be empty"}
	}
	q := url.Values{}
	q.Set("prompt", r.Prompt)
	q.Set("collection_name", r.Collection)
	q.Set("limit", strconv.Itoa(r.Limit))
	body := map[string]any{
		"prompt":          r.Prompt,
		"collection_name": r.Collection,
		"limit":           r.Limit,
	}
	var out any
	if err := c.postJSON(ctx, "chat", "/chat", "chat request failed", q, body, &out); err != nil {
		return ChatReply{}, err
	}
	obj, ok := out.(map[string]any)
	if !ok {
		return ChatReply{}, nil
	}
	for _, key := range []string{"response", "message"} {
		if s, ok := obj[key].(string); ok && strings.TrimSpace(s) != "" {
			return ChatReply{Text: s, Present: true}, nil
		}
	}
	return ChatReply{}, nil
}

// ParseLimit reads a user-typed limit; anything non-numeric becomes the default.
// Zero and negative numbers are passed through untouched.
func ParseLimit(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return DefaultSearchLimit
	}
	return n
}
