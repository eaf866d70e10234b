package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"ragc/internal/domain"
	"ragc/internal/gateway"
	"ragc/internal/render"
)

// Gateway is the subset of the RAG API client the handlers need.
type Gateway interface {
	ListCollections(ctx context.Context) ([]string, error)
	CreateCollection(ctx context.Context, name string, vectorSize int, distance domain.Distance) error
	DeleteCollection(ctx context.Context, name string) error
	CollectionInfo(ctx context.Context, name string) (domain.CollectionInfo, error)
	AddVector(ctx context.Context, collection, chunk string, payloads []domain.Payload) error
	UploadFile(ctx context.Context, r gateway.UploadRequest) error
	Search(ctx context.Context, r gateway.SearchRequest) ([]domain.SearchResult, error)
	Chat(ctx context.Context, r gateway.ChatRequest) (gateway.ChatReply, error)
}

// Assistant texts that are not produced by the remote.
const (
	WelcomeText       = "Hello! I am the ragc assistant. Ask me anything about your collections."
	ClarificationText = "Sorry, I could not understand your question."
	ApologyText       = "Sorry, I cannot answer right now. Please try again later."
)

// SourceTag is the provenance marker attached to manually added chunks.
const SourceTag = "ragc"

// Defaults are the fallbacks applied to empty or unparsable form fields.
type Defaults struct {
	ChatCollection string
	SearchLimit    int
	ScoreThreshold float64
	ChunkSize      int
	ChunkOverlap   int
}

// Controller runs the action handlers. Handlers never mutate State; they
// return a Delta for the UI loop to apply.
type Controller struct {
	gw       Gateway
	log      *slog.Logger
	defaults Defaults
	now      func() time.Time
	open     func(path string) (io.ReadCloser, error)
	listSeq  atomic.Uint64
}

// Option customises a Controller.
type Option func(*Controller)

// WithClock overrides the time source used for message timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithOpener overrides how upload paths are opened.
func WithOpener(open func(path string) (io.ReadCloser, error)) Option {
	return func(c *Controller) { c.open = open }
}

// WithLogger sets the logger used for failed actions.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// NewController creates a controller over gw. A zero SearchLimit becomes the gateway default.
func NewController(gw Gateway, defaults Defaults, opts ...Option) *Controller {
	if defaults.SearchLimit == 0 {
		defaults.SearchLimit = gateway.DefaultSearchLimit
	}
	c := &Controller{
		gw:       gw,
		log:      slog.Default(),
		defaults: defaults,
		now:      time.Now,
		open:     func(p string) (io.ReadCloser, error) { return os.Open(p) },
	}
	for _, o := range opts {
		o(c)
	}
	c.log = c.log.With("component", "controller")
	return c
}

// Defaults returns the form fallbacks the controller was built with.
func (c *Controller) Defaults() Defaults { return c.defaults }

// failed builds the single notification a failing handler emits.
func (c *Controller) failed(a Action, what string, err error) Delta {
	c.log.Warn("action failed", "action", a, "error", err)
	msg := what
	if d := gateway.Detail(err); d != "" {
		msg += ": " + d
	}
	return Delta{Action: a, Outcome: PhaseFailed, Notices: []Notice{failure(msg)}, Err: err}
}

// refuse rejects a submission locally with a fixed notification text.
func (c *Controller) refuse(a Action, text string, err error) Delta {
	c.log.Debug("submission refused", "action", a, "error", err)
	return Delta{Action: a, Outcome: PhaseFailed, Notices: []Notice{failure(text)}, Err: err}
}

// Refresh reloads the registry. On failure the previous snapshot stays.
func (c *Controller) Refresh(ctx context.Context) Delta {
	seq := c.listSeq.Add(1)
	names, err := c.gw.ListCollections(ctx)
	if err != nil {
		return c.failed(ActionRefresh, "Failed to load collections", err)
	}
	return Delta{Action: ActionRefresh, Outcome: PhaseSucceeded, Collections: names, ListSeq: seq}
}

// refreshInto appends the post-mutation refresh to a successful delta.
func (c *Controller) refreshInto(ctx context.Context, d Delta) Delta {
	r := c.Refresh(ctx)
	if r.Outcome == PhaseFailed {
		d.Notices = append(d.Notices, r.Notices...)
		return d
	}
	d.Collections = r.Collections
	d.ListSeq = r.ListSeq
	return d
}

// CreateForm holds the raw create-collection inputs.
type CreateForm struct {
	Name       string
	VectorSize string
	Distance   string
}

func (c *Controller) Create(ctx context.Context, f CreateForm) Delta {
	size, err := strconv.Atoi(strings.TrimSpace(f.VectorSize))
	if err != nil || size <= 0 {
		return c.failed(ActionCreate, "Failed to create collection",
			&gateway.ValidationError{Field: "vector_size", Message: "must be a positive integer"})
	}
	distance, ok := domain.ParseDistance(f.Distance)
	if !ok {
		return c.failed(ActionCreate, "Failed to create collection",
			&gateway.ValidationError{Field: "distance", Message: fmt.Sprintf("unknown metric %q", f.Distance)})
	}
	name := strings.TrimSpace(f.Name)
	if err := c.gw.CreateCollection(ctx, name, size, distance); err != nil {
		return c.failed(ActionCreate, "Failed to create collection", err)
	}
	d := Delta{
		Action:    ActionCreate,
		Outcome:   PhaseSucceeded,
		ResetForm: true,
		Notices:   []Notice{success(fmt.Sprintf("Collection %q created", name))},
	}
	return c.refreshInto(ctx, d)
}

// Delete removes a collection. confirmed carries the user's answer to the
// yes/no gate; without it nothing is sent.
func (c *Controller) Delete(ctx context.Context, name string, confirmed bool) Delta {
	if !confirmed {
		return Delta{Action: ActionDelete, Outcome: PhaseIdle}
	}
	if err := c.gw.DeleteCollection(ctx, name); err != nil {
		return c.failed(ActionDelete, "Failed to delete collection", err)
	}
	d := Delta{
		Action:  ActionDelete,
		Outcome: PhaseSucceeded,
		Notices: []Notice{success(fmt.Sprintf("Collection %q deleted", name))},
	}
	return c.refreshInto(ctx, d)
}

func (c *Controller) Info(ctx context.Context, name string) Delta {
	info, err := c.gw.CollectionInfo(ctx, name)
	if err != nil {
		return c.failed(ActionInfo, "Failed to load collection info", err)
	}
	return Delta{Action: ActionInfo, Outcome: PhaseSucceeded, Info: &info}
}

// AddForm holds the add-vector inputs.
type AddForm struct {
	Collection string
	Chunk      string
}

func (c *Controller) Add(ctx context.Context, f AddForm) Delta {
	payloads := []domain.Payload{{"source": SourceTag}}
	if err := c.gw.AddVector(ctx, f.Collection, strings.TrimSpace(f.Chunk), payloads); err != nil {
		return c.failed(ActionAdd, "Failed to add vector", err)
	}
	return Delta{
		Action:    ActionAdd,
		Outcome:   PhaseSucceeded,
		ResetForm: true,
		Notices:   []Notice{success("Vector added")},
	}
}

// SearchForm holds the search inputs; Limit is raw text.
type SearchForm struct {
	Collection string
	Query      string
	Limit      string
}

func (c *Controller) searchLimit(raw string) int {
	if strings.TrimSpace(raw) == "" {
		return c.defaults.SearchLimit
	}
	return gateway.ParseLimit(raw)
}

func (c *Controller) Search(ctx context.Context, f SearchForm) Delta {
	query := strings.TrimSpace(f.Query)
	if f.Collection == "" || query == "" {
		return c.refuse(ActionSearch, "Please fill in all required fields",
			&gateway.ValidationError{Field: "query", Message: "collection and query are required"})
	}
	results, err := c.gw.Search(ctx, gateway.SearchRequest{
		Collection:     f.Collection,
		Query:          query,
		Limit:          c.searchLimit(f.Limit),
		ScoreThreshold: c.defaults.ScoreThreshold,
	})
	if err != nil {
		d := c.failed(ActionSearch, "Search failed", err)
		d.Results = &render.ResultsView{
			Status:     render.ResultsError,
			Collection: f.Collection,
			Query:      query,
			Err:        gateway.Detail(err),
		}
		return d
	}
	view := render.ResultsView{Status: render.ResultsLoaded, Collection: f.Collection, Query: query, Results: results}
	if len(results) == 0 {
		view.Status = render.ResultsEmpty
	}
	return Delta{Action: ActionSearch, Outcome: PhaseSucceeded, Results: &view}
}

// UploadForm holds the upload inputs. Only the first path is sent.
type UploadForm struct {
	Collection   string
	Paths        []string
	ChunkSize    string
	ChunkOverlap string
}

func intOr(raw string, fallback int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

// ValidateChunking rejects overlap values that could never make progress.
func ValidateChunking(size, overlap int) error {
	if size <= 0 {
		return &gateway.ValidationError{Field: "chunk_size", Message: "must be a positive integer"}
	}
	if overlap < 0 {
		return &gateway.ValidationError{Field: "chunk_overlap", Message: "must not be negative"}
	}
	if overlap >= size {
		return &gateway.ValidationError{Field: "chunk_overlap", Message: "must be smaller than chunk size"}
	}
	return nil
}

func (c *Controller) Upload(ctx context.Context, f UploadForm) Delta {
	var path string
	if len(f.Paths) > 0 {
		path = strings.TrimSpace(f.Paths[0])
	}
	if path == "" {
		return c.refuse(ActionUpload, "Please choose a file",
			&gateway.ValidationError{Field: "file", Message: "no file selected"})
	}
	size, err := intOr(f.ChunkSize, c.defaults.ChunkSize)
	if err != nil {
		return c.failed(ActionUpload, "Failed to upload file",
			&gateway.ValidationError{Field: "chunk_size", Message: "must be an integer"})
	}
	overlap, err := intOr(f.ChunkOverlap, c.defaults.ChunkOverlap)
	if err != nil {
		return c.failed(ActionUpload, "Failed to upload file",
			&gateway.ValidationError{Field: "chunk_overlap", Message: "must be an integer"})
	}
	if err := ValidateChunking(size, overlap); err != nil {
		return c.failed(ActionUpload, "Failed to upload file", err)
	}

	file, err := c.open(path)
	if err != nil {
		return c.failed(ActionUpload, "Failed to open file",
			&gateway.ValidationError{Field: "file", Message: err.Error()})
	}
	defer file.Close()

	err = c.gw.UploadFile(ctx, gateway.UploadRequest{
		Collection:   f.Collection,
		FileName:     filepath.Base(path),
		Content:      file,
		ChunkSize:    size,
		ChunkOverlap: overlap,
	})
	if err != nil {
		return c.failed(ActionUpload, "Failed to upload file", err)
	}
	return Delta{
		Action:    ActionUpload,
		Outcome:   PhaseSucceeded,
		ResetForm: true,
		Notices:   []Notice{success(fmt.Sprintf("Uploaded %s", filepath.Base(path)))},
	}
}

func (c *Controller) message(origin domain.Origin, kind domain.MessageKind, text string) domain.ChatMessage {
	return domain.ChatMessage{ID: uuid.NewString(), Text: text, Origin: origin, Kind: kind, Timestamp: c.now()}
}

// Welcome is the assistant greeting shown when the transcript starts.
func (c *Controller) Welcome() Delta {
	return Delta{Messages: []domain.ChatMessage{c.message(domain.OriginAssistant, domain.KindWelcome, WelcomeText)}}
}

// BeginChat returns the optimistic delta that shows the user's own message.
// It reports false for an empty prompt, in which case nothing is sent.
func (c *Controller) BeginChat(prompt string) (Delta, bool) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return Delta{}, false
	}
	return Delta{
		Action:    ActionChat,
		Outcome:   PhaseInFlight,
		ResetForm: true,
		Messages:  []domain.ChatMessage{c.message(domain.OriginUser, domain.KindUser, prompt)},
	}, true
}

// ChatForm holds the chat inputs.
type ChatForm struct {
	Prompt     string
	Collection string
	Limit      string
}

// Chat settles a conversation turn. The reply is always appended: the
// remote's text, the clarification fallback, or the apology fallback.
func (c *Controller) Chat(ctx context.Context, f ChatForm) Delta {
	collection := f.Collection
	if collection == "" {
		collection = c.defaults.ChatCollection
	}
	reply, err := c.gw.Chat(ctx, gateway.ChatRequest{
		Prompt:     strings.TrimSpace(f.Prompt),
		Collection: collection,
		Limit:      c.searchLimit(f.Limit),
	})
	if err != nil {
		d := c.failed(ActionChat, "Chat request failed", err)
		d.Messages = []domain.ChatMessage{c.message(domain.OriginAssistant, domain.KindApology, ApologyText)}
		return d
	}
	msg := c.message(domain.OriginAssistant, domain.KindClarification, ClarificationText)
	if reply.Present {
		msg = c.message(domain.OriginAssistant, domain.KindReply, reply.Text)
	}
	return Delta{Action: ActionChat, Outcome: PhaseSucceeded, Messages: []domain.ChatMessage{msg}}
}

// IsCancelled reports whether a delta failed only because the context ended.
func IsCancelled(d Delta) bool {
	return d.Err != nil && (errors.Is(d.Err, context.Canceled) || errors.Is(d.Err, context.DeadlineExceeded))
}
