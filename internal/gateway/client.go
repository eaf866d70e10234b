package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	defaultTimeout = 30 * time.Second
	maxBodyBytes   = 8 << 20
)

// Config configures the RAG API client.
type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client is a thin REST client for the RAG service.
// Every call is bounded by the configured timeout and classified into
// ValidationError, RequestError, NotFoundError or NetworkError.
type Client struct {
	baseURL *url.URL
	apiKey  string
	timeout time.Duration
	client  *http.Client
	log     *slog.Logger
}

// New validates the base URL and creates a client.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, &ValidationError{Field: "base_url", Message: "must not be empty"}
	}
	u, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, &ValidationError{Field: "base_url", Message: fmt.Sprintf("not an absolute URL: %q", cfg.BaseURL)}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Client{baseURL: u, apiKey: cfg.APIKey, timeout: timeout, client: hc, log: log.With("component", "gateway")}, nil
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string { return c.baseURL.String() }

type request struct {
	op          string
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
	generic     string
}

// do executes one call and decodes a 2xx body into out when out is non-nil.
func (c *Client) do(ctx context.Context, r request, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	// r.path carries already escaped segments.
	target := c.baseURL.String() + r.path
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, r.method, target, r.body)
	if err != nil {
		return &NetworkError{Op: r.op, Err: err}
	}
	reqID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Debug("request failed", "op", r.op, "method", r.method, "path", r.path, "request_id", reqID, "error", err)
		return &NetworkError{Op: r.op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	c.log.Debug("request done", "op", r.op, "method", r.method, "path", r.path, "status", resp.StatusCode,
		"request_id", reqID, "duration", time.Since(start))
	if err != nil {
		return &NetworkError{Op: r.op, Err: fmt.Errorf("read response: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := parseDetail(data)
		if detail == "" {
			detail = r.generic
		}
		return &RequestError{Op: r.op, Status: resp.StatusCode, Detail: detail}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &NetworkError{Op: r.op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, op, path, generic string, query url.Values, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return &ValidationError{Field: "body", Message: err.Error()}
	}
	return c.do(ctx, request{
		op:          op,
		method:      http.MethodPost,
		path:        path,
		query:       query,
		body:        bytes.NewReader(data),
		contentType: "application/json",
		generic:     generic,
	}, out)
}

// parseDetail pulls a string "detail" field out of an error body.
func parseDetail(data []byte) string {
	var body struct {
		Detail any `json:"detail"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}
	if s, ok := body.Detail.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func segment(name string) string { return url.PathEscape(name) }

// notFound turns a 404 RequestError into a NotFoundError.
func notFound(err error, resource, name string) error {
	var re *RequestError
	if errors.As(err, &re) && re.Status == http.StatusNotFound {
		return &NotFoundError{Resource: resource, Name: name, Detail: re.Detail}
	}
	return err
}
