package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, url string) (*Client, *[]time.Duration) {
	t.Helper()
	t.Setenv("RAGC_TEST_OPENAI_KEY", "sk-test")
	c, err := NewClient(Config{BaseURL: url + "/", APIKeyEnv: "RAGC_TEST_OPENAI_KEY", Model: "m"})
	require.NoError(t, err)
	var delays []time.Duration
	c.sleep = func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}
	return c, &delays
}

func TestNewClientNeedsKey(t *testing.T) {
	t.Setenv("RAGC_TEST_MISSING_KEY", "")
	_, err := NewClient(Config{APIKeyEnv: "RAGC_TEST_MISSING_KEY"})
	assert.Error(t, err)
}

func TestEmbedRetriesThrottling(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		switch n {
		case 1:
			w.Header().Set("Retry-After", "2")
			w.WriteHeader(http.StatusTooManyRequests)
		case 2:
			w.WriteHeader(http.StatusBadGateway)
		default:
			var body map[string]any
			if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&body)) {
				return
			}
			assert.Equal(t, "m", body["model"])
			assert.EqualValues(t, 3, body["dimensions"])
			_, _ = w.Write([]byte(`{"data":[{"embedding":[0.1,0.2,0.3]}]}`))
		}
	}))
	defer srv.Close()

	c, delays := newTestClient(t, srv.URL)
	v, err := c.Embed(context.Background(), "hello", 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, v)
	assert.EqualValues(t, 3, calls.Load())
	assert.Equal(t, []time.Duration{2 * time.Second, 400 * time.Millisecond}, *delays)
}

func TestEmbedPermanentFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv.URL)
	_, err := c.Embed(context.Background(), "hello", 3)
	require.Error(t, err)
	assert.EqualValues(t, 1, calls.Load())
}

func TestEmbedOllamaShapeAndDimensionCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"embedding":[1,2]}`))
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv.URL)
	v, err := c.Embed(context.Background(), "hello", 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, v)

	_, err = c.Embed(context.Background(), "hello", 4)
	assert.ErrorContains(t, err, "collection expects 4")
}

func TestRetryDelay(t *testing.T) {
	assert.Equal(t, 200*time.Millisecond, retryDelay(0))
	assert.Equal(t, 800*time.Millisecond, retryDelay(2))
	assert.Equal(t, 5*time.Second, retryDelay(10))
}
