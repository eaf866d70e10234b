package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"RAGC_API_URL", "RAGC_API_KEY", "RAGC_API_TIMEOUT", "RAGC_LOG_LEVEL", "RAGC_LOG_FILE",
		"RAGC_SERVER_ADDR", "RAGC_QDRANT_URL", "RAGC_QDRANT_API_KEY"} {
		t.Setenv(k, "")
	}
}

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000", cfg.API.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.API.Timeout())
	assert.Equal(t, 10, cfg.Defaults.SearchLimit)
	assert.Equal(t, 1000, cfg.Defaults.ChunkSize)
	assert.Equal(t, 200, cfg.Defaults.ChunkOverlap)
	assert.Equal(t, 1024, cfg.Defaults.VectorSize)
	assert.Equal(t, "COSINE", cfg.Defaults.Distance)
	assert.Equal(t, "default_collection", cfg.Defaults.ChatCollection)
	assert.True(t, cfg.UI.Welcome)
	assert.Equal(t, "memory", cfg.Server.VectorStore.Type)
	assert.Equal(t, "hashing", cfg.Server.Embedder.Type)
}

func TestLoadFileAndEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "ragc.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
api:
  base_url: http://rag.internal:9000
defaults:
  search_limit: 3
  distance: dot
server:
  embedder:
    type: openai
    openai:
      model: nomic-embed-text
`), 0o644))

	t.Setenv("RAGC_API_TIMEOUT", "1m")
	t.Setenv("RAGC_QDRANT_URL", "http://qdrant:6333")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://rag.internal:9000", cfg.API.BaseURL)
	assert.Equal(t, 60, cfg.API.TimeoutSecs)
	assert.Equal(t, 3, cfg.Defaults.SearchLimit)
	assert.Equal(t, 1000, cfg.Defaults.ChunkSize)
	assert.Equal(t, "qdrant", cfg.Server.VectorStore.Type)
	require.NotNil(t, cfg.Server.VectorStore.Qdrant)
	assert.Equal(t, "http://qdrant:6333", cfg.Server.VectorStore.Qdrant.URL)

	require.NotNil(t, cfg.Server.Embedder.OpenAI)
	assert.Equal(t, "nomic-embed-text", cfg.Server.Embedder.OpenAI.Model)
	assert.Equal(t, "OPENAI_API_KEY", cfg.Server.Embedder.OpenAI.APIKeyEnv)
	assert.Equal(t, "https://api.openai.com/v1", cfg.Server.Embedder.OpenAI.BaseURL)
}

func TestLoadRejectsBadValues(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	cases := map[string]string{
		"relative url":  "api:\n  base_url: localhost\n",
		"distance":      "defaults:\n  distance: HAMMING\n",
		"overlap":       "defaults:\n  chunk_size: 100\n  chunk_overlap: 100\n",
		"store":         "server:\n  vector_store:\n    type: redis\n",
		"qdrant no url": "server:\n  vector_store:\n    type: qdrant\n",
		"embedder":      "server:\n  embedder:\n    type: magic\n",
		"openai":        "server:\n  embedder:\n    type: openai\n",
		"yaml":          "api: [\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name+".yaml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestBadEnvValue(t *testing.T) {
	clearEnv(t)
	t.Setenv("RAGC_API_TIMEOUT", "soon")
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "RAGC_API_TIMEOUT")
}

func TestSaveRoundTrip(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := defaultConfig()
	cfg.API.BaseURL = "http://example.com"
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://example.com", loaded.API.BaseURL)
}
