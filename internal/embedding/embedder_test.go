package embedding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragc/internal/config"
)

func TestNew(t *testing.T) {
	e, err := New(config.EmbedderConfig{})
	require.NoError(t, err)
	assert.Equal(t, "hashing", e.Name())

	_, err = New(config.EmbedderConfig{Type: "openai"})
	assert.Error(t, err)

	_, err = New(config.EmbedderConfig{Type: "word2vec"})
	assert.Error(t, err)

	t.Setenv("RAGC_TEST_EMBED_KEY", "k")
	e, err = New(config.EmbedderConfig{Type: "openai", OpenAI: &config.OpenAIEmbedderConfig{APIKeyEnv: "RAGC_TEST_EMBED_KEY"}})
	require.NoError(t, err)
	assert.Equal(t, "openai", e.Name())
}
