package embedding

import (
	"fmt"
	"time"

	"ragc/internal/config"
	"ragc/internal/domain"
	"ragc/internal/embedding/hashing"
	"ragc/internal/embedding/openai"
)

// New builds the embedder selected in the server configuration.
func New(cfg config.EmbedderConfig) (domain.Embedder, error) {
	switch cfg.Type {
	case "", "hashing":
		return hashing.NewEmbedder(), nil
	case "openai":
		if cfg.OpenAI == nil {
			return nil, fmt.Errorf("openai embedder requires configuration")
		}
		return openai.NewClient(openai.Config{
			BaseURL:   cfg.OpenAI.BaseURL,
			APIKeyEnv: cfg.OpenAI.APIKeyEnv,
			Model:     cfg.OpenAI.Model,
			Timeout:   time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second,
		})
	}
	return nil, fmt.Errorf("unknown embedder %q", cfg.Type)
}
