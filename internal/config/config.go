package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"ragc/internal/domain"
)

// APIConfig points the client at a RAG service.
type APIConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKey      string `yaml:"api_key"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// Timeout returns the per-request timeout.
func (c APIConfig) Timeout() time.Duration { return time.Duration(c.TimeoutSecs) * time.Second }

// DefaultsConfig holds the values pre-filled into forms.
type DefaultsConfig struct {
	SearchLimit    int     `yaml:"search_limit"`
	ScoreThreshold float64 `yaml:"score_threshold"`
	ChunkSize      int     `yaml:"chunk_size"`
	ChunkOverlap   int     `yaml:"chunk_overlap"`
	VectorSize     int     `yaml:"vector_size"`
	Distance       string  `yaml:"distance"`
	ChatCollection string  `yaml:"chat_collection"`
}

// UIConfig configures the terminal UI.
type UIConfig struct {
	NotificationSecs int  `yaml:"notification_secs"`
	Welcome          bool `yaml:"welcome"`
}

// LogConfig selects level, format and destination of the log.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// EmbedderConfig selects and configures the server-side embedder.
type EmbedderConfig struct {
	Type   string                `yaml:"type"`
	OpenAI *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKey      string `yaml:"api_key"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type   string        `yaml:"type"`
	Qdrant *QdrantConfig `yaml:"qdrant,omitempty"`
}

// SummarizerConfig configures chat replies of the reference server.
type SummarizerConfig struct {
	MaxSentences int `yaml:"max_sentences"`
}

// ServerConfig configures `ragc serve`.
type ServerConfig struct {
	Addr        string            `yaml:"addr"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Summarizer  SummarizerConfig  `yaml:"summarizer"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	API      APIConfig      `yaml:"api"`
	Defaults DefaultsConfig `yaml:"defaults"`
	UI       UIConfig       `yaml:"ui"`
	Log      LogConfig      `yaml:"log"`
	Server   ServerConfig   `yaml:"server"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	cfg := defaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return finish(cfg)
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	applyConfigDefaults(cfg)
	return finish(cfg)
}

// LoadDefault tries ./ragc.yaml first, then ~/.config/ragc/config.yaml.
// If neither exists, it writes defaults to ~/.config/ragc/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "ragc.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := DefaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	cfg, err = finish(cfg)
	return cfg, userPath, err
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// DefaultUserConfigPath is ~/.config/ragc/config.yaml.
func DefaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "ragc", "config.yaml"), nil
}

func finish(cfg *AppConfig) (*AppConfig, error) {
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultConfig() *AppConfig {
	return &AppConfig{
		API: APIConfig{BaseURL: "http://localhost:8000", TimeoutSecs: 30},
		Defaults: DefaultsConfig{
			SearchLimit:    10,
			ChunkSize:      1000,
			ChunkOverlap:   200,
			VectorSize:     1024,
			Distance:       string(domain.DistanceCosine),
			ChatCollection: "default_collection",
		},
		UI:  UIConfig{NotificationSecs: 3, Welcome: true},
		Log: LogConfig{Level: "info", Format: "text"},
		Server: ServerConfig{
			Addr:        ":8000",
			Embedder:    EmbedderConfig{Type: "hashing"},
			VectorStore: VectorStoreConfig{Type: "memory"},
			Summarizer:  SummarizerConfig{MaxSentences: 3},
		},
	}
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.API.TimeoutSecs == 0 {
		cfg.API.TimeoutSecs = 30
	}
	if cfg.Defaults.SearchLimit == 0 {
		cfg.Defaults.SearchLimit = 10
	}
	if cfg.Defaults.ChunkSize == 0 {
		cfg.Defaults.ChunkSize = 1000
	}
	if cfg.Defaults.VectorSize == 0 {
		cfg.Defaults.VectorSize = 1024
	}
	if cfg.Defaults.Distance == "" {
		cfg.Defaults.Distance = string(domain.DistanceCosine)
	}
	if cfg.UI.NotificationSecs == 0 {
		cfg.UI.NotificationSecs = 3
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8000"
	}
	if cfg.Server.Summarizer.MaxSentences == 0 {
		cfg.Server.Summarizer.MaxSentences = 3
	}
	if cfg.Server.Embedder.Type == "openai" && cfg.Server.Embedder.OpenAI != nil {
		o := cfg.Server.Embedder.OpenAI
		if o.BaseURL == "" {
			o.BaseURL = "https://api.openai.com/v1"
		}
		if o.APIKeyEnv == "" {
			o.APIKeyEnv = "OPENAI_API_KEY"
		}
		if o.Model == "" {
			o.Model = "text-embedding-3-small"
		}
		if o.TimeoutSecs == 0 {
			o.TimeoutSecs = 30
		}
	}
}

// applyEnvOverrides lets RAGC_* variables win over file values.
func applyEnvOverrides(cfg *AppConfig) error {
	qdrant := func() *QdrantConfig {
		if cfg.Server.VectorStore.Qdrant == nil {
			cfg.Server.VectorStore.Qdrant = &QdrantConfig{}
		}
		return cfg.Server.VectorStore.Qdrant
	}
	envMappings := map[string]func(string) error{
		"RAGC_API_URL":     func(v string) error { cfg.API.BaseURL = v; return nil },
		"RAGC_API_KEY":     func(v string) error { cfg.API.APIKey = v; return nil },
		"RAGC_API_TIMEOUT": func(v string) error { return parseSeconds(v, &cfg.API.TimeoutSecs) },
		"RAGC_LOG_LEVEL":   func(v string) error { cfg.Log.Level = v; return nil },
		"RAGC_LOG_FILE":    func(v string) error { cfg.Log.File = v; return nil },
		"RAGC_SERVER_ADDR": func(v string) error { cfg.Server.Addr = v; return nil },
		"RAGC_QDRANT_URL": func(v string) error {
			qdrant().URL = v
			cfg.Server.VectorStore.Type = "qdrant"
			return nil
		},
		"RAGC_QDRANT_API_KEY": func(v string) error { qdrant().APIKey = v; return nil },
	}
	for envVar, setter := range envMappings {
		if value := os.Getenv(envVar); value != "" {
			if err := setter(value); err != nil {
				return fmt.Errorf("invalid value for %s: %w", envVar, err)
			}
		}
	}
	return nil
}

// parseSeconds accepts either a bare number of seconds or a Go duration.
func parseSeconds(v string, dst *int) error {
	if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
		*dst = n
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return err
	}
	*dst = int(d.Seconds())
	return nil
}

// Validate checks the settings the client cannot run without.
func (c *AppConfig) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api.base_url must be an absolute URL, got %q", c.API.BaseURL)
	}
	if c.API.TimeoutSecs < 0 {
		return errors.New("api.timeout_secs must not be negative")
	}
	if _, ok := domain.ParseDistance(c.Defaults.Distance); !ok {
		return fmt.Errorf("defaults.distance: unknown metric %q", c.Defaults.Distance)
	}
	if c.Defaults.ChunkOverlap < 0 || c.Defaults.ChunkOverlap >= c.Defaults.ChunkSize {
		return fmt.Errorf("defaults.chunk_overlap must be in [0, chunk_size), got %d", c.Defaults.ChunkOverlap)
	}
	switch c.Server.VectorStore.Type {
	case "", "memory":
	case "qdrant":
		if c.Server.VectorStore.Qdrant == nil || c.Server.VectorStore.Qdrant.URL == "" {
			return errors.New("server.vector_store.qdrant.url is required for the qdrant store")
		}
	default:
		return fmt.Errorf("server.vector_store.type: unknown store %q", c.Server.VectorStore.Type)
	}
	switch c.Server.Embedder.Type {
	case "", "hashing":
	case "openai":
		if c.Server.Embedder.OpenAI == nil {
			return errors.New("server.embedder.openai section is required for the openai embedder")
		}
	default:
		return fmt.Errorf("server.embedder.type: unknown embedder %q", c.Server.Embedder.Type)
	}
	return nil
}
