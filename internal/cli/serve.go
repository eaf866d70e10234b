package cli

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"ragc/internal/chunker"
	"ragc/internal/config"
	"ragc/internal/embedding"
	"ragc/internal/server"
	"ragc/internal/service"
	"ragc/internal/summarizer"
	"ragc/internal/vectorstore"
	"ragc/internal/vectorstore/memory"
	"ragc/internal/vectorstore/qdrant"
)

var serveAddr string

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the reference RAG service",
		Long: `Run an HTTP server that implements the RAG API this client talks to,
backed by an in-memory or Qdrant vector store.

Examples:
  ragc serve
  ragc serve --addr :9000
  RAGC_QDRANT_URL=http://localhost:6333 ragc serve`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if serveAddr != "" {
				cfg.Server.Addr = serveAddr
			}
			log := newLogger(cfg, cmd.ErrOrStderr())

			svc, err := buildService(cfg, log)
			if err != nil {
				return err
			}
			api := server.NewAPI(svc, cfg.API.APIKey, log)
			return server.Run(cmd.Context(), cfg.Server.Addr, api)
		},
	}
	cmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
	return cmd
}

// buildService assembles the server components selected in the configuration.
func buildService(cfg *config.AppConfig, log *slog.Logger) (*service.RAGService, error) {
	emb, err := embedding.New(cfg.Server.Embedder)
	if err != nil {
		return nil, fmt.Errorf("embedder init failed: %w", err)
	}
	store, err := buildStore(cfg.Server.VectorStore)
	if err != nil {
		return nil, err
	}
	return service.NewRAGService(
		chunker.NewWindowChunker(),
		emb,
		store,
		summarizer.NewFrequencySummarizer(),
		cfg.Server.Summarizer.MaxSentences,
		log,
	), nil
}

func buildStore(cfg config.VectorStoreConfig) (vectorstore.Storage, error) {
	switch cfg.Type {
	case "memory", "":
		return memory.NewStorage(), nil
	case "qdrant":
		if cfg.Qdrant == nil || cfg.Qdrant.URL == "" {
			return nil, fmt.Errorf("qdrant config missing")
		}
		return qdrant.NewStorage(qdrant.Config{
			URL:     cfg.Qdrant.URL,
			APIKey:  cfg.Qdrant.APIKey,
			Timeout: time.Duration(cfg.Qdrant.TimeoutSecs) * time.Second,
		}), nil
	}
	return nil, fmt.Errorf("unknown vector store: %s", cfg.Type)
}
