package cli

import (
	"fmt"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"ragc/internal/app"
	"ragc/internal/config"
	"ragc/internal/domain"
	"ragc/internal/logger"
	"ragc/internal/tui"
)

func newTUICommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive terminal UI",
		Long: `Open the terminal UI with the Collections, Ingest, Search and Chat panes.

Logs go to log.file (default ~/.config/ragc/ragc.log) so they do not
disturb the screen.`,
		Args: cobra.NoArgs,
		RunE: runTUI,
	}
}

func logFilePath(cfg *config.AppConfig) (string, error) {
	if cfg.Log.File != "" {
		return cfg.Log.File, nil
	}
	userPath, err := config.DefaultUserConfigPath()
	if err != nil {
		return "", err
	}
	return filepath.Join(filepath.Dir(userPath), "ragc.log"), nil
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	path, err := logFilePath(cfg)
	if err != nil {
		return err
	}
	f, err := logger.OpenFile(path)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	log := newLogger(cfg, f)

	ctrl, gw, err := newController(cfg, log)
	if err != nil {
		return err
	}
	distance, _ := domain.ParseDistance(cfg.Defaults.Distance)
	state := app.NewState(notificationLifetime(cfg))
	m := tui.New(cmd.Context(), ctrl, state, tui.Options{
		APIURL:       gw.BaseURL(),
		Welcome:      cfg.UI.Welcome,
		VectorSize:   cfg.Defaults.VectorSize,
		Distance:     distance,
		ChunkSize:    cfg.Defaults.ChunkSize,
		ChunkOverlap: cfg.Defaults.ChunkOverlap,
	})

	log.Info("starting terminal ui", "api", gw.BaseURL())
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	if _, err := p.Run(); err != nil && cmd.Context().Err() == nil {
		return err
	}
	return nil
}
