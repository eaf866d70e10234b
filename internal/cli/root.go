package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"ragc/internal/app"
	"ragc/internal/config"
	"ragc/internal/domain"
	"ragc/internal/gateway"
	"ragc/internal/logger"
	"ragc/internal/render"
)

var (
	cfgFile string
	apiURL  string
	verbose bool
)

// NewRootCommand creates the root command. Without a subcommand it opens the terminal UI.
func NewRootCommand(version, commit, date string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ragc",
		Short: "Terminal client for a RAG vector service",
		Long: `ragc manages collections on a RAG service, ingests text and files,
runs similarity searches and chats with an assistant grounded on a collection.

Run it without arguments for the interactive terminal UI, or use the
subcommands for one-shot operations.`,
		SilenceUsage: true,
		RunE:         runTUI,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "RAG service base URL (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Add subcommands
	rootCmd.AddCommand(newTUICommand())
	rootCmd.AddCommand(newCollectionsCommand())
	rootCmd.AddCommand(newAddCommand())
	rootCmd.AddCommand(newUploadCommand())
	rootCmd.AddCommand(newSearchCommand())
	rootCmd.AddCommand(newChatCommand())
	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newVersionCommand(version, commit, date))

	return rootCmd
}

func newVersionCommand(version, commit, date string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display version number, build commit, date, and runtime information",
		Run: func(cmd *cobra.Command, args []string) {
			displayVersion := version
			displayCommit := commit
			displayDate := date

			if version == "dev" || version == "" {
				displayVersion = "development"
			}
			if commit == "none" || commit == "" {
				displayCommit = "local-build"
			}
			if date == "unknown" || date == "" {
				displayDate = "local-build"
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ragc %s (%s) built on %s\n", displayVersion, displayCommit, displayDate)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

// loadConfig resolves the config file and applies the --api-url override.
func loadConfig() (*config.AppConfig, error) {
	var (
		cfg *config.AppConfig
		err error
	)
	if cfgFile == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgFile)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if apiURL != "" {
		cfg.API.BaseURL = apiURL
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func newLogger(cfg *config.AppConfig, out io.Writer) *slog.Logger {
	level := logger.ParseLevel(cfg.Log.Level)
	if verbose {
		level = slog.LevelDebug
	}
	return logger.New(logger.Config{Level: level, Format: cfg.Log.Format, Output: out})
}

func defaultsFrom(cfg *config.AppConfig) app.Defaults {
	return app.Defaults{
		ChatCollection: cfg.Defaults.ChatCollection,
		SearchLimit:    cfg.Defaults.SearchLimit,
		ScoreThreshold: cfg.Defaults.ScoreThreshold,
		ChunkSize:      cfg.Defaults.ChunkSize,
		ChunkOverlap:   cfg.Defaults.ChunkOverlap,
	}
}

func newController(cfg *config.AppConfig, log *slog.Logger) (*app.Controller, *gateway.Client, error) {
	gw, err := gateway.New(gateway.Config{
		BaseURL: cfg.API.BaseURL,
		APIKey:  cfg.API.APIKey,
		Timeout: cfg.API.Timeout(),
		Logger:  log,
	})
	if err != nil {
		return nil, nil, err
	}
	return app.NewController(gw, defaultsFrom(cfg), app.WithLogger(log)), gw, nil
}

// setup is the common prologue of the one-shot commands.
func setup(cmd *cobra.Command) (*config.AppConfig, *app.Controller, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	log := newLogger(cfg, cmd.ErrOrStderr())
	ctrl, _, err := newController(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return cfg, ctrl, nil
}

// report prints the notices of a settled delta and turns a failure into an error.
func report(cmd *cobra.Command, d app.Delta) error {
	var failure error
	for _, n := range d.Notices {
		if n.Level == app.LevelError {
			if failure == nil {
				failure = errors.New(n.Text)
				continue
			}
			fmt.Fprintln(cmd.ErrOrStderr(), render.Notification(true, n.Text))
			continue
		}
		fmt.Fprintln(cmd.OutOrStdout(), render.Notification(false, n.Text))
	}
	if failure == nil && d.Outcome == app.PhaseFailed {
		failure = errors.New("operation failed")
	}
	return failure
}

// splitCollection returns the --collection flag value, or else takes the
// collection from the first positional argument.
func splitCollection(flag string, args []string) (string, []string) {
	if flag != "" || len(args) == 0 {
		return flag, args
	}
	return args[0], args[1:]
}

func distanceNames() []string {
	names := make([]string, 0, 4)
	for _, d := range domain.Distances() {
		names = append(names, string(d))
	}
	return names
}

func notificationLifetime(cfg *config.AppConfig) time.Duration {
	return time.Duration(cfg.UI.NotificationSecs) * time.Second
}
