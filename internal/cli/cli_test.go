package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragc/internal/config"
	"ragc/internal/server"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"RAGC_API_URL", "RAGC_API_KEY", "RAGC_API_TIMEOUT", "RAGC_LOG_LEVEL", "RAGC_LOG_FILE",
		"RAGC_SERVER_ADDR", "RAGC_QDRANT_URL", "RAGC_QDRANT_API_KEY"} {
		t.Setenv(k, "")
	}
}

// startReference runs the reference service and writes a config pointing at it.
func startReference(t *testing.T) string {
	t.Helper()
	clearEnv(t)
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := buildService(cfg, log)
	require.NoError(t, err)
	srv := httptest.NewServer(server.NewAPI(svc, "", log).Handler())
	t.Cleanup(srv.Close)

	path := filepath.Join(t.TempDir(), "ragc.yaml")
	body := fmt.Sprintf("api:\n  base_url: %s\nlog:\n  level: error\n", srv.URL)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func run(t *testing.T, cfgPath, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand("1.2.3", "abc", "today")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCommandsAgainstReferenceServer(t *testing.T) {
	cfg := startReference(t)

	out, err := run(t, cfg, "", "collections", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No collections.")

	out, err = run(t, cfg, "", "collections", "create", "docs", "--size", "128")
	require.NoError(t, err)
	assert.Contains(t, out, `Collection "docs" created`)

	out, err = run(t, cfg, "", "col", "list")
	require.NoError(t, err)
	assert.Equal(t, "docs\n", out)

	out, err = run(t, cfg, "", "collections", "info", "docs")
	require.NoError(t, err)
	assert.Contains(t, out, "128")
	assert.Contains(t, out, "COSINE")

	_, err = run(t, cfg, "", "add", "docs", "Goroutines", "communicate", "over", "channels.")
	require.NoError(t, err)

	out, err = run(t, cfg, "", "search", "docs", "goroutines")
	require.NoError(t, err)
	assert.Contains(t, out, "1. similarity")
	assert.Contains(t, out, "Goroutines communicate over channels.")

	out, err = run(t, cfg, "", "chat", "--collection", "docs", "how", "do", "goroutines", "communicate?")
	require.NoError(t, err)
	assert.Contains(t, out, "You")
	assert.Contains(t, out, "Assistant")
	assert.Contains(t, out, "Goroutines communicate over channels.")

	out, err = run(t, cfg, "n\n", "collections", "delete", "docs")
	require.NoError(t, err)
	assert.Contains(t, out, "Aborted.")

	_, err = run(t, cfg, "", "collections", "delete", "docs", "--yes")
	require.NoError(t, err)

	out, err = run(t, cfg, "", "collections", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No collections.")
}

func TestCommandErrors(t *testing.T) {
	cfg := startReference(t)

	_, err := run(t, cfg, "", "collections", "info", "missing")
	assert.Error(t, err)

	_, err = run(t, cfg, "", "search", "missing", "query")
	assert.Error(t, err)

	_, err = run(t, cfg, "", "collections", "create", "docs", "--distance", "HAMMING")
	assert.Error(t, err)
}

func TestUploadCommand(t *testing.T) {
	cfg := startReference(t)
	_, err := run(t, cfg, "", "collections", "create", "docs", "--size", "64")
	require.NoError(t, err)

	file := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(file, []byte(strings.Repeat("Select waits on channels. ", 30)), 0o644))

	_, err = run(t, cfg, "", "upload", "docs", file, "--chunk-size", "200", "--chunk-overlap", "20")
	require.NoError(t, err)

	_, err = run(t, cfg, "", "upload", "docs", file, "--chunk-size", "100", "--chunk-overlap", "100")
	assert.Error(t, err)

	out, err := run(t, cfg, "", "collections", "info", "docs")
	require.NoError(t, err)
	assert.Regexp(t, `Vectors\s+[1-9]`, out)
}

func TestVersion(t *testing.T) {
	out, err := run(t, filepath.Join(t.TempDir(), "unused.yaml"), "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "ragc 1.2.3 (abc) built on today")
}
