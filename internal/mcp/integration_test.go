package mcp

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorchat-ai/tutorchat/internal/registry"
)

// TestDialer_DocsServer dials the in-repo docs MCP server over stdio and
// exercises attach, test, and tool execution.
func TestDialer_DocsServer(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	binaryPath := buildDocsMCP(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg := registry.ServerConfig{
		Name:      "docs",
		Transport: registry.TransportStdio,
		Command:   binaryPath,
		Enabled:   true,
	}

	d := NewDialer()

	latency, err := d.Test(ctx, cfg)
	require.NoError(t, err, "handshake should succeed")
	assert.Positive(t, latency)

	conn, err := d.Attach(ctx, cfg)
	require.NoError(t, err)
	defer conn.Close()

	var lookupFound bool
	for _, tool := range conn.Tools() {
		if tool.Name == "docs_lookup" {
			lookupFound = true
			assert.Contains(t, tool.Description, "documentation")
		}
	}
	require.True(t, lookupFound, "lookup tool should be listed, got: %v", conn.Tools())

	args, err := json.Marshal(map[string]any{"topic": "goroutine"})
	require.NoError(t, err)

	output, err := conn.CallTool(ctx, "docs_lookup", args)
	require.NoError(t, err)
	assert.Contains(t, output, "lightweight thread")

	// Tool-level errors surface as errors, not panics.
	args, err = json.Marshal(map[string]any{"topic": "monad"})
	require.NoError(t, err)
	_, err = conn.CallTool(ctx, "docs_lookup", args)
	assert.Error(t, err)
}

// buildDocsMCP builds the docs-mcp binary and returns its path.
func buildDocsMCP(t *testing.T) string {
	t.Helper()

	binaryPath := filepath.Join(t.TempDir(), "docs-mcp")

	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/docs-mcp")
	cmd.Dir = projectRoot(t)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	require.NoError(t, cmd.Run(), "failed to build docs-mcp binary")

	return binaryPath
}

// projectRoot walks up from the package directory to the module root.
func projectRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	require.NoError(t, err)

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		require.NotEqual(t, dir, parent, "go.mod not found")
		dir = parent
	}
}
