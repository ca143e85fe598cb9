package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/corpusrag/internal/config"
)

func TestInitCmd_WritesConfigAndMCPEntry(t *testing.T) {
	// Given: a project whose .mcp.json already lists another server
	dir := newProject(t)
	writeText(t, filepath.Join(dir, ".mcp.json"), `{"mcpServers":{"other":{"command":"other-server"}}}`)

	// When: initializing with the static provider
	stdout, _, err := run(t, "init", "--provider", "static")
	require.NoError(t, err)

	// Then: the config loads back with the chosen provider
	assert.Contains(t, stdout, "Wrote "+projectConfigName)
	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "static", cfg.Embeddings.Provider)
	assert.Equal(t, config.DefaultChunkSize, cfg.Chunking.SizeWords)

	// And: both MCP servers are registered
	data, err := os.ReadFile(filepath.Join(dir, ".mcp.json"))
	require.NoError(t, err)
	var mc mcpConfig
	require.NoError(t, json.Unmarshal(data, &mc))
	assert.Equal(t, "other-server", mc.MCPServers["other"].Command)
	assert.Equal(t, []string{"serve", "--watch"}, mc.MCPServers["corpusrag"].Args)
}

func TestInitCmd_KeepsExistingConfig(t *testing.T) {
	dir := newProject(t)
	writeText(t, filepath.Join(dir, projectConfigName), "chunking:\n  size_words: 99\n")

	stdout, _, err := run(t, "init")

	require.NoError(t, err)
	assert.Contains(t, stdout, "already exists")
	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 99, cfg.Chunking.SizeWords)
}

func TestInitCmd_RejectsUnknownProvider(t *testing.T) {
	newProject(t)

	_, _, err := run(t, "init", "--provider", "ollama")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown embedding provider")
}
