package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/corpusrag/internal/ui"
)

func TestStatusCmd_NotBuilt(t *testing.T) {
	newProject(t)

	stdout, _, err := run(t, "status")

	require.NoError(t, err)
	assert.Contains(t, stdout, "not built")
	assert.Contains(t, stdout, "corpusrag index")
}

func TestStatusCmd_JSONAfterBuild(t *testing.T) {
	// Given: an indexed corpus
	buildIndex(t)

	// When: asking for JSON status
	stdout, _, err := run(t, "status", "-f", "json")
	require.NoError(t, err)

	// Then: the index is loaded and matches the manifest
	var info ui.StatusInfo
	require.NoError(t, json.Unmarshal([]byte(stdout), &info))
	assert.True(t, info.Available)
	assert.True(t, info.Loaded)
	assert.Equal(t, 2, info.Chunks)
	assert.Equal(t, 256, info.Dimensions)
	assert.Equal(t, "static", info.Model)
	assert.Equal(t, "static", info.QueryModel)
	assert.Equal(t, 2, info.TotalChunks)
	assert.Equal(t, 2, info.Sources)
	assert.Empty(t, info.LoadError)
}

func TestStatusCmd_CorruptIndexReported(t *testing.T) {
	// Given: an index file that is not JSONL
	dir := buildIndex(t)
	writeText(t, filepath.Join(dir, "data", "corpus_index.jsonl"), "{not json\n")

	// When: showing status
	stdout, _, err := run(t, "status")

	// Then: the load error is shown instead of failing the command
	require.NoError(t, err)
	assert.Contains(t, stdout, "Error:")
}

func TestStatusCmd_MissingManifest(t *testing.T) {
	dir := buildIndex(t)
	require.NoError(t, os.Remove(filepath.Join(dir, "data", "corpus_manifest.json")))

	stdout, _, err := run(t, "status")

	require.NoError(t, err)
	assert.Contains(t, stdout, "missing")
}
