package cmd

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/corpusrag/pkg/searcher"
)

// buildIndex creates a static-provider project with two documents indexed.
func buildIndex(t *testing.T) string {
	t.Helper()
	dir := newProject(t)
	useStaticProvider(t, dir)
	writeText(t, filepath.Join(dir, "corpus", "slaughterhouse.txt"), breakfast)
	writeText(t, filepath.Join(dir, "corpus", "cradle.txt"), iceNine)
	_, _, err := run(t, "index", "--source", "corpus")
	require.NoError(t, err)
	return dir
}

func TestSearchCmd_NoIndex(t *testing.T) {
	// Given: a project that was never indexed
	dir := newProject(t)
	useStaticProvider(t, dir)

	// When: searching
	_, _, err := run(t, "search", "anything")

	// Then: the user is told to build the index
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no index found. Run 'corpusrag index' first")
}

func TestSearchCmd_TextResults(t *testing.T) {
	// Given: an indexed corpus
	buildIndex(t)

	// When: searching for words from one document
	stdout, stderr, err := run(t, "search", "ice-nine", "freeze", "oceans", "rivers")

	// Then: that document ranks first
	require.NoError(t, err)
	assert.Empty(t, stderr)
	assert.Contains(t, stdout, "1. [")
	assert.Contains(t, stdout, "corpus/cradle.txt (cradle-chunk-0)")
	assert.Contains(t, stdout, "2. [")
	assert.Less(t, strings.Index(stdout, "cradle.txt"), strings.Index(stdout, "slaughterhouse.txt"))
}

func TestSearchCmd_JSONAndLimit(t *testing.T) {
	buildIndex(t)

	stdout, _, err := run(t, "search", "Billy Pilgrim unstuck in time", "-n", "1", "-f", "json")

	require.NoError(t, err)
	var results []searcher.Result
	require.NoError(t, json.Unmarshal([]byte(stdout), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "slaughterhouse-chunk-0", results[0].ID)
	assert.Equal(t, "corpus/slaughterhouse.txt", results[0].Source)
	assert.Greater(t, results[0].Score, 0.0)
}

func TestSearchCmd_DimensionMismatchDegrades(t *testing.T) {
	// Given: an index built with 256-dim vectors and queries embedded at 64
	dir := buildIndex(t)
	writeText(t, filepath.Join(dir, ".corpusrag.yaml"), "embeddings:\n  provider: static\n  dimensions: 64\n")

	// When: searching
	stdout, stderr, err := run(t, "search", "so it goes")

	// Then: the command reports no grounding and still succeeds
	require.NoError(t, err)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "No grounding available")
}

func TestSearchCmd_InvalidFormat(t *testing.T) {
	newProject(t)

	_, _, err := run(t, "search", "q", "--format", "yaml")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
}
