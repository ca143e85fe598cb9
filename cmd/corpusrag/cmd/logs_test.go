package cmd

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogsCmd_TailsFile(t *testing.T) {
	// Given: a log file with three entries
	dir := newProject(t)
	path := filepath.Join(dir, "server.log")
	writeText(t, path, strings.Join([]string{
		`{"time":"2026-03-01T08:00:00Z","level":"DEBUG","msg":"embedding_batch"}`,
		`{"time":"2026-03-01T08:00:01Z","level":"INFO","msg":"index_build_completed","chunks":7}`,
		`{"time":"2026-03-01T08:00:02Z","level":"WARN","msg":"source_missing","path":"data/raw"}`,
	}, "\n")+"\n")

	// When: tailing the last two info-or-higher lines
	stdout, stderr, err := run(t, "logs", "--file", path, "-n", "2", "--level", "info", "--no-color")

	// Then: both are pretty-printed
	require.NoError(t, err)
	assert.Contains(t, stderr, "Log file: "+path)
	assert.Equal(t,
		"08:00:01.000 INFO  index_build_completed chunks=7\n08:00:02.000 WARN  source_missing path=data/raw\n",
		stdout)
}

func TestLogsCmd_Filter(t *testing.T) {
	dir := newProject(t)
	path := filepath.Join(dir, "server.log")
	writeText(t, path, `{"level":"INFO","msg":"serve_started"}`+"\n"+`{"level":"INFO","msg":"index_invalidated"}`+"\n")

	stdout, _, err := run(t, "logs", "--file", path, "--filter", "index_", "--no-color")

	require.NoError(t, err)
	assert.Contains(t, stdout, "index_invalidated")
	assert.NotContains(t, stdout, "serve_started")
}

func TestLogsCmd_Errors(t *testing.T) {
	dir := newProject(t)

	_, _, err := run(t, "logs", "--file", filepath.Join(dir, "missing.log"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log file not found")

	path := filepath.Join(dir, "ok.log")
	writeText(t, path, "{}\n")
	_, _, err = run(t, "logs", "--file", path, "--filter", "(")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid filter pattern")
}
