package cmd

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoctorCmd_FailsWithoutSources(t *testing.T) {
	// Given: no source directories and no credentials
	newProject(t)

	// When: running the checks
	stdout, _, err := run(t, "doctor")

	// Then: required failures make the command fail
	require.ErrorIs(t, err, errChecksFailed)
	assert.Contains(t, stdout, "corpusrag doctor")
	assert.Contains(t, stdout, "[FAIL] credentials")
	assert.Contains(t, stdout, "[FAIL] sources")
	assert.Contains(t, stdout, "Status: FAILED")
}

func TestDoctorCmd_JSON(t *testing.T) {
	// Given: a project with sources and an index
	buildIndex(t)

	// When: running with --json
	stdout, _, _ := run(t, "doctor", "--json")

	// Then: every check is reported in order
	var report doctorJSON
	require.NoError(t, json.Unmarshal([]byte(stdout), &report))
	var names []string
	for _, c := range report.Checks {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"config", "credentials", "sources", "write_permissions", "disk_space", "index"}, names)
	assert.Equal(t, "PASS", report.Checks[1].Status)
	assert.Equal(t, "PASS", report.Checks[5].Status)
}

func TestDoctorCmd_ReportsConfigLoadError(t *testing.T) {
	dir := newProject(t)
	writeText(t, filepath.Join(dir, ".corpusrag.yaml"), "chunking: [not a map\n")

	stdout, _, err := run(t, "doctor", "--json")

	require.ErrorIs(t, err, errChecksFailed)
	var report doctorJSON
	require.NoError(t, json.Unmarshal([]byte(stdout), &report))
	assert.Equal(t, "config", report.Checks[0].Name)
	assert.Equal(t, "FAIL", report.Checks[0].Status)
}
