package preflight

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/corpusrag/internal/config"
	"github.com/Aman-CERP/corpusrag/internal/store"
)

func TestCheckConfig(t *testing.T) {
	cfg := config.NewConfig()
	assert.Equal(t, StatusPass, New().CheckConfig(cfg).Status)

	cfg.Chunking.SizeWords = 0
	result := New().CheckConfig(cfg)
	assert.Equal(t, StatusFail, result.Status)
	assert.True(t, result.IsCritical())
}

func TestCheckCredentials(t *testing.T) {
	t.Run("openai without key fails", func(t *testing.T) {
		t.Setenv("CORPUSRAG_TEST_KEY", "")
		cfg := config.NewConfig()
		cfg.Embeddings.APIKeyEnv = "CORPUSRAG_TEST_KEY"

		result := New().CheckCredentials(cfg)

		assert.Equal(t, StatusFail, result.Status)
		assert.Equal(t, "CORPUSRAG_TEST_KEY is not set. Export it before running this command.", result.Message)
	})

	t.Run("openai with key passes", func(t *testing.T) {
		t.Setenv("CORPUSRAG_TEST_KEY", "sk-test")
		cfg := config.NewConfig()
		cfg.Embeddings.APIKeyEnv = "CORPUSRAG_TEST_KEY"

		assert.Equal(t, StatusPass, New().CheckCredentials(cfg).Status)
	})

	t.Run("static needs nothing", func(t *testing.T) {
		cfg := config.NewConfig()
		cfg.Embeddings.Provider = "static"

		result := New().CheckCredentials(cfg)

		assert.Equal(t, StatusPass, result.Status)
		assert.Contains(t, result.Message, "static")
	})
}

func TestCheckSources(t *testing.T) {
	dir := t.TempDir()
	corpus := filepath.Join(dir, "corpus")
	require.NoError(t, os.Mkdir(corpus, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(corpus, "a.txt"), []byte("listen"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(corpus, "b.md"), []byte("ignored"), 0o644))
	missing := filepath.Join(dir, "raw")
	empty := filepath.Join(dir, "excerpts")
	require.NoError(t, os.Mkdir(empty, 0o755))

	tests := []struct {
		name    string
		sources []string
		status  CheckStatus
		message string
	}{
		{"all present", []string{corpus}, StatusPass, "1 text files in 1 sources"},
		{"some missing", []string{corpus, missing}, StatusWarn, "skipping missing directories: " + missing},
		{"only empty", []string{empty}, StatusFail, "no .txt files found"},
		{"all missing", []string{missing}, StatusFail, "no .txt files found"},
		{"none configured", nil, StatusFail, "no source directories configured"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := New().CheckSources(context.Background(), tt.sources)

			assert.Equal(t, tt.status, result.Status)
			assert.Contains(t, result.Message, tt.message)
		})
	}
}

func TestCheckIndex(t *testing.T) {
	newCfg := func(t *testing.T) *config.Config {
		dir := t.TempDir()
		cfg := config.NewConfig()
		cfg.Index.Path = filepath.Join(dir, "corpus_index.jsonl")
		cfg.Index.ManifestPath = filepath.Join(dir, "corpus_manifest.json")
		return cfg
	}
	writeIndex := func(t *testing.T, cfg *config.Config, model string) {
		require.NoError(t, os.WriteFile(cfg.Index.Path, nil, 0o644))
		require.NoError(t, store.WriteManifest(cfg.Index.ManifestPath, &store.Manifest{
			Model: model, ChunkSizeWords: 280, ChunkOverlapWords: 60, TotalChunks: 12,
			Sources: []string{"corpus/a.txt"},
		}))
	}

	t.Run("missing index warns", func(t *testing.T) {
		result := New().CheckIndex(newCfg(t))

		assert.Equal(t, StatusWarn, result.Status)
		assert.False(t, result.IsCritical())
		assert.Contains(t, result.Message, "run 'corpusrag index'")
	})

	t.Run("matching model passes", func(t *testing.T) {
		cfg := newCfg(t)
		writeIndex(t, cfg, cfg.Embeddings.Model)

		result := New().CheckIndex(cfg)

		assert.Equal(t, StatusPass, result.Status)
		assert.Equal(t, "12 chunks from 1 sources (text-embedding-3-large)", result.Message)
	})

	t.Run("model mismatch warns", func(t *testing.T) {
		cfg := newCfg(t)
		writeIndex(t, cfg, "text-embedding-3-small")

		result := New().CheckIndex(cfg)

		assert.Equal(t, StatusWarn, result.Status)
		assert.Contains(t, result.Message, "rebuild before searching")
	})

	t.Run("static provider compares against static", func(t *testing.T) {
		cfg := newCfg(t)
		cfg.Embeddings.Provider = "static"
		writeIndex(t, cfg, "static")

		result := New().CheckIndex(cfg)

		assert.Equal(t, StatusPass, result.Status)
	})

	t.Run("unreadable manifest warns", func(t *testing.T) {
		cfg := newCfg(t)
		require.NoError(t, os.WriteFile(cfg.Index.Path, nil, 0o644))

		result := New().CheckIndex(cfg)

		assert.Equal(t, StatusWarn, result.Status)
		assert.Contains(t, result.Message, "manifest unreadable")
	})
}

func TestExistingParent(t *testing.T) {
	dir := t.TempDir()

	assert.Equal(t, dir, existingParent(filepath.Join(dir, "data", "nested")))
	assert.Equal(t, dir, existingParent(dir))
}

func TestCheckDiskSpace(t *testing.T) {
	result := New().CheckDiskSpace(t.TempDir())
	assert.Equal(t, "disk_space", result.Name)
	assert.Contains(t, result.Message, "free (need 100.0 MB)")

	huge := New().checkDiskSpace(t.TempDir(), 1<<62)
	assert.Equal(t, StatusFail, huge.Status)
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 bytes", formatBytes(512))
	assert.Equal(t, "1.5 KB", formatBytes(1536))
	assert.Equal(t, "100.0 MB", formatBytes(MinDiskSpaceBytes))
	assert.Equal(t, "2.0 GB", formatBytes(2<<30))
}
