package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/corpusrag/internal/config"
	"github.com/Aman-CERP/corpusrag/internal/embed"
	cerrors "github.com/Aman-CERP/corpusrag/internal/errors"
	"github.com/Aman-CERP/corpusrag/internal/store"
	"github.com/Aman-CERP/corpusrag/pkg/searcher"
)

var passages = []struct{ id, source, text string }{
	{"slaughterhouse-chunk-0", "corpus/slaughterhouse.txt", "billy pilgrim has come unstuck in time"},
	{"cradle-chunk-0", "corpus/cradle.txt", "ice nine freezes every ocean on earth"},
	{"breakfast-chunk-0", "corpus/breakfast.txt", "dwayne hoover sells pontiacs in midland city"},
}

type failingEmbedder struct{ embed.Embedder }

func (failingEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, cerrors.New(cerrors.ErrCodeProviderUnavailable, "provider returned 503", nil)
}

func (failingEmbedder) ModelName() string { return "failing" }

// newTestServer writes an index of the fixture passages embedded with the
// static embedder and returns a server over it.
func newTestServer(t *testing.T, emb embed.Embedder) (*Server, *config.Config) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.NewConfig()
	cfg.Index.Path = filepath.Join(dir, "corpus_index.jsonl")
	cfg.Index.ManifestPath = filepath.Join(dir, "corpus_manifest.json")

	static := embed.NewStaticEmbedder(256)
	w, err := store.NewRecordWriter(cfg.Index.Path)
	require.NoError(t, err)
	for _, p := range passages {
		vec, err := static.Embed(context.Background(), p.text)
		require.NoError(t, err)
		require.NoError(t, w.Write(store.ChunkRecord{
			ID: p.id, Source: p.source, Text: p.text, Embedding: vec, Model: static.ModelName(),
		}))
	}
	require.NoError(t, w.Commit())
	require.NoError(t, store.WriteManifest(cfg.Index.ManifestPath, &store.Manifest{
		Model:             static.ModelName(),
		ChunkSizeWords:    280,
		ChunkOverlapWords: 60,
		TotalChunks:       len(passages),
		Sources:           []string{"corpus/breakfast.txt", "corpus/cradle.txt", "corpus/slaughterhouse.txt"},
	}))

	idx, err := searcher.New(cfg.Index.Path)
	require.NoError(t, err)
	s, err := NewServer(idx, emb, cfg)
	require.NoError(t, err)
	return s, cfg
}

func TestNewServer_RequiresIndex(t *testing.T) {
	_, err := NewServer(nil, nil, nil)
	require.Error(t, err)
}

func TestServer_ListTools(t *testing.T) {
	s, _ := newTestServer(t, embed.NewStaticEmbedder(256))

	names := make([]string, 0, 3)
	for _, tool := range s.ListTools() {
		names = append(names, tool.Name)
		assert.NotEmpty(t, tool.Description)
	}
	assert.Equal(t, []string{"search_corpus", "index_status", "reload_index"}, names)

	name, _ := s.Info()
	assert.Equal(t, "corpusrag", name)
	assert.NotNil(t, s.MCPServer())
}

func TestSearchCorpus_ReturnsBestPassageFirst(t *testing.T) {
	// Given: a server over three passages
	s, _ := newTestServer(t, embed.NewStaticEmbedder(256))

	// When: searching for words of one passage
	got, err := s.CallTool(context.Background(), "search_corpus", map[string]any{
		"query": "ice nine ocean",
		"limit": float64(2),
	})

	// Then: that passage ranks first and the limit is honoured
	require.NoError(t, err)
	out := got.(SearchCorpusOutput)
	require.Len(t, out.Results, 2)
	assert.Equal(t, "cradle-chunk-0", out.Results[0].ID)
	assert.Equal(t, "corpus/cradle.txt", out.Results[0].Source)
	assert.Greater(t, out.Results[0].Score, out.Results[1].Score)
	assert.Empty(t, out.Note)
}

func TestSearchCorpus_DefaultLimitFromConfig(t *testing.T) {
	s, cfg := newTestServer(t, embed.NewStaticEmbedder(256))
	cfg.Search.TopK = 1

	got, err := s.CallTool(context.Background(), "search_corpus", map[string]any{"query": "billy pilgrim"})

	require.NoError(t, err)
	assert.Len(t, got.(SearchCorpusOutput).Results, 1)
}

func TestSearchCorpus_InvalidParams(t *testing.T) {
	s, _ := newTestServer(t, embed.NewStaticEmbedder(256))

	tests := []struct {
		name string
		args map[string]any
	}{
		{"missing query", map[string]any{}},
		{"blank query", map[string]any{"query": "   "}},
		{"negative limit", map[string]any{"query": "x", "limit": -1}},
		{"non-numeric limit", map[string]any{"query": "x", "limit": "three"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.CallTool(context.Background(), "search_corpus", tt.args)

			var me *MCPError
			require.True(t, errors.As(err, &me))
			assert.Equal(t, ErrCodeInvalidParams, me.Code)
		})
	}
}

func TestSearchCorpus_DegradesWithNote(t *testing.T) {
	t.Run("provider failure", func(t *testing.T) {
		s, _ := newTestServer(t, failingEmbedder{})

		got, err := s.CallTool(context.Background(), "search_corpus", map[string]any{"query": "billy"})

		require.NoError(t, err)
		out := got.(SearchCorpusOutput)
		assert.NotNil(t, out.Results)
		assert.Empty(t, out.Results)
		assert.Contains(t, out.Note, "Grounding unavailable")
	})

	t.Run("no embedder", func(t *testing.T) {
		s, _ := newTestServer(t, nil)

		got, err := s.CallTool(context.Background(), "search_corpus", map[string]any{"query": "billy"})

		require.NoError(t, err)
		assert.Contains(t, got.(SearchCorpusOutput).Note, "no embedding provider")
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		s, _ := newTestServer(t, embed.NewStaticEmbedder(32))

		got, err := s.CallTool(context.Background(), "search_corpus", map[string]any{"query": "billy"})

		require.NoError(t, err)
		out := got.(SearchCorpusOutput)
		assert.Empty(t, out.Results)
		assert.Contains(t, out.Note, "Rebuild the index")
	})

	t.Run("corrupt index", func(t *testing.T) {
		s, cfg := newTestServer(t, embed.NewStaticEmbedder(256))
		require.NoError(t, os.WriteFile(cfg.Index.Path, []byte("{broken\n"), 0o644))

		got, err := s.CallTool(context.Background(), "search_corpus", map[string]any{"query": "billy"})

		require.NoError(t, err)
		out := got.(SearchCorpusOutput)
		assert.Empty(t, out.Results)
		assert.Contains(t, out.Note, "Grounding unavailable")
	})

	t.Run("missing index", func(t *testing.T) {
		idx, err := searcher.New(filepath.Join(t.TempDir(), "absent.jsonl"))
		require.NoError(t, err)
		s, err := NewServer(idx, embed.NewStaticEmbedder(256), nil)
		require.NoError(t, err)

		got, err := s.CallTool(context.Background(), "search_corpus", map[string]any{"query": "billy"})

		require.NoError(t, err)
		assert.Contains(t, got.(SearchCorpusOutput).Note, "corpusrag index")
	})
}

func TestIndexStatus_ReportsManifestAndChunks(t *testing.T) {
	s, cfg := newTestServer(t, embed.NewStaticEmbedder(256))

	got, err := s.CallTool(context.Background(), "index_status", nil)

	require.NoError(t, err)
	out := got.(IndexStatusOutput)
	assert.True(t, out.Available)
	assert.True(t, out.Loaded)
	assert.Equal(t, cfg.Index.Path, out.IndexPath)
	assert.Equal(t, 3, out.Chunks)
	assert.Equal(t, 256, out.Dimensions)
	assert.Equal(t, "static", out.QueryModel)
	require.NotNil(t, out.Manifest)
	assert.Equal(t, 3, out.Manifest.TotalChunks)
	assert.Contains(t, FormatStatus(out), "**Chunks:** 3")
}

func TestReloadIndex_Invalidates(t *testing.T) {
	// Given: a loaded index
	s, _ := newTestServer(t, embed.NewStaticEmbedder(256))
	require.NoError(t, s.index.Load())

	// When: reloading
	got, err := s.CallTool(context.Background(), "reload_index", nil)

	// Then: the cache is dropped
	require.NoError(t, err)
	out := got.(ReloadIndexOutput)
	assert.True(t, out.Invalidated)
	assert.True(t, out.WasLoaded)
	assert.False(t, s.index.Loaded())
}

func TestCallTool_UnknownTool(t *testing.T) {
	s, _ := newTestServer(t, embed.NewStaticEmbedder(256))

	_, err := s.CallTool(context.Background(), "search_code", nil)

	var me *MCPError
	require.True(t, errors.As(err, &me))
	assert.Equal(t, ErrCodeMethodNotFound, me.Code)
}

func TestReadResource_Manifest(t *testing.T) {
	s, _ := newTestServer(t, embed.NewStaticEmbedder(256))

	res, err := s.ReadResource(context.Background(), ManifestURI)

	require.NoError(t, err)
	require.Len(t, res.Contents, 1)
	var m store.Manifest
	require.NoError(t, json.Unmarshal([]byte(res.Contents[0].Text), &m))
	assert.Equal(t, "static", m.Model)

	_, err = s.ReadResource(context.Background(), "corpus://other")
	assert.Error(t, err)
}

func TestServe_UnknownTransport(t *testing.T) {
	s, _ := newTestServer(t, embed.NewStaticEmbedder(256))

	err := s.Serve(context.Background(), "sse")

	assert.ErrorContains(t, err, "unknown transport")
}
