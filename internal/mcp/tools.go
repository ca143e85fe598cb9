package mcp

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/corpusrag/internal/store"
	"github.com/Aman-CERP/corpusrag/pkg/searcher"
)

// MaxLimit caps search_corpus results.
const MaxLimit = 50

const (
	toolSearchCorpus = "search_corpus"
	toolIndexStatus  = "index_status"
	toolReloadIndex  = "reload_index"

	searchCorpusDescription = "Find passages in the indexed text corpus that are semantically closest to a query. Returns scored passages with their source file. Returns an empty list with a note when no index or embedding provider is available."
	indexStatusDescription  = "Report whether the corpus index exists, how many chunks are loaded and which model built it."
	reloadIndexDescription  = "Drop the in-memory index so the next search reads the index file again. Use after rebuilding the index."
)

// SearchCorpusInput defines the input schema for search_corpus.
type SearchCorpusInput struct {
	Query string `json:"query" jsonschema:"the text to find related passages for"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of passages, default 3"`
}

// SearchResultOutput is a single scored passage.
type SearchResultOutput struct {
	ID     string  `json:"id" jsonschema:"chunk identifier"`
	Source string  `json:"source" jsonschema:"source file the passage came from"`
	Score  float64 `json:"score" jsonschema:"cosine similarity between -1 and 1"`
	Text   string  `json:"text" jsonschema:"passage text"`
}

// SearchCorpusOutput defines the output schema for search_corpus.
type SearchCorpusOutput struct {
	Query   string               `json:"query"`
	Results []SearchResultOutput `json:"results" jsonschema:"passages ordered by descending score"`
	Note    string               `json:"note,omitempty" jsonschema:"why the result is empty, when grounding was unavailable"`
}

// IndexStatusInput is empty; index_status takes no arguments.
type IndexStatusInput struct{}

// IndexStatusOutput defines the output schema for index_status.
type IndexStatusOutput struct {
	Available  bool            `json:"available"`
	IndexPath  string          `json:"index_path"`
	Loaded     bool            `json:"loaded"`
	Chunks     int             `json:"chunks"`
	Dimensions int             `json:"dimensions"`
	QueryModel string          `json:"query_model,omitempty"`
	Manifest   *store.Manifest `json:"manifest,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// ReloadIndexInput is empty; reload_index takes no arguments.
type ReloadIndexInput struct{}

// ReloadIndexOutput defines the output schema for reload_index.
type ReloadIndexOutput struct {
	Invalidated bool `json:"invalidated"`
	WasLoaded   bool `json:"was_loaded"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        toolSearchCorpus,
		Description: searchCorpusDescription,
	}, s.mcpSearchCorpusHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        toolIndexStatus,
		Description: indexStatusDescription,
	}, s.mcpIndexStatusHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        toolReloadIndex,
		Description: reloadIndexDescription,
	}, s.mcpReloadIndexHandler)
}

func (s *Server) mcpSearchCorpusHandler(ctx context.Context, _ *mcp.CallToolRequest, input SearchCorpusInput) (
	*mcp.CallToolResult,
	SearchCorpusOutput,
	error,
) {
	out, err := s.searchCorpus(ctx, input)
	if err != nil {
		return nil, SearchCorpusOutput{}, err
	}
	return textResult(FormatResults(out.Query, toResults(out.Results), out.Note)), out, nil
}

func (s *Server) mcpIndexStatusHandler(_ context.Context, _ *mcp.CallToolRequest, _ IndexStatusInput) (
	*mcp.CallToolResult,
	IndexStatusOutput,
	error,
) {
	out := s.indexStatus()
	return textResult(FormatStatus(out)), out, nil
}

func (s *Server) mcpReloadIndexHandler(_ context.Context, _ *mcp.CallToolRequest, _ ReloadIndexInput) (
	*mcp.CallToolResult,
	ReloadIndexOutput,
	error,
) {
	return nil, s.Reload(), nil
}

// searchCorpus retrieves passages through the grounder. Only bad parameters
// are errors; every retrieval failure becomes an empty result with a note.
func (s *Server) searchCorpus(ctx context.Context, input SearchCorpusInput) (SearchCorpusOutput, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return SearchCorpusOutput{}, NewInvalidParamsError("query parameter is required")
	}
	if input.Limit < 0 {
		return SearchCorpusOutput{}, NewInvalidParamsError("limit must not be negative")
	}

	limit := input.Limit
	if limit == 0 {
		limit = s.config.Search.TopK
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	out := SearchCorpusOutput{Query: query, Results: []SearchResultOutput{}}
	if s.grounder == nil {
		if !s.index.Available() {
			out.Note = MapError(ErrIndexNotFound).Message
		} else {
			out.Note = "Grounding unavailable: no embedding provider configured."
		}
		return out, nil
	}

	start := time.Now()
	results, err := s.grounder.Retrieve(ctx, query, limit)
	switch {
	case errors.Is(err, ErrIndexNotFound):
		out.Note = MapError(err).Message
		return out, nil
	case err != nil:
		out.Note = "Grounding unavailable: " + MapError(err).Message
		return out, nil
	}

	for _, r := range results {
		out.Results = append(out.Results, SearchResultOutput{
			ID:     r.ID,
			Source: r.Source,
			Score:  r.Score,
			Text:   r.Text,
		})
	}

	s.logger.Debug("search_corpus",
		slog.Int("limit", limit),
		slog.Int("results", len(out.Results)),
		slog.Duration("duration", time.Since(start)))
	return out, nil
}

func (s *Server) indexStatus() IndexStatusOutput {
	out := IndexStatusOutput{
		Available: s.index.Available(),
		IndexPath: s.index.Path(),
	}
	if s.embedder != nil {
		out.QueryModel = s.embedder.ModelName()
	}
	if !out.Available {
		return out
	}

	if err := s.index.Load(); err != nil {
		out.Error = MapError(err).Message
	} else {
		out.Loaded = true
		out.Chunks = s.index.Len()
		out.Dimensions = s.index.Dimensions()
	}

	if m, err := store.ReadManifest(s.config.Index.ManifestPath); err == nil {
		out.Manifest = m
	} else {
		s.logger.Debug("manifest_unreadable", slog.String("error", err.Error()))
	}
	return out
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func toResults(out []SearchResultOutput) []searcher.Result {
	results := make([]searcher.Result, len(out))
	for i, r := range out {
		results[i] = searcher.Result{ID: r.ID, Source: r.Source, Score: r.Score, Text: r.Text}
	}
	return results
}
