package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/corpusrag/internal/config"
	"github.com/Aman-CERP/corpusrag/internal/embed"
	"github.com/Aman-CERP/corpusrag/pkg/searcher"
	"github.com/Aman-CERP/corpusrag/pkg/version"
)

// ServerName is reported to MCP clients during initialization.
const ServerName = "corpusrag"

// Server is the MCP server bridging AI clients with the corpus retriever.
type Server struct {
	mcp      *mcp.Server
	index    *searcher.Index
	embedder embed.Embedder
	grounder *searcher.Grounder
	config   *config.Config
	logger   *slog.Logger
}

// ToolInfo contains information about a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

// NewServer creates an MCP server over index. The embedder may be nil, in
// which case search_corpus always degrades to an empty result.
func NewServer(index *searcher.Index, embedder embed.Embedder, cfg *config.Config) (*Server, error) {
	if index == nil {
		return nil, errors.New("index is required")
	}
	if cfg == nil {
		cfg = config.NewConfig()
	}

	s := &Server{
		index:    index,
		embedder: embedder,
		config:   cfg,
		logger:   slog.Default(),
	}
	if embedder != nil {
		s.grounder = searcher.NewGrounder(embedder, index)
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    ServerName,
			Version: version.Version,
		},
		nil,
	)

	s.registerTools()
	s.registerResources()

	return s, nil
}

// SetLogger replaces the server logger.
func (s *Server) SetLogger(l *slog.Logger) {
	if l != nil {
		s.logger = l
	}
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Info returns the server name and version.
func (s *Server) Info() (name, ver string) {
	return ServerName, version.Version
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []ToolInfo {
	return []ToolInfo{
		{Name: toolSearchCorpus, Description: searchCorpusDescription},
		{Name: toolIndexStatus, Description: indexStatusDescription},
		{Name: toolReloadIndex, Description: reloadIndexDescription},
	}
}

// CallTool invokes a tool by name with loosely typed arguments. It shares
// the handlers used by the protocol layer.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	switch name {
	case toolSearchCorpus:
		input := SearchCorpusInput{}
		if q, ok := args["query"].(string); ok {
			input.Query = q
		}
		limit, err := intArg(args, "limit")
		if err != nil {
			return nil, err
		}
		input.Limit = limit
		return s.searchCorpus(ctx, input)
	case toolIndexStatus:
		return s.indexStatus(), nil
	case toolReloadIndex:
		return s.Reload(), nil
	default:
		return nil, NewMethodNotFoundError(name)
	}
}

// Reload drops the cached index so the next search reads the file again.
// The file watcher calls this after the index is rewritten.
func (s *Server) Reload() ReloadIndexOutput {
	wasLoaded := s.index.Loaded()
	s.index.Invalidate()
	s.logger.Info("index_invalidated",
		slog.String("path", s.index.Path()),
		slog.Bool("was_loaded", wasLoaded))
	return ReloadIndexOutput{Invalidated: true, WasLoaded: wasLoaded}
}

// Serve runs the server on the given transport until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, transport string) error {
	s.logger.Info("mcp_server_starting", slog.String("transport", transport))

	switch transport {
	case "", "stdio":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("mcp_server_stopped", slog.String("error", err.Error()))
			return err
		}
		s.logger.Info("mcp_server_stopped")
		return nil
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}

// Close releases server resources.
func (s *Server) Close() error {
	if s.embedder == nil {
		return nil
	}
	return s.embedder.Close()
}

func intArg(args map[string]any, key string) (int, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return 0, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	default:
		return 0, NewInvalidParamsError(fmt.Sprintf("%s must be a number", key))
	}
}
