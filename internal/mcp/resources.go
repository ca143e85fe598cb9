package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/corpusrag/internal/store"
)

// ManifestURI addresses the index manifest resource.
const ManifestURI = "corpus://manifest"

func (s *Server) registerResources() {
	s.mcp.AddResource(
		&mcp.Resource{
			Name:        "manifest",
			URI:         ManifestURI,
			Description: "Build parameters and sources of the corpus index",
			MIMEType:    "application/json",
		},
		func(ctx context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
			return s.ReadResource(ctx, ManifestURI)
		},
	)
}

// ReadResource returns the content of a registered resource.
func (s *Server) ReadResource(_ context.Context, uri string) (*mcp.ReadResourceResult, error) {
	if uri != ManifestURI {
		return nil, NewInvalidParamsError("unknown resource: " + uri)
	}

	m, err := store.ReadManifest(s.config.Index.ManifestPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, MapError(ErrIndexNotFound)
		}
		return nil, MapError(err)
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, MapError(err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
