package searcher

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/Aman-CERP/corpusrag/internal/embed"
)

// Grounder embeds text queries and searches an Index. It is the retrieval
// step of a response pipeline: when anything fails, the caller proceeds
// without grounding.
type Grounder struct {
	embedder embed.Embedder
	index    *Index
	logger   *slog.Logger
}

// NewGrounder pairs embedder with index. The embedder must produce vectors
// of the index's dimensionality.
func NewGrounder(embedder embed.Embedder, index *Index) *Grounder {
	return &Grounder{embedder: embedder, index: index, logger: index.logger}
}

// Index returns the underlying index.
func (g *Grounder) Index() *Index { return g.index }

// Ground returns up to topK chunks relevant to query. A blank query, a
// missing index, an embedding failure, a corrupt index or a dimension
// mismatch all yield nil; failures are logged at warn level.
func (g *Grounder) Ground(ctx context.Context, query string, topK int) []Result {
	results, err := g.Retrieve(ctx, query, topK)
	if err != nil {
		return nil
	}
	return results
}

// Retrieve is Ground with the reason for an empty result reported. A blank
// query or topK <= 0 yields nil and no error. A missing index returns
// ErrIndexNotFound without calling the embedder. Other failures are logged
// at warn level and returned.
func (g *Grounder) Retrieve(ctx context.Context, query string, topK int) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" || topK <= 0 {
		return nil, nil
	}
	if !g.index.Available() {
		g.logger.Debug("grounding_skipped", slog.String("reason", "index not built"))
		return nil, ErrIndexNotFound
	}

	start := time.Now()
	vec, err := g.embedder.Embed(ctx, query)
	if err != nil {
		g.logger.Warn("grounding_embed_failed",
			slog.String("model", g.embedder.ModelName()),
			slog.String("error", err.Error()))
		return nil, err
	}

	results, err := g.index.Search(vec, topK)
	if err != nil {
		var dm ErrDimensionMismatch
		if errors.As(err, &dm) {
			g.logger.Warn("grounding_dimension_mismatch",
				slog.String("model", g.embedder.ModelName()),
				slog.Int("index_dims", dm.Expected),
				slog.Int("query_dims", dm.Got))
			return nil, err
		}
		g.logger.Warn("grounding_search_failed", slog.String("error", err.Error()))
		return nil, err
	}

	g.logger.Debug("grounding_done",
		slog.Int("results", len(results)),
		slog.Duration("duration", time.Since(start)))
	return results, nil
}
