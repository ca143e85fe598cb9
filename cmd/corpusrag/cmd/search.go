package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/corpusrag/internal/config"
	"github.com/Aman-CERP/corpusrag/internal/embed"
	cerrors "github.com/Aman-CERP/corpusrag/internal/errors"
	"github.com/Aman-CERP/corpusrag/internal/output"
	"github.com/Aman-CERP/corpusrag/pkg/searcher"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	limit  int
	format string // "text", "json"
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Find the passages most similar to a query",
		Long: `Embed the query with the configured model and rank every indexed chunk
by cosine similarity.

When the query cannot be embedded the command prints
"No grounding available" and exits successfully.`,
		Example: `  corpusrag search "so it goes"
  corpusrag search "ice-nine" -n 5
  corpusrag search "time travel" --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runSearch(cmd.Context(), cmd, query, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", config.DefaultTopK, "Maximum number of results")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, query string, opts searchOptions) error {
	if opts.format != "text" && opts.format != "json" {
		return cerrors.ValidationError(fmt.Sprintf("unknown format %q", opts.format), nil).
			WithSuggestion("Use --format text or --format json")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cmd.Flags().Changed("limit") {
		opts.limit = cfg.Search.TopK
	}
	if opts.limit < 1 {
		return cerrors.ValidationError("limit must be at least 1", nil)
	}

	index, err := openIndex(cfg)
	if err != nil {
		return err
	}
	if !index.Available() {
		return cerrors.New(cerrors.ErrCodeFileNotFound, "no index found. Run 'corpusrag index' first", nil).
			WithDetail("path", cfg.Index.Path)
	}

	if err := cfg.RequireCredentials(); err != nil {
		return err
	}

	slog.Info("search_started", slog.String("query", query), slog.Int("limit", opts.limit))
	out := output.New(cmd.OutOrStdout())

	var results []searcher.Result
	embedder, err := embed.NewFromConfig(cfg, embed.WithQueryCache())
	if err != nil {
		slog.Warn("search_embedder_unavailable", slog.String("error", err.Error()))
	} else {
		defer func() { _ = embedder.Close() }()
		results = searcher.NewGrounder(embedder, index).Ground(ctx, query, opts.limit)
	}

	if opts.format == "json" {
		if results == nil {
			results = []searcher.Result{}
		}
		if len(results) == 0 {
			output.New(cmd.ErrOrStderr()).Line("No grounding available")
		}
		return out.JSON(results)
	}

	if len(results) == 0 {
		output.New(cmd.ErrOrStderr()).Line("No grounding available")
		return nil
	}
	out.Passages(results)
	return nil
}

// openIndex creates a lazy index handle for cfg. Nothing is read until the
// first search.
func openIndex(cfg *config.Config) (*searcher.Index, error) {
	index, err := searcher.New(cfg.Index.Path,
		searcher.WithANNThreshold(cfg.Search.ANNThreshold),
		searcher.WithLogger(slog.Default()))
	if err != nil {
		return nil, cerrors.ValidationError("invalid index path", err)
	}
	return index, nil
}
