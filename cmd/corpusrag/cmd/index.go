package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/corpusrag/internal/config"
	"github.com/Aman-CERP/corpusrag/internal/embed"
	cerrors "github.com/Aman-CERP/corpusrag/internal/errors"
	"github.com/Aman-CERP/corpusrag/internal/output"
	"github.com/Aman-CERP/corpusrag/internal/scanner"
	"github.com/Aman-CERP/corpusrag/internal/ui"
	"github.com/Aman-CERP/corpusrag/pkg/indexer"
)

// indexOptions holds CLI flags for index.
type indexOptions struct {
	model        string
	chunkSize    int
	chunkOverlap int
	batchSize    int
	sources      []string
	provider     string
	noTUI        bool
}

func newIndexCmd() *cobra.Command {
	var opts indexOptions

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Chunk and embed the corpus into a JSONL index",
		Long: `Scan the source directories for .txt files, split them into overlapping
word windows, embed every window and write the index and manifest.

The previous index is replaced only when the whole build succeeds.
Missing source directories are skipped with a warning.`,
		Example: `  # Build with the default sources and model
  corpusrag index

  # Index a single directory with smaller chunks
  corpusrag index --source notes --chunk-size 120 --chunk-overlap 20

  # Offline build with hashed embeddings
  corpusrag index --provider static`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runIndex(ctx, cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.model, "model", config.DefaultModel, "Embedding model name")
	cmd.Flags().IntVar(&opts.chunkSize, "chunk-size", config.DefaultChunkSize, "Chunk size in words")
	cmd.Flags().IntVar(&opts.chunkOverlap, "chunk-overlap", config.DefaultChunkOverlap, "Overlap between consecutive chunks in words")
	cmd.Flags().IntVar(&opts.batchSize, "batch-size", config.DefaultBatchSize, "Chunks per embedding request")
	cmd.Flags().StringArrayVar(&opts.sources, "source", nil, "Source directory or .txt file (repeatable, replaces the defaults)")
	cmd.Flags().StringVar(&opts.provider, "provider", "", "Embedding provider: openai or static")
	cmd.Flags().BoolVar(&opts.noTUI, "no-tui", false, "Disable TUI mode, use plain text output")

	return cmd
}

// applyIndexFlags overrides cfg with the flags the user set explicitly.
func applyIndexFlags(cmd *cobra.Command, cfg *config.Config, opts indexOptions) {
	flags := cmd.Flags()
	if flags.Changed("model") {
		cfg.Embeddings.Model = opts.model
	}
	if flags.Changed("chunk-size") {
		cfg.Chunking.SizeWords = opts.chunkSize
	}
	if flags.Changed("chunk-overlap") {
		cfg.Chunking.OverlapWords = opts.chunkOverlap
	}
	if flags.Changed("batch-size") {
		cfg.Embeddings.BatchSize = opts.batchSize
	}
	if flags.Changed("source") {
		cfg.Sources = append([]string(nil), opts.sources...)
	}
	if flags.Changed("provider") {
		cfg.Embeddings.Provider = opts.provider
	}
}

func runIndex(ctx context.Context, cmd *cobra.Command, opts indexOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyIndexFlags(cmd, cfg, opts)
	if err := cfg.Validate(); err != nil {
		return err
	}

	out := output.New(cmd.OutOrStdout())
	missing := scanner.MissingPaths(cfg.Sources)
	if len(missing) > 0 {
		out.Linef("Warning: Skipping missing directories: %s", strings.Join(missing, ", "))
	}

	if err := cfg.RequireCredentials(); err != nil {
		return err
	}

	embedder, err := embed.NewFromConfig(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = embedder.Close() }()

	ix, err := indexer.New(indexer.WithEmbedder(embedder), indexer.WithLogger(slog.Default()))
	if err != nil {
		return cerrors.InternalError("could not create indexer", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	renderer := ui.NewRenderer(ui.NewConfig(cmd.ErrOrStderr(), ui.WithForcePlain(opts.noTUI)))
	if tui, ok := renderer.(*ui.TUIRenderer); ok {
		tui.OnQuit = cancel
	}
	if err := renderer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start progress display: %w", err)
	}
	for _, m := range missing {
		renderer.Warn("missing source: " + m)
	}

	buildOpts := indexer.OptionsFromConfig(cfg)
	buildOpts.Progress = ui.Progress(renderer)

	result, err := ix.Build(ctx, buildOpts)
	if err != nil {
		_ = renderer.Stop()
		slog.Error("index_failed", slog.String("error", err.Error()))
		return err
	}

	for _, u := range result.Unreadable {
		renderer.Warn("unreadable source skipped: " + u)
	}
	renderer.Complete(ui.CompletionStats{
		Files:      result.Files,
		Chunks:     result.TotalChunks,
		Duration:   result.Duration,
		Missing:    result.Missing,
		Model:      result.Model,
		Dimensions: result.Dimensions,
		IndexPath:  cfg.Index.Path,
	})
	_ = renderer.Stop()

	out.Linef("Indexed %d chunks from %d files.", result.TotalChunks, result.Files)
	return nil
}
