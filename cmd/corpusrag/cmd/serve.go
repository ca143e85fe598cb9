package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/corpusrag/internal/config"
	"github.com/Aman-CERP/corpusrag/internal/embed"
	"github.com/Aman-CERP/corpusrag/internal/logging"
	"github.com/Aman-CERP/corpusrag/internal/mcp"
	"github.com/Aman-CERP/corpusrag/internal/watcher"
)

func newServeCmd() *cobra.Command {
	var (
		transport string
		watch     bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the corpus index over MCP",
		Long: `Start a Model Context Protocol server exposing the tools search_corpus,
index_status and reload_index, plus the corpus://manifest resource.

stdout carries protocol messages only; logs go to ~/.corpusrag/logs/server.log.
With --watch the cached index is dropped whenever the index file is rewritten.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cmd, transport, watch)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "", "Transport (default from config: stdio)")
	cmd.Flags().BoolVar(&watch, "watch", false, "Reload the index when it is rebuilt")

	return cmd
}

func runServe(ctx context.Context, cmd *cobra.Command, transport string, watch bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if transport == "" {
		transport = cfg.Server.Transport
	}

	level := cfg.Server.LogLevel
	if debugMode {
		level = "debug"
	}
	cleanup, err := logging.SetupServerMode(level)
	if err != nil {
		return fmt.Errorf("failed to setup server logging: %w", err)
	}
	defer cleanup()

	index, err := openIndex(cfg)
	if err != nil {
		return err
	}

	// Without an embedder the server still starts; search_corpus then
	// answers with an empty result and a note.
	var embedder embed.Embedder
	if e, err := embed.NewFromConfig(cfg, embed.WithQueryCache()); err != nil {
		slog.Warn("serve_embedder_unavailable", slog.String("error", err.Error()))
	} else {
		embedder = e
	}

	server, err := mcp.NewServer(index, embedder, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = server.Close() }()
	server.SetLogger(slog.Default())

	slog.Info("serve_started",
		slog.String("transport", transport),
		slog.String("index", cfg.Index.Path),
		slog.Bool("watch", watch))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	if watch {
		w, err := newIndexWatcher(cfg)
		if err != nil {
			return err
		}
		g.Go(func() error {
			err := w.Run(gctx, func(events []watcher.FileEvent) {
				for _, ev := range events {
					slog.Debug("index_file_changed",
						slog.String("path", ev.Path),
						slog.String("op", ev.Operation.String()))
				}
				server.Reload()
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}
	g.Go(func() error {
		// The client closing stdin ends the session; stop the watcher too.
		defer cancel()
		err := server.Serve(gctx, transport)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	err = g.Wait()
	slog.Info("serve_stopped")
	return err
}

// newIndexWatcher watches the index and manifest files for rebuilds.
func newIndexWatcher(cfg *config.Config) (*watcher.FileWatcher, error) {
	opts := watcher.DefaultOptions()
	opts.DebounceWindow = cfg.WatchDebounce()
	return watcher.New([]string{cfg.Index.Path, cfg.Index.ManifestPath}, opts)
}
