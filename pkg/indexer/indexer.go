package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/corpusrag/internal/chunk"
	"github.com/Aman-CERP/corpusrag/internal/embed"
	cerrors "github.com/Aman-CERP/corpusrag/internal/errors"
	"github.com/Aman-CERP/corpusrag/internal/scanner"
	"github.com/Aman-CERP/corpusrag/internal/store"
)

const defaultReadWorkers = 4

// Indexer builds corpus indexes with one embedder.
//
// Build is a sequential batch job; calling it concurrently on the same index
// path from one or more processes fails with ERR_204 for all but the first.
type Indexer struct {
	embedder embed.Embedder
	scanner  *scanner.Scanner
	logger   *slog.Logger
}

// New creates an Indexer. WithEmbedder is required.
func New(opts ...Option) (*Indexer, error) {
	ix := &Indexer{}
	for _, opt := range opts {
		opt(ix)
	}

	if ix.embedder == nil {
		return nil, ErrNilEmbedder
	}
	if ix.scanner == nil {
		s, err := scanner.New()
		if err != nil {
			return nil, fmt.Errorf("resolve working directory: %w", err)
		}
		ix.scanner = s
	}
	if ix.logger == nil {
		ix.logger = slog.Default()
	}
	return ix, nil
}

// fileChunks holds the chunks read from one discovered file.
type fileChunks struct {
	source string
	chunks []*chunk.Chunk
}

// Build runs a full rebuild of the index described by opts.
//
// When no chunk is produced an ERR_203 error is returned and nothing is
// written. Any embedding or write failure removes the temporary file and
// leaves the previous index and manifest as they were.
func (ix *Indexer) Build(ctx context.Context, opts Options) (*Result, error) {
	if err := validate(opts); err != nil {
		return nil, err
	}

	start := time.Now()
	runID := uuid.NewString()
	log := ix.logger.With(slog.String("run_id", runID))
	report := newReporter(opts.Progress)

	lock := store.NewBuildLock(opts.IndexPath)
	if err := lock.TryLock(); err != nil {
		return nil, err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			log.Warn("build_lock_release_failed", slog.String("error", err.Error()))
		}
	}()

	log.Info("index_build_started",
		slog.Any("sources", opts.Sources),
		slog.String("index", opts.IndexPath),
		slog.String("model", ix.embedder.ModelName()),
		slog.Int("chunk_size", opts.SizeWords),
		slog.Int("chunk_overlap", opts.OverlapWords),
		slog.Int("batch_size", opts.BatchSize))

	report(StageScanning, 0, 0)
	discovery, err := ix.scanner.Discover(ctx, opts.Sources)
	if err != nil {
		return nil, fmt.Errorf("discover sources: %w", err)
	}
	for _, m := range discovery.Missing {
		log.Warn("source_missing", slog.String("path", m))
	}
	report(StageScanning, len(discovery.Files), len(discovery.Files))

	perFile, unreadable, err := ix.chunkFiles(ctx, discovery.Files, opts, report, log)
	if err != nil {
		return nil, err
	}

	pending, sources := flatten(perFile)
	if len(pending) == 0 {
		return nil, cerrors.New(cerrors.ErrCodeNoChunks, "No text chunks found. Check your data directories.", nil).
			WithDetail("files", fmt.Sprint(len(discovery.Files))).
			WithSuggestion("Pass --source with a directory containing .txt files")
	}

	log.Info("index_chunks_prepared",
		slog.Int("files", len(discovery.Files)),
		slog.Int("chunks", len(pending)))

	dims, err := ix.embedAndWrite(ctx, pending, opts, report, log)
	if err != nil {
		return nil, err
	}

	report(StageWriting, len(pending), len(pending))
	manifest := &store.Manifest{
		Model:             ix.embedder.ModelName(),
		ChunkSizeWords:    opts.SizeWords,
		ChunkOverlapWords: opts.OverlapWords,
		TotalChunks:       len(pending),
		Sources:           sources,
	}
	if err := store.WriteManifest(opts.ManifestPath, manifest); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}

	res := &Result{
		TotalChunks: len(pending),
		Files:       len(sources),
		Sources:     sources,
		Missing:     discovery.Missing,
		Unreadable:  unreadable,
		Model:       manifest.Model,
		Dimensions:  dims,
		Duration:    time.Since(start),
		RunID:       runID,
	}
	report(StageComplete, res.TotalChunks, res.TotalChunks)

	log.Info("index_build_completed",
		slog.Int("chunks", res.TotalChunks),
		slog.Int("files", res.Files),
		slog.Int("dimensions", res.Dimensions),
		slog.Duration("duration", res.Duration))
	return res, nil
}

func validate(opts Options) error {
	switch {
	case len(opts.Sources) == 0:
		return cerrors.New(cerrors.ErrCodeNoSources, "no source paths given", nil)
	case opts.IndexPath == "" || opts.ManifestPath == "":
		return cerrors.ValidationError("index and manifest paths are required", nil)
	case opts.BatchSize < 1:
		return cerrors.ValidationError(fmt.Sprintf("batch size must be at least 1, got %d", opts.BatchSize), nil)
	case opts.SizeWords < 1:
		return cerrors.ValidationError(fmt.Sprintf("chunk size must be at least 1, got %d", opts.SizeWords), nil)
	case opts.OverlapWords < 0:
		return cerrors.ValidationError(fmt.Sprintf("chunk overlap cannot be negative, got %d", opts.OverlapWords), nil)
	}
	return nil
}

// chunkFiles reads and chunks files concurrently. Results keep the order of
// files. A file that cannot be read is logged, left empty in the results
// and returned in the unreadable list; the run continues without it.
func (ix *Indexer) chunkFiles(ctx context.Context, files []*scanner.FileInfo, opts Options, report ProgressFunc, log *slog.Logger) ([]fileChunks, []string, error) {
	workers := opts.ReadWorkers
	if workers <= 0 {
		workers = defaultReadWorkers
	}

	chunker := chunk.NewWordChunker(opts.SizeWords, opts.OverlapWords)
	results := make([]fileChunks, len(files))
	failed := make([]bool, len(files))

	var (
		mu   sync.Mutex
		done int
	)
	progress := func() {
		mu.Lock()
		done++
		report(StageChunking, done, len(files))
		mu.Unlock()
	}
	report(StageChunking, 0, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, f := range files {
		g.Go(func() error {
			content, err := os.ReadFile(f.Path)
			if err != nil {
				log.Warn("source_unreadable",
					slog.String("path", f.Path),
					slog.String("error", err.Error()))
				failed[i] = true
				progress()
				return nil
			}

			chunks, err := chunker.Chunk(gctx, &chunk.FileInput{
				Stem:    f.Stem,
				Source:  f.Source,
				Content: content,
			})
			if err != nil {
				return err
			}
			results[i] = fileChunks{source: f.Source, chunks: chunks}
			progress()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	unreadable := []string{}
	for i, bad := range failed {
		if bad {
			unreadable = append(unreadable, files[i].Source)
		}
	}
	return results, unreadable, nil
}

// flatten concatenates per-file chunks and returns the sorted distinct
// sources of files that produced chunks.
func flatten(perFile []fileChunks) ([]*chunk.Chunk, []string) {
	var all []*chunk.Chunk
	seen := make(map[string]bool)
	sources := []string{}

	for _, fc := range perFile {
		if len(fc.chunks) == 0 {
			continue
		}
		all = append(all, fc.chunks...)
		if !seen[fc.source] {
			seen[fc.source] = true
			sources = append(sources, fc.source)
		}
	}
	sort.Strings(sources)
	return all, sources
}

// embedAndWrite embeds chunks batch by batch, streaming records to a
// temporary file that replaces the index once every batch has succeeded.
func (ix *Indexer) embedAndWrite(ctx context.Context, chunks []*chunk.Chunk, opts Options, report ProgressFunc, log *slog.Logger) (int, error) {
	w, err := store.NewRecordWriter(opts.IndexPath)
	if err != nil {
		return 0, err
	}
	defer w.Abort()

	model := ix.embedder.ModelName()
	total := len(chunks)
	report(StageEmbedding, 0, total)

	for start := 0; start < total; start += opts.BatchSize {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		end := min(total, start+opts.BatchSize)
		batch := chunks[start:end]
		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}

		batchStart := time.Now()
		vecs, err := ix.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return 0, batchError(err, start, len(batch))
		}
		if len(vecs) != len(batch) {
			return 0, cerrors.New(cerrors.ErrCodeEmbeddingFailed,
				fmt.Sprintf("embedder returned %d vectors for %d texts", len(vecs), len(batch)), nil)
		}

		for i, c := range batch {
			if err := w.Write(store.ChunkRecord{
				ID:        c.ID,
				Source:    c.Source,
				Text:      c.Text,
				Embedding: vecs[i],
				Model:     model,
			}); err != nil {
				return 0, err
			}
		}

		log.Debug("index_batch_embedded",
			slog.Int("start", start),
			slog.Int("size", len(batch)),
			slog.Duration("duration", time.Since(batchStart)))
		report(StageEmbedding, end, total)
	}

	report(StageWriting, total, total)
	if err := w.Commit(); err != nil {
		return 0, err
	}
	return w.Dimensions(), nil
}

// batchError keeps the provider's error code so callers can tell a missing
// credential from a rate limit, and records which batch failed.
func batchError(err error, start, size int) error {
	if errors.Is(err, context.Canceled) {
		return err
	}

	code := cerrors.ErrCodeEmbeddingFailed
	if ce, ok := cerrors.As(err); ok {
		code = ce.Code
	}
	return cerrors.New(code, fmt.Sprintf("embedding batch at chunk %d failed: %v", start, err), err).
		WithDetail("batch_start", fmt.Sprint(start)).
		WithDetail("batch_size", fmt.Sprint(size))
}

// newReporter returns fn, or a no-op when fn is nil.
func newReporter(fn ProgressFunc) ProgressFunc {
	if fn == nil {
		return func(Stage, int, int) {}
	}
	return fn
}
