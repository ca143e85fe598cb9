package indexer

import (
	"errors"
	"log/slog"
	"time"

	"github.com/Aman-CERP/corpusrag/internal/config"
	"github.com/Aman-CERP/corpusrag/internal/embed"
	"github.com/Aman-CERP/corpusrag/internal/scanner"
)

// ErrNilEmbedder is returned when an Indexer is created without an embedder.
var ErrNilEmbedder = errors.New("embedder is required")

// Stage names a phase of a build for progress reporting.
type Stage string

const (
	StageScanning  Stage = "scanning"
	StageChunking  Stage = "chunking"
	StageEmbedding Stage = "embedding"
	StageWriting   Stage = "writing"
	StageComplete  Stage = "complete"
)

// ProgressFunc receives build progress. current and total count files during
// chunking and chunks during embedding. It may be called from several
// goroutines, but never concurrently.
type ProgressFunc func(stage Stage, current, total int)

// Options describes one build.
type Options struct {
	// Sources are directories or single text files to index.
	Sources []string

	IndexPath    string
	ManifestPath string

	SizeWords    int
	OverlapWords int

	// BatchSize is the number of chunks per embedding call.
	BatchSize int

	// ReadWorkers bounds concurrent file reads (0 = 4).
	ReadWorkers int

	Progress ProgressFunc
}

// OptionsFromConfig returns build options for cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Sources:      append([]string(nil), cfg.Sources...),
		IndexPath:    cfg.Index.Path,
		ManifestPath: cfg.Index.ManifestPath,
		SizeWords:    cfg.Chunking.SizeWords,
		OverlapWords: cfg.Chunking.OverlapWords,
		BatchSize:    cfg.Embeddings.BatchSize,
		ReadWorkers:  cfg.Index.ReadWorkers,
	}
}

// Result summarizes a successful build.
type Result struct {
	// TotalChunks is the number of records written.
	TotalChunks int

	// Files is the number of files that produced at least one chunk.
	Files int

	// Sources lists the distinct record sources, sorted.
	Sources []string

	// Missing lists configured source paths that do not exist.
	Missing []string

	// Unreadable lists discovered files skipped because they could not be
	// read, in discovery order.
	Unreadable []string

	Model      string
	Dimensions int
	Duration   time.Duration

	// RunID identifies the build in logs.
	RunID string
}

// Option configures an Indexer.
type Option func(*Indexer)

// WithEmbedder sets the embedder. Required.
func WithEmbedder(e embed.Embedder) Option {
	return func(ix *Indexer) {
		ix.embedder = e
	}
}

// WithScanner overrides the source scanner. The default reports sources
// relative to the working directory.
func WithScanner(s *scanner.Scanner) Option {
	return func(ix *Indexer) {
		ix.scanner = s
	}
}

// WithLogger sets the logger; slog.Default() otherwise.
func WithLogger(l *slog.Logger) Option {
	return func(ix *Indexer) {
		ix.logger = l
	}
}
