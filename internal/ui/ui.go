// Package ui renders index build progress and index status in the terminal.
package ui

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/Aman-CERP/corpusrag/pkg/indexer"
)

// ProgressEvent is one progress update from a build.
type ProgressEvent struct {
	Stage   indexer.Stage
	Current int
	Total   int
}

// CompletionStats summarizes a finished build.
type CompletionStats struct {
	Files      int
	Chunks     int
	Duration   time.Duration
	Missing    []string
	Model      string
	Dimensions int
	IndexPath  string
}

// Renderer displays build progress.
type Renderer interface {
	// Start initializes the renderer.
	Start(ctx context.Context) error

	// UpdateProgress updates the progress display.
	UpdateProgress(event ProgressEvent)

	// Warn records a non-fatal problem, such as a missing source directory.
	Warn(msg string)

	// Complete shows the build summary.
	Complete(stats CompletionStats)

	// Stop stops the renderer and restores the terminal.
	Stop() error
}

// Config configures the UI renderer.
type Config struct {
	Output     io.Writer
	ForcePlain bool
	NoColor    bool
	Title      string
}

// ConfigOption is a function that modifies Config.
type ConfigOption func(*Config)

// WithForcePlain forces plain text output.
func WithForcePlain(force bool) ConfigOption {
	return func(c *Config) {
		c.ForcePlain = force
	}
}

// WithNoColor disables color output.
func WithNoColor(noColor bool) ConfigOption {
	return func(c *Config) {
		c.NoColor = noColor
	}
}

// WithTitle sets the header shown above the TUI panel.
func WithTitle(title string) ConfigOption {
	return func(c *Config) {
		c.Title = title
	}
}

// NewConfig creates a Config writing to output.
func NewConfig(output io.Writer, opts ...ConfigOption) Config {
	cfg := Config{
		Output: output,
		Title:  "corpusrag index",
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if DetectNoColor() {
		cfg.NoColor = true
	}
	return cfg
}

// NewRenderer returns a TUI renderer for interactive terminals and a plain
// renderer for CI, pipes, or when plain output is forced.
func NewRenderer(cfg Config) Renderer {
	if cfg.ForcePlain || !IsTTY(cfg.Output) || DetectCI() {
		return NewPlainRenderer(cfg)
	}

	tui, err := NewTUIRenderer(cfg)
	if err != nil {
		return NewPlainRenderer(cfg)
	}
	return tui
}

// Progress adapts r to the indexer's progress callback.
func Progress(r Renderer) indexer.ProgressFunc {
	return func(stage indexer.Stage, current, total int) {
		r.UpdateProgress(ProgressEvent{Stage: stage, Current: current, Total: total})
	}
}

// IsTTY checks if output is a terminal.
func IsTTY(w io.Writer) bool {
	if w == nil {
		return false
	}
	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

// DetectNoColor checks if the NO_COLOR environment variable is set.
func DetectNoColor() bool {
	_, exists := os.LookupEnv("NO_COLOR")
	return exists
}

// DetectCI checks if running in a CI environment.
func DetectCI() bool {
	for _, v := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "TRAVIS"} {
		if _, exists := os.LookupEnv(v); exists {
			return true
		}
	}
	return false
}

// stageLabel returns the display name of a build stage.
func stageLabel(s indexer.Stage) string {
	switch s {
	case indexer.StageScanning:
		return "Scan"
	case indexer.StageChunking:
		return "Chunk"
	case indexer.StageEmbedding:
		return "Embed"
	case indexer.StageWriting:
		return "Write"
	case indexer.StageComplete:
		return "Done"
	default:
		return string(s)
	}
}

// stageIcon returns the short tag used by plain output.
func stageIcon(s indexer.Stage) string {
	switch s {
	case indexer.StageScanning:
		return "SCAN"
	case indexer.StageChunking:
		return "CHUNK"
	case indexer.StageEmbedding:
		return "EMBED"
	case indexer.StageWriting:
		return "WRITE"
	case indexer.StageComplete:
		return "DONE"
	default:
		return "???"
	}
}

// stageOrder positions s in the pipeline; unknown stages sort last.
func stageOrder(s indexer.Stage) int {
	for i, st := range pipeline {
		if st == s {
			return i
		}
	}
	return len(pipeline)
}

var pipeline = []indexer.Stage{
	indexer.StageScanning,
	indexer.StageChunking,
	indexer.StageEmbedding,
	indexer.StageWriting,
	indexer.StageComplete,
}

// unit names what a stage counts.
func unit(s indexer.Stage) string {
	switch s {
	case indexer.StageScanning, indexer.StageChunking:
		return "files"
	default:
		return "chunks"
	}
}
