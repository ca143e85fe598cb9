package ui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/Aman-CERP/corpusrag/pkg/indexer"
)

// PlainRenderer writes line-oriented progress for CI and pipes. Within a
// stage it prints at most one line per tenth of the total.
type PlainRenderer struct {
	mu     sync.Mutex
	out    io.Writer
	stage  indexer.Stage
	bucket int
}

// NewPlainRenderer creates a plain text renderer.
func NewPlainRenderer(cfg Config) *PlainRenderer {
	return &PlainRenderer{out: cfg.Output, bucket: -1}
}

// Start implements Renderer.
func (r *PlainRenderer) Start(context.Context) error {
	return nil
}

// UpdateProgress implements Renderer.
func (r *PlainRenderer) UpdateProgress(event ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if event.Stage == indexer.StageComplete {
		return
	}
	if event.Stage != r.stage {
		r.stage = event.Stage
		r.bucket = -1
	}

	if event.Total <= 0 {
		if r.bucket < 0 {
			r.bucket = 0
			_, _ = fmt.Fprintf(r.out, "[%s] %s...\n", stageIcon(event.Stage), stageLabel(event.Stage))
		}
		return
	}

	bucket := event.Current * 10 / event.Total
	if bucket == r.bucket {
		return
	}
	r.bucket = bucket
	_, _ = fmt.Fprintf(r.out, "[%s] %d/%d %s\n", stageIcon(event.Stage), event.Current, event.Total, unit(event.Stage))
}

// Warn implements Renderer.
func (r *PlainRenderer) Warn(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, _ = fmt.Fprintf(r.out, "WARN: %s\n", msg)
}

// Complete implements Renderer.
func (r *PlainRenderer) Complete(stats CompletionStats) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, _ = fmt.Fprintf(r.out, "[DONE] %d chunks from %d files in %s\n",
		stats.Chunks, stats.Files, stats.Duration.Round(100*time.Millisecond))
	if stats.Model != "" {
		_, _ = fmt.Fprintf(r.out, "       %s (%s, %d dims)\n", stats.IndexPath, stats.Model, stats.Dimensions)
	}
	if len(stats.Missing) > 0 {
		_, _ = fmt.Fprintf(r.out, "       skipped: %s\n", strings.Join(stats.Missing, ", "))
	}
}

// Stop implements Renderer.
func (r *PlainRenderer) Stop() error {
	return nil
}

var _ Renderer = (*PlainRenderer)(nil)
