package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FileWatcher watches a fixed set of file paths.
type FileWatcher struct {
	opts Options

	// targets maps absolute paths to the paths given to New.
	targets map[string]string
	dirs    []string

	debouncer *Debouncer
}

// New creates a watcher for paths. The files need not exist yet, but their
// parent directories are created so they can be watched.
func New(paths []string, opts Options) (*FileWatcher, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no paths to watch")
	}
	opts = opts.WithDefaults()

	w := &FileWatcher{
		opts:      opts,
		targets:   make(map[string]string, len(paths)),
		debouncer: NewDebouncer(opts.DebounceWindow),
	}

	seenDir := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", p, err)
		}
		w.targets[abs] = p

		dir := filepath.Dir(abs)
		if !seenDir[dir] {
			seenDir[dir] = true
			w.dirs = append(w.dirs, dir)
		}
	}
	return w, nil
}

// Run delivers debounced batches to onChange until ctx is cancelled. It
// returns ctx.Err() on cancellation, or an error if watching cannot start.
// A FileWatcher runs once.
func (w *FileWatcher) Run(ctx context.Context, onChange func([]FileEvent)) error {
	for _, dir := range w.dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create watch directory %s: %w", dir, err)
		}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for batch := range w.debouncer.Output() {
			onChange(batch)
		}
	}()
	defer func() {
		w.debouncer.Stop()
		<-done
	}()

	if !w.opts.ForcePolling {
		fsw, err := fsnotify.NewWatcher()
		if err == nil {
			return w.runFsnotify(ctx, fsw)
		}
		slog.Warn("watcher_fsnotify_unavailable", slog.String("error", err.Error()))
	}
	return w.runPolling(ctx)
}

func (w *FileWatcher) runFsnotify(ctx context.Context, fsw *fsnotify.Watcher) error {
	defer func() { _ = fsw.Close() }()

	for _, dir := range w.dirs {
		if err := fsw.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	slog.Debug("watcher_started", slog.String("mode", "fsnotify"), slog.Any("dirs", w.dirs))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handle(event)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watcher_error", slog.String("error", err.Error()))
		}
	}
}

func (w *FileWatcher) handle(event fsnotify.Event) {
	path, ok := w.targets[filepath.Clean(event.Name)]
	if !ok {
		return
	}

	var op Operation
	switch {
	case event.Has(fsnotify.Create):
		op = OpCreate
	case event.Has(fsnotify.Write):
		op = OpModify
	case event.Has(fsnotify.Remove):
		op = OpDelete
	case event.Has(fsnotify.Rename):
		op = OpRename
	default:
		return
	}

	w.debouncer.Add(FileEvent{Path: path, Operation: op, Timestamp: time.Now()})
}

// fileState is what polling compares between ticks.
type fileState struct {
	exists  bool
	modTime time.Time
	size    int64
}

func (s fileState) same(o fileState) bool {
	return s.exists == o.exists && s.size == o.size && s.modTime.Equal(o.modTime)
}

func statFile(path string) fileState {
	info, err := os.Stat(path)
	if err != nil {
		return fileState{}
	}
	return fileState{exists: true, modTime: info.ModTime(), size: info.Size()}
}

func (w *FileWatcher) runPolling(ctx context.Context) error {
	state := make(map[string]fileState, len(w.targets))
	for abs := range w.targets {
		state[abs] = statFile(abs)
	}
	slog.Debug("watcher_started", slog.String("mode", "polling"), slog.Duration("interval", w.opts.PollInterval))

	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			for abs, path := range w.targets {
				prev, cur := state[abs], statFile(abs)
				if prev.same(cur) {
					continue
				}
				state[abs] = cur

				op := OpModify
				switch {
				case !prev.exists:
					op = OpCreate
				case !cur.exists:
					op = OpDelete
				}
				w.debouncer.Add(FileEvent{Path: path, Operation: op, Timestamp: time.Now()})
			}
		}
	}
}
