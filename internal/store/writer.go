package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	cerrors "github.com/Aman-CERP/corpusrag/internal/errors"
)

// filePerm is applied to temporary files, which os.CreateTemp opens 0600.
const filePerm = 0o644

// RecordWriter streams records to a temporary file next to the target path.
// Nothing is visible at the target until Commit renames the file into place.
type RecordWriter struct {
	path string
	tmp  *os.File
	buf  *bufio.Writer
	enc  *json.Encoder

	count int
	dims  int
	done  bool
}

// NewRecordWriter creates the temporary file for an index written to path.
// The parent directory is created if needed.
func NewRecordWriter(path string) (*RecordWriter, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, cerrors.New(cerrors.ErrCodePermissionDenied,
			fmt.Sprintf("cannot create index directory %s", dir), err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return nil, cerrors.New(cerrors.ErrCodePermissionDenied,
			fmt.Sprintf("cannot write in %s", dir), err)
	}

	_ = tmp.Chmod(filePerm)

	buf := bufio.NewWriterSize(tmp, 256*1024)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)

	return &RecordWriter{path: path, tmp: tmp, buf: buf, enc: enc}, nil
}

// Write appends one record. All records must share one embedding length.
func (w *RecordWriter) Write(rec ChunkRecord) error {
	if w.done {
		return fmt.Errorf("record writer is closed")
	}
	if len(rec.Embedding) == 0 {
		return cerrors.New(cerrors.ErrCodeEmbeddingFailed,
			fmt.Sprintf("record %s has no embedding", rec.ID), nil)
	}
	if w.dims == 0 {
		w.dims = len(rec.Embedding)
	} else if len(rec.Embedding) != w.dims {
		return cerrors.New(cerrors.ErrCodeEmbeddingFailed,
			fmt.Sprintf("record %s has %d dimensions, expected %d", rec.ID, len(rec.Embedding), w.dims), nil)
	}

	// Encode appends the newline that terminates the JSONL line.
	if err := w.enc.Encode(rec); err != nil {
		return fmt.Errorf("write record %s: %w", rec.ID, err)
	}
	w.count++
	return nil
}

// Count returns the number of records written so far.
func (w *RecordWriter) Count() int { return w.count }

// Dimensions returns the embedding length of the written records.
func (w *RecordWriter) Dimensions() int { return w.dims }

// TempPath returns the temporary file path.
func (w *RecordWriter) TempPath() string { return w.tmp.Name() }

// Commit flushes, syncs and renames the temporary file over the target.
// On failure the temporary file is removed.
func (w *RecordWriter) Commit() error {
	if w.done {
		return fmt.Errorf("record writer is closed")
	}
	w.done = true

	if err := w.buf.Flush(); err != nil {
		w.discard()
		return fmt.Errorf("flush index: %w", err)
	}
	if err := w.tmp.Sync(); err != nil {
		w.discard()
		return fmt.Errorf("sync index: %w", err)
	}
	if err := w.tmp.Close(); err != nil {
		_ = os.Remove(w.tmp.Name())
		return fmt.Errorf("close index: %w", err)
	}
	if err := os.Rename(w.tmp.Name(), w.path); err != nil {
		_ = os.Remove(w.tmp.Name())
		return cerrors.New(cerrors.ErrCodePermissionDenied,
			fmt.Sprintf("cannot replace %s", w.path), err)
	}
	return nil
}

// Abort discards the temporary file. It is a no-op after Commit.
func (w *RecordWriter) Abort() {
	if w.done {
		return
	}
	w.done = true
	w.discard()
}

func (w *RecordWriter) discard() {
	_ = w.tmp.Close()
	_ = os.Remove(w.tmp.Name())
}
