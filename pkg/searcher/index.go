package searcher

import (
	"errors"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Aman-CERP/corpusrag/internal/store"
)

// chunkMeta is the provenance kept for each row.
type chunkMeta struct {
	id     string
	source string
	text   string
}

// snapshot is an immutable loaded index.
type snapshot struct {
	meta []chunkMeta

	// vectors holds len(meta) rows of dims L2-normalized values.
	vectors []float32
	dims    int

	ann *annIndex
}

func (s *snapshot) row(i int) []float32 {
	return s.vectors[i*s.dims : (i+1)*s.dims]
}

// Index is a lazily loaded, cached view of one index file.
type Index struct {
	path         string
	annThreshold int
	logger       *slog.Logger

	mu   sync.Mutex
	snap atomic.Pointer[snapshot]
}

// New returns a handle for the index at path. Nothing is read until the
// first Search, Load, Len or Dimensions call.
func New(path string, opts ...Option) (*Index, error) {
	if path == "" {
		return nil, errors.New("index path is required")
	}
	ix := &Index{path: path}
	for _, opt := range opts {
		opt(ix)
	}
	if ix.logger == nil {
		ix.logger = slog.Default()
	}
	return ix, nil
}

// Path returns the index file path.
func (ix *Index) Path() string { return ix.path }

// Available reports whether the index file exists. It does not read or
// validate the file.
func (ix *Index) Available() bool {
	_, err := os.Stat(ix.path)
	return err == nil
}

// Load reads the index if it is not cached yet. A missing file loads as an
// empty index. A corrupt file returns an ERR_205 error and nothing is cached,
// so a later call retries.
func (ix *Index) Load() error {
	_, err := ix.snapshot()
	return err
}

// Invalidate drops the cached snapshot. The next call reloads from disk.
// Searches already running finish against the old snapshot.
func (ix *Index) Invalidate() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.snap.Store(nil)
	ix.logger.Debug("index_invalidated", slog.String("path", ix.path))
}

// Loaded reports whether a snapshot is cached.
func (ix *Index) Loaded() bool { return ix.snap.Load() != nil }

// Len returns the number of indexed chunks, loading if needed. A load error
// reports 0.
func (ix *Index) Len() int {
	s, err := ix.snapshot()
	if err != nil {
		return 0
	}
	return len(s.meta)
}

// Dimensions returns the vector length, loading if needed. Empty indexes and
// load errors report 0.
func (ix *Index) Dimensions() int {
	s, err := ix.snapshot()
	if err != nil {
		return 0
	}
	return s.dims
}

func (ix *Index) snapshot() (*snapshot, error) {
	if s := ix.snap.Load(); s != nil {
		return s, nil
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	if s := ix.snap.Load(); s != nil {
		return s, nil
	}

	s, err := ix.read()
	if err != nil {
		ix.logger.Error("index_load_failed",
			slog.String("path", ix.path),
			slog.String("error", err.Error()))
		return nil, err
	}
	ix.snap.Store(s)
	return s, nil
}

func (ix *Index) read() (*snapshot, error) {
	start := time.Now()
	s := &snapshot{}

	err := store.ReadRecords(ix.path, func(rec store.ChunkRecord) error {
		if s.dims == 0 {
			s.dims = len(rec.Embedding)
		}
		s.meta = append(s.meta, chunkMeta{id: rec.ID, source: rec.Source, text: rec.Text})
		s.vectors = appendNormalized(s.vectors, rec.Embedding)
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		ix.logger.Debug("index_missing", slog.String("path", ix.path))
		return &snapshot{}, nil
	}
	if err != nil {
		return nil, err
	}

	if ix.annThreshold > 0 && len(s.meta) >= ix.annThreshold {
		s.ann = buildANN(s)
	}

	ix.logger.Info("index_loaded",
		slog.String("path", ix.path),
		slog.Int("chunks", len(s.meta)),
		slog.Int("dimensions", s.dims),
		slog.Bool("ann", s.ann != nil),
		slog.Duration("duration", time.Since(start)))
	return s, nil
}

// appendNormalized appends v scaled to unit length. A zero vector is kept
// as zeros.
func appendNormalized(dst []float32, v []float32) []float32 {
	n := norm(v)
	if n == 0 {
		n = 1
	}
	for _, x := range v {
		dst = append(dst, float32(float64(x)/n))
	}
	return dst
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
