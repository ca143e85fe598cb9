package searcher

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "github.com/Aman-CERP/corpusrag/internal/errors"
	"github.com/Aman-CERP/corpusrag/internal/store"
)

// writeIndex writes one record per vector with ids "c0", "c1", ...
func writeIndex(t *testing.T, path string, vectors ...[]float32) {
	t.Helper()
	var b strings.Builder
	for i, v := range vectors {
		line, err := json.Marshal(store.ChunkRecord{
			ID:        fmt.Sprintf("c%d", i),
			Source:    "corpus/test.txt",
			Text:      fmt.Sprintf("text %d", i),
			Embedding: v,
			Model:     "test",
		})
		require.NoError(t, err)
		b.Write(line)
		b.WriteByte('\n')
	}
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
}

func newIndex(t *testing.T, vectors ...[]float32) (*Index, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "corpus_index.jsonl")
	writeIndex(t, path, vectors...)
	idx, err := New(path)
	require.NoError(t, err)
	return idx, path
}

func ids(results []Result) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.ID
	}
	return out
}

func TestSearch_CosineRanking(t *testing.T) {
	// Given: three unit-ish vectors
	idx, _ := newIndex(t, []float32{1, 0}, []float32{0, 1}, []float32{0.7, 0.7})

	// When: querying along the first axis for two results
	results, err := idx.Search([]float32{1, 0}, 2)

	// Then: the exact match comes first, the diagonal second, never the orthogonal
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, []string{"c0", "c2"}, ids(results))
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
	assert.InDelta(t, 0.7071, results[1].Score, 1e-3)
	assert.Equal(t, "text 0", results[0].Text)
	assert.Equal(t, "corpus/test.txt", results[0].Source)
}

func TestSearch_TopKClamped(t *testing.T) {
	idx, _ := newIndex(t, []float32{0, 1}, []float32{1, 0}, []float32{0.7, 0.7})

	results, err := idx.Search([]float32{1, 0.1}, 100)

	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, []string{"c1", "c2", "c0"}, ids(results))
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
}

func TestSearch_NonPositiveTopK(t *testing.T) {
	idx, _ := newIndex(t, []float32{1, 0})

	for _, k := range []int{0, -1} {
		results, err := idx.Search([]float32{1, 0}, k)
		require.NoError(t, err)
		assert.Empty(t, results)
	}
	assert.False(t, idx.Loaded(), "no load needed for an empty request")
}

func TestSearch_EmptyIndex(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, path string)
	}{
		{"missing file", func(*testing.T, string) {}},
		{"empty file", func(t *testing.T, path string) {
			require.NoError(t, os.WriteFile(path, nil, 0o644))
		}},
		{"blank lines only", func(t *testing.T, path string) {
			require.NoError(t, os.WriteFile(path, []byte("\n  \n\n"), 0o644))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "corpus_index.jsonl")
			tt.setup(t, path)
			idx, err := New(path)
			require.NoError(t, err)

			results, err := idx.Search([]float32{1, 2, 3}, 3)

			require.NoError(t, err)
			assert.NotNil(t, results)
			assert.Empty(t, results)
			assert.Zero(t, idx.Len())
			assert.Zero(t, idx.Dimensions())
		})
	}
}

func TestSearch_ZeroNormVectors(t *testing.T) {
	// Given: an index containing an all-zero row
	idx, _ := newIndex(t, []float32{0, 0}, []float32{1, 0})

	// When: searching with a regular query
	results, err := idx.Search([]float32{1, 0}, 2)

	// Then: the zero row scores 0 and ranks last
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "c1", results[0].ID)
	assert.Equal(t, 0.0, results[1].Score)

	// And: an all-zero query returns nothing
	results, err = idx.Search([]float32{0, 0}, 2)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_DimensionMismatch(t *testing.T) {
	idx, _ := newIndex(t, []float32{1, 0, 0})

	_, err := idx.Search([]float32{1, 0}, 1)

	var dm ErrDimensionMismatch
	require.ErrorAs(t, err, &dm)
	assert.Equal(t, 3, dm.Expected)
	assert.Equal(t, 2, dm.Got)
}

func TestSearch_TiesKeepFileOrder(t *testing.T) {
	// Given: five identical rows and one worse row
	same := []float32{1, 1}
	idx, _ := newIndex(t, []float32{1, -1}, same, same, same, same, same)

	// When/Then: both the full-sort and the bounded-heap paths order ties by row
	for range 5 {
		results, err := idx.Search([]float32{1, 1}, 3)
		require.NoError(t, err)
		assert.Equal(t, []string{"c1", "c2", "c3"}, ids(results))

		results, err = idx.Search([]float32{1, 1}, 10)
		require.NoError(t, err)
		assert.Equal(t, []string{"c1", "c2", "c3", "c4", "c5", "c0"}, ids(results))
	}
}

func TestSelectTop_HeapMatchesFullSort(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	hits := make([]scored, 500)
	for i := range hits {
		// Coarse scores force plenty of ties.
		hits[i] = scored{row: i, score: float64(rng.Intn(40)) / 40}
	}

	full := selectTop(append([]scored(nil), hits...), len(hits))
	for _, k := range []int{1, 5, 37, 499} {
		top := selectTop(append([]scored(nil), hits...), k)
		assert.Equal(t, full[:k], top, "k=%d", k)
	}
}

func TestSearch_DoesNotMutateIndex(t *testing.T) {
	idx, _ := newIndex(t, []float32{3, 4}, []float32{4, 3})

	first, err := idx.Search([]float32{3, 4}, 2)
	require.NoError(t, err)
	second, err := idx.Search([]float32{3, 4}, 1)
	require.NoError(t, err)
	third, err := idx.Search([]float32{3, 4}, 2)
	require.NoError(t, err)

	assert.Equal(t, first, third)
	assert.Equal(t, first[:1], second)
}

func TestInvalidate_ReloadsFromDisk(t *testing.T) {
	// Given: a loaded index
	idx, path := newIndex(t, []float32{1, 0})
	results, err := idx.Search([]float32{1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, results, 1)

	// When: the file changes on disk
	writeIndex(t, path, []float32{1, 0}, []float32{0.9, 0.1}, []float32{0, 1})

	// Then: the cached snapshot is still served
	results, err = idx.Search([]float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Len(t, results, 1)

	// And: after Invalidate the new content is read
	idx.Invalidate()
	assert.False(t, idx.Loaded())
	results, err = idx.Search([]float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"c0", "c1", "c2"}, ids(results))
	assert.Equal(t, 3, idx.Len())
}

func TestLoad_CorruptIndexIsNotCached(t *testing.T) {
	// Given: an index with a record missing its embedding on line 2
	path := filepath.Join(t.TempDir(), "corpus_index.jsonl")
	content := `{"id":"a","source":"s","text":"t","embedding":[1,0]}` + "\n" + `{"id":"b","source":"s","text":"t"}` + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	idx, err := New(path)
	require.NoError(t, err)

	// When: searching
	_, err = idx.Search([]float32{1, 0}, 1)

	// Then: loading fails with the line number, and nothing is cached
	require.Error(t, err)
	assert.Equal(t, cerrors.ErrCodeCorruptIndex, cerrors.GetCode(err))
	assert.Contains(t, err.Error(), "line 2")
	assert.False(t, idx.Loaded())
	assert.Zero(t, idx.Len())

	// And: once repaired, the next call loads without Invalidate
	writeIndex(t, path, []float32{1, 0})
	require.NoError(t, idx.Load())
	assert.Equal(t, 1, idx.Len())
}

func TestLoad_MixedDimensionsRejected(t *testing.T) {
	idx, _ := newIndex(t, []float32{1, 0}, []float32{1, 0, 0})

	err := idx.Load()

	assert.Equal(t, cerrors.ErrCodeCorruptIndex, cerrors.GetCode(err))
}

func TestAvailable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus_index.jsonl")
	idx, err := New(path)
	require.NoError(t, err)

	assert.False(t, idx.Available())
	writeIndex(t, path, []float32{1})
	assert.True(t, idx.Available())
	assert.False(t, idx.Loaded(), "Available does not load")
	assert.Equal(t, path, idx.Path())
}

func TestNew_RequiresPath(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)
}

func TestIndex_ConcurrentSearchAndInvalidate(t *testing.T) {
	idx, _ := newIndex(t, []float32{1, 0}, []float32{0, 1}, []float32{0.5, 0.5})

	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				if i%4 == 0 {
					idx.Invalidate()
					continue
				}
				results, err := idx.Search([]float32{1, 0}, 2)
				assert.NoError(t, err)
				assert.Equal(t, []string{"c0", "c2"}, ids(results))
			}
		}()
	}
	wg.Wait()
}

func writeRaw(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}
