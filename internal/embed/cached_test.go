package embed

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingEmbedder records how many texts reach the provider.
type countingEmbedder struct {
	inner   *StaticEmbedder
	calls   atomic.Int32
	texts   atomic.Int32
	delay   time.Duration
	failErr error
}

func newCountingEmbedder() *countingEmbedder {
	return &countingEmbedder{inner: NewStaticEmbedder(16)}
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.calls.Add(1)
	c.texts.Add(int32(len(texts)))
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	if c.failErr != nil {
		return nil, c.failErr
	}
	return c.inner.EmbedBatch(ctx, texts)
}

func (c *countingEmbedder) Dimensions() int   { return c.inner.Dimensions() }
func (c *countingEmbedder) ModelName() string { return "counting" }
func (c *countingEmbedder) Close() error      { return nil }

func TestCachedEmbedder_HitSkipsProvider(t *testing.T) {
	// Given: a cached embedder
	inner := newCountingEmbedder()
	c := NewCachedEmbedder(inner, 8)
	ctx := context.Background()

	// When: the same query is embedded twice
	a, err := c.Embed(ctx, "Kilgore Trout")
	require.NoError(t, err)
	b, err := c.Embed(ctx, "Kilgore Trout")
	require.NoError(t, err)

	// Then: the provider is called once
	assert.Equal(t, a, b)
	assert.Equal(t, int32(1), inner.calls.Load())
	assert.Equal(t, 1, c.Len())
}

func TestCachedEmbedder_BatchSendsOnlyMisses(t *testing.T) {
	// Given: one text already cached
	inner := newCountingEmbedder()
	c := NewCachedEmbedder(inner, 8)
	ctx := context.Background()
	_, err := c.Embed(ctx, "b")
	require.NoError(t, err)
	inner.texts.Store(0)

	// When: embedding a batch that contains it
	vecs, err := c.EmbedBatch(ctx, []string{"a", "b", "c"})
	require.NoError(t, err)

	// Then: only the two misses reach the provider and order is preserved
	assert.Equal(t, int32(2), inner.texts.Load())
	require.Len(t, vecs, 3)
	for i, text := range []string{"a", "b", "c"} {
		want, _ := inner.inner.Embed(ctx, text)
		assert.Equal(t, want, vecs[i], "position %d", i)
	}
}

func TestCachedEmbedder_ConcurrentMissesShareOneCall(t *testing.T) {
	// Given: a slow provider
	inner := newCountingEmbedder()
	inner.delay = 20 * time.Millisecond
	c := NewCachedEmbedder(inner, 8)

	// When: many goroutines embed the same text at once
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Embed(context.Background(), "Dresden")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// Then: the provider sees a single call
	assert.Equal(t, int32(1), inner.calls.Load())
}

func TestCachedEmbedder_ErrorsAreNotCached(t *testing.T) {
	inner := newCountingEmbedder()
	inner.failErr = errors.New("provider down")
	c := NewCachedEmbedder(inner, 8)

	_, err := c.Embed(context.Background(), "q")
	require.Error(t, err)
	assert.Equal(t, 0, c.Len())

	inner.failErr = nil
	_, err = c.Embed(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, int32(2), inner.calls.Load())
}

func TestCachedEmbedder_EvictsLeastRecentlyUsed(t *testing.T) {
	inner := newCountingEmbedder()
	c := NewCachedEmbedder(inner, 2)
	ctx := context.Background()

	for _, q := range []string{"one", "two", "three"} {
		_, err := c.Embed(ctx, q)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, c.Len())

	// "one" was evicted, so it reaches the provider again
	_, err := c.Embed(ctx, "one")
	require.NoError(t, err)
	assert.Equal(t, int32(4), inner.calls.Load())
}

func TestCachedEmbedder_PassesMetadataThrough(t *testing.T) {
	inner := newCountingEmbedder()
	c := NewCachedEmbedder(inner, 0)

	assert.Equal(t, 16, c.Dimensions())
	assert.Equal(t, "counting", c.ModelName())
	assert.Same(t, Embedder(inner), c.Inner())
	assert.NoError(t, c.Close())
}
