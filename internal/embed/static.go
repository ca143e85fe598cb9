package embed

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"unicode"
)

// StaticDimensions is the default vector length of the static embedder.
const StaticDimensions = 256

// StaticModelName is recorded in index records built with the static embedder.
const StaticModelName = "static"

// Feature weights for the hashed vector.
const (
	wordWeight  = 0.7
	ngramWeight = 0.3
	ngramSize   = 3
)

// proseStopWords are dropped before hashing so that function words do not
// dominate similarity between passages.
var proseStopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "but": true, "by": true, "for": true, "from": true, "had": true,
	"has": true, "have": true, "he": true, "her": true, "his": true, "i": true,
	"in": true, "is": true, "it": true, "of": true, "on": true, "or": true,
	"she": true, "that": true, "the": true, "their": true, "they": true,
	"this": true, "to": true, "was": true, "were": true, "with": true,
}

// StaticEmbedder produces deterministic hashed bag-of-words vectors. It needs
// no network or credentials, which makes it suitable for offline builds and
// tests; semantic quality is far below a real model.
type StaticEmbedder struct {
	dims int

	mu     sync.RWMutex
	closed bool
}

// NewStaticEmbedder creates a static embedder producing dims-length vectors
// (StaticDimensions when dims <= 0).
func NewStaticEmbedder(dims int) *StaticEmbedder {
	if dims <= 0 {
		dims = StaticDimensions
	}
	return &StaticEmbedder{dims: dims}
}

// Embed hashes text into a unit vector. Blank text yields a zero vector.
func (e *StaticEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if e.isClosed() {
		return nil, fmt.Errorf("static embedder is closed")
	}
	return e.vector(text), nil
}

// EmbedBatch embeds each text independently.
func (e *StaticEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if e.isClosed() {
		return nil, fmt.Errorf("static embedder is closed")
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = e.vector(text)
	}
	return out, nil
}

func (e *StaticEmbedder) vector(text string) []float32 {
	v := make([]float32, e.dims)

	text = strings.TrimSpace(text)
	if text == "" {
		return v
	}

	for _, w := range words(text) {
		if proseStopWords[w] {
			continue
		}
		v[hashToIndex(w, e.dims)] += wordWeight
	}

	letters := lettersOnly(text)
	for i := 0; i+ngramSize <= len(letters); i++ {
		v[hashToIndex(string(letters[i:i+ngramSize]), e.dims)] += ngramWeight
	}

	return normalizeVector(v)
}

// words lowercases text and splits it on anything that is not a letter,
// digit or apostrophe.
func words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}

func lettersOnly(text string) []rune {
	var out []rune
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			out = append(out, r)
		}
	}
	return out
}

// hashToIndex maps s to a vector slot with FNV-64.
func hashToIndex(s string, size int) int {
	h := fnv.New64()
	_, _ = h.Write([]byte(s))
	return int(h.Sum64() % uint64(size))
}

// Dimensions returns the configured vector length.
func (e *StaticEmbedder) Dimensions() int { return e.dims }

// ModelName returns StaticModelName.
func (e *StaticEmbedder) ModelName() string { return StaticModelName }

// Close marks the embedder closed.
func (e *StaticEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

func (e *StaticEmbedder) isClosed() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.closed
}

var _ Embedder = (*StaticEmbedder)(nil)
