// Package embed defines the embedding provider contract and its
// implementations: OpenAI-compatible HTTP, a deterministic offline hasher,
// and an LRU cache for query embeddings.
package embed

import (
	"context"
	"math"
)

// Embedder turns text into fixed-length vectors.
//
// EmbedBatch must return exactly one vector per input, in input order, all of
// the same length.
type Embedder interface {
	// Embed generates the embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for texts in a single provider call.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the vector length, or 0 when it is not known until
	// the first call.
	Dimensions() int

	// ModelName returns the identifier stored alongside each vector.
	ModelName() string

	// Close releases resources.
	Close() error
}

// normalizeVector returns v scaled to unit length. Zero vectors are returned
// unchanged.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}

	normalized := make([]float32, len(v))
	for i, val := range v {
		normalized[i] = float32(float64(val) / magnitude)
	}
	return normalized
}
