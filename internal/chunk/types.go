// Package chunk turns corpus text into overlapping word windows.
//
// Text is first normalized (lines trimmed, comment lines dropped), then split
// on whitespace and cut into windows of SizeWords words that advance by
// SizeWords-OverlapWords words. The final window always ends at the last word.
package chunk

import "context"

// Defaults sized for long-form prose with text-embedding-3 models.
const (
	DefaultSizeWords    = 280
	DefaultOverlapWords = 60
)

// Chunk is one word window of a file.
type Chunk struct {
	// ID is "<stem>-chunk-<ordinal>".
	ID string

	// Source is the provenance path recorded in the index.
	Source string

	// Text is the window's words joined by single spaces.
	Text string

	// Ordinal is the 0-based position of the chunk within its file.
	Ordinal int

	// StartWord and EndWord delimit the window in the normalized word list
	// (EndWord exclusive).
	StartWord int
	EndWord   int
}

// FileInput is the input to a Chunker.
type FileInput struct {
	// Stem names the chunks; usually the file name without extension.
	Stem    string
	Source  string
	Content []byte
}

// Chunker splits a file into chunks.
type Chunker interface {
	Chunk(ctx context.Context, file *FileInput) ([]*Chunk, error)
}

// Window is a half-open word range [Start, End).
type Window struct {
	Start int
	End   int
}
