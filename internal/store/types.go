// Package store defines the on-disk corpus index format and reads and writes
// it.
//
// The index is a JSON Lines file with one ChunkRecord per line. A JSON
// manifest beside it records the parameters of the build that produced it.
// Writers never modify a live file in place: records and manifest are written
// to temporary files in the same directory and renamed into position.
package store

// ChunkRecord is one line of the index file.
type ChunkRecord struct {
	// ID is "<stem>-chunk-<n>", n being the 0-based chunk ordinal in its file.
	ID string `json:"id"`

	// Source is the file path, relative to the working directory when the
	// file lies under it.
	Source string `json:"source"`

	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding"`
	Model     string    `json:"model"`
}

// Manifest describes the build that produced an index.
type Manifest struct {
	Model             string   `json:"model"`
	ChunkSizeWords    int      `json:"chunk_size_words"`
	ChunkOverlapWords int      `json:"chunk_overlap_words"`
	TotalChunks       int      `json:"total_chunks"`
	Sources           []string `json:"sources"`
}
