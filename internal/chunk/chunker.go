package chunk

import (
	"context"
	"fmt"
	"strings"
)

// WordChunker normalizes file content and cuts it into word windows.
type WordChunker struct {
	size    int
	overlap int
}

// NewWordChunker creates a chunker. Non-positive size falls back to 1, and an
// overlap at or above size degrades to a step of one word.
func NewWordChunker(size, overlap int) *WordChunker {
	return &WordChunker{size: size, overlap: overlap}
}

// Chunk returns the file's chunks in order. Invalid UTF-8 sequences in the
// content are dropped.
func (c *WordChunker) Chunk(ctx context.Context, file *FileInput) ([]*Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	text := Normalize(strings.ToValidUTF8(string(file.Content), ""))
	words := strings.Fields(text)
	windows := Windows(len(words), c.size, c.overlap)

	chunks := make([]*Chunk, 0, len(windows))
	for i, w := range windows {
		chunks = append(chunks, &Chunk{
			ID:        ChunkID(file.Stem, i),
			Source:    file.Source,
			Text:      strings.Join(words[w.Start:w.End], " "),
			Ordinal:   i,
			StartWord: w.Start,
			EndWord:   w.End,
		})
	}
	return chunks, nil
}

// ChunkID formats the id of the n-th chunk of a file.
func ChunkID(stem string, n int) string {
	return fmt.Sprintf("%s-chunk-%d", stem, n)
}

var _ Chunker = (*WordChunker)(nil)
