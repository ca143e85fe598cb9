package store

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	cerrors "github.com/Aman-CERP/corpusrag/internal/errors"
)

// maxLineBytes bounds a single index line. A 3072-dim float32 embedding
// encodes to roughly 70KB, so this leaves ample room for the chunk text.
const maxLineBytes = 16 * 1024 * 1024

// rawRecord distinguishes absent fields from zero values.
type rawRecord struct {
	ID        string     `json:"id"`
	Source    string     `json:"source"`
	Text      *string    `json:"text"`
	Embedding *[]float32 `json:"embedding"`
	Model     string     `json:"model"`
}

// ReadRecords calls fn for every record in the index at path, in file order.
// Blank lines are skipped. A line that is not valid JSON, lacks text or
// embedding, or whose embedding length differs from the first record's
// stops the scan with an ERR_205 error naming the line.
//
// A missing file is reported with os.ErrNotExist in the chain so callers can
// treat it as an empty index.
func ReadRecords(path string, fn func(rec ChunkRecord) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open index: %w", err)
	}
	defer func() { _ = f.Close() }()

	return DecodeRecords(f, fn)
}

// DecodeRecords is ReadRecords over an arbitrary reader.
func DecodeRecords(r io.Reader, fn func(rec ChunkRecord) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	dims := 0
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		rec, err := decodeLine(line)
		if err != nil {
			return corrupt(lineNo, err.Error(), err)
		}

		if dims == 0 {
			dims = len(rec.Embedding)
		} else if len(rec.Embedding) != dims {
			return corrupt(lineNo,
				fmt.Sprintf("embedding has %d dimensions, expected %d", len(rec.Embedding), dims), nil)
		}

		if err := fn(rec); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return corrupt(lineNo+1, "unreadable line", err)
	}
	return nil
}

func decodeLine(line []byte) (ChunkRecord, error) {
	var raw rawRecord
	if err := json.Unmarshal(line, &raw); err != nil {
		return ChunkRecord{}, fmt.Errorf("invalid JSON: %w", err)
	}
	if raw.Text == nil {
		return ChunkRecord{}, fmt.Errorf("missing text")
	}
	if raw.Embedding == nil || len(*raw.Embedding) == 0 {
		return ChunkRecord{}, fmt.Errorf("missing embedding")
	}
	return ChunkRecord{
		ID:        raw.ID,
		Source:    raw.Source,
		Text:      *raw.Text,
		Embedding: *raw.Embedding,
		Model:     raw.Model,
	}, nil
}

func corrupt(line int, reason string, cause error) error {
	return cerrors.New(cerrors.ErrCodeCorruptIndex,
		fmt.Sprintf("corrupt index at line %d: %s", line, reason), cause).
		WithDetail("line", fmt.Sprint(line)).
		WithSuggestion("Rebuild the index with 'corpusrag index'")
}
