// Package scanner discovers the corpus text files to index.
package scanner

import "time"

// TextExt is the extension of indexable files, matched case-insensitively.
const TextExt = ".txt"

// FileInfo describes a discovered text file.
type FileInfo struct {
	// Path is the file path as discovered (source path joined with the walk).
	Path string

	// Source is Path relative to the working directory when the file lies
	// under it, otherwise Path unchanged. It is recorded in the index.
	Source string

	// Stem is the base name without its extension.
	Stem string

	Size    int64
	ModTime time.Time
}

// Discovery is the outcome of scanning a set of source paths.
type Discovery struct {
	// Files in input-path order, lexical within each directory walk.
	Files []*FileInfo

	// Missing lists source paths that do not exist, in input order.
	Missing []string
}
