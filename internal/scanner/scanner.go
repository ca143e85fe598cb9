package scanner

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Scanner walks source paths for text files.
type Scanner struct {
	// wd is the directory Source paths are made relative to.
	wd string
}

// New creates a scanner that reports sources relative to the current
// working directory.
func New() (*Scanner, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return NewWithBase(wd), nil
}

// NewWithBase creates a scanner that reports sources relative to base.
func NewWithBase(base string) *Scanner {
	if abs, err := filepath.Abs(base); err == nil {
		base = abs
	}
	return &Scanner{wd: base}
}

// Discover resolves each path to the text files it contains.
//
// A regular file is accepted when it has the text extension. A directory is
// walked recursively and yields every text file whose name does not begin
// with a dot. Missing paths are collected in Discovery.Missing rather than
// failing the scan. A file reachable from more than one path is returned
// once, at its first occurrence.
func (s *Scanner) Discover(ctx context.Context, paths []string) (*Discovery, error) {
	d := &Discovery{Files: []*FileInfo{}}
	seen := make(map[string]bool)

	add := func(path string, info fs.FileInfo) {
		key := path
		if abs, err := filepath.Abs(path); err == nil {
			key = abs
		}
		if seen[key] {
			return
		}
		seen[key] = true
		d.Files = append(d.Files, s.fileInfo(path, info))
	}

	for _, base := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		info, err := os.Stat(base)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				d.Missing = append(d.Missing, base)
				continue
			}
			slog.Warn("source_unreadable", slog.String("path", base), slog.String("error", err.Error()))
			continue
		}

		if !info.IsDir() {
			if info.Mode().IsRegular() && IsTextFile(base) {
				add(base, info)
			}
			continue
		}

		if err := s.walk(ctx, base, add); err != nil {
			return nil, err
		}
	}

	return d, nil
}

func (s *Scanner) walk(ctx context.Context, root string, add func(string, fs.FileInfo)) error {
	return filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err != nil {
			// Skip subtrees we can't read; the root itself was already stat'ed.
			slog.Warn("source_walk_skipped", slog.String("path", path), slog.String("error", err.Error()))
			if entry != nil && entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if entry.IsDir() || !IsTextFile(path) || isHidden(entry.Name()) {
			return nil
		}

		// Follow file symlinks; directory symlinks are not descended into.
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			return nil
		}

		add(path, info)
		return nil
	})
}

func (s *Scanner) fileInfo(path string, info fs.FileInfo) *FileInfo {
	name := filepath.Base(path)
	return &FileInfo{
		Path:    path,
		Source:  s.RelativeSource(path),
		Stem:    strings.TrimSuffix(name, filepath.Ext(name)),
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}
}

// RelativeSource returns path relative to the scanner base when it lies
// under it, otherwise path unchanged.
func (s *Scanner) RelativeSource(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(s.wd, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return path
	}
	return filepath.ToSlash(rel)
}

// IsTextFile reports whether path has the text extension, ignoring case.
func IsTextFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), TextExt)
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// MissingPaths returns the paths that do not exist, in input order.
func MissingPaths(paths []string) []string {
	var missing []string
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			missing = append(missing, p)
		}
	}
	return missing
}
