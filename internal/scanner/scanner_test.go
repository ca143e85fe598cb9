package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func sources(d *Discovery) []string {
	out := make([]string, 0, len(d.Files))
	for _, f := range d.Files {
		out = append(out, f.Source)
	}
	return out
}

func TestDiscover_WalksDirectoriesForTextFiles(t *testing.T) {
	// Given: a corpus tree with text, non-text and hidden files
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "corpus", "b.txt"), "b")
	writeFile(t, filepath.Join(root, "corpus", "a.txt"), "a")
	writeFile(t, filepath.Join(root, "corpus", "nested", "c.TXT"), "c")
	writeFile(t, filepath.Join(root, "corpus", ".draft.txt"), "hidden")
	writeFile(t, filepath.Join(root, "corpus", "notes.md"), "md")
	writeFile(t, filepath.Join(root, "corpus", ".cache", "d.txt"), "in hidden dir")

	s := NewWithBase(root)

	// When: discovering the directory
	d, err := s.Discover(context.Background(), []string{filepath.Join(root, "corpus")})

	// Then: text files are returned in lexical order; hidden names are skipped
	require.NoError(t, err)
	assert.Equal(t, []string{
		"corpus/.cache/d.txt",
		"corpus/a.txt",
		"corpus/b.txt",
		"corpus/nested/c.TXT",
	}, sources(d))
	assert.Empty(t, d.Missing)
	assert.Equal(t, "c", d.Files[3].Stem)
}

func TestDiscover_ReportsMissingPaths(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "raw", "one.txt"), "x")
	s := NewWithBase(root)

	d, err := s.Discover(context.Background(), []string{
		filepath.Join(root, "absent"),
		filepath.Join(root, "raw"),
		filepath.Join(root, "also-absent"),
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"raw/one.txt"}, sources(d))
	assert.Equal(t, []string{filepath.Join(root, "absent"), filepath.Join(root, "also-absent")}, d.Missing)
}

func TestDiscover_AcceptsSingleTextFile(t *testing.T) {
	root := t.TempDir()
	txt := filepath.Join(root, "excerpt.txt")
	md := filepath.Join(root, "readme.md")
	writeFile(t, txt, "x")
	writeFile(t, md, "x")
	s := NewWithBase(root)

	d, err := s.Discover(context.Background(), []string{txt, md})

	require.NoError(t, err)
	assert.Equal(t, []string{"excerpt.txt"}, sources(d))
}

func TestDiscover_DeduplicatesOverlappingSources(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "corpus", "a.txt"), "a")
	writeFile(t, filepath.Join(root, "corpus", "sub", "b.txt"), "b")
	s := NewWithBase(root)

	d, err := s.Discover(context.Background(), []string{
		filepath.Join(root, "corpus", "sub"),
		filepath.Join(root, "corpus"),
		filepath.Join(root, "corpus", "a.txt"),
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"corpus/sub/b.txt", "corpus/a.txt"}, sources(d))
}

func TestDiscover_CancelledContext(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), "a")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewWithBase(root).Discover(ctx, []string{root})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestRelativeSource(t *testing.T) {
	base := t.TempDir()
	outside := t.TempDir()
	s := NewWithBase(base)

	tests := []struct {
		name string
		path string
		want string
	}{
		{"under base", filepath.Join(base, "data", "raw", "x.txt"), "data/raw/x.txt"},
		{"outside base", filepath.Join(outside, "y.txt"), filepath.Join(outside, "y.txt")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.RelativeSource(tt.path))
		})
	}
}

func TestIsTextFile(t *testing.T) {
	assert.True(t, IsTextFile("a.txt"))
	assert.True(t, IsTextFile("A.TXT"))
	assert.False(t, IsTextFile("a.txt.bak"))
	assert.False(t, IsTextFile("txt"))
}

func TestMissingPaths(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "raw", "a.txt"), "a")

	missing := MissingPaths([]string{
		filepath.Join(root, "raw"),
		filepath.Join(root, "excerpts"),
		filepath.Join(root, "raw", "a.txt"),
	})

	assert.Equal(t, []string{filepath.Join(root, "excerpts")}, missing)
}
