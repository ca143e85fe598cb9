package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// StatusInfo describes the on-disk index and what a load of it produced.
type StatusInfo struct {
	Available bool      `json:"available"`
	IndexPath string    `json:"index_path"`
	IndexSize int64     `json:"index_size"`
	ModTime   time.Time `json:"modified,omitzero"`

	Loaded     bool   `json:"loaded"`
	Chunks     int    `json:"chunks"`
	Dimensions int    `json:"dimensions"`
	LoadError  string `json:"load_error,omitempty"`

	ManifestPath      string `json:"manifest_path"`
	Model             string `json:"model,omitempty"`
	ChunkSizeWords    int    `json:"chunk_size_words,omitempty"`
	ChunkOverlapWords int    `json:"chunk_overlap_words,omitempty"`
	TotalChunks       int    `json:"total_chunks,omitempty"`
	Sources           int    `json:"sources,omitempty"`

	// QueryModel is the model queries would be embedded with.
	QueryModel string `json:"query_model"`
}

// StatusRenderer displays index status.
type StatusRenderer struct {
	out    io.Writer
	styles Styles
}

// NewStatusRenderer creates a status renderer.
func NewStatusRenderer(out io.Writer, noColor bool) *StatusRenderer {
	return &StatusRenderer{
		out:    out,
		styles: GetStyles(noColor || DetectNoColor()),
	}
}

// Render writes a human-readable status report.
func (r *StatusRenderer) Render(info StatusInfo) error {
	_, _ = fmt.Fprintf(r.out, "%s\n\n", r.styles.Header.Render("Corpus index: "+info.IndexPath))

	if !info.Available {
		_, _ = fmt.Fprintf(r.out, "  Status: %s\n", r.styles.Warning.Render("not built"))
		_, _ = fmt.Fprintln(r.out, "  Run 'corpusrag index' to build it.")
		return nil
	}

	status := r.styles.Success.Render("ready")
	if info.LoadError != "" {
		status = r.styles.Error.Render("error")
	}
	_, _ = fmt.Fprintf(r.out, "  Status:     %s\n", status)
	_, _ = fmt.Fprintf(r.out, "  Size:       %s\n", FormatBytes(info.IndexSize))
	if !info.ModTime.IsZero() {
		_, _ = fmt.Fprintf(r.out, "  Modified:   %s\n", formatTime(info.ModTime))
	}
	if info.Loaded {
		_, _ = fmt.Fprintf(r.out, "  Chunks:     %d\n", info.Chunks)
		_, _ = fmt.Fprintf(r.out, "  Dimensions: %d\n", info.Dimensions)
	}
	if info.LoadError != "" {
		_, _ = fmt.Fprintf(r.out, "  Error:      %s\n", info.LoadError)
	}
	_, _ = fmt.Fprintln(r.out)

	if info.Model != "" {
		_, _ = fmt.Fprintln(r.out, "  Manifest:")
		_, _ = fmt.Fprintf(r.out, "    Model:    %s\n", info.Model)
		_, _ = fmt.Fprintf(r.out, "    Chunking: %d words, %d overlap\n", info.ChunkSizeWords, info.ChunkOverlapWords)
		_, _ = fmt.Fprintf(r.out, "    Chunks:   %d\n", info.TotalChunks)
		_, _ = fmt.Fprintf(r.out, "    Sources:  %d\n", info.Sources)
		if info.QueryModel != "" && info.QueryModel != info.Model {
			_, _ = fmt.Fprintf(r.out, "    %s\n", r.styles.Warning.Render(
				fmt.Sprintf("queries use %s; rebuild before searching", info.QueryModel)))
		}
	} else {
		_, _ = fmt.Fprintf(r.out, "  Manifest:   %s\n", r.styles.Warning.Render("missing"))
	}
	return nil
}

// RenderJSON writes status as indented JSON.
func (r *StatusRenderer) RenderJSON(info StatusInfo) error {
	encoder := json.NewEncoder(r.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(info)
}

func formatTime(t time.Time) string {
	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return plural(int(diff.Minutes()), "minute") + " ago"
	case diff < 24*time.Hour:
		return plural(int(diff.Hours()), "hour") + " ago"
	case diff < 7*24*time.Hour:
		return plural(int(diff.Hours()/24), "day") + " ago"
	default:
		return t.Format("2006-01-02 15:04")
	}
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return fmt.Sprintf("%d %ss", n, word)
}

// FormatBytes formats a byte count for display.
func FormatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
