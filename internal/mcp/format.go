package mcp

import (
	"fmt"
	"strings"

	"github.com/Aman-CERP/corpusrag/internal/store"
	"github.com/Aman-CERP/corpusrag/pkg/searcher"
)

// maxPassageRunes caps each passage in the markdown rendering. Structured
// output always carries the full text.
const maxPassageRunes = 1200

// FormatResults renders search results as markdown for the tool's text content.
func FormatResults(query string, results []searcher.Result, note string) string {
	var sb strings.Builder

	if len(results) == 0 {
		fmt.Fprintf(&sb, "No passages found for \"%s\"", query)
		if note != "" {
			fmt.Fprintf(&sb, "\n\n_%s_", note)
		}
		return sb.String()
	}

	fmt.Fprintf(&sb, "## Passages for \"%s\"\n\n", query)
	fmt.Fprintf(&sb, "Found %d passage", len(results))
	if len(results) != 1 {
		sb.WriteString("s")
	}
	sb.WriteString("\n\n")

	for i, r := range results {
		fmt.Fprintf(&sb, "### %d. %s (score %.3f)\n\n", i+1, r.Source, r.Score)
		fmt.Fprintf(&sb, "`%s`\n\n", r.ID)
		for _, line := range strings.Split(truncateRunes(r.Text, maxPassageRunes), "\n") {
			sb.WriteString("> ")
			sb.WriteString(line)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// FormatStatus renders index_status output as markdown.
func FormatStatus(out IndexStatusOutput) string {
	var sb strings.Builder
	sb.WriteString("## Corpus Index\n\n")
	if !out.Available {
		fmt.Fprintf(&sb, "No index at `%s`. Run 'corpusrag index' first.\n", out.IndexPath)
		return sb.String()
	}

	fmt.Fprintf(&sb, "- **Index:** `%s`\n", out.IndexPath)
	fmt.Fprintf(&sb, "- **Chunks:** %d\n", out.Chunks)
	fmt.Fprintf(&sb, "- **Dimensions:** %d\n", out.Dimensions)
	fmt.Fprintf(&sb, "- **Query model:** %s\n", out.QueryModel)
	if out.Manifest != nil {
		writeManifest(&sb, out.Manifest)
	}
	if out.Error != "" {
		fmt.Fprintf(&sb, "\n**Error:** %s\n", out.Error)
	}
	return sb.String()
}

func writeManifest(sb *strings.Builder, m *store.Manifest) {
	fmt.Fprintf(sb, "- **Index model:** %s\n", m.Model)
	fmt.Fprintf(sb, "- **Chunking:** %d words, %d overlap\n", m.ChunkSizeWords, m.ChunkOverlapWords)
	fmt.Fprintf(sb, "- **Sources:** %d\n", len(m.Sources))
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
