// Package output provides consistent CLI output for corpusrag commands.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Aman-CERP/corpusrag/pkg/searcher"
)

// PassageWidth is the column passages are wrapped at.
const PassageWidth = 76

// Writer provides formatted output for CLI.
type Writer struct {
	out     io.Writer
	passage lipgloss.Style
}

// New creates a new output Writer.
func New(out io.Writer) *Writer {
	return &Writer{
		out:     out,
		passage: lipgloss.NewStyle().Width(PassageWidth).PaddingLeft(4),
	}
}

// Status prints a status message with an icon.
// Errors from writing are intentionally ignored for console output.
func (w *Writer) Status(icon, msg string) {
	if icon != "" {
		_, _ = fmt.Fprintf(w.out, "%s %s\n", icon, msg)
	} else {
		_, _ = fmt.Fprintf(w.out, "   %s\n", msg)
	}
}

// Statusf prints a formatted status message with an icon.
func (w *Writer) Statusf(icon, format string, args ...any) {
	w.Status(icon, fmt.Sprintf(format, args...))
}

// Line prints msg with no decoration.
func (w *Writer) Line(msg string) {
	_, _ = fmt.Fprintln(w.out, msg)
}

// Linef prints a formatted line with no decoration.
func (w *Writer) Linef(format string, args ...any) {
	_, _ = fmt.Fprintf(w.out, format+"\n", args...)
}

// Warning prints a warning message.
func (w *Writer) Warning(msg string) {
	w.Status("!", msg)
}

// Warningf prints a formatted warning message.
func (w *Writer) Warningf(format string, args ...any) {
	w.Warning(fmt.Sprintf(format, args...))
}

// Error prints an error message.
func (w *Writer) Error(msg string) {
	w.Status("x", msg)
}

// Newline prints an empty line.
func (w *Writer) Newline() {
	_, _ = fmt.Fprintln(w.out)
}

// Passage prints one ranked search result: a header line with rank, score
// and source, then the wrapped, indented text.
func (w *Writer) Passage(rank int, r searcher.Result) {
	_, _ = fmt.Fprintf(w.out, "%d. [%.3f] %s (%s)\n", rank, r.Score, r.Source, r.ID)
	_, _ = fmt.Fprintln(w.out, w.passage.Render(strings.TrimSpace(r.Text)))
}

// Passages prints results in rank order, separated by blank lines.
func (w *Writer) Passages(results []searcher.Result) {
	for i, r := range results {
		if i > 0 {
			w.Newline()
		}
		w.Passage(i+1, r)
	}
}

// JSON writes v as indented JSON.
func (w *Writer) JSON(v any) error {
	enc := json.NewEncoder(w.out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
