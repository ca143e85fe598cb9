package chunk

import "strings"

// Normalize trims every line, drops lines that begin with '#', and trims the
// joined result. Normalize(Normalize(s)) == Normalize(s).
func Normalize(text string) string {
	lines := splitLines(text)
	kept := lines[:0]
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "#") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

// splitLines splits on \n, \r\n and lone \r.
func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.Split(text, "\n")
}

// Step returns the distance between window starts, never less than 1.
func Step(size, overlap int) int {
	if size < 1 {
		size = 1
	}
	return max(1, size-overlap)
}

// Windows returns the word windows for n words. The last window ends at n.
// Non-positive size is treated as 1. Zero words yield no windows.
func Windows(n, size, overlap int) []Window {
	if n <= 0 {
		return nil
	}
	if size < 1 {
		size = 1
	}
	step := Step(size, overlap)

	windows := make([]Window, 0, (n+step-1)/step)
	for start := 0; start < n; start += step {
		end := min(n, start+size)
		windows = append(windows, Window{Start: start, End: end})
		if end == n {
			break
		}
	}
	return windows
}

// Words splits text on whitespace and returns its windows joined by single
// spaces. Empty or whitespace-only text yields nil.
func Words(text string, size, overlap int) []string {
	words := strings.Fields(text)
	windows := Windows(len(words), size, overlap)
	if len(windows) == 0 {
		return nil
	}

	out := make([]string, len(windows))
	for i, w := range windows {
		out[i] = strings.Join(words[w.Start:w.End], " ")
	}
	return out
}
