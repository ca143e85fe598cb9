package searcher

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrIndexNotFound is returned by Grounder.Retrieve when the index file does
// not exist.
var ErrIndexNotFound = errors.New("index not found")

// Result is one search hit.
type Result struct {
	ID     string  `json:"id"`
	Score  float64 `json:"score"`
	Source string  `json:"source"`
	Text   string  `json:"text"`
}

// ErrDimensionMismatch is returned when a query vector's length differs from
// the index's.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: index has %d dimensions, query has %d", e.Expected, e.Got)
}

// Option configures an Index.
type Option func(*Index)

// WithANNThreshold enables approximate candidate selection for indexes with
// at least n rows. Candidates are re-scored exactly, so result order follows
// the same rules as an exact search. 0 disables it.
func WithANNThreshold(n int) Option {
	return func(ix *Index) {
		ix.annThreshold = n
	}
}

// WithLogger sets the logger; slog.Default() otherwise.
func WithLogger(l *slog.Logger) Option {
	return func(ix *Index) {
		ix.logger = l
	}
}
