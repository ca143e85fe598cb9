package searcher

import (
	"container/heap"
	"sort"
)

// Search returns up to topK chunks most similar to query by cosine
// similarity, highest first. Equal scores are ordered by position in the
// index file.
//
// An empty index, topK <= 0 or an all-zero query yield an empty result. A
// query whose length differs from the index's returns ErrDimensionMismatch.
// Search never modifies the loaded index.
func (ix *Index) Search(query []float32, topK int) ([]Result, error) {
	if topK <= 0 {
		return []Result{}, nil
	}

	s, err := ix.snapshot()
	if err != nil {
		return nil, err
	}
	if len(s.meta) == 0 {
		return []Result{}, nil
	}
	if len(query) != s.dims {
		return nil, ErrDimensionMismatch{Expected: s.dims, Got: len(query)}
	}

	qn := norm(query)
	if qn == 0 {
		return []Result{}, nil
	}
	q := make([]float32, len(query))
	for i, x := range query {
		q[i] = float32(float64(x) / qn)
	}

	var rows []int
	if s.ann != nil && topK < len(s.meta) {
		rows = s.ann.candidates(q, topK)
	}
	hits := s.scoreRows(q, rows)

	top := selectTop(hits, topK)
	results := make([]Result, len(top))
	for i, h := range top {
		m := s.meta[h.row]
		results[i] = Result{ID: m.id, Score: h.score, Source: m.source, Text: m.text}
	}
	return results, nil
}

// scored is a row and its similarity to the query.
type scored struct {
	row   int
	score float64
}

// better reports whether a ranks ahead of b.
func better(a, b scored) bool {
	if a.score != b.score {
		return a.score > b.score
	}
	return a.row < b.row
}

// scoreRows scores the given rows, or every row when rows is empty.
func (s *snapshot) scoreRows(q []float32, rows []int) []scored {
	if len(rows) == 0 {
		out := make([]scored, len(s.meta))
		for i := range s.meta {
			out[i] = scored{row: i, score: dot(s.row(i), q)}
		}
		return out
	}

	out := make([]scored, len(rows))
	for i, r := range rows {
		out[i] = scored{row: r, score: dot(s.row(r), q)}
	}
	return out
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// selectTop returns the k best hits in rank order. When k covers every hit
// the whole slice is sorted; otherwise a bounded min-heap keeps the k best
// and only those are sorted.
func selectTop(hits []scored, k int) []scored {
	if k >= len(hits) {
		sort.Slice(hits, func(i, j int) bool { return better(hits[i], hits[j]) })
		return hits
	}

	h := make(worstFirst, 0, k)
	for _, hit := range hits {
		if len(h) < k {
			heap.Push(&h, hit)
			continue
		}
		if better(hit, h[0]) {
			h[0] = hit
			heap.Fix(&h, 0)
		}
	}

	top := []scored(h)
	sort.Slice(top, func(i, j int) bool { return better(top[i], top[j]) })
	return top
}

// worstFirst is a heap whose root is the lowest-ranked hit.
type worstFirst []scored

func (h worstFirst) Len() int           { return len(h) }
func (h worstFirst) Less(i, j int) bool { return better(h[j], h[i]) }
func (h worstFirst) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *worstFirst) Push(x any)        { *h = append(*h, x.(scored)) }
func (h *worstFirst) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
