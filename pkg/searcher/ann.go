package searcher

import (
	"sync"

	"github.com/coder/hnsw"
)

// HNSW parameters. EfSearch is raised per query to at least the candidate
// count.
const (
	annM        = 16
	annEfSearch = 64
	annMl       = 0.25

	// annOversample multiplies topK to get the candidate count re-scored
	// exactly.
	annOversample = 4
)

// annIndex supplies approximate nearest-neighbour candidates over a
// snapshot's rows.
type annIndex struct {
	mu    sync.Mutex
	graph *hnsw.Graph[int]

	// zeros holds zero-norm rows in file order. They are not in the graph
	// and score 0 against every query.
	zeros []int
}

// buildANN indexes every non-zero row of s and records the zero rows.
func buildANN(s *snapshot) *annIndex {
	graph := hnsw.NewGraph[int]()
	graph.Distance = hnsw.CosineDistance
	graph.M = annM
	graph.EfSearch = annEfSearch
	graph.Ml = annMl

	var zeros []int
	for i := range s.meta {
		row := s.row(i)
		if norm(row) == 0 {
			zeros = append(zeros, i)
			continue
		}
		graph.Add(hnsw.MakeNode(i, row))
	}
	return &annIndex{graph: graph, zeros: zeros}
}

// candidates returns rows likely to contain the topK nearest to q. The
// first topK zero rows are always included so they compete at score 0. A
// nil result means the caller must score every row.
func (a *annIndex) candidates(q []float32, topK int) []int {
	k := topK * annOversample

	a.mu.Lock()
	var nodes []hnsw.Node[int]
	if a.graph.Len() > 0 {
		a.graph.EfSearch = max(annEfSearch, k)
		nodes = a.graph.Search(q, k)
	}
	a.mu.Unlock()

	rows := make([]int, 0, len(nodes)+min(topK, len(a.zeros)))
	for _, n := range nodes {
		rows = append(rows, n.Key)
	}
	rows = append(rows, a.zeros[:min(topK, len(a.zeros))]...)

	if len(rows) < topK {
		return nil
	}
	return rows
}
