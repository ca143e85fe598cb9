// Package searcher answers nearest-neighbour queries against a corpus index.
//
// An [Index] is a handle on one index file. It loads the file lazily on first
// use, keeps the L2-normalized vectors in memory, and serves [Index.Search]
// from that snapshot until [Index.Invalidate] is called. Hosts construct one
// Index per file and share it; it is safe for concurrent use.
//
//	idx, err := searcher.New("data/corpus_index.jsonl")
//	if err != nil {
//	    return err
//	}
//	if !idx.Available() {
//	    // no index built yet
//	}
//	results, err := idx.Search(queryVector, 3)
//
// Scores are cosine similarities. Results are ordered by descending score;
// equal scores keep index file order.
//
// [Grounder] pairs an Index with an embedder for text queries and never
// fails: any error is logged and yields no results.
package searcher
