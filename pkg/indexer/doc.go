// Package indexer builds the on-disk corpus index.
//
// A build discovers text files, normalizes and chunks them into word
// windows, embeds the chunks in fixed-size batches and writes one JSONL
// record per chunk followed by a manifest:
//
//	sources ──► scanner ──► chunk ──► embed (batches) ──► index.jsonl
//	                                                  └─► manifest.json
//
// The index is written to a temporary file and renamed into place only after
// every batch has been embedded, so a failed build leaves the previous index
// and manifest untouched. The manifest is written after the index.
//
// # Usage
//
//	ix, err := indexer.New(indexer.WithEmbedder(embedder))
//	if err != nil {
//	    return err
//	}
//	res, err := ix.Build(ctx, indexer.OptionsFromConfig(cfg))
//	if err != nil {
//	    return err
//	}
//	fmt.Printf("Indexed %d chunks from %d files.\n", res.TotalChunks, res.Files)
//
// Builds of the same index path are serialized across processes with a
// lock file beside the index; a second concurrent build fails fast.
package indexer
