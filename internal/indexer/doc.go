// Package indexer coordinates the indexing pipeline: a directory walker
// feeding a parallel processing pool feeding a strictly sequential drain
// into the search backend.
//
// The sequential drain is what satisfies the backend's single-writer
// requirement; no additional locking is needed for the pipeline's own
// writes. Web-layer writes issued while a job is running are outside the
// pipeline's control and get last-writer-wins semantics.
package indexer
