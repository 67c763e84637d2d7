package search

import (
	"context"
	"time"

	"image-indexer/internal/metadata"
	"image-indexer/internal/metrics"
)

// MaxResults caps the number of records a single search returns. The
// result set feeds an interactive UI; callers wanting more must narrow
// the query.
const MaxResults = 100

// Searcher is the capability contract of a document-store backend.
//
// Reads (SearchImages, CountImages, KnownHashes) are safe to call
// concurrently with each other and with a write in progress; readers may
// observe partial index state while an indexing job runs. Writes
// (IndexMetadata, DeleteDocument, UpdateDocument) must not overlap for a
// given store instance: the indexing pipeline serializes its own writes
// by draining records sequentially, and each backend additionally holds
// at most one live writer. External writers racing a running job get
// last-writer-wins semantics.
type Searcher interface {
	// EnsureIndexExists creates the underlying schema/index if absent.
	// It is idempotent and must be called once before any write.
	EnsureIndexExists(ctx context.Context) error

	// IndexMetadata merge-inserts a record: if no document exists for
	// the record's hash the record is stored verbatim; otherwise the
	// record's path is folded into the existing document's duplicate
	// list (first-seen metadata wins) and all other incoming fields are
	// discarded. Indexing the same (hash, path) pair twice leaves the
	// document unchanged.
	IndexMetadata(ctx context.Context, meta metadata.ImageMetadata) error

	// SearchImages returns records matching the query string against the
	// text-bearing fields. An empty query matches everything. Results
	// are capped at MaxResults; ordering is backend-default relevance.
	SearchImages(ctx context.Context, query string) ([]metadata.ImageMetadata, error)

	// CountImages returns the total number of stored documents.
	CountImages(ctx context.Context) (uint64, error)

	// DeleteDocument removes the document keyed by hash. Deleting a
	// non-existent hash is not an error.
	DeleteDocument(ctx context.Context, hash string) error

	// UpdateDocument replaces the document for meta.FileHash with the
	// given value. Backends without atomic replacement implement this as
	// delete-then-reinsert; callers must tolerate a brief window where
	// the record is absent from reads.
	UpdateDocument(ctx context.Context, meta metadata.ImageMetadata) error

	// KnownHashes returns the set of content hashes currently indexed.
	// Used to skip already-indexed content on an incremental rescan.
	KnownHashes(ctx context.Context) (map[string]struct{}, error)
}

// observe records backend operation metrics. Meant to be deferred:
//
//	defer func() { observe("search", start, err) }()
func observe(operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.SearchQueriesTotal.WithLabelValues(operation, status).Inc()
	metrics.SearchQueryDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
