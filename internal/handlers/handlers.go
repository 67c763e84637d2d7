package handlers

import (
	"context"
	"strings"

	"image-indexer/internal/indexer"
	"image-indexer/internal/metadata"
	"image-indexer/internal/search"
	"image-indexer/internal/startup"
)

type Handlers struct {
	searcher     search.Searcher
	indexer      *indexer.Indexer
	thumbnailDir string
}

func New(searcher search.Searcher, idx *indexer.Indexer, config *startup.Config) *Handlers {
	return &Handlers{
		searcher:     searcher,
		indexer:      idx,
		thumbnailDir: config.ThumbnailDir,
	}
}

// getByHash resolves a document by its exact content hash. The hash
// fields are keyword-indexed, so a full-hash query matches the exact
// document; the filter guards against partial full-text hits.
func (h *Handlers) getByHash(ctx context.Context, hash string) (*metadata.ImageMetadata, error) {
	results, err := h.searcher.SearchImages(ctx, hash)
	if err != nil {
		return nil, err
	}
	for i := range results {
		if results[i].FileHash == hash {
			return &results[i], nil
		}
	}
	return nil, nil
}

// validHash rejects path parameters that cannot be a hex content hash,
// which also keeps traversal sequences out of filesystem lookups.
func validHash(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		default:
			return false
		}
	}
	return true
}

func normalizeHash(s string) string {
	return strings.ToLower(s)
}
