package search

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"image-indexer/internal/logging"
	"image-indexer/internal/metadata"

	bleve "github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"
	bsearch "github.com/blevesearch/bleve/v2/search"
)

// BleveSearcher is the embedded document-store backend. The index lives
// in a local directory and requires exclusive single-writer access, which
// the searcher enforces with an internal write mutex.
type BleveSearcher struct {
	index bleve.Index

	// Serializes writes. Reads go through bleve's own snapshot
	// mechanism and do not take this lock.
	writeMu sync.Mutex

	closeOnce sync.Once
	closeErr  error
}

// NewBleveSearcher opens the index at indexPath, creating it with the
// image metadata mapping if it does not exist yet.
func NewBleveSearcher(indexPath string) (*BleveSearcher, error) {
	logging.Debug("Opening bleve index at %s", indexPath)

	idx, err := bleve.Open(indexPath)
	if err == bleve.ErrorIndexPathDoesNotExist {
		logging.Info("Bleve index not found at %s, creating new index", indexPath)
		idx, err = bleve.New(indexPath, buildIndexMapping())
	}
	if err != nil {
		return nil, fmt.Errorf("opening bleve index: %w", err)
	}

	return &BleveSearcher{index: idx}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	// Exact-match fields: the hash is the identity key and must never be
	// tokenized, and thumbnail paths are stored verbatim.
	keywordField := bleve.NewTextFieldMapping()
	keywordField.Analyzer = keyword.Name
	keywordField.Store = true

	textField := bleve.NewTextFieldMapping()
	textField.Store = true

	numericField := bleve.NewNumericFieldMapping()
	numericField.Store = true

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("file_hash", keywordField)
	doc.AddFieldMappingsAt("thumbnail_path", keywordField)
	doc.AddFieldMappingsAt("file_path", textField)
	doc.AddFieldMappingsAt("duplicate_paths", textField)
	doc.AddFieldMappingsAt("camera_make", textField)
	doc.AddFieldMappingsAt("camera_model", textField)
	doc.AddFieldMappingsAt("date_taken", textField)
	doc.AddFieldMappingsAt("width", numericField)
	doc.AddFieldMappingsAt("height", numericField)
	doc.AddFieldMappingsAt("gps_latitude", numericField)
	doc.AddFieldMappingsAt("gps_longitude", numericField)

	m := bleve.NewIndexMapping()
	m.DefaultMapping = doc
	return m
}

// Close releases the index. No writes may be in flight. Both the
// shutdown path and main's cleanup call this; repeat calls return the
// first result.
func (s *BleveSearcher) Close() error {
	s.closeOnce.Do(func() { s.closeErr = s.index.Close() })
	return s.closeErr
}

// EnsureIndexExists is a no-op: the index is created on open.
func (s *BleveSearcher) EnsureIndexExists(_ context.Context) error {
	return nil
}

// IndexMetadata implements the merge-insert protocol against the local
// index. The document ID is the content hash.
func (s *BleveSearcher) IndexMetadata(ctx context.Context, meta metadata.ImageMetadata) (err error) {
	start := time.Now()
	defer func() { observe("index", start, err) }()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	existing, err := s.getByHash(ctx, meta.FileHash)
	if err != nil {
		return fmt.Errorf("looking up hash %s: %w", meta.FileHash, err)
	}

	if existing == nil {
		logging.Debug("Indexing new document for %s (hash %s)", meta.FilePath, meta.FileHash)
		return s.indexDoc(meta)
	}

	if existing.HasPath(meta.FilePath) {
		// Re-index of a known path: nothing to do.
		logging.Debug("Path %s already known for hash %s", meta.FilePath, meta.FileHash)
		return nil
	}

	logging.Debug("Duplicate content found: appending %s to document %s", meta.FilePath, meta.FileHash)
	existing.DuplicatePaths = append(existing.DuplicatePaths, meta.FilePath)
	return s.indexDoc(*existing)
}

// SearchImages runs a query-string search across the stored fields. An
// empty query matches all documents.
func (s *BleveSearcher) SearchImages(ctx context.Context, queryStr string) (results []metadata.ImageMetadata, err error) {
	start := time.Now()
	defer func() { observe("search", start, err) }()

	var req *bleve.SearchRequest
	if queryStr == "" {
		req = bleve.NewSearchRequestOptions(bleve.NewMatchAllQuery(), MaxResults, 0, false)
	} else {
		req = bleve.NewSearchRequestOptions(bleve.NewQueryStringQuery(queryStr), MaxResults, 0, false)
	}
	req.Fields = []string{"*"}

	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("bleve search: %w", err)
	}

	results = make([]metadata.ImageMetadata, 0, len(res.Hits))
	for _, hit := range res.Hits {
		results = append(results, docFromHit(hit))
	}
	logging.Debug("Bleve search %q returned %d results", queryStr, len(results))
	return results, nil
}

// CountImages returns the number of stored documents.
func (s *BleveSearcher) CountImages(_ context.Context) (count uint64, err error) {
	start := time.Now()
	defer func() { observe("count", start, err) }()
	return s.index.DocCount()
}

// DeleteDocument removes the document keyed by hash. Bleve treats
// deleting an unknown ID as a no-op, matching the contract.
func (s *BleveSearcher) DeleteDocument(_ context.Context, hash string) (err error) {
	start := time.Now()
	defer func() { observe("delete", start, err) }()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.index.Delete(hash)
}

// UpdateDocument replaces the stored document for meta.FileHash. Bleve's
// Index call replaces an existing document atomically, so no deletion
// window is observable here.
func (s *BleveSearcher) UpdateDocument(_ context.Context, meta metadata.ImageMetadata) (err error) {
	start := time.Now()
	defer func() { observe("update", start, err) }()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.indexDoc(meta)
}

// KnownHashes pages through all document IDs. The document ID is the
// content hash, so no stored fields are needed.
func (s *BleveSearcher) KnownHashes(ctx context.Context) (map[string]struct{}, error) {
	const pageSize = 1000

	hashes := make(map[string]struct{})
	for from := 0; ; from += pageSize {
		req := bleve.NewSearchRequestOptions(bleve.NewMatchAllQuery(), pageSize, from, false)
		res, err := s.index.SearchInContext(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("listing hashes: %w", err)
		}
		for _, hit := range res.Hits {
			hashes[hit.ID] = struct{}{}
		}
		if len(res.Hits) < pageSize {
			return hashes, nil
		}
	}
}

// indexDoc stores a record under its hash. The struct is flattened to a
// map through its JSON form so indexed field names match the mapping.
func (s *BleveSearcher) indexDoc(meta metadata.ImageMetadata) error {
	raw, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encoding document: %w", err)
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("decoding document: %w", err)
	}
	if err := s.index.Index(meta.FileHash, doc); err != nil {
		return fmt.Errorf("indexing document %s: %w", meta.FileHash, err)
	}
	return nil
}

// getByHash fetches the document whose ID equals hash, or nil when none
// exists.
func (s *BleveSearcher) getByHash(ctx context.Context, hash string) (*metadata.ImageMetadata, error) {
	req := bleve.NewSearchRequestOptions(bleve.NewDocIDQuery([]string{hash}), 1, 0, false)
	req.Fields = []string{"*"}

	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(res.Hits) == 0 {
		return nil, nil
	}
	meta := docFromHit(res.Hits[0])
	return &meta, nil
}

// docFromHit reconstructs a metadata record from a hit's stored fields.
// Bleve returns numerics as float64 and collapses single-element arrays
// to their element.
func docFromHit(hit *bsearch.DocumentMatch) metadata.ImageMetadata {
	meta := metadata.ImageMetadata{
		FileHash:       hit.ID,
		FilePath:       fieldString(hit.Fields, "file_path"),
		Width:          int(fieldFloat(hit.Fields, "width")),
		Height:         int(fieldFloat(hit.Fields, "height")),
		CameraMake:     fieldString(hit.Fields, "camera_make"),
		CameraModel:    fieldString(hit.Fields, "camera_model"),
		DateTaken:      fieldString(hit.Fields, "date_taken"),
		ThumbnailPath:  fieldString(hit.Fields, "thumbnail_path"),
		DuplicatePaths: fieldStrings(hit.Fields, "duplicate_paths"),
	}
	if lat, ok := hit.Fields["gps_latitude"].(float64); ok {
		meta.GPSLatitude = &lat
	}
	if long, ok := hit.Fields["gps_longitude"].(float64); ok {
		meta.GPSLongitude = &long
	}
	return meta
}

func fieldString(fields map[string]interface{}, name string) string {
	s, _ := fields[name].(string)
	return s
}

func fieldFloat(fields map[string]interface{}, name string) float64 {
	f, _ := fields[name].(float64)
	return f
}

func fieldStrings(fields map[string]interface{}, name string) []string {
	switch v := fields[name].(type) {
	case string:
		return []string{v}
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return []string{}
	}
}
