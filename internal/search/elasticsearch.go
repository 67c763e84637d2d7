package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"image-indexer/internal/logging"
	"image-indexer/internal/metadata"

	elasticsearch "github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// elasticIndexName is the index holding image documents.
const elasticIndexName = "images"

// elasticMapping defines the document schema. The hash and paths are
// keywords (exact match); camera fields and dates are text-searchable;
// GPS coordinates are plain doubles.
const elasticMapping = `{
	"mappings": {
		"properties": {
			"file_path":       { "type": "text" },
			"file_hash":       { "type": "keyword" },
			"width":           { "type": "integer" },
			"height":          { "type": "integer" },
			"camera_make":     { "type": "text" },
			"camera_model":    { "type": "text" },
			"date_taken":      { "type": "text" },
			"gps_latitude":    { "type": "double" },
			"gps_longitude":   { "type": "double" },
			"thumbnail_path":  { "type": "keyword" },
			"duplicate_paths": { "type": "text" }
		}
	}
}`

// ElasticsearchSearcher is the remote document-store backend. Writes use
// refresh=true so a committed document is immediately visible to reads,
// keeping merge lookups and tests deterministic at the cost of indexing
// throughput.
type ElasticsearchSearcher struct {
	client *elasticsearch.Client
}

// NewElasticsearchSearcher creates a client for the cluster at url.
func NewElasticsearchSearcher(url string) (*ElasticsearchSearcher, error) {
	logging.Debug("Creating Elasticsearch client for %s", url)

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{url},
	})
	if err != nil {
		return nil, fmt.Errorf("creating elasticsearch client: %w", err)
	}
	return &ElasticsearchSearcher{client: client}, nil
}

// EnsureIndexExists creates the images index with its mapping when it is
// not present. Safe to call repeatedly.
func (s *ElasticsearchSearcher) EnsureIndexExists(ctx context.Context) error {
	res, err := s.client.Indices.Exists(
		[]string{elasticIndexName},
		s.client.Indices.Exists.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("checking index existence: %w", err)
	}
	exists := res.StatusCode == 200
	drain(res)

	if exists {
		logging.Debug("Elasticsearch index %q already exists", elasticIndexName)
		return nil
	}

	logging.Info("Creating Elasticsearch index %q", elasticIndexName)
	res, err = s.client.Indices.Create(
		elasticIndexName,
		s.client.Indices.Create.WithBody(bytes.NewReader([]byte(elasticMapping))),
		s.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("creating index: %w", err)
	}
	return checkResponse(res, "creating index")
}

// IndexMetadata implements the merge-insert protocol. The document ID is
// the content hash, so lookup is a direct source fetch.
func (s *ElasticsearchSearcher) IndexMetadata(ctx context.Context, meta metadata.ImageMetadata) (err error) {
	start := time.Now()
	defer func() { observe("index", start, err) }()

	existing, err := s.getByHash(ctx, meta.FileHash)
	if err != nil {
		return fmt.Errorf("looking up hash %s: %w", meta.FileHash, err)
	}

	if existing == nil {
		logging.Debug("Indexing new document for %s (hash %s)", meta.FilePath, meta.FileHash)
		return s.indexDoc(ctx, meta)
	}

	if existing.HasPath(meta.FilePath) {
		logging.Debug("Path %s already known for hash %s", meta.FilePath, meta.FileHash)
		return nil
	}

	logging.Debug("Duplicate content found: appending %s to document %s", meta.FilePath, meta.FileHash)
	existing.DuplicatePaths = append(existing.DuplicatePaths, meta.FilePath)
	return s.indexDoc(ctx, *existing)
}

// SearchImages queries the text-bearing fields, or matches everything on
// an empty query. Results are capped at MaxResults.
func (s *ElasticsearchSearcher) SearchImages(ctx context.Context, query string) (results []metadata.ImageMetadata, err error) {
	start := time.Now()
	defer func() { observe("search", start, err) }()

	var body map[string]interface{}
	if query == "" {
		body = map[string]interface{}{
			"query": map[string]interface{}{"match_all": map[string]interface{}{}},
			"size":  MaxResults,
		}
	} else {
		body = map[string]interface{}{
			"query": map[string]interface{}{
				"multi_match": map[string]interface{}{
					"query": query,
					"fields": []string{
						"file_path", "file_hash", "camera_make",
						"camera_model", "date_taken", "duplicate_paths",
					},
				},
			},
			"size": MaxResults,
		}
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding search body: %w", err)
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(elasticIndexName),
		s.client.Search.WithBody(bytes.NewReader(raw)),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search: %w", err)
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source metadata.ImageMetadata `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := decodeResponse(res, &parsed, "search"); err != nil {
		return nil, err
	}

	results = make([]metadata.ImageMetadata, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		meta := hit.Source
		if meta.DuplicatePaths == nil {
			meta.DuplicatePaths = []string{}
		}
		results = append(results, meta)
	}
	logging.Debug("Elasticsearch search %q returned %d results", query, len(results))
	return results, nil
}

// CountImages returns the total document count in the images index.
func (s *ElasticsearchSearcher) CountImages(ctx context.Context) (count uint64, err error) {
	start := time.Now()
	defer func() { observe("count", start, err) }()

	res, err := s.client.Count(
		s.client.Count.WithContext(ctx),
		s.client.Count.WithIndex(elasticIndexName),
	)
	if err != nil {
		return 0, fmt.Errorf("elasticsearch count: %w", err)
	}

	var parsed struct {
		Count uint64 `json:"count"`
	}
	if err := decodeResponse(res, &parsed, "count"); err != nil {
		return 0, err
	}
	return parsed.Count, nil
}

// DeleteDocument removes the document keyed by hash; a 404 from the
// cluster is treated as success.
func (s *ElasticsearchSearcher) DeleteDocument(ctx context.Context, hash string) (err error) {
	start := time.Now()
	defer func() { observe("delete", start, err) }()

	res, err := s.client.Delete(
		elasticIndexName,
		hash,
		s.client.Delete.WithContext(ctx),
		s.client.Delete.WithRefresh("true"),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch delete: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != 404 {
		return responseError(res, "deleting document")
	}
	io.Copy(io.Discard, res.Body)
	return nil
}

// UpdateDocument replaces the document for meta.FileHash. Indexing with
// an existing ID is a full-document replacement, so no deletion window
// is observable.
func (s *ElasticsearchSearcher) UpdateDocument(ctx context.Context, meta metadata.ImageMetadata) (err error) {
	start := time.Now()
	defer func() { observe("update", start, err) }()
	return s.indexDoc(ctx, meta)
}

// KnownHashes pages through document IDs without fetching sources. The
// from/size window is limited to 10000 documents by the cluster default;
// incremental rescans of larger stores fall back to re-hashing, which is
// correct but slower.
func (s *ElasticsearchSearcher) KnownHashes(ctx context.Context) (map[string]struct{}, error) {
	const pageSize = 1000

	hashes := make(map[string]struct{})
	for from := 0; ; from += pageSize {
		body := fmt.Sprintf(`{"query":{"match_all":{}},"_source":false,"from":%d,"size":%d}`, from, pageSize)
		res, err := s.client.Search(
			s.client.Search.WithContext(ctx),
			s.client.Search.WithIndex(elasticIndexName),
			s.client.Search.WithBody(bytes.NewReader([]byte(body))),
		)
		if err != nil {
			return nil, fmt.Errorf("listing hashes: %w", err)
		}

		var parsed struct {
			Hits struct {
				Hits []struct {
					ID string `json:"_id"`
				} `json:"hits"`
			} `json:"hits"`
		}
		if err := decodeResponse(res, &parsed, "listing hashes"); err != nil {
			return nil, err
		}
		for _, hit := range parsed.Hits.Hits {
			hashes[hit.ID] = struct{}{}
		}
		if len(parsed.Hits.Hits) < pageSize {
			return hashes, nil
		}
	}
}

// getByHash fetches a document's source by ID, or nil when absent.
func (s *ElasticsearchSearcher) getByHash(ctx context.Context, hash string) (*metadata.ImageMetadata, error) {
	res, err := s.client.GetSource(
		elasticIndexName,
		hash,
		s.client.GetSource.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch get: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == 404 {
		io.Copy(io.Discard, res.Body)
		return nil, nil
	}
	if res.IsError() {
		return nil, responseError(res, "fetching document")
	}

	var meta metadata.ImageMetadata
	if err := json.NewDecoder(res.Body).Decode(&meta); err != nil {
		return nil, fmt.Errorf("decoding document: %w", err)
	}
	if meta.DuplicatePaths == nil {
		meta.DuplicatePaths = []string{}
	}
	return &meta, nil
}

// indexDoc stores a record under its hash with an immediate refresh.
func (s *ElasticsearchSearcher) indexDoc(ctx context.Context, meta metadata.ImageMetadata) error {
	raw, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encoding document: %w", err)
	}

	res, err := s.client.Index(
		elasticIndexName,
		bytes.NewReader(raw),
		s.client.Index.WithDocumentID(meta.FileHash),
		s.client.Index.WithContext(ctx),
		s.client.Index.WithRefresh("true"),
	)
	if err != nil {
		return fmt.Errorf("indexing document %s: %w", meta.FileHash, err)
	}
	return checkResponse(res, "indexing document")
}

// decodeResponse parses a JSON response body, converting error statuses
// into errors. The body is always closed.
func decodeResponse(res *esapi.Response, out interface{}, action string) error {
	defer res.Body.Close()
	if res.IsError() {
		return responseError(res, action)
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decoding response: %w", action, err)
	}
	return nil
}

// checkResponse discards the body and converts error statuses to errors.
func checkResponse(res *esapi.Response, action string) error {
	defer res.Body.Close()
	if res.IsError() {
		return responseError(res, action)
	}
	io.Copy(io.Discard, res.Body)
	return nil
}

func responseError(res *esapi.Response, action string) error {
	body, _ := io.ReadAll(res.Body)
	return fmt.Errorf("%s: %s: %s", action, res.Status(), bytes.TrimSpace(body))
}

// drain closes a response after discarding its body, for calls where
// only the status matters.
func drain(res *esapi.Response) {
	io.Copy(io.Discard, res.Body)
	res.Body.Close()
}
