package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"image-indexer/internal/metadata"
)

// fakeElastic is a minimal in-memory stand-in for an Elasticsearch node,
// covering just the API surface the searcher uses.
type fakeElastic struct {
	mu      sync.Mutex
	created bool
	docs    map[string]metadata.ImageMetadata
}

func newFakeElastic() *fakeElastic {
	return &fakeElastic{docs: make(map[string]metadata.ImageMetadata)}
}

func (f *fakeElastic) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The v8 client verifies it is talking to a genuine cluster.
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")

		f.mu.Lock()
		defer f.mu.Unlock()

		path := strings.TrimPrefix(r.URL.Path, "/")
		parts := strings.Split(path, "/")

		switch {
		case r.Method == http.MethodHead && path == elasticIndexName:
			if f.created {
				w.WriteHeader(http.StatusOK)
			} else {
				w.WriteHeader(http.StatusNotFound)
			}

		case r.Method == http.MethodPut && path == elasticIndexName:
			f.created = true
			fmt.Fprint(w, `{"acknowledged":true}`)

		case len(parts) == 3 && parts[1] == "_source":
			meta, ok := f.docs[parts[2]]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				fmt.Fprint(w, `{"found":false}`)
				return
			}
			json.NewEncoder(w).Encode(meta)

		case len(parts) == 3 && parts[1] == "_doc" && r.Method == http.MethodPut:
			var meta metadata.ImageMetadata
			if err := json.NewDecoder(r.Body).Decode(&meta); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			f.docs[parts[2]] = meta
			w.WriteHeader(http.StatusCreated)
			fmt.Fprint(w, `{"result":"created"}`)

		case len(parts) == 3 && parts[1] == "_doc" && r.Method == http.MethodDelete:
			if _, ok := f.docs[parts[2]]; !ok {
				w.WriteHeader(http.StatusNotFound)
				fmt.Fprint(w, `{"result":"not_found"}`)
				return
			}
			delete(f.docs, parts[2])
			fmt.Fprint(w, `{"result":"deleted"}`)

		case len(parts) == 2 && parts[1] == "_count":
			fmt.Fprintf(w, `{"count":%d}`, len(f.docs))

		case len(parts) == 2 && parts[1] == "_search":
			f.search(w, r)

		default:
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprintf(w, `{"error":"unhandled route %s %s"}`, r.Method, r.URL.Path)
		}
	})
}

// search implements just enough of the query DSL: match_all returns all
// documents, multi_match matches documents containing the query string in
// any serialized field.
func (f *fakeElastic) search(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Query struct {
			MatchAll   *struct{} `json:"match_all"`
			MultiMatch *struct {
				Query string `json:"query"`
			} `json:"multi_match"`
		} `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	type hit struct {
		ID     string                 `json:"_id"`
		Source metadata.ImageMetadata `json:"_source"`
	}
	var hits []hit
	for id, meta := range f.docs {
		if body.Query.MultiMatch != nil {
			raw, _ := json.Marshal(meta)
			if !strings.Contains(string(raw), body.Query.MultiMatch.Query) {
				continue
			}
		}
		hits = append(hits, hit{ID: id, Source: meta})
	}

	resp := map[string]interface{}{
		"hits": map[string]interface{}{"hits": hits},
	}
	json.NewEncoder(w).Encode(resp)
}

func newElasticTestSearcher(t *testing.T) (*ElasticsearchSearcher, *fakeElastic) {
	t.Helper()

	fake := newFakeElastic()
	server := httptest.NewServer(fake.handler())
	t.Cleanup(server.Close)

	s, err := NewElasticsearchSearcher(server.URL)
	if err != nil {
		t.Fatalf("NewElasticsearchSearcher() error = %v", err)
	}
	return s, fake
}

func TestElasticEnsureIndexExists(t *testing.T) {
	s, fake := newElasticTestSearcher(t)
	ctx := context.Background()

	if err := s.EnsureIndexExists(ctx); err != nil {
		t.Fatalf("EnsureIndexExists() error = %v", err)
	}
	if !fake.created {
		t.Fatal("index not created")
	}

	// Second call is a safe no-op.
	if err := s.EnsureIndexExists(ctx); err != nil {
		t.Fatalf("EnsureIndexExists() second call error = %v", err)
	}
}

func TestElasticMergeInsert(t *testing.T) {
	s, fake := newElasticTestSearcher(t)
	ctx := context.Background()

	if err := s.IndexMetadata(ctx, testMeta("h", "/photos/a.jpg")); err != nil {
		t.Fatalf("IndexMetadata() error = %v", err)
	}
	if err := s.IndexMetadata(ctx, testMeta("h", "/photos/b.jpg")); err != nil {
		t.Fatalf("IndexMetadata() merge error = %v", err)
	}
	// Idempotent for a known path.
	if err := s.IndexMetadata(ctx, testMeta("h", "/photos/b.jpg")); err != nil {
		t.Fatal(err)
	}

	if len(fake.docs) != 1 {
		t.Fatalf("store has %d documents, want 1", len(fake.docs))
	}
	doc := fake.docs["h"]
	if doc.FilePath != "/photos/a.jpg" {
		t.Errorf("FilePath = %q, want first-seen path", doc.FilePath)
	}
	if len(doc.DuplicatePaths) != 1 || doc.DuplicatePaths[0] != "/photos/b.jpg" {
		t.Errorf("DuplicatePaths = %v, want [/photos/b.jpg]", doc.DuplicatePaths)
	}

	count, err := s.CountImages(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("CountImages() = %d, want 1", count)
	}
}

func TestElasticSearchImages(t *testing.T) {
	s, _ := newElasticTestSearcher(t)
	ctx := context.Background()

	a := testMeta("ha", "/photos/beach.jpg")
	b := testMeta("hb", "/photos/mountain.jpg")
	b.CameraMake = "Sony"
	for _, m := range []metadata.ImageMetadata{a, b} {
		if err := s.IndexMetadata(ctx, m); err != nil {
			t.Fatal(err)
		}
	}

	all, err := s.SearchImages(ctx, "")
	if err != nil {
		t.Fatalf("SearchImages(\"\") error = %v", err)
	}
	if len(all) != 2 {
		t.Errorf("SearchImages(\"\") returned %d results, want 2", len(all))
	}

	sony, err := s.SearchImages(ctx, "Sony")
	if err != nil {
		t.Fatal(err)
	}
	if len(sony) != 1 || sony[0].FileHash != "hb" {
		t.Errorf("SearchImages(Sony) = %v, want the Sony record", sony)
	}
}

func TestElasticDelete(t *testing.T) {
	s, fake := newElasticTestSearcher(t)
	ctx := context.Background()

	if err := s.IndexMetadata(ctx, testMeta("h", "/photos/a.jpg")); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteDocument(ctx, "h"); err != nil {
		t.Fatalf("DeleteDocument() error = %v", err)
	}
	if len(fake.docs) != 0 {
		t.Errorf("store has %d documents after delete, want 0", len(fake.docs))
	}

	// Deleting a missing hash is not an error.
	if err := s.DeleteDocument(ctx, "missing"); err != nil {
		t.Errorf("DeleteDocument(missing) error = %v, want nil", err)
	}
}

func TestElasticUpdateDocument(t *testing.T) {
	s, fake := newElasticTestSearcher(t)
	ctx := context.Background()

	if err := s.IndexMetadata(ctx, testMeta("h", "/photos/a.jpg")); err != nil {
		t.Fatal(err)
	}
	if err := s.IndexMetadata(ctx, testMeta("h", "/photos/b.jpg")); err != nil {
		t.Fatal(err)
	}

	updated := fake.docs["h"]
	updated.DuplicatePaths = []string{}
	if err := s.UpdateDocument(ctx, updated); err != nil {
		t.Fatalf("UpdateDocument() error = %v", err)
	}
	if got := fake.docs["h"]; len(got.DuplicatePaths) != 0 {
		t.Errorf("DuplicatePaths = %v after update, want empty", got.DuplicatePaths)
	}
}

func TestElasticKnownHashes(t *testing.T) {
	s, _ := newElasticTestSearcher(t)
	ctx := context.Background()

	for _, hash := range []string{"h1", "h2"} {
		if err := s.IndexMetadata(ctx, testMeta(hash, "/photos/"+hash+".jpg")); err != nil {
			t.Fatal(err)
		}
	}

	hashes, err := s.KnownHashes(ctx)
	if err != nil {
		t.Fatalf("KnownHashes() error = %v", err)
	}
	if len(hashes) != 2 {
		t.Fatalf("KnownHashes() returned %d hashes, want 2", len(hashes))
	}
}
