package handlers

import (
	"net/http"
	"os"
	"time"

	"image-indexer/internal/logging"
	"image-indexer/internal/mediatypes"
	"image-indexer/internal/metadata"

	"github.com/gorilla/mux"
)

// SearchResponse is the payload for image search requests.
type SearchResponse struct {
	Images []metadata.ImageMetadata `json:"images"`
	Count  int                      `json:"count"`
	Query  string                   `json:"query"`
}

// SearchImages handles GET /api/images?q=. An empty query returns all
// documents up to the backend result cap.
func (h *Handlers) SearchImages(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	results, err := h.searcher.SearchImages(r.Context(), query)
	if err != nil {
		logging.Error("search failed for query %q: %v", query, err)
		writeJSONError(w, "search failed", http.StatusInternalServerError)
		return
	}

	if results == nil {
		results = []metadata.ImageMetadata{}
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, SearchResponse{
		Images: results,
		Count:  len(results),
		Query:  query,
	})
}

// GetImage handles GET /api/images/{hash}: the original file bytes of
// the record's primary path, with the MIME type inferred from the
// file extension.
func (h *Handlers) GetImage(w http.ResponseWriter, r *http.Request) {
	hash := normalizeHash(mux.Vars(r)["hash"])
	if !validHash(hash) {
		writeJSONError(w, "image not found", http.StatusNotFound)
		return
	}

	doc, err := h.getByHash(r.Context(), hash)
	if err != nil {
		logging.Error("lookup failed for hash %s: %v", hash, err)
		writeJSONError(w, "lookup failed", http.StatusInternalServerError)
		return
	}
	if doc == nil {
		writeJSONError(w, "image not found", http.StatusNotFound)
		return
	}

	f, err := os.Open(doc.FilePath)
	if err != nil {
		// The record can outlive the file on disk.
		logging.Warn("original missing for hash %s at %s: %v", hash, doc.FilePath, err)
		writeJSONError(w, "original file not found", http.StatusNotFound)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", mediatypes.GetMimeType(doc.FilePath))
	http.ServeContent(w, r, doc.FilePath, modTime(f), f)
}

// GetThumbnail handles GET /api/thumbnails/{hash}: the hash-derived
// thumbnail file, always JPEG.
func (h *Handlers) GetThumbnail(w http.ResponseWriter, r *http.Request) {
	hash := normalizeHash(mux.Vars(r)["hash"])
	if !validHash(hash) {
		writeJSONError(w, "thumbnail not found", http.StatusNotFound)
		return
	}

	path := metadata.ThumbnailPath(h.thumbnailDir, hash)
	f, err := os.Open(path)
	if err != nil {
		writeJSONError(w, "thumbnail not found", http.StatusNotFound)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	http.ServeContent(w, r, path, modTime(f), f)
}

func modTime(f *os.File) time.Time {
	if info, err := f.Stat(); err == nil {
		return info.ModTime()
	}
	return time.Time{}
}
