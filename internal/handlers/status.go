package handlers

import (
	"net/http"

	"image-indexer/internal/indexer"
	"image-indexer/internal/logging"
)

// StatusResponse combines the store's document count with the state of
// the indexing job.
type StatusResponse struct {
	DocumentCount uint64         `json:"document_count"`
	Indexer       indexer.Status `json:"indexer"`
}

// GetStatus handles GET /api/status.
func (h *Handlers) GetStatus(w http.ResponseWriter, r *http.Request) {
	count, err := h.searcher.CountImages(r.Context())
	if err != nil {
		logging.Error("count failed: %v", err)
		writeJSONError(w, "count failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, StatusResponse{
		DocumentCount: count,
		Indexer:       h.indexer.Status(),
	})
}

// TriggerReindex handles POST /api/reindex: starts a background
// indexing run unless one is already in progress.
func (h *Handlers) TriggerReindex(w http.ResponseWriter, _ *http.Request) {
	if h.indexer.IsIndexing() {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		writeJSON(w, map[string]string{"status": "indexing already in progress"})
		return
	}

	h.indexer.Trigger()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	writeJSON(w, map[string]string{"status": "reindex started"})
}
