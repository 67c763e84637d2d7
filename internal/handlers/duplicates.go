package handlers

import (
	"encoding/json"
	"net/http"
	"os"

	"image-indexer/internal/logging"

	"github.com/gorilla/mux"
)

// Duplicate deletion modes.
const (
	deleteModeAll     = "all"
	deleteModeKeepOne = "keep-one"
)

// DeleteDuplicatesRequest is the body of DELETE /api/images/{hash}/duplicates.
type DeleteDuplicatesRequest struct {
	Mode string `json:"mode"`
}

// DeleteDuplicatesResponse lists the files removed from disk.
type DeleteDuplicatesResponse struct {
	Deleted []string `json:"deleted"`
}

// DeleteDuplicates handles DELETE /api/images/{hash}/duplicates.
//
// Mode "all" removes the primary file and every duplicate from disk and
// deletes the document. Mode "keep-one" removes only the duplicate
// files, keeps the primary, and clears the document's duplicate list.
// File removal is best-effort: failures are logged and the operation
// continues, so the response lists only the paths actually removed.
func (h *Handlers) DeleteDuplicates(w http.ResponseWriter, r *http.Request) {
	hash := normalizeHash(mux.Vars(r)["hash"])
	if !validHash(hash) {
		writeJSONError(w, "image not found", http.StatusNotFound)
		return
	}

	var req DeleteDuplicatesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Mode != deleteModeAll && req.Mode != deleteModeKeepOne {
		writeJSONError(w, "invalid mode: expected \"all\" or \"keep-one\"", http.StatusBadRequest)
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

	var targets []string
	switch req.Mode {
	case deleteModeAll:
		targets = doc.AllPaths()
	case deleteModeKeepOne:
		targets = doc.DuplicatePaths
	}

	deleted := make([]string, 0, len(targets))
	for _, path := range targets {
		if err := os.Remove(path); err != nil {
			logging.Warn("failed to remove %s: %v", path, err)
			continue
		}
		deleted = append(deleted, path)
	}

	switch req.Mode {
	case deleteModeAll:
		if err := h.searcher.DeleteDocument(r.Context(), hash); err != nil {
			logging.Error("failed to delete document %s: %v", hash, err)
			writeJSONError(w, "failed to delete document", http.StatusInternalServerError)
			return
		}
		logging.Info("Deleted document %s and %d of %d files", hash, len(deleted), len(targets))
	case deleteModeKeepOne:
		doc.DuplicatePaths = nil
		if err := h.searcher.UpdateDocument(r.Context(), *doc); err != nil {
			logging.Error("failed to update document %s: %v", hash, err)
			writeJSONError(w, "failed to update document", http.StatusInternalServerError)
			return
		}
		logging.Info("Cleared duplicates for %s, removed %d of %d files", hash, len(deleted), len(targets))
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, DeleteDuplicatesResponse{Deleted: deleted})
}
