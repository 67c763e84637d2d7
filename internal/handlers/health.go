package handlers

import (
	"net/http"
	"runtime"

	"image-indexer/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusDegraded = "degraded"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	Uptime        string `json:"uptime"`
	Indexing      bool   `json:"indexing"`
	LastIndexed   string `json:"lastIndexed,omitempty"`
	LastError     string `json:"lastError,omitempty"`
	DocumentCount uint64 `json:"documentCount"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`
}

// HealthCheck returns the health status of the service
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := h.indexer.Status()

	response := HealthResponse{
		Status:       statusHealthy,
		Version:      startup.Version,
		Uptime:       status.Uptime,
		Indexing:     status.Indexing,
		LastIndexed:  status.LastIndexed,
		GoVersion:    runtime.Version(),
		NumCPU:       runtime.NumCPU(),
		NumGoroutine: runtime.NumGoroutine(),
	}

	if status.LastError != "" {
		response.Status = statusDegraded
		response.LastError = status.LastError
	}

	if count, err := h.searcher.CountImages(r.Context()); err == nil {
		response.DocumentCount = count
	} else {
		response.Status = statusDegraded
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, response)
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	// For HEAD requests, only send headers (no body)
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{
			"status": "alive",
		})
	}
}

// ReadinessCheck returns 200 only when the search backend is reachable
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if _, err := h.searcher.CountImages(r.Context()); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		writeJSON(w, map[string]string{
			"status": "not_ready",
		})
		return
	}
	w.WriteHeader(http.StatusOK)
	writeJSON(w, map[string]string{
		"status": "ready",
	})
}
