package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"image-indexer/internal/handlers"
	"image-indexer/internal/indexer"
	"image-indexer/internal/logging"
	"image-indexer/internal/memory"
	"image-indexer/internal/middleware"
	"image-indexer/internal/search"
	"image-indexer/internal/startup"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	startTime := time.Now()

	// Configure the Go memory limit before allocations start
	memResult := memory.ConfigureFromEnv()

	// Load configuration
	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}
	startup.LogMemoryConfig(memResult)

	// Initialize the search backend
	searcherStart := time.Now()
	searcher, err := newSearcher(config)
	if err != nil {
		startup.LogFatal("Failed to initialize search backend: %v", err)
	}
	defer closeSearcher(searcher)
	startup.LogSearcherInit(config.SearchEngine, time.Since(searcherStart))

	// Initialize indexer
	startup.LogIndexerInit(config.Workers, config.Incremental)
	idx := indexer.New(searcher, indexer.Config{
		ScanDir:           config.ScanDir,
		ThumbnailDir:      config.ThumbnailDir,
		AllowedExtensions: config.AllowedExts,
		NumWorkers:        config.Workers,
		Incremental:       config.Incremental,
	})

	// Start first indexing run in background (non-blocking)
	go func() {
		if err := idx.Run(context.Background()); err != nil {
			logging.Error("Initial indexing run failed: %v", err)
		}
	}()
	startup.LogIndexerStarted()

	// Initialize handlers
	h := handlers.New(searcher, idx, config)

	// Setup router
	router := setupRouter(h, config)

	// Log routes dynamically
	startup.LogHTTPRoutes(router, config.LogHealthChecks)

	// Apply logging middleware
	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	loggedHandler := middleware.Logger(loggingConfig)(router)

	// Apply metrics middleware
	handler := middleware.Metrics(middleware.DefaultMetricsConfig())(loggedHandler)

	// Create server
	srv := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	// Start graceful shutdown handler
	go handleShutdown(srv, idx, searcher)

	// Start server
	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		startup.LogFatal("Server error: %v", err)
	}
}

// newSearcher selects the backend once at startup; the rest of the
// process only sees the Searcher interface.
func newSearcher(config *startup.Config) (search.Searcher, error) {
	switch config.SearchEngine {
	case startup.EngineElasticsearch:
		return search.NewElasticsearchSearcher(config.ElasticsearchURL)
	default:
		return search.NewBleveSearcher(config.IndexDir)
	}
}

// closeSearcher releases backend resources for implementations that
// hold any (the embedded engine's index lock).
func closeSearcher(s search.Searcher) {
	if closer, ok := s.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			logging.Warn("Error closing search backend: %v", err)
		}
	}
}

func setupRouter(h *handlers.Handlers, config *startup.Config) *mux.Router {
	r := mux.NewRouter()

	// Health check and version routes
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	// API routes
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/images", h.SearchImages).Methods("GET")
	api.HandleFunc("/images/{hash}", h.GetImage).Methods("GET")
	api.HandleFunc("/images/{hash}/duplicates", h.DeleteDuplicates).Methods("DELETE")
	api.HandleFunc("/thumbnails/{hash}", h.GetThumbnail).Methods("GET")
	api.HandleFunc("/status", h.GetStatus).Methods("GET")
	api.HandleFunc("/reindex", h.TriggerReindex).Methods("POST")

	// Prometheus metrics
	if config.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	}

	// Static files
	r.PathPrefix("/").Handler(http.FileServer(http.Dir("./static")))

	return r
}

func handleShutdown(srv *http.Server, idx *indexer.Indexer, searcher search.Searcher) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	// The server no longer accepts re-index requests; stop any job
	// still draining before the backend goes away.
	startup.LogShutdownStep("Stopping indexer")
	idx.Stop()
	startup.LogShutdownStepComplete("Indexer stopped")

	startup.LogShutdownStep("Closing search backend")
	closeSearcher(searcher)
	startup.LogShutdownStepComplete("Search backend closed")

	startup.LogShutdownComplete()
}
