// Package startup handles application initialization, configuration loading,
// and startup/shutdown logging.
//
// This package centralizes all application configuration and provides consistent
// logging throughout the application lifecycle.
//
// # Configuration
//
// All configuration is loaded from environment variables via [LoadConfig].
// The following environment variables are supported:
//
//   - SCAN_DIR: Path to the image directory to index (default: /images)
//   - CACHE_DIR: Path to cache directory for the index and thumbnails (default: /cache)
//   - PORT: HTTP server port (default: 8080)
//   - SEARCH_ENGINE: Search backend, bleve or elasticsearch (default: bleve)
//   - ELASTICSEARCH_URL: Elasticsearch endpoint when SEARCH_ENGINE=elasticsearch
//     (default: http://localhost:9200)
//   - INDEX_DIR: Embedded index location (default: CACHE_DIR/index)
//   - THUMBNAIL_DIR: Thumbnail location (default: CACHE_DIR/thumbnails)
//   - ALLOWED_EXTENSIONS: Comma-separated image extensions to index
//     (default: built-in image extension list)
//   - WORKERS: Number of extraction workers, 0 for automatic sizing (default: 0)
//   - INCREMENTAL: Skip files whose content is already indexed (default: true)
//   - METRICS_ENABLED: Expose the Prometheus /metrics endpoint (default: true)
//   - LOG_LEVEL: Logging level - debug, info, warn, error (default: info)
//   - LOG_HEALTH_CHECKS: Log health check requests (default: false)
//
// # Directory Setup
//
// The package validates and creates required directories:
//   - Cache directory: Required, must be writable (index and thumbnails)
//   - Scan directory: Checked but not created (should be mounted)
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo]:
//   - Version: Application version
//   - Commit: Git commit hash
//   - BuildTime: Build timestamp
//   - GoVersion: Go compiler version
//
// # Lifecycle Logging
//
// The package provides structured logging functions for consistent output:
//   - [LogSearcherInit]: Search backend initialization timing
//   - [LogIndexerInit]: Indexer configuration
//   - [LogHTTPRoutes]: Registered HTTP routes (debug level)
//   - [LogServerStarted]: Server endpoints and startup duration
//   - [LogShutdownInitiated]: Graceful shutdown start
//   - [LogShutdownComplete]: Shutdown completion
package startup
