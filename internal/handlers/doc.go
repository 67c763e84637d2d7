// Package handlers provides HTTP request handlers for the image indexer API.
//
// It includes handlers for:
//   - Free-text image search over indexed metadata
//   - Original image and thumbnail retrieval by content hash
//   - Duplicate file management (delete all, keep one)
//   - Index status and manual re-index triggering
//   - Health checks and version information
package handlers
