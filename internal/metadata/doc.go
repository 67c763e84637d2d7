// Package metadata defines the document model shared by the processing
// pipeline, the search backends, and the HTTP handlers.
package metadata
