// Package search defines the document-store abstraction the indexing
// pipeline and the HTTP handlers write to and read from, together with
// its two interchangeable backends: an embedded bleve index and a remote
// Elasticsearch cluster.
//
// Both backends implement the same merge-insert protocol: at most one
// stored document exists per content hash, and re-indexing a path that a
// document already knows about is a no-op.
package search
