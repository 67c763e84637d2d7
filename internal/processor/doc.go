// Package processor turns candidate file paths into metadata records.
//
// A bounded pool of workers consumes paths in parallel. For each path the
// processor computes a streaming content hash, extracts best-effort EXIF
// metadata, determines pixel dimensions, and writes a thumbnail named by
// the content hash. Failures are local to the item: a file that cannot be
// read or decoded is logged and skipped, and processing of other items
// continues.
package processor
