// Package mediatypes maps image file extensions to MIME types and
// provides the default set of extensions the indexer scans for.
package mediatypes
