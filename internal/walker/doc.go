// Package walker discovers candidate image files under a directory tree
// and feeds their paths to the processing stage.
package walker
