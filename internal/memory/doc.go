// Package memory configures Go's soft memory limit from container
// environment variables so the runtime stays within Kubernetes memory
// limits instead of being OOM-killed during large indexing runs.
package memory
