// Package metrics defines the Prometheus collectors exported by the
// image indexer. All collectors are registered at package load via
// promauto and served on the /metrics endpoint.
package metrics
