// Package middleware provides HTTP middleware for request logging and
// Prometheus metrics collection.
//
// The logging middleware emits W3C Extended Log Format lines with
// user-controlled fields sanitized against log injection. The metrics
// middleware records request counts and latencies with content hashes
// collapsed out of the path label to keep cardinality bounded.
package middleware
