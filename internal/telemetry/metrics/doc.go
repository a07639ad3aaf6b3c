// Package metrics exposes the engine's and server's Prometheus metrics:
// stale-byte pressure, compaction activity, request outcomes by op, and
// thread pool queue depth.
package metrics
