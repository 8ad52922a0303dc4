// Package main provides the entry point for snapmesh-server.
//
// The server hosts an in-process mesh of token-passing processes and
// lets operators capture consistent global snapshots of it:
//
//   - HTTP/HTTPS admin API for triggering and inspecting snapshots
//   - a background workload simulator exercising the mesh
//   - file and SQLite sinks persisting completed snapshots
//   - Prometheus metrics on /metrics
//
// Usage:
//
//	snapmesh-server [flags]
//	snapmesh-server --config /path/to/config.yaml
//
// The server loads configuration, builds the mesh from the configured
// topology, and starts the admin listener.
package main
