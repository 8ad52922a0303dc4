// Package httpserver provides the admin HTTP server for SnapMesh.
//
// The API triggers snapshot sessions, inspects live and archived
// snapshots and exposes health and Prometheus metrics endpoints. It is
// built on net/http with the Go 1.22 pattern mux.
package httpserver
