// Package main provides the entry point for snapmesh-cli.
//
// The CLI tool provides command-line access to snapmesh-server for:
//
//   - Triggering snapshot sessions (snapshot trigger --initiator a)
//   - Inspecting live sessions (snapshot status, snapshot list)
//   - Browsing the snapshot archive (archive list, archive show)
//   - Process and system inspection (process list, system health)
//
// Usage:
//
//	snapmesh-cli [command] [flags]
//	snapmesh-cli snapshot trigger --initiator a --wait
//	snapmesh-cli --output json snapshot list
package main
