// Package node runs one process of the mesh as a single-goroutine
// actor. Inbound frames, locally initiated snapshots and outbound
// application sends all funnel through one event loop, so the local
// state capture and the marker broadcast that must follow it happen
// with no send interleaved between them.
package node
