// Package coordinator assembles global snapshots from per-process
// contributions.
//
// The coordinator is the central collector variant of completion
// detection: every process reports its contribution upon reaching
// DONE, and the coordinator counts reports against the known process
// set. When all processes have reported for a session, the union of
// their contributions is a consistent global snapshot and registered
// sinks are notified.
//
// Liveness is layered on, not built in: an optional watchdog marks a
// session failed after a timeout and discards its partial
// contributions, since a subset of DONE processes is not a consistent
// cut.
package coordinator
