// Package protocol implements the per-process snapshot state machine.
//
// Each Recorder tracks one (process, session) pair through the
// IDLE -> RECORDING -> DONE lifecycle:
//
//   - Begin captures the local state exactly once (spontaneous
//     initiation or first marker, whichever comes first)
//   - MarkerReceived closes the recording window for one incoming
//     channel; duplicates are idempotent
//   - MessageReceived appends in-transit messages to the open
//     channel logs
//
// The recorder only does bookkeeping. Emitting markers on outgoing
// channels and dispatching application messages is the caller's job,
// which keeps the protocol testable independent of any transport or
// application payload semantics.
//
// A recorder is not safe for concurrent use. The owning process actor
// drives it from a single goroutine, matching the sequential
// event-processing model the snapshot algorithm assumes.
package protocol
