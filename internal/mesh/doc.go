// Package mesh provides the in-memory transport connecting processes.
//
// Each directed channel is an ordered, reliable, non-duplicating FIFO
// link: frames are delivered to the receiving process's inbox in the
// exact order they were sent on that channel. No ordering is
// guaranteed across different channels.
//
// The snapshot protocol consumes this abstraction and does not
// implement network IO itself; the FIFO and reliability guarantees
// are the precondition the marker-based cut argument rests on.
package mesh
