// Package domain defines the core domain models for SnapMesh.
//
// Domain models are pure value objects and entities without any
// IO dependencies or framework coupling. This package contains:
//
//   - ProcessID / ChannelID: mesh addressing for processes and
//     directed FIFO channels between them
//   - Frame: the wire unit carried by a channel (application
//     payload or snapshot marker)
//   - SessionID: identifier for one global snapshot attempt
//   - Contribution / GlobalSnapshot: per-process and assembled
//     snapshot results
//   - Errors: domain-specific error definitions
package domain
