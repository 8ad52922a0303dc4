package domain

import "time"

// SnapshotStatus is the lifecycle status of a snapshot session.
type SnapshotStatus string

const (
	// SnapshotPending means not all processes have reported yet.
	SnapshotPending SnapshotStatus = "pending"

	// SnapshotComplete means every process reported its contribution.
	SnapshotComplete SnapshotStatus = "complete"

	// SnapshotFailed means the session was abandoned (e.g. watchdog
	// timeout) and partial contributions were discarded.
	SnapshotFailed SnapshotStatus = "failed"
)

// Contribution is one process's finalized share of a snapshot session:
// its recorded local state plus the in-transit messages captured on
// each incoming channel between the local capture point and that
// channel's marker arrival.
type Contribution struct {
	ProcessID  ProcessID `json:"process_id"`
	SessionID  SessionID `json:"session_id"`
	LocalState []byte    `json:"local_state"`

	// ChannelLogs maps each incoming channel to the ordered list of
	// application messages recorded on it. The channel on which the
	// first marker arrived has an empty log by construction.
	ChannelLogs map[ChannelID][]Message `json:"channel_logs"`

	// RecordedAt is the local-state capture timestamp (Unix milliseconds).
	RecordedAt int64 `json:"recorded_at"`

	// FinalizedAt is the DONE transition timestamp (Unix milliseconds).
	FinalizedAt int64 `json:"finalized_at"`
}

// MessageCount returns the total number of recorded in-transit messages.
func (c *Contribution) MessageCount() int {
	n := 0
	for _, log := range c.ChannelLogs {
		n += len(log)
	}
	return n
}

// Clone creates a deep copy of the contribution.
func (c *Contribution) Clone() *Contribution {
	clone := *c
	if c.LocalState != nil {
		clone.LocalState = append([]byte(nil), c.LocalState...)
	}
	if c.ChannelLogs != nil {
		clone.ChannelLogs = make(map[ChannelID][]Message, len(c.ChannelLogs))
		for ch, log := range c.ChannelLogs {
			clone.ChannelLogs[ch] = append([]Message(nil), log...)
		}
	}
	return &clone
}

// GlobalSnapshot is the assembled result of one snapshot session:
// the union of all per-process contributions, forming a consistent cut.
type GlobalSnapshot struct {
	SessionID SessionID      `json:"session_id"`
	Initiator ProcessID      `json:"initiator"`
	Status    SnapshotStatus `json:"status"`

	// StartedAt is when the session became known (Unix milliseconds).
	StartedAt int64 `json:"started_at"`

	// CompletedAt is when the last contribution arrived, or the
	// failure time for abandoned sessions (Unix milliseconds).
	CompletedAt int64 `json:"completed_at,omitempty"`

	Contributions map[ProcessID]*Contribution `json:"contributions"`
}

// NewGlobalSnapshot creates a pending snapshot record for a session.
func NewGlobalSnapshot(session SessionID, initiator ProcessID) *GlobalSnapshot {
	return &GlobalSnapshot{
		SessionID:     session,
		Initiator:     initiator,
		Status:        SnapshotPending,
		StartedAt:     time.Now().UnixMilli(),
		Contributions: make(map[ProcessID]*Contribution),
	}
}

// MessageCount returns the total in-transit messages across all
// contributions.
func (g *GlobalSnapshot) MessageCount() int {
	n := 0
	for _, c := range g.Contributions {
		n += c.MessageCount()
	}
	return n
}

// ProcessCount returns the number of processes that have contributed.
func (g *GlobalSnapshot) ProcessCount() int {
	return len(g.Contributions)
}

// Duration returns the wall-clock span from start to completion.
// Returns 0 while the session is still pending.
func (g *GlobalSnapshot) Duration() time.Duration {
	if g.CompletedAt == 0 {
		return 0
	}
	return time.Duration(g.CompletedAt-g.StartedAt) * time.Millisecond
}

// Clone creates a deep copy of the snapshot.
func (g *GlobalSnapshot) Clone() *GlobalSnapshot {
	clone := *g
	clone.Contributions = make(map[ProcessID]*Contribution, len(g.Contributions))
	for id, c := range g.Contributions {
		clone.Contributions[id] = c.Clone()
	}
	return &clone
}
