package domain

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Identifier constraints.
const (
	MaxProcessIDLength = 64

	// SessionIDPrefix is the prefix for snapshot session IDs.
	SessionIDPrefix = "smsn-"

	// channelSeparator joins the two endpoints of a directed channel ID.
	channelSeparator = "->"
)

// ProcessID uniquely identifies a process in the mesh.
type ProcessID string

// Valid reports whether the process ID is non-empty, within length
// limits, and free of the channel separator.
func (p ProcessID) Valid() bool {
	if p == "" || len(p) > MaxProcessIDLength {
		return false
	}
	return !strings.Contains(string(p), channelSeparator)
}

// ChannelID identifies a directed channel between two processes.
// Format: "<from>-><to>".
type ChannelID string

// NewChannelID builds the channel ID for the directed edge from -> to.
func NewChannelID(from, to ProcessID) ChannelID {
	return ChannelID(string(from) + channelSeparator + string(to))
}

// From returns the sending endpoint of the channel.
func (c ChannelID) From() ProcessID {
	from, _, _ := strings.Cut(string(c), channelSeparator)
	return ProcessID(from)
}

// To returns the receiving endpoint of the channel.
func (c ChannelID) To() ProcessID {
	_, to, _ := strings.Cut(string(c), channelSeparator)
	return ProcessID(to)
}

// Valid reports whether the channel ID names two valid, distinct endpoints.
func (c ChannelID) Valid() bool {
	from, to, ok := strings.Cut(string(c), channelSeparator)
	if !ok {
		return false
	}
	f, t := ProcessID(from), ProcessID(to)
	return f.Valid() && t.Valid() && f != t
}

// SessionID identifies one global snapshot attempt.
// Format: smsn-{ulid_lowercase}, 31 characters total.
type SessionID string

// GenerateSessionID generates a new session ID using ULID.
// ULIDs are lexicographically sortable by creation time, which keeps
// snapshot listings naturally ordered.
func GenerateSessionID() (SessionID, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", ErrInternal.WithCause(err)
	}
	return SessionID(SessionIDPrefix + strings.ToLower(id.String())), nil
}

// IsValidSessionID checks if a string is a valid session ID format.
// It normalizes the ID to lowercase before validation.
func IsValidSessionID(id string) bool {
	id = strings.ToLower(id)

	if !strings.HasPrefix(id, SessionIDPrefix) {
		return false
	}

	// smsn- (5) + ULID (26) = 31 characters
	if len(id) != 31 {
		return false
	}

	ulidPart := strings.ToUpper(id[len(SessionIDPrefix):])
	_, err := ulid.Parse(ulidPart)
	return err == nil
}

// NormalizeSessionID normalizes a session ID to lowercase.
// Returns empty string if the ID is invalid.
func NormalizeSessionID(id string) SessionID {
	normalized := strings.ToLower(id)
	if !IsValidSessionID(normalized) {
		return ""
	}
	return SessionID(normalized)
}
