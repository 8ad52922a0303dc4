package domain

import (
	"bytes"
	"testing"
)

func testContribution(p ProcessID, session SessionID) *Contribution {
	return &Contribution{
		ProcessID:  p,
		SessionID:  session,
		LocalState: []byte(`{"balance":100}`),
		ChannelLogs: map[ChannelID][]Message{
			NewChannelID("a", p): {
				{Payload: []byte("m1")},
				{Payload: []byte("m2")},
			},
			NewChannelID("c", p): {},
		},
		RecordedAt: 1000,
	}
}

func TestContribution_MessageCount(t *testing.T) {
	c := testContribution("b", "smsn-test")
	if got := c.MessageCount(); got != 2 {
		t.Errorf("MessageCount() = %d, want 2", got)
	}

	empty := &Contribution{ProcessID: "b"}
	if got := empty.MessageCount(); got != 0 {
		t.Errorf("MessageCount() on empty = %d, want 0", got)
	}
}

func TestContribution_Clone(t *testing.T) {
	orig := testContribution("b", "smsn-test")
	clone := orig.Clone()

	// Mutating the clone must not touch the original.
	clone.LocalState[0] = 'X'
	clone.ChannelLogs[NewChannelID("a", "b")][0] = Message{Payload: []byte("mutated")}

	if orig.LocalState[0] == 'X' {
		t.Error("Clone() shares LocalState with original")
	}
	if bytes.Equal(orig.ChannelLogs[NewChannelID("a", "b")][0].Payload, []byte("mutated")) {
		t.Error("Clone() shares ChannelLogs with original")
	}
}

func TestGlobalSnapshot_Lifecycle(t *testing.T) {
	g := NewGlobalSnapshot("smsn-test", "a")

	if g.Status != SnapshotPending {
		t.Errorf("new snapshot status = %q, want %q", g.Status, SnapshotPending)
	}
	if g.StartedAt == 0 {
		t.Error("StartedAt should be set")
	}
	if g.Duration() != 0 {
		t.Error("Duration() should be 0 while pending")
	}

	g.Contributions["a"] = testContribution("a", g.SessionID)
	g.Contributions["b"] = testContribution("b", g.SessionID)
	g.Status = SnapshotComplete
	g.CompletedAt = g.StartedAt + 25

	if got := g.ProcessCount(); got != 2 {
		t.Errorf("ProcessCount() = %d, want 2", got)
	}
	if got := g.MessageCount(); got != 4 {
		t.Errorf("MessageCount() = %d, want 4", got)
	}
	if g.Duration().Milliseconds() != 25 {
		t.Errorf("Duration() = %v, want 25ms", g.Duration())
	}
}

func TestGlobalSnapshot_Clone(t *testing.T) {
	g := NewGlobalSnapshot("smsn-test", "a")
	g.Contributions["b"] = testContribution("b", g.SessionID)

	clone := g.Clone()
	clone.Contributions["b"].LocalState[0] = 'X'

	if g.Contributions["b"].LocalState[0] == 'X' {
		t.Error("Clone() shares contributions with original")
	}
}

func TestFrame_Validate(t *testing.T) {
	tests := []struct {
		name    string
		frame   Frame
		wantErr bool
	}{
		{"application", NewApplicationFrame([]byte("payload")), false},
		{"application empty payload", NewApplicationFrame(nil), false},
		{"marker", NewMarkerFrame("smsn-test", "a"), false},
		{"marker missing session", Frame{Kind: FrameMarker, Initiator: "a"}, true},
		{"marker missing initiator", Frame{Kind: FrameMarker, Session: "smsn-test"}, true},
		{"unspecified kind", Frame{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.frame.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFrame_IsMarker(t *testing.T) {
	if NewApplicationFrame(nil).IsMarker() {
		t.Error("application frame should not be a marker")
	}
	if !NewMarkerFrame("smsn-test", "a").IsMarker() {
		t.Error("marker frame should be a marker")
	}
}
