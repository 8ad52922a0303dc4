package domain

import (
	"strings"
	"testing"
)

func TestGenerateSessionID(t *testing.T) {
	id, err := GenerateSessionID()
	if err != nil {
		t.Fatalf("GenerateSessionID() error = %v", err)
	}

	if !strings.HasPrefix(string(id), SessionIDPrefix) {
		t.Errorf("session ID %q missing prefix %q", id, SessionIDPrefix)
	}

	if len(id) != 31 {
		t.Errorf("session ID length = %d, want 31", len(id))
	}

	if !IsValidSessionID(string(id)) {
		t.Errorf("generated session ID %q should be valid", id)
	}
}

func TestGenerateSessionID_Unique(t *testing.T) {
	seen := make(map[SessionID]bool)
	for i := 0; i < 100; i++ {
		id, err := GenerateSessionID()
		if err != nil {
			t.Fatalf("GenerateSessionID() error = %v", err)
		}
		if seen[id] {
			t.Fatalf("duplicate session ID generated: %q", id)
		}
		seen[id] = true
	}
}

func TestIsValidSessionID(t *testing.T) {
	valid, err := GenerateSessionID()
	if err != nil {
		t.Fatalf("GenerateSessionID() error = %v", err)
	}

	tests := []struct {
		name string
		id   string
		want bool
	}{
		{"valid generated", string(valid), true},
		{"uppercase normalized", strings.ToUpper(string(valid)), true},
		{"empty", "", false},
		{"wrong prefix", "tmss-01h455vb4pex5vsknk084sn02q", false},
		{"too short", "smsn-01h455", false},
		{"bad ulid chars", "smsn-!!!!!!!!!!!!!!!!!!!!!!!!!!", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidSessionID(tt.id); got != tt.want {
				t.Errorf("IsValidSessionID(%q) = %v, want %v", tt.id, got, tt.want)
			}
		})
	}
}

func TestNormalizeSessionID(t *testing.T) {
	id, err := GenerateSessionID()
	if err != nil {
		t.Fatalf("GenerateSessionID() error = %v", err)
	}

	if got := NormalizeSessionID(strings.ToUpper(string(id))); got != id {
		t.Errorf("NormalizeSessionID() = %q, want %q", got, id)
	}

	if got := NormalizeSessionID("not-a-session"); got != "" {
		t.Errorf("NormalizeSessionID(invalid) = %q, want empty", got)
	}
}

func TestChannelID_Endpoints(t *testing.T) {
	c := NewChannelID("alpha", "beta")

	if c != "alpha->beta" {
		t.Errorf("NewChannelID() = %q, want %q", c, "alpha->beta")
	}
	if c.From() != "alpha" {
		t.Errorf("From() = %q, want %q", c.From(), "alpha")
	}
	if c.To() != "beta" {
		t.Errorf("To() = %q, want %q", c.To(), "beta")
	}
}

func TestChannelID_Valid(t *testing.T) {
	tests := []struct {
		name string
		id   ChannelID
		want bool
	}{
		{"valid", NewChannelID("a", "b"), true},
		{"self loop", NewChannelID("a", "a"), false},
		{"no separator", ChannelID("ab"), false},
		{"empty from", ChannelID("->b"), false},
		{"empty to", ChannelID("a->"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.id.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProcessID_Valid(t *testing.T) {
	if !ProcessID("node-1").Valid() {
		t.Error("plain process ID should be valid")
	}
	if ProcessID("").Valid() {
		t.Error("empty process ID should be invalid")
	}
	if ProcessID("a->b").Valid() {
		t.Error("process ID containing the channel separator should be invalid")
	}
	if ProcessID(strings.Repeat("x", MaxProcessIDLength+1)).Valid() {
		t.Error("overlong process ID should be invalid")
	}
}
