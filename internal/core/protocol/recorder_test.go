package protocol

import (
	"bytes"
	"testing"

	"github.com/yndnr/snapmesh-go/internal/core/domain"
)

const testSession = domain.SessionID("smsn-01h455vb4pex5vsknk084sn02q")

var (
	chAB = domain.NewChannelID("a", "b")
	chCB = domain.NewChannelID("c", "b")
)

func captureConst(state string) CaptureFunc {
	return func() []byte { return []byte(state) }
}

// captureCounting fails the test if the capture hook runs more than once.
func captureCounting(t *testing.T, state string) CaptureFunc {
	t.Helper()
	calls := 0
	return func() []byte {
		calls++
		if calls > 1 {
			t.Fatalf("local state captured %d times, want exactly once", calls)
		}
		return []byte(state)
	}
}

func TestRecorder_SpontaneousInitiation(t *testing.T) {
	r := NewRecorder("b", testSession, []domain.ChannelID{chAB, chCB})

	if r.State() != StateIdle {
		t.Fatalf("initial state = %v, want idle", r.State())
	}

	if !r.Begin("b", captureConst("s0")) {
		t.Fatal("Begin() should transition from idle")
	}
	if r.State() != StateRecording {
		t.Fatalf("state after Begin = %v, want recording", r.State())
	}
	if r.Initiator() != "b" {
		t.Errorf("Initiator() = %q, want %q", r.Initiator(), "b")
	}

	// Second Begin must be a no-op.
	if r.Begin("b", captureConst("s1")) {
		t.Error("second Begin() should return false")
	}
}

func TestRecorder_CaptureExactlyOnce(t *testing.T) {
	r := NewRecorder("b", testSession, []domain.ChannelID{chAB, chCB})
	capture := captureCounting(t, "s0")

	// First marker triggers capture; everything after must not.
	if _, _, err := r.MarkerReceived(chAB, "a", capture); err != nil {
		t.Fatalf("MarkerReceived() error = %v", err)
	}
	r.Begin("b", capture)
	if _, _, err := r.MarkerReceived(chCB, "a", capture); err != nil {
		t.Fatalf("MarkerReceived() error = %v", err)
	}
}

func TestRecorder_FirstMarkerClosesItsChannel(t *testing.T) {
	r := NewRecorder("b", testSession, []domain.ChannelID{chAB, chCB})

	first, done, err := r.MarkerReceived(chAB, "a", captureConst("s0"))
	if err != nil {
		t.Fatalf("MarkerReceived() error = %v", err)
	}
	if !first {
		t.Error("first marker should report first = true")
	}
	if done {
		t.Error("session should not be done with one of two channels marked")
	}

	// Messages on the marked channel are post-cut: never recorded.
	if r.MessageReceived(chAB, []byte("late")) {
		t.Error("message on marked channel must not be recorded")
	}

	// Messages on the still-open channel are in-transit: recorded.
	if !r.MessageReceived(chCB, []byte("m1")) {
		t.Error("message on open channel must be recorded")
	}
}

func TestRecorder_CompletionOnLastMarker(t *testing.T) {
	r := NewRecorder("b", testSession, []domain.ChannelID{chAB, chCB})

	r.MarkerReceived(chAB, "a", captureConst("s0"))
	r.MessageReceived(chCB, []byte("m1"))
	r.MessageReceived(chCB, []byte("m2"))

	first, done, err := r.MarkerReceived(chCB, "a", captureConst("unused"))
	if err != nil {
		t.Fatalf("MarkerReceived() error = %v", err)
	}
	if first {
		t.Error("second marker should not report first = true")
	}
	if !done {
		t.Error("session should be done after markers on all channels")
	}
	if r.State() != StateDone {
		t.Fatalf("state = %v, want done", r.State())
	}
	if r.Remaining() != 0 {
		t.Errorf("Remaining() = %d, want 0", r.Remaining())
	}

	contrib, err := r.Contribution()
	if err != nil {
		t.Fatalf("Contribution() error = %v", err)
	}
	if !bytes.Equal(contrib.LocalState, []byte("s0")) {
		t.Errorf("LocalState = %q, want %q", contrib.LocalState, "s0")
	}
	if got := len(contrib.ChannelLogs[chCB]); got != 2 {
		t.Errorf("len(ChannelLogs[c->b]) = %d, want 2", got)
	}
	if got := len(contrib.ChannelLogs[chAB]); got != 0 {
		t.Errorf("len(ChannelLogs[a->b]) = %d, want 0 (marker-first channel)", got)
	}
}

func TestRecorder_LogFrozenAfterMarker(t *testing.T) {
	r := NewRecorder("b", testSession, []domain.ChannelID{chAB, chCB})

	r.MarkerReceived(chAB, "a", captureConst("s0"))
	r.MessageReceived(chCB, []byte("m1"))
	r.MarkerReceived(chCB, "a", captureConst("unused"))

	// Channel log is frozen; a late message must not be appended.
	if r.MessageReceived(chCB, []byte("m2")) {
		t.Error("message after channel marker must not be recorded")
	}

	contrib, err := r.Contribution()
	if err != nil {
		t.Fatalf("Contribution() error = %v", err)
	}
	if got := len(contrib.ChannelLogs[chCB]); got != 1 {
		t.Errorf("len(ChannelLogs[c->b]) = %d, want 1", got)
	}
}

func TestRecorder_DuplicateMarkerIdempotent(t *testing.T) {
	r := NewRecorder("b", testSession, []domain.ChannelID{chAB, chCB})

	r.MarkerReceived(chAB, "a", captureConst("s0"))

	// Redelivered marker on the same channel: no state change, no
	// progress toward completion.
	first, done, err := r.MarkerReceived(chAB, "a", captureConst("unused"))
	if err != nil {
		t.Fatalf("duplicate MarkerReceived() error = %v", err)
	}
	if first || done {
		t.Errorf("duplicate marker: first = %v, done = %v, want false, false", first, done)
	}
	if r.Remaining() != 1 {
		t.Errorf("Remaining() = %d, want 1 after duplicate", r.Remaining())
	}

	// Duplicates after DONE are equally harmless.
	r.MarkerReceived(chCB, "a", captureConst("unused"))
	first, done, err = r.MarkerReceived(chAB, "a", captureConst("unused"))
	if err != nil {
		t.Fatalf("post-done MarkerReceived() error = %v", err)
	}
	if first || done {
		t.Error("marker after DONE must be a complete no-op")
	}
}

func TestRecorder_MessageBeforeRecording(t *testing.T) {
	r := NewRecorder("b", testSession, []domain.ChannelID{chAB, chCB})

	// IDLE: message is fully pre-snapshot, never recorded.
	if r.MessageReceived(chAB, []byte("early")) {
		t.Error("message in idle state must not be recorded")
	}
}

func TestRecorder_ZeroIncomingChannels(t *testing.T) {
	r := NewRecorder("src", testSession, nil)

	if !r.Begin("src", captureConst("s0")) {
		t.Fatal("Begin() should succeed")
	}
	if r.State() != StateDone {
		t.Fatalf("state = %v, want done (no incoming channels)", r.State())
	}

	contrib, err := r.Contribution()
	if err != nil {
		t.Fatalf("Contribution() error = %v", err)
	}
	if len(contrib.ChannelLogs) != 0 {
		t.Errorf("ChannelLogs size = %d, want 0", len(contrib.ChannelLogs))
	}
}

func TestRecorder_UnknownChannel(t *testing.T) {
	r := NewRecorder("b", testSession, []domain.ChannelID{chAB})

	_, _, err := r.MarkerReceived(domain.NewChannelID("x", "b"), "x", captureConst("s0"))
	if !domain.IsDomainError(err, "SM-CHAN-4040") {
		t.Errorf("MarkerReceived(unknown) error = %v, want SM-CHAN-4040", err)
	}

	if r.MessageReceived(domain.NewChannelID("x", "b"), []byte("m")) {
		t.Error("message on unknown channel must not be recorded")
	}
}

func TestRecorder_ContributionBeforeDone(t *testing.T) {
	r := NewRecorder("b", testSession, []domain.ChannelID{chAB, chCB})
	r.Begin("b", captureConst("s0"))

	if _, err := r.Contribution(); !domain.IsDomainError(err, "SM-SESS-4091") {
		t.Errorf("Contribution() before done error = %v, want SM-SESS-4091", err)
	}
}

func TestRecorder_ContributionIsCopy(t *testing.T) {
	r := NewRecorder("b", testSession, []domain.ChannelID{chAB})
	payload := []byte("m1")
	r.Begin("b", captureConst("s0"))
	r.MessageReceived(chAB, payload)
	r.MarkerReceived(chAB, "a", captureConst("unused"))

	contrib, err := r.Contribution()
	if err != nil {
		t.Fatalf("Contribution() error = %v", err)
	}

	// Mutating the caller's payload after the fact must not reach the log.
	payload[0] = 'X'
	if contrib.ChannelLogs[chAB][0].Payload[0] == 'X' {
		t.Error("recorded message shares memory with the sender's buffer")
	}
}
