package protocol

import (
	"time"

	"github.com/yndnr/snapmesh-go/internal/core/domain"
)

// State is the recorder lifecycle state for one (process, session).
type State uint8

const (
	// StateIdle means no marker has been seen and no state recorded.
	StateIdle State = iota

	// StateRecording means local state is captured and the recorder is
	// waiting for markers on the remaining incoming channels.
	StateRecording

	// StateDone means markers arrived on every incoming channel and the
	// contribution is finalized. Terminal.
	StateDone
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// CaptureFunc reads the process's current local state. It is invoked
// at most once per session, at the instant recording begins.
type CaptureFunc func() []byte

// Recorder tracks one snapshot session at one process.
type Recorder struct {
	process   domain.ProcessID
	session   domain.SessionID
	initiator domain.ProcessID

	// incoming is the full set of incoming channels; the session is
	// locally complete once markerSeen covers it.
	incoming map[domain.ChannelID]struct{}

	state      State
	localState []byte
	markerSeen map[domain.ChannelID]struct{}
	logs       map[domain.ChannelID][]domain.Message

	recordedAt  int64
	finalizedAt int64
}

// NewRecorder creates an IDLE recorder for the given session.
// incoming must list every incoming channel of the process; a process
// with no incoming channels completes immediately on Begin.
func NewRecorder(process domain.ProcessID, session domain.SessionID, incoming []domain.ChannelID) *Recorder {
	in := make(map[domain.ChannelID]struct{}, len(incoming))
	for _, c := range incoming {
		in[c] = struct{}{}
	}
	return &Recorder{
		process:    process,
		session:    session,
		incoming:   in,
		state:      StateIdle,
		markerSeen: make(map[domain.ChannelID]struct{}, len(incoming)),
		logs:       make(map[domain.ChannelID][]domain.Message, len(incoming)),
	}
}

// State returns the current lifecycle state.
func (r *Recorder) State() State { return r.state }

// Session returns the session this recorder belongs to.
func (r *Recorder) Session() domain.SessionID { return r.session }

// Initiator returns the initiator carried by the first marker, or the
// local process for self-initiated sessions.
func (r *Recorder) Initiator() domain.ProcessID { return r.initiator }

// Begin transitions IDLE -> RECORDING: captures local state exactly
// once and opens the recording window on every incoming channel.
// Returns true if the transition happened; false if recording already
// began (so callers emit markers only once). A process with zero
// incoming channels transitions straight to DONE.
func (r *Recorder) Begin(initiator domain.ProcessID, capture CaptureFunc) bool {
	if r.state != StateIdle {
		return false
	}

	r.initiator = initiator
	r.localState = capture()
	r.recordedAt = time.Now().UnixMilli()
	r.state = StateRecording

	for c := range r.incoming {
		r.logs[c] = []domain.Message{}
	}

	r.maybeFinish()
	return true
}

// MarkerReceived handles a marker arriving on channel c.
//
// first reports whether this marker started recording (the caller must
// then emit markers on all outgoing channels, atomically with respect
// to its event loop). done reports whether the session just reached
// DONE. Duplicate markers on an already-closed channel are no-ops.
func (r *Recorder) MarkerReceived(c domain.ChannelID, initiator domain.ProcessID, capture CaptureFunc) (first, done bool, err error) {
	if _, ok := r.incoming[c]; !ok {
		return false, false, domain.ErrChannelUnknown.WithDetails(string(c))
	}

	if r.state == StateDone {
		return false, false, nil
	}

	first = r.Begin(initiator, capture)

	if _, seen := r.markerSeen[c]; seen {
		// Duplicate delivery; markerSeen is a set, so this cannot
		// double-count toward completion.
		return first, r.state == StateDone, nil
	}
	r.markerSeen[c] = struct{}{}

	r.maybeFinish()
	return first, r.state == StateDone, nil
}

// MessageReceived handles an application message arriving on channel c
// and reports whether it was recorded as in-transit. Recording happens
// only while RECORDING and only on channels whose marker has not yet
// arrived; in every other case the message passes through untouched.
func (r *Recorder) MessageReceived(c domain.ChannelID, payload []byte) bool {
	if r.state != StateRecording {
		return false
	}
	if _, closed := r.markerSeen[c]; closed {
		return false
	}
	if _, ok := r.incoming[c]; !ok {
		return false
	}

	r.logs[c] = append(r.logs[c], domain.Message{Payload: append([]byte(nil), payload...)})
	return true
}

// Remaining returns the number of incoming channels still awaiting a
// marker. Zero once DONE.
func (r *Recorder) Remaining() int {
	return len(r.incoming) - len(r.markerSeen)
}

// Contribution returns the finalized snapshot contribution.
// Only valid once the recorder is DONE.
func (r *Recorder) Contribution() (*domain.Contribution, error) {
	if r.state != StateDone {
		return nil, domain.ErrSessionNotDone.WithDetails(string(r.session))
	}

	logs := make(map[domain.ChannelID][]domain.Message, len(r.logs))
	for c, log := range r.logs {
		logs[c] = append([]domain.Message(nil), log...)
	}

	return &domain.Contribution{
		ProcessID:   r.process,
		SessionID:   r.session,
		LocalState:  append([]byte(nil), r.localState...),
		ChannelLogs: logs,
		RecordedAt:  r.recordedAt,
		FinalizedAt: r.finalizedAt,
	}, nil
}

// maybeFinish moves RECORDING -> DONE once every incoming channel has
// delivered its marker.
func (r *Recorder) maybeFinish() {
	if r.state != StateRecording {
		return
	}
	if len(r.markerSeen) == len(r.incoming) {
		r.state = StateDone
		r.finalizedAt = time.Now().UnixMilli()
	}
}
