package domain

// FrameKind distinguishes the two message kinds a channel carries.
type FrameKind uint8

const (
	// FrameUnspecified is the zero value; never valid on the wire.
	FrameUnspecified FrameKind = iota

	// FrameApplication carries an opaque application payload.
	FrameApplication

	// FrameMarker carries a snapshot control marker.
	FrameMarker
)

// String returns the frame kind name.
func (k FrameKind) String() string {
	switch k {
	case FrameApplication:
		return "application"
	case FrameMarker:
		return "marker"
	default:
		return "unspecified"
	}
}

// Frame is the wire unit delivered over a channel. A frame is either
// an application message (Payload set) or a marker (Session and
// Initiator set). Channel is stamped by the transport on send so the
// receiver knows which incoming channel delivered it.
type Frame struct {
	Kind    FrameKind `json:"kind"`
	Channel ChannelID `json:"channel"`

	// Payload is the opaque application payload (application frames).
	Payload []byte `json:"payload,omitempty"`

	// Session tags the snapshot attempt this marker belongs to (markers).
	Session SessionID `json:"session,omitempty"`

	// Initiator is the process that started the session (markers).
	Initiator ProcessID `json:"initiator,omitempty"`
}

// NewApplicationFrame builds an application frame for the given payload.
func NewApplicationFrame(payload []byte) Frame {
	return Frame{Kind: FrameApplication, Payload: payload}
}

// NewMarkerFrame builds a marker frame for the given session.
func NewMarkerFrame(session SessionID, initiator ProcessID) Frame {
	return Frame{Kind: FrameMarker, Session: session, Initiator: initiator}
}

// IsMarker reports whether the frame is a snapshot marker.
func (f Frame) IsMarker() bool {
	return f.Kind == FrameMarker
}

// Validate checks that the frame is well-formed for its kind.
func (f Frame) Validate() error {
	switch f.Kind {
	case FrameApplication:
		return nil
	case FrameMarker:
		if f.Session == "" {
			return ErrFrameInvalid.WithDetails("marker frame missing session id")
		}
		if f.Initiator == "" {
			return ErrFrameInvalid.WithDetails("marker frame missing initiator")
		}
		return nil
	default:
		return ErrFrameInvalid.WithDetails("unspecified frame kind")
	}
}

// Message is one application message recorded into a channel log.
type Message struct {
	Payload []byte `json:"payload"`
}
