package node

import (
	"context"
	"sync"

	"github.com/yndnr/snapmesh-go/internal/core/domain"
	"github.com/yndnr/snapmesh-go/internal/core/protocol"
	"github.com/yndnr/snapmesh-go/internal/mesh"
	"github.com/yndnr/snapmesh-go/internal/telemetry/logger"
	"github.com/yndnr/snapmesh-go/internal/telemetry/metric"
)

// Application is the domain logic hosted on a node. The protocol never
// inspects the state it captures or the payloads it records; both are
// opaque bytes.
type Application interface {
	// CaptureState serializes the current local state. Called at most
	// once per snapshot session, from the node's event loop.
	CaptureState() []byte

	// HandleMessage processes one application payload delivered on the
	// given incoming channel. Called from the node's event loop.
	HandleMessage(channel domain.ChannelID, payload []byte)
}

// Reporter receives a node's finished contribution to a session.
type Reporter interface {
	Report(ctx context.Context, c *domain.Contribution) error
}

// Node is one process of the mesh. It owns the per-session protocol
// recorders and serializes every event through a single goroutine.
type Node struct {
	id        domain.ProcessID
	app       Application
	reporter  Reporter
	sender    mesh.Sender
	inbox     <-chan domain.Frame
	incoming  []domain.ChannelID
	outgoing  []domain.ChannelID
	recorders map[domain.SessionID]*protocol.Recorder

	// finished holds sessions whose contribution was already reported.
	// Markers for them are stale redeliveries and must not reopen the
	// session through lazy recorder creation.
	finished map[domain.SessionID]struct{}

	control chan controlMsg
	quit    chan struct{}
	wg      sync.WaitGroup
	log     logger.Logger
	metrics *metric.Metrics
}

// SendFunc emits an application payload on an outgoing channel.
type SendFunc func(channel domain.ChannelID, payload []byte) error

type controlMsg struct {
	// initiate, when set, starts recording for this session locally.
	initiate domain.SessionID

	// apply, when set, runs inside the event loop with send access.
	apply func(send SendFunc) error

	reply chan error
}

// Option configures a Node.
type Option func(*Node)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(n *Node) { n.log = l }
}

// WithMetrics attaches protocol metrics.
func WithMetrics(m *metric.Metrics) Option {
	return func(n *Node) { n.metrics = m }
}

// New builds a node for the given process. The inbox carries all
// frames from the node's incoming channels; incoming and outgoing are
// the channel IDs the node receives and sends on.
func New(
	id domain.ProcessID,
	app Application,
	reporter Reporter,
	sender mesh.Sender,
	inbox <-chan domain.Frame,
	incoming, outgoing []domain.ChannelID,
	opts ...Option,
) *Node {
	n := &Node{
		id:        id,
		app:       app,
		reporter:  reporter,
		sender:    sender,
		inbox:     inbox,
		incoming:  incoming,
		outgoing:  outgoing,
		recorders: make(map[domain.SessionID]*protocol.Recorder),
		finished:  make(map[domain.SessionID]struct{}),
		control:   make(chan controlMsg),
		quit:      make(chan struct{}),
		log:       logger.Default(),
	}
	for _, opt := range opts {
		opt(n)
	}
	n.log = n.log.With("process_id", string(id))
	return n
}

// ID returns the node's process ID.
func (n *Node) ID() domain.ProcessID { return n.id }

// Start launches the event loop.
func (n *Node) Start() {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.run()
	}()
}

// Stop terminates the event loop and waits for it to drain.
func (n *Node) Stop() {
	select {
	case <-n.quit:
		return
	default:
	}
	close(n.quit)
	n.wg.Wait()
}

// Initiate starts recording the given session on this node and
// broadcasts markers on all outgoing channels. The capture and the
// broadcast run inside the event loop, so no application send can
// slip between them.
func (n *Node) Initiate(ctx context.Context, session domain.SessionID) error {
	return n.submit(ctx, controlMsg{initiate: session, reply: make(chan error, 1)})
}

// Send emits an application payload on one of the node's outgoing
// channels, routed through the event loop to keep ordering against
// marker broadcasts.
func (n *Node) Send(ctx context.Context, channel domain.ChannelID, payload []byte) error {
	return n.Apply(ctx, func(send SendFunc) error {
		return send(channel, payload)
	})
}

// Apply runs fn inside the event loop. State mutations and sends made
// by fn are one atomic step with respect to snapshot capture: a capture
// observes either none or all of them, and emitted frames land on the
// matching side of any marker.
func (n *Node) Apply(ctx context.Context, fn func(send SendFunc) error) error {
	return n.submit(ctx, controlMsg{apply: fn, reply: make(chan error, 1)})
}

func (n *Node) submit(ctx context.Context, msg controlMsg) error {
	select {
	case n.control <- msg:
	case <-n.quit:
		return domain.ErrUnavailable.WithDetails("node stopped: " + string(n.id))
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-msg.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (n *Node) run() {
	for {
		select {
		case <-n.quit:
			return
		case msg := <-n.control:
			msg.reply <- n.handleControl(msg)
		case f, ok := <-n.inbox:
			if !ok {
				return
			}
			n.handleFrame(f)
		}
	}
}

func (n *Node) handleControl(msg controlMsg) error {
	if msg.initiate != "" {
		return n.initiate(msg.initiate)
	}
	// Outbound sends are never recorded; the channel log is filled on
	// the receiving side.
	return msg.apply(func(channel domain.ChannelID, payload []byte) error {
		return n.sender.Send(channel, domain.NewApplicationFrame(payload))
	})
}

// initiate runs the local snapshot start: capture state, open the
// recording window on every incoming channel, then broadcast markers.
func (n *Node) initiate(session domain.SessionID) error {
	if _, done := n.finished[session]; done {
		n.log.Debug("initiate ignored, session already complete", "session_id", string(session))
		return nil
	}

	r, err := n.recorder(session)
	if err != nil {
		return err
	}

	if !r.Begin(n.id, n.app.CaptureState) {
		// Already recording for this session; spontaneous start after
		// a marker arrived is a no-op.
		n.log.Debug("initiate ignored, session already recording", "session_id", string(session))
		return nil
	}

	n.log.Info("snapshot initiated", "session_id", string(session))
	n.broadcastMarkers(session, n.id)
	n.finishIfDone(r)
	return nil
}

func (n *Node) handleFrame(f domain.Frame) {
	if f.IsMarker() {
		n.handleMarker(f)
		return
	}

	// The payload joins the channel log of every session still waiting
	// on this channel's marker, then reaches the application either way.
	for _, r := range n.recorders {
		if r.MessageReceived(f.Channel, f.Payload) && n.metrics != nil {
			n.metrics.MessagesRecorded.Inc()
		}
	}
	n.app.HandleMessage(f.Channel, f.Payload)
	if n.metrics != nil {
		n.metrics.MessagesHandled.Inc()
	}
}

func (n *Node) handleMarker(f domain.Frame) {
	if n.metrics != nil {
		n.metrics.MarkersReceived.Inc()
	}

	if _, done := n.finished[f.Session]; done {
		n.log.Debug("dropping marker for completed session",
			"session_id", string(f.Session),
			"channel_id", string(f.Channel))
		return
	}

	r, err := n.recorder(f.Session)
	if err != nil {
		n.log.Error("dropping marker", "session_id", string(f.Session), "error", err)
		return
	}

	first, _, err := r.MarkerReceived(f.Channel, f.Initiator, n.app.CaptureState)
	if err != nil {
		n.log.Error("marker rejected",
			"session_id", string(f.Session),
			"channel_id", string(f.Channel),
			"error", err)
		return
	}
	if first {
		n.broadcastMarkers(f.Session, f.Initiator)
	}
	n.finishIfDone(r)
}

// recorder returns the per-session recorder, creating it on first use.
func (n *Node) recorder(session domain.SessionID) (*protocol.Recorder, error) {
	if !domain.IsValidSessionID(string(session)) {
		return nil, domain.ErrSessionIDInvalid.WithDetails(string(session))
	}
	r, ok := n.recorders[session]
	if !ok {
		r = protocol.NewRecorder(n.id, session, n.incoming)
		n.recorders[session] = r
	}
	return r, nil
}

func (n *Node) broadcastMarkers(session domain.SessionID, initiator domain.ProcessID) {
	marker := domain.NewMarkerFrame(session, initiator)
	for _, out := range n.outgoing {
		if err := n.sender.Send(out, marker); err != nil {
			n.log.Error("marker send failed",
				"session_id", string(session),
				"channel_id", string(out),
				"error", err)
			continue
		}
		if n.metrics != nil {
			n.metrics.MarkersSent.Inc()
		}
	}
}

// finishIfDone reports the contribution once every incoming channel's
// marker has arrived and retires the recorder.
func (n *Node) finishIfDone(r *protocol.Recorder) {
	if r.State() != protocol.StateDone {
		return
	}

	c, err := r.Contribution()
	if err != nil {
		n.log.Error("contribution unavailable", "session_id", string(r.Session()), "error", err)
		return
	}
	delete(n.recorders, r.Session())
	n.finished[r.Session()] = struct{}{}

	if err := n.reporter.Report(context.Background(), c); err != nil {
		n.log.Error("contribution report failed",
			"session_id", string(c.SessionID),
			"error", err)
		return
	}
	n.log.Info("contribution reported",
		"session_id", string(c.SessionID),
		"recorded_messages", c.MessageCount())
}
