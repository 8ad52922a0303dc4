package mesh

import (
	"sort"
	"sync"

	"github.com/yndnr/snapmesh-go/internal/core/domain"
	"github.com/yndnr/snapmesh-go/internal/mesh/topology"
	"github.com/yndnr/snapmesh-go/internal/telemetry/logger"
)

// DefaultInboxBuffer is the default per-process inbox size.
const DefaultInboxBuffer = 1024

// Sender is the send half of the transport, all a process actor needs
// to emit frames.
type Sender interface {
	Send(id domain.ChannelID, f domain.Frame) error
}

// Transport is the in-memory mesh: one FIFO channel per directed edge,
// one inbox per process.
type Transport struct {
	mu       sync.RWMutex
	inboxes  map[domain.ProcessID]chan domain.Frame
	channels map[domain.ChannelID]*channel
	closed   bool

	channelBuf int
	inboxBuf   int
	log        logger.Logger
	wg         sync.WaitGroup
}

// Option configures the Transport.
type Option func(*Transport)

// WithChannelBuffer sets the per-channel frame buffer size.
func WithChannelBuffer(n int) Option {
	return func(t *Transport) { t.channelBuf = n }
}

// WithInboxBuffer sets the per-process inbox size.
func WithInboxBuffer(n int) Option {
	return func(t *Transport) { t.inboxBuf = n }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(t *Transport) { t.log = l }
}

// New creates an empty transport.
func New(opts ...Option) *Transport {
	t := &Transport{
		inboxes:    make(map[domain.ProcessID]chan domain.Frame),
		channels:   make(map[domain.ChannelID]*channel),
		channelBuf: DefaultChannelBuffer,
		inboxBuf:   DefaultInboxBuffer,
		log:        logger.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Build constructs a transport wired according to a validated topology.
func Build(spec *topology.Spec, opts ...Option) (*Transport, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	t := New(opts...)
	for _, p := range spec.ProcessIDs() {
		if _, err := t.AddProcess(p); err != nil {
			t.Close()
			return nil, err
		}
	}
	for _, c := range spec.Channels {
		if _, err := t.Connect(domain.ProcessID(c.From), domain.ProcessID(c.To)); err != nil {
			t.Close()
			return nil, err
		}
	}
	return t, nil
}

// AddProcess registers a process and returns its inbox. All frames
// from all of the process's incoming channels are delivered here, each
// stamped with the channel it arrived on.
func (t *Transport) AddProcess(p domain.ProcessID) (<-chan domain.Frame, error) {
	if !p.Valid() {
		return nil, domain.ErrInvalidArgument.WithDetails("invalid process id " + string(p))
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, domain.ErrUnavailable.WithDetails("transport closed")
	}
	if _, dup := t.inboxes[p]; dup {
		return nil, domain.ErrInvalidArgument.WithDetails("process already registered: " + string(p))
	}

	inbox := make(chan domain.Frame, t.inboxBuf)
	t.inboxes[p] = inbox
	return inbox, nil
}

// Connect creates the directed channel from -> to. Both endpoints must
// already be registered.
func (t *Transport) Connect(from, to domain.ProcessID) (domain.ChannelID, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return "", domain.ErrUnavailable.WithDetails("transport closed")
	}
	if from == to {
		return "", domain.ErrInvalidArgument.WithDetails("self-loop on " + string(from))
	}
	if _, ok := t.inboxes[from]; !ok {
		return "", domain.ErrProcessUnknown.WithDetails(string(from))
	}
	inbox, ok := t.inboxes[to]
	if !ok {
		return "", domain.ErrProcessUnknown.WithDetails(string(to))
	}

	id := domain.NewChannelID(from, to)
	if _, dup := t.channels[id]; dup {
		return "", domain.ErrInvalidArgument.WithDetails("duplicate channel " + string(id))
	}

	ch := newChannel(id, t.channelBuf)
	t.channels[id] = ch

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		ch.pump(inbox)
	}()

	return id, nil
}

// Send delivers a frame on the given channel, preserving FIFO order
// relative to other sends on the same channel.
func (t *Transport) Send(id domain.ChannelID, f domain.Frame) error {
	if err := f.Validate(); err != nil {
		return err
	}

	t.mu.RLock()
	ch, ok := t.channels[id]
	t.mu.RUnlock()

	if !ok {
		return domain.ErrChannelUnknown.WithDetails(string(id))
	}
	return ch.send(f)
}

// Incoming returns the incoming channel IDs of a process, sorted.
func (t *Transport) Incoming(p domain.ProcessID) []domain.ChannelID {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var ids []domain.ChannelID
	for id := range t.channels {
		if id.To() == p {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Outgoing returns the outgoing channel IDs of a process, sorted.
func (t *Transport) Outgoing(p domain.ProcessID) []domain.ChannelID {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var ids []domain.ChannelID
	for id := range t.channels {
		if id.From() == p {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Inbox returns the inbox of a registered process.
func (t *Transport) Inbox(p domain.ProcessID) (<-chan domain.Frame, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	inbox, ok := t.inboxes[p]
	return inbox, ok
}

// Close stops all channel pumps. Sends after Close fail with
// ErrChannelClosed; frames still buffered are dropped.
func (t *Transport) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	channels := make([]*channel, 0, len(t.channels))
	for _, ch := range t.channels {
		channels = append(channels, ch)
	}
	t.mu.Unlock()

	for _, ch := range channels {
		ch.close()
	}
	t.wg.Wait()
}
