package coordinator

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/yndnr/snapmesh-go/internal/core/domain"
	"github.com/yndnr/snapmesh-go/internal/telemetry/logger"
	"github.com/yndnr/snapmesh-go/internal/telemetry/metric"
	"github.com/yndnr/snapmesh-go/pkg/cmap"
)

// Sink consumes completed global snapshots (e.g. file store, archive).
type Sink interface {
	SnapshotCompleted(ctx context.Context, snap *domain.GlobalSnapshot) error
}

// tracker guards one session's snapshot record. The per-tracker mutex
// serializes reports for the same session; different sessions never
// contend.
type tracker struct {
	mu    sync.Mutex
	snap  *domain.GlobalSnapshot
	timer *time.Timer
}

// Coordinator collects contributions and detects global completion.
type Coordinator struct {
	expected map[domain.ProcessID]struct{}
	trackers *cmap.Map[domain.SessionID, *tracker]

	timeout time.Duration
	sinks   []Sink
	log     logger.Logger
	metrics *metric.Metrics
}

// Option configures the Coordinator.
type Option func(*Coordinator)

// WithTimeout sets the watchdog timeout after which a pending session
// is marked failed. Zero disables the watchdog.
func WithTimeout(d time.Duration) Option {
	return func(c *Coordinator) { c.timeout = d }
}

// WithSink registers a sink notified on every completed snapshot.
func WithSink(s Sink) Option {
	return func(c *Coordinator) { c.sinks = append(c.sinks, s) }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Coordinator) { c.log = l }
}

// WithMetrics sets the metrics registry.
func WithMetrics(m *metric.Metrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}

// New creates a coordinator expecting contributions from the given
// process set.
func New(processes []domain.ProcessID, opts ...Option) *Coordinator {
	c := &Coordinator{
		expected: make(map[domain.ProcessID]struct{}, len(processes)),
		trackers: cmap.New[domain.SessionID, *tracker](),
		log:      logger.Default(),
	}
	for _, p := range processes {
		c.expected[p] = struct{}{}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Register announces a new session before its markers start flowing.
// Returns ErrSessionConflict if the session ID is already tracked.
func (c *Coordinator) Register(session domain.SessionID, initiator domain.ProcessID) error {
	t := &tracker{snap: domain.NewGlobalSnapshot(session, initiator)}
	if !c.trackers.SetIfAbsent(session, t) {
		return domain.ErrSessionConflict.WithDetails(string(session))
	}

	if c.timeout > 0 {
		t.timer = time.AfterFunc(c.timeout, func() { c.fail(session) })
	}

	if c.metrics != nil {
		c.metrics.SessionsInitiated.Inc()
		c.metrics.SessionsPending.Inc()
	}

	c.log.Info("snapshot session registered",
		"session_id", string(session),
		"initiator", string(initiator),
		"expected_processes", len(c.expected))
	return nil
}

// Report accepts one process's finalized contribution. Unknown
// sessions are created lazily (a process may finish a snapshot the
// coordinator has not been told about yet). Duplicate reports from
// the same process are ignored.
func (c *Coordinator) Report(ctx context.Context, contrib *domain.Contribution) error {
	if contrib == nil {
		return domain.ErrMissingArgument.WithDetails("contribution is nil")
	}
	if _, ok := c.expected[contrib.ProcessID]; !ok {
		return domain.ErrProcessUnknown.WithDetails(string(contrib.ProcessID))
	}

	t, loaded := c.trackers.GetOrSet(contrib.SessionID, &tracker{
		snap: domain.NewGlobalSnapshot(contrib.SessionID, ""),
	})

	t.mu.Lock()
	defer t.mu.Unlock()

	// A lazily created session carries the same watchdog and pending
	// gauge as a registered one.
	if !loaded {
		if c.timeout > 0 {
			session := contrib.SessionID
			t.timer = time.AfterFunc(c.timeout, func() { c.fail(session) })
		}
		if c.metrics != nil {
			c.metrics.SessionsPending.Inc()
		}
	}

	switch t.snap.Status {
	case domain.SnapshotFailed:
		return domain.ErrSessionFailed.WithDetails(string(contrib.SessionID))
	case domain.SnapshotComplete:
		// Late duplicate after assembly; harmless.
		return nil
	}

	if _, dup := t.snap.Contributions[contrib.ProcessID]; dup {
		c.log.Warn("duplicate contribution ignored",
			"session_id", string(contrib.SessionID),
			"process_id", string(contrib.ProcessID))
		return nil
	}

	t.snap.Contributions[contrib.ProcessID] = contrib.Clone()

	c.log.Debug("contribution recorded",
		"session_id", string(contrib.SessionID),
		"process_id", string(contrib.ProcessID),
		"in_transit", contrib.MessageCount(),
		"reported", len(t.snap.Contributions),
		"expected", len(c.expected))

	if len(t.snap.Contributions) < len(c.expected) {
		return nil
	}

	// Last contribution: the session is globally complete.
	t.snap.Status = domain.SnapshotComplete
	t.snap.CompletedAt = time.Now().UnixMilli()
	if t.timer != nil {
		t.timer.Stop()
	}

	if c.metrics != nil {
		c.metrics.SessionsCompleted.Inc()
		c.metrics.SessionsPending.Dec()
		c.metrics.SessionDuration.Observe(t.snap.Duration().Seconds())
	}

	c.log.Info("snapshot session complete",
		"session_id", string(contrib.SessionID),
		"processes", t.snap.ProcessCount(),
		"in_transit", t.snap.MessageCount(),
		"duration", t.snap.Duration().String())

	snap := t.snap.Clone()
	for _, sink := range c.sinks {
		if err := sink.SnapshotCompleted(ctx, snap); err != nil {
			c.log.Error("snapshot sink failed",
				"session_id", string(contrib.SessionID),
				"error", err)
		}
	}

	return nil
}

// Get returns a copy of the snapshot record for a session.
func (c *Coordinator) Get(session domain.SessionID) (*domain.GlobalSnapshot, error) {
	t, ok := c.trackers.Get(session)
	if !ok {
		return nil, domain.ErrSessionNotFound.WithDetails(string(session))
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snap.Clone(), nil
}

// List returns copies of all known snapshot records, ordered by
// session ID (ULIDs sort by creation time).
func (c *Coordinator) List() []*domain.GlobalSnapshot {
	var snaps []*domain.GlobalSnapshot
	c.trackers.Range(func(_ domain.SessionID, t *tracker) bool {
		t.mu.Lock()
		snaps = append(snaps, t.snap.Clone())
		t.mu.Unlock()
		return true
	})

	sort.Slice(snaps, func(i, j int) bool {
		return snaps[i].SessionID < snaps[j].SessionID
	})
	return snaps
}

// ExpectedProcesses returns the size of the expected process set.
func (c *Coordinator) ExpectedProcesses() int {
	return len(c.expected)
}

// fail abandons a pending session: partial contributions are
// discarded, since a subset of DONE processes is not a consistent cut.
func (c *Coordinator) fail(session domain.SessionID) {
	t, ok := c.trackers.Get(session)
	if !ok {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.snap.Status != domain.SnapshotPending {
		return
	}

	t.snap.Status = domain.SnapshotFailed
	t.snap.CompletedAt = time.Now().UnixMilli()
	t.snap.Contributions = make(map[domain.ProcessID]*domain.Contribution)

	if c.metrics != nil {
		c.metrics.SessionsFailed.Inc()
		c.metrics.SessionsPending.Dec()
	}

	c.log.Warn("snapshot session failed",
		"session_id", string(session),
		"timeout", c.timeout.String())
}
