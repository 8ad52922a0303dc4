// Package service provides the snapshot orchestration service.
//
// SnapshotService is the one entry point the admin surfaces use: it
// mints session IDs, registers them with the coordinator and kicks
// off recording on the initiating node.
package service

import (
	"context"
	"sort"

	"github.com/yndnr/snapmesh-go/internal/core/coordinator"
	"github.com/yndnr/snapmesh-go/internal/core/domain"
	"github.com/yndnr/snapmesh-go/internal/node"
	"github.com/yndnr/snapmesh-go/internal/telemetry/logger"
	"github.com/yndnr/snapmesh-go/internal/telemetry/metric"
)

// SnapshotService coordinates snapshot sessions across the local mesh.
type SnapshotService struct {
	coord   *coordinator.Coordinator
	nodes   map[domain.ProcessID]*node.Node
	log     logger.Logger
	metrics *metric.Metrics
}

// Option configures the service.
type Option func(*SnapshotService)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *SnapshotService) { s.log = l }
}

// WithMetrics attaches service metrics.
func WithMetrics(m *metric.Metrics) Option {
	return func(s *SnapshotService) { s.metrics = m }
}

// NewSnapshotService creates the service over a coordinator and the
// nodes it watches.
func NewSnapshotService(coord *coordinator.Coordinator, nodes map[domain.ProcessID]*node.Node, opts ...Option) *SnapshotService {
	s := &SnapshotService{
		coord: coord,
		nodes: nodes,
		log:   logger.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// InitiateRequest names the process that should start the snapshot.
// An empty Initiator is rejected; there is no default initiator.
type InitiateRequest struct {
	Initiator domain.ProcessID `json:"initiator"`
}

// InitiateResponse is the accepted session.
type InitiateResponse struct {
	SessionID domain.SessionID `json:"session_id"`
	Initiator domain.ProcessID `json:"initiator"`
	StartedAt int64            `json:"started_at"`
}

// Initiate mints a fresh session ID, registers it and starts
// recording at the requested initiator. The snapshot completes
// asynchronously; poll Get for the assembled result.
func (s *SnapshotService) Initiate(ctx context.Context, req *InitiateRequest) (*InitiateResponse, error) {
	if req == nil || req.Initiator == "" {
		return nil, domain.ErrMissingArgument.WithDetails("initiator is required")
	}

	n, ok := s.nodes[req.Initiator]
	if !ok {
		return nil, domain.ErrProcessUnknown.WithDetails(string(req.Initiator))
	}

	session, err := domain.GenerateSessionID()
	if err != nil {
		return nil, domain.ErrInternal.WithDetails("generate session id").WithCause(err)
	}

	if err := s.coord.Register(session, req.Initiator); err != nil {
		return nil, err
	}
	if err := n.Initiate(ctx, session); err != nil {
		return nil, err
	}

	s.log.Info("snapshot session accepted",
		"session_id", string(session),
		"initiator", string(req.Initiator))

	snap, err := s.coord.Get(session)
	if err != nil {
		return nil, err
	}
	return &InitiateResponse{
		SessionID: session,
		Initiator: req.Initiator,
		StartedAt: snap.StartedAt,
	}, nil
}

// Get returns the current state of one session, pending or not.
func (s *SnapshotService) Get(ctx context.Context, id string) (*domain.GlobalSnapshot, error) {
	session := domain.NormalizeSessionID(id)
	if !domain.IsValidSessionID(string(session)) {
		return nil, domain.ErrSessionIDInvalid.WithDetails(id)
	}
	return s.coord.Get(session)
}

// List returns all sessions the coordinator knows, oldest first.
func (s *SnapshotService) List(ctx context.Context) []*domain.GlobalSnapshot {
	return s.coord.List()
}

// Processes returns the IDs of the processes in the mesh, for the
// admin surface to enumerate valid initiators.
func (s *SnapshotService) Processes() []domain.ProcessID {
	ids := make([]domain.ProcessID, 0, len(s.nodes))
	for id := range s.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
