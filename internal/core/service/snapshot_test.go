package service

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/yndnr/snapmesh-go/internal/core/coordinator"
	"github.com/yndnr/snapmesh-go/internal/core/domain"
	"github.com/yndnr/snapmesh-go/internal/mesh"
	"github.com/yndnr/snapmesh-go/internal/mesh/topology"
	"github.com/yndnr/snapmesh-go/internal/node"
	"github.com/yndnr/snapmesh-go/internal/sim"
	"github.com/yndnr/snapmesh-go/internal/telemetry/metric"
)

// newTestService wires a live ring mesh behind the service.
func newTestService(t *testing.T) *SnapshotService {
	t.Helper()

	spec := topology.Ring(100, "a", "b", "c")
	tr, err := mesh.Build(spec)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	t.Cleanup(tr.Close)

	coord := coordinator.New(spec.ProcessIDs(), coordinator.WithTimeout(10*time.Second))

	nodes := make(map[domain.ProcessID]*node.Node, 3)
	for _, id := range spec.ProcessIDs() {
		p, _ := spec.Process(id)
		inbox, _ := tr.Inbox(id)
		n := node.New(id, sim.NewAccount(p.InitialBalance), coord, tr, inbox, tr.Incoming(id), tr.Outgoing(id))
		n.Start()
		t.Cleanup(n.Stop)
		nodes[id] = n
	}

	return NewSnapshotService(coord, nodes)
}

func waitComplete(t *testing.T, s *SnapshotService, session domain.SessionID) *domain.GlobalSnapshot {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		snap, err := s.Get(context.Background(), string(session))
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if snap.Status == domain.SnapshotComplete {
			return snap
		}
		if time.Now().After(deadline) {
			t.Fatalf("session %s stuck %s", session, snap.Status)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSnapshotService_Initiate(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	resp, err := s.Initiate(ctx, &InitiateRequest{Initiator: "a"})
	if err != nil {
		t.Fatalf("Initiate() error = %v", err)
	}
	if !domain.IsValidSessionID(string(resp.SessionID)) {
		t.Fatalf("session id %q is not valid", resp.SessionID)
	}
	if resp.Initiator != "a" {
		t.Fatalf("initiator = %s, want a", resp.Initiator)
	}

	snap := waitComplete(t, s, resp.SessionID)
	if snap.ProcessCount() != 3 {
		t.Fatalf("contributions = %d, want 3", snap.ProcessCount())
	}
}

func TestSnapshotService_InitiateValidation(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	if _, err := s.Initiate(ctx, nil); !domain.IsDomainError(err, "SM-ARG-1002") {
		t.Fatalf("Initiate(nil) error = %v, want SM-ARG-1002", err)
	}
	if _, err := s.Initiate(ctx, &InitiateRequest{}); !domain.IsDomainError(err, "SM-ARG-1002") {
		t.Fatalf("Initiate(empty) error = %v, want SM-ARG-1002", err)
	}
	if _, err := s.Initiate(ctx, &InitiateRequest{Initiator: "ghost"}); !domain.IsDomainError(err, "SM-PROC-4040") {
		t.Fatalf("Initiate(ghost) error = %v, want SM-PROC-4040", err)
	}
}

func TestSnapshotService_InitiateCountedOnce(t *testing.T) {
	spec := topology.Ring(100, "a", "b", "c")
	tr, err := mesh.Build(spec)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	t.Cleanup(tr.Close)

	// Coordinator and service share one registry, as in the server.
	m := metric.New()
	coord := coordinator.New(spec.ProcessIDs(),
		coordinator.WithTimeout(10*time.Second),
		coordinator.WithMetrics(m))

	nodes := make(map[domain.ProcessID]*node.Node, 3)
	for _, id := range spec.ProcessIDs() {
		p, _ := spec.Process(id)
		inbox, _ := tr.Inbox(id)
		n := node.New(id, sim.NewAccount(p.InitialBalance), coord, tr, inbox, tr.Incoming(id), tr.Outgoing(id))
		n.Start()
		t.Cleanup(n.Stop)
		nodes[id] = n
	}
	s := NewSnapshotService(coord, nodes, WithMetrics(m))

	if _, err := s.Initiate(context.Background(), &InitiateRequest{Initiator: "a"}); err != nil {
		t.Fatalf("Initiate() error = %v", err)
	}

	if got := testutil.ToFloat64(m.SessionsInitiated); got != 1 {
		t.Fatalf("sessions initiated = %v after one Initiate, want 1", got)
	}
}

func TestSnapshotService_GetValidation(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	if _, err := s.Get(ctx, "not-a-session"); !domain.IsDomainError(err, "SM-SESS-4000") {
		t.Fatalf("Get() error = %v, want SM-SESS-4000", err)
	}
	if _, err := s.Get(ctx, "smsn-01h455vb4pex5vsknk084sn02q"); !domain.IsDomainError(err, "SM-SESS-4040") {
		t.Fatalf("Get() error = %v, want SM-SESS-4040", err)
	}
}

func TestSnapshotService_ListAndProcesses(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	if got := len(s.List(ctx)); got != 0 {
		t.Fatalf("List() = %d sessions on a fresh service", got)
	}

	first, err := s.Initiate(ctx, &InitiateRequest{Initiator: "b"})
	if err != nil {
		t.Fatalf("Initiate() error = %v", err)
	}
	second, err := s.Initiate(ctx, &InitiateRequest{Initiator: "c"})
	if err != nil {
		t.Fatalf("Initiate() error = %v", err)
	}
	waitComplete(t, s, first.SessionID)
	waitComplete(t, s, second.SessionID)

	sessions := s.List(ctx)
	if len(sessions) != 2 {
		t.Fatalf("List() = %d sessions, want 2", len(sessions))
	}
	if sessions[0].SessionID != first.SessionID {
		t.Fatalf("List() order: got %s first, want %s", sessions[0].SessionID, first.SessionID)
	}

	procs := s.Processes()
	if len(procs) != 3 || procs[0] != "a" || procs[2] != "c" {
		t.Fatalf("Processes() = %v", procs)
	}
}
