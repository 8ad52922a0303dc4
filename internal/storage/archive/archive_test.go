package archive

import (
	"context"
	"fmt"
	"testing"

	"github.com/yndnr/snapmesh-go/internal/core/domain"
)

func openTestArchive(t *testing.T) *Archive {
	t.Helper()
	a, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	a.db.SetMaxOpenConns(1)
	t.Cleanup(func() { a.Close() })
	return a
}

func testSnapshot(session domain.SessionID) *domain.GlobalSnapshot {
	snap := domain.NewGlobalSnapshot(session, "a")
	snap.Status = domain.SnapshotComplete
	snap.CompletedAt = snap.StartedAt + 5
	snap.Contributions = map[domain.ProcessID]*domain.Contribution{
		"a": {
			ProcessID:  "a",
			SessionID:  session,
			LocalState: []byte(`{"balance":90}`),
			ChannelLogs: map[domain.ChannelID][]domain.Message{
				"b->a": {
					{Payload: []byte(`{"amount":10}`)},
					{Payload: []byte(`{"amount":3}`)},
				},
			},
		},
		"b": {
			ProcessID:   "b",
			SessionID:   session,
			LocalState:  []byte(`{"balance":100}`),
			ChannelLogs: map[domain.ChannelID][]domain.Message{"a->b": nil},
		},
	}
	return snap
}

func TestArchive_SaveLoad(t *testing.T) {
	a := openTestArchive(t)
	ctx := context.Background()
	session := domain.SessionID("smsn-01h455vb4pex5vsknk084sn02q")

	if err := a.SnapshotCompleted(ctx, testSnapshot(session)); err != nil {
		t.Fatalf("SnapshotCompleted() error = %v", err)
	}

	snap, err := a.Load(ctx, session)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if snap.Initiator != "a" || snap.Status != domain.SnapshotComplete {
		t.Fatalf("Load() = %s/%s", snap.Initiator, snap.Status)
	}
	if len(snap.Contributions) != 2 {
		t.Fatalf("contributions = %d, want 2", len(snap.Contributions))
	}

	// Log order must survive the roundtrip.
	log := snap.Contributions["a"].ChannelLogs["b->a"]
	if len(log) != 2 ||
		string(log[0].Payload) != `{"amount":10}` ||
		string(log[1].Payload) != `{"amount":3}` {
		t.Fatalf("channel log = %v", log)
	}
}

func TestArchive_LoadUnknown(t *testing.T) {
	a := openTestArchive(t)

	_, err := a.Load(context.Background(), "smsn-01h455vb4pex5vsknk084sn02q")
	if !domain.IsDomainError(err, "SM-SESS-4040") {
		t.Fatalf("Load() error = %v, want SM-SESS-4040", err)
	}
}

func TestArchive_SaveReplaces(t *testing.T) {
	a := openTestArchive(t)
	ctx := context.Background()
	session := domain.SessionID("smsn-01h455vb4pex5vsknk084sn02q")

	if err := a.Save(ctx, testSnapshot(session)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	snap := testSnapshot(session)
	snap.Contributions["a"].LocalState = []byte(`{"balance":77}`)
	if err := a.Save(ctx, snap); err != nil {
		t.Fatalf("Save() second error = %v", err)
	}

	got, err := a.Load(ctx, session)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if string(got.Contributions["a"].LocalState) != `{"balance":77}` {
		t.Fatalf("state = %s, want replaced value", got.Contributions["a"].LocalState)
	}

	summaries, err := a.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("List() = %d rows, want 1", len(summaries))
	}
	if summaries[0].MessageCount != 2 || summaries[0].ProcessCount != 2 {
		t.Fatalf("summary = %+v", summaries[0])
	}
}

func TestArchive_DeleteCascades(t *testing.T) {
	a := openTestArchive(t)
	ctx := context.Background()
	session := domain.SessionID("smsn-01h455vb4pex5vsknk084sn02q")

	if err := a.Save(ctx, testSnapshot(session)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := a.Delete(ctx, session); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := a.Delete(ctx, session); !domain.IsDomainError(err, "SM-SESS-4040") {
		t.Fatalf("second Delete() error = %v, want SM-SESS-4040", err)
	}

	var n int
	if err := a.db.QueryRow(`SELECT COUNT(*) FROM channel_logs`).Scan(&n); err != nil {
		t.Fatalf("count query error = %v", err)
	}
	if n != 0 {
		t.Fatalf("channel_logs rows = %d after delete, want 0", n)
	}
}

func TestArchive_Prune(t *testing.T) {
	a := openTestArchive(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		session := domain.SessionID(fmt.Sprintf("smsn-01h455vb4pex5vsknk084sn0%02d", i))
		if err := a.Save(ctx, testSnapshot(session)); err != nil {
			t.Fatalf("Save(%d) error = %v", i, err)
		}
	}

	pruned, err := a.Prune(ctx, 2)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if pruned != 3 {
		t.Fatalf("Prune() = %d, want 3", pruned)
	}

	summaries, err := a.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("List() = %d rows, want 2", len(summaries))
	}
	if summaries[0].SessionID != "smsn-01h455vb4pex5vsknk084sn003" {
		t.Fatalf("oldest kept = %s", summaries[0].SessionID)
	}
}
