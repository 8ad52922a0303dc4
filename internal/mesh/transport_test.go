package mesh

import (
	"fmt"
	"testing"
	"time"

	"github.com/yndnr/snapmesh-go/internal/core/domain"
	"github.com/yndnr/snapmesh-go/internal/mesh/topology"
)

const recvTimeout = 2 * time.Second

func recv(t *testing.T, inbox <-chan domain.Frame) domain.Frame {
	t.Helper()
	select {
	case f := <-inbox:
		return f
	case <-time.After(recvTimeout):
		t.Fatalf("timed out waiting for frame")
		return domain.Frame{}
	}
}

func TestTransport_FIFOPerChannel(t *testing.T) {
	tr := New()
	defer tr.Close()

	if _, err := tr.AddProcess("a"); err != nil {
		t.Fatalf("AddProcess(a) error = %v", err)
	}
	inbox, err := tr.AddProcess("b")
	if err != nil {
		t.Fatalf("AddProcess(b) error = %v", err)
	}
	ch, err := tr.Connect("a", "b")
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	const n = 100
	for i := 0; i < n; i++ {
		f := domain.NewApplicationFrame([]byte(fmt.Sprintf("msg-%03d", i)))
		if err := tr.Send(ch, f); err != nil {
			t.Fatalf("Send(%d) error = %v", i, err)
		}
	}

	for i := 0; i < n; i++ {
		f := recv(t, inbox)
		want := fmt.Sprintf("msg-%03d", i)
		if string(f.Payload) != want {
			t.Fatalf("frame %d payload = %q, want %q", i, f.Payload, want)
		}
		if f.Channel != ch {
			t.Fatalf("frame %d channel = %q, want %q", i, f.Channel, ch)
		}
	}
}

func TestTransport_FramesStampedPerChannel(t *testing.T) {
	tr := New()
	defer tr.Close()

	for _, p := range []domain.ProcessID{"a", "b", "c"} {
		if _, err := tr.AddProcess(p); err != nil {
			t.Fatalf("AddProcess(%s) error = %v", p, err)
		}
	}
	inbox, _ := tr.Inbox("c")
	chAC, err := tr.Connect("a", "c")
	if err != nil {
		t.Fatalf("Connect(a,c) error = %v", err)
	}
	chBC, err := tr.Connect("b", "c")
	if err != nil {
		t.Fatalf("Connect(b,c) error = %v", err)
	}

	if err := tr.Send(chAC, domain.NewApplicationFrame([]byte("from-a"))); err != nil {
		t.Fatalf("Send(a->c) error = %v", err)
	}
	if err := tr.Send(chBC, domain.NewApplicationFrame([]byte("from-b"))); err != nil {
		t.Fatalf("Send(b->c) error = %v", err)
	}

	seen := make(map[domain.ChannelID]string, 2)
	for i := 0; i < 2; i++ {
		f := recv(t, inbox)
		seen[f.Channel] = string(f.Payload)
	}
	if seen[chAC] != "from-a" || seen[chBC] != "from-b" {
		t.Fatalf("channel stamping mismatch: %v", seen)
	}
}

func TestTransport_SendUnknownChannel(t *testing.T) {
	tr := New()
	defer tr.Close()

	err := tr.Send("a->b", domain.NewApplicationFrame([]byte("x")))
	if !domain.IsDomainError(err, "SM-CHAN-4040") {
		t.Fatalf("Send() error = %v, want SM-CHAN-4040", err)
	}
}

func TestTransport_SendAfterClose(t *testing.T) {
	tr := New()
	if _, err := tr.AddProcess("a"); err != nil {
		t.Fatalf("AddProcess(a) error = %v", err)
	}
	if _, err := tr.AddProcess("b"); err != nil {
		t.Fatalf("AddProcess(b) error = %v", err)
	}
	ch, err := tr.Connect("a", "b")
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	tr.Close()

	err = tr.Send(ch, domain.NewApplicationFrame([]byte("late")))
	if !domain.IsDomainError(err, "SM-CHAN-4001") {
		t.Fatalf("Send() after close error = %v, want SM-CHAN-4001", err)
	}

	// Close is idempotent.
	tr.Close()
}

func TestTransport_DuplicateProcess(t *testing.T) {
	tr := New()
	defer tr.Close()

	if _, err := tr.AddProcess("a"); err != nil {
		t.Fatalf("AddProcess(a) error = %v", err)
	}
	if _, err := tr.AddProcess("a"); !domain.IsDomainError(err, "SM-ARG-1001") {
		t.Fatalf("duplicate AddProcess error = %v, want SM-ARG-1001", err)
	}
}

func TestTransport_ConnectErrors(t *testing.T) {
	tr := New()
	defer tr.Close()

	if _, err := tr.AddProcess("a"); err != nil {
		t.Fatalf("AddProcess(a) error = %v", err)
	}
	if _, err := tr.AddProcess("b"); err != nil {
		t.Fatalf("AddProcess(b) error = %v", err)
	}

	if _, err := tr.Connect("a", "a"); !domain.IsDomainError(err, "SM-ARG-1001") {
		t.Fatalf("self-loop Connect error = %v, want SM-ARG-1001", err)
	}
	if _, err := tr.Connect("a", "ghost"); !domain.IsDomainError(err, "SM-PROC-4040") {
		t.Fatalf("unknown endpoint Connect error = %v, want SM-PROC-4040", err)
	}
	if _, err := tr.Connect("a", "b"); err != nil {
		t.Fatalf("Connect(a,b) error = %v", err)
	}
	if _, err := tr.Connect("a", "b"); !domain.IsDomainError(err, "SM-ARG-1001") {
		t.Fatalf("duplicate Connect error = %v, want SM-ARG-1001", err)
	}
}

func TestBuild_FromTopology(t *testing.T) {
	tr, err := Build(topology.Ring(100, "a", "b", "c"))
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	defer tr.Close()

	wantIn := []domain.ChannelID{"c->a"}
	gotIn := tr.Incoming("a")
	if len(gotIn) != 1 || gotIn[0] != wantIn[0] {
		t.Fatalf("Incoming(a) = %v, want %v", gotIn, wantIn)
	}
	wantOut := []domain.ChannelID{"a->b"}
	gotOut := tr.Outgoing("a")
	if len(gotOut) != 1 || gotOut[0] != wantOut[0] {
		t.Fatalf("Outgoing(a) = %v, want %v", gotOut, wantOut)
	}

	inbox, ok := tr.Inbox("b")
	if !ok {
		t.Fatalf("Inbox(b) not found")
	}
	if err := tr.Send("a->b", domain.NewApplicationFrame([]byte("hi"))); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if f := recv(t, inbox); string(f.Payload) != "hi" {
		t.Fatalf("payload = %q, want %q", f.Payload, "hi")
	}
}

func TestBuild_InvalidSpec(t *testing.T) {
	_, err := Build(&topology.Spec{})
	if !domain.IsDomainError(err, "SM-TOPO-4001") {
		t.Fatalf("Build() error = %v, want SM-TOPO-4001", err)
	}
}
