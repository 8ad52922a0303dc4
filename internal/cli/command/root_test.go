package command

import (
	"flag"
	"strings"
	"testing"

	"github.com/urfave/cli/v2"
)

func TestApp_CommandTree(t *testing.T) {
	app := App()

	want := []string{"snapshot", "process", "archive", "system"}
	var got []string
	for _, cmd := range app.Commands {
		got = append(got, cmd.Name)
	}
	for _, name := range want {
		found := false
		for _, g := range got {
			if g == name {
				found = true
			}
		}
		if !found {
			t.Errorf("command %q missing, have %v", name, got)
		}
	}
}

func TestParseGlobalFlags(t *testing.T) {
	set := flag.NewFlagSet("test", 0)
	set.String("server", "", "")
	set.String("output", "", "")
	set.Bool("wide", false, "")
	set.Parse([]string{})
	set.Set("server", "snap.example.com:5480")
	set.Set("output", "yaml")
	set.Set("wide", "true")

	c := cli.NewContext(App(), set, nil)
	flags := ParseGlobalFlags(c)

	if flags.Server != "snap.example.com:5480" {
		t.Errorf("Server = %q", flags.Server)
	}
	if flags.Output != "yaml" {
		t.Errorf("Output = %q", flags.Output)
	}
	if !flags.Wide {
		t.Error("Wide = false")
	}
}

func TestProcessList(t *testing.T) {
	srv := newStubServer(t, map[string]stubResponse{
		"GET /v1/processes": {data: map[string]any{
			"processes": []string{"a", "b", "c"},
		}},
	})

	out, err := runApp(t, srv, "process", "list")
	if err != nil {
		t.Fatalf("process list error = %v", err)
	}
	for _, want := range []string{"PROCESS ID", "a", "Total: 3 processes"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestArchiveList(t *testing.T) {
	srv := newStubServer(t, map[string]stubResponse{
		"GET /v1/archive": {data: []map[string]any{
			{"session_id": "smsn-a", "initiator": "b", "completed_at": 1756000000000, "message_count": 4},
		}},
	})

	out, err := runApp(t, srv, "archive", "list")
	if err != nil {
		t.Fatalf("archive list error = %v", err)
	}
	for _, want := range []string{"smsn-a", "Total: 1 archived snapshots"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestArchiveShow_MissingArg(t *testing.T) {
	srv := newStubServer(t, nil)

	_, err := runApp(t, srv, "archive", "show")
	if err == nil || !strings.Contains(err.Error(), "session ID required") {
		t.Errorf("error = %v", err)
	}
}

func TestSystemHealth(t *testing.T) {
	srv := newStubServer(t, map[string]stubResponse{
		"GET /health": {data: map[string]string{"status": "ok"}},
	})

	out, err := runApp(t, srv, "system", "health")
	if err != nil {
		t.Fatalf("system health error = %v", err)
	}
	if !strings.Contains(out, "Server is healthy") {
		t.Errorf("output:\n%s", out)
	}
}

func TestSystemVersion(t *testing.T) {
	srv := newStubServer(t, map[string]stubResponse{
		"GET /version": {data: map[string]string{
			"version":    "v1.2.3",
			"commit":     "abc1234",
			"build_time": "2026-08-01T00:00:00Z",
			"go_version": "go1.24",
		}},
	})

	out, err := runApp(t, srv, "system", "version")
	if err != nil {
		t.Fatalf("system version error = %v", err)
	}
	if !strings.Contains(out, "v1.2.3") || !strings.Contains(out, "abc1234") {
		t.Errorf("output:\n%s", out)
	}
}
