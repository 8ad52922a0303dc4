package command

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
)

// stubServer serves canned envelope responses keyed by method+path.
type stubServer struct {
	*httptest.Server
	requests []string
}

type stubResponse struct {
	status int
	code   string
	msg    string
	data   any
}

func newStubServer(t *testing.T, responses map[string]stubResponse) *stubServer {
	t.Helper()

	s := &stubServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		s.requests = append(s.requests, key)

		resp, ok := responses[key]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{
				"code":    "SM-SESS-4040",
				"message": "not found",
			})
			return
		}

		status := resp.status
		if status == 0 {
			status = http.StatusOK
		}
		code := resp.code
		if code == "" {
			code = "OK"
		}
		msg := resp.msg
		if msg == "" {
			msg = "Success"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]any{
			"code":    code,
			"message": msg,
			"data":    resp.data,
		})
	}))
	t.Cleanup(s.Close)
	return s
}

// runApp executes the CLI with args against the stub server and
// captures stdout.
func runApp(t *testing.T, srv *stubServer, args ...string) (string, error) {
	t.Helper()

	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe() error = %v", err)
	}
	os.Stdout = w

	full := append([]string{"snapmesh-cli", "--server", srv.URL}, args...)
	runErr := App().Run(full)

	w.Close()
	os.Stdout = old

	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read captured stdout: %v", err)
	}
	return string(out), runErr
}
