package main

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/docker/docker/pkg/stdcopy"

	"dockhand/internal/logging"
	"dockhand/internal/transport"
)

// fakeDaemon is a minimal Engine API used by the command tests.
type fakeDaemon struct {
	mu          sync.Mutex
	eventsCalls []string
	// eventBatches holds the body served for each successive /events call;
	// the last batch repeats.
	eventBatches []string
}

func (d *fakeDaemon) recordEvents(rawQuery string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.eventsCalls = append(d.eventsCalls, rawQuery)
	idx := min(len(d.eventsCalls), len(d.eventBatches)) - 1
	if idx < 0 {
		return ""
	}
	return d.eventBatches[idx]
}

func (d *fakeDaemon) calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.eventsCalls...)
}

func startFakeDaemon(t *testing.T, d *fakeDaemon) string {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /_ping", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "OK")
	})
	mux.HandleFunc("GET /version", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"Version":"27.3.1","ApiVersion":"1.47","Os":"linux","Arch":"arm64"}`)
	})
	mux.HandleFunc("GET /info", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"Name":"builder","NCPU":4,"MemTotal":16777216,"Containers":2,"ContainersRunning":1,"ContainersStopped":1}`)
	})
	mux.HandleFunc("GET /events", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, d.recordEvents(r.URL.RawQuery))
	})
	mux.HandleFunc("GET /containers/{id}/json", func(w http.ResponseWriter, r *http.Request) {
		switch r.PathValue("id") {
		case "web":
			_, _ = io.WriteString(w, `{"Id":"0123456789abcdef","Name":"/web","State":{"Running":true},"Config":{"Tty":false,"OpenStdin":false}}`)
		case "stopped":
			_, _ = io.WriteString(w, `{"Id":"fedcba","Name":"/stopped","State":{"Running":false},"Config":{}}`)
		default:
			http.Error(w, `{"message":"No such container: `+r.PathValue("id")+`"}`, http.StatusNotFound)
		}
	})
	mux.HandleFunc("POST /containers/{id}/attach", func(w http.ResponseWriter, r *http.Request) {
		conn, rw, err := w.(http.Hijacker).Hijack()
		if err != nil {
			t.Errorf("hijack: %v", err)
			return
		}
		defer conn.Close()
		fmt.Fprint(rw, "HTTP/1.1 101 UPGRADED\r\nConnection: Upgrade\r\nUpgrade: tcp\r\n\r\n")
		_, _ = stdcopy.NewStdWriter(rw, stdcopy.Stdout).Write([]byte("listening on :8080\n"))
		_, _ = stdcopy.NewStdWriter(rw, stdcopy.Stderr).Write([]byte("warning: debug mode\n"))
		_ = rw.Flush()
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return "tcp://" + strings.TrimPrefix(srv.URL, "http://")
}

// isolateEnv keeps user configuration and DOCKER_* variables out of tests.
func isolateEnv(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("DOCKER_HOST", "")
	t.Setenv("DOCKER_CERT_PATH", "")
	t.Setenv("DOCKER_TLS_VERIFY", "")
	t.Chdir(t.TempDir())
	return home
}

func runCLI(t *testing.T, host string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(""))
	var flags []string
	if host != "" {
		flags = append(flags, "--host", host)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func dockerOptions() transport.Options {
	return transport.Options{Logger: logging.NewNop()}
}
