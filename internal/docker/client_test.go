package docker_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/docker/docker/pkg/stdcopy"
	"github.com/google/go-cmp/cmp"

	"dockhand/internal/config"
	"dockhand/internal/docker"
	"dockhand/internal/testsupport"
	"dockhand/internal/transport"
)

// fakeDaemon serves the endpoints the client wraps and records the last
// events query it saw.
type fakeDaemon struct {
	mu          sync.Mutex
	eventsQuery url.Values
}

func (d *fakeDaemon) lastEventsQuery() url.Values {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.eventsQuery
}

func (d *fakeDaemon) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /_ping", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "OK\n")
	})
	mux.HandleFunc("GET /version", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"Version":"27.3.1","ApiVersion":"1.47","MinAPIVersion":"1.24","Os":"linux","Arch":"amd64","GoVersion":"go1.22.7"}`)
	})
	mux.HandleFunc("GET /info", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"ID":"abc","Name":"builder","Containers":3,"ContainersRunning":1,"Images":7,"NCPU":8,"MemTotal":16777216,"Unknown":{"ignored":true}}`)
	})
	mux.HandleFunc("GET /events", func(w http.ResponseWriter, r *http.Request) {
		d.mu.Lock()
		d.eventsQuery = r.URL.Query()
		d.mu.Unlock()
		_, _ = io.WriteString(w, `{"Type":"container","Action":"start","Actor":{"ID":"c1","Attributes":{"name":"web"}},"time":1700000000,"timeNano":1700000000000000001}`+"\n")
		w.(http.Flusher).Flush()
		_, _ = io.WriteString(w, `{"status":"pull","id":"alpine","Type":"image","Action":"pull","Actor":{"ID":"alpine"},"time":1700000001}`+"\n")
	})
	mux.HandleFunc("POST /containers/create", func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || r.Header.Get("Content-Type") != "application/json" {
			http.Error(w, `{"message":"bad body"}`, http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = fmt.Fprintf(w, `{"Id":"new-%s","Warnings":[]}`, r.URL.Query().Get("name"))
	})
	mux.HandleFunc("DELETE /containers/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") == "missing" {
			http.Error(w, `{"message":"No such container: missing"}`, http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /auth", func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprintf(w, `{"Status":%q}`, r.Header.Get("X-Registry-Auth"))
	})
	mux.HandleFunc("GET /containers/{id}/logs", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "line one\n")
		w.(http.Flusher).Flush()
		_, _ = io.WriteString(w, "line two\n")
	})
	mux.HandleFunc("POST /images/create", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"status":"Pulling from library/alpine"}`)
		w.(http.Flusher).Flush()
		_, _ = io.WriteString(w, `{"status":"Download complete"}`)
	})
	mux.HandleFunc("POST /containers/{id}/attach", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("stream") != "1" || q.Get("stdout") != "1" || q.Get("stderr") != "1" {
			http.Error(w, `{"message":"bad attach query"}`, http.StatusBadRequest)
			return
		}
		if r.PathValue("id") == "stopped" {
			http.Error(w, `{"message":"container stopped is not running"}`, http.StatusConflict)
			return
		}
		conn, rw, err := w.(http.Hijacker).Hijack()
		if err != nil {
			t.Errorf("hijack: %v", err)
			return
		}
		defer conn.Close()
		fmt.Fprint(rw, "HTTP/1.1 101 UPGRADED\r\nConnection: Upgrade\r\nUpgrade: tcp\r\n\r\n")
		_, _ = stdcopy.NewStdWriter(rw, stdcopy.Stdout).Write([]byte("hello from stdout\n"))
		_, _ = stdcopy.NewStdWriter(rw, stdcopy.Stderr).Write([]byte("oops\n"))
		_ = rw.Flush()
	})
	return mux
}

func newClient(t *testing.T) (*docker.Client, *fakeDaemon) {
	t.Helper()
	daemon := &fakeDaemon{}
	srv := httptest.NewServer(daemon.handler(t))
	t.Cleanup(srv.Close)

	cfg := testsupport.NewConfig(t, testsupport.WithHost("tcp://"+strings.TrimPrefix(srv.URL, "http://")))
	client, err := docker.NewFromConfig(cfg, nil)
	if err != nil {
		t.Fatalf("NewFromConfig: %v", err)
	}
	return client, daemon
}

func TestPingVersionInfo(t *testing.T) {
	client, _ := newClient(t)
	ctx := context.Background()

	pong, err := client.Ping(ctx)
	if err != nil || pong != "OK" {
		t.Fatalf("Ping = %q, %v", pong, err)
	}

	version, err := client.Version(ctx)
	if err != nil {
		t.Fatalf("Version: %v", err)
	}
	wantVersion := docker.Version{Version: "27.3.1", APIVersion: "1.47", MinAPIVersion: "1.24", Os: "linux", Arch: "amd64", GoVersion: "go1.22.7"}
	if diff := cmp.Diff(wantVersion, version); diff != "" {
		t.Fatalf("version mismatch (-want +got):\n%s", diff)
	}

	info, err := client.Info(ctx)
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	wantInfo := docker.Info{ID: "abc", Name: "builder", Containers: 3, ContainersRunning: 1, Images: 7, NCPU: 8, MemTotal: 16777216}
	if diff := cmp.Diff(wantInfo, info); diff != "" {
		t.Fatalf("info mismatch (-want +got):\n%s", diff)
	}
}

func TestEventsEncodesQueryAndDecodesLines(t *testing.T) {
	client, daemon := newClient(t)

	filters := docker.EventFilter{}
	filters.Add("type", "container")
	filters.Add("event", "start")
	filters.Add("event", "die")
	since := time.Unix(1700000000, 0)

	stream, err := client.Events(context.Background(), docker.EventsOptions{Since: since, Filters: filters})
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	var got []docker.Event
	for ev, err := range stream.All() {
		if err != nil {
			t.Fatalf("event stream: %v", err)
		}
		got = append(got, ev)
	}

	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	if got[0].Name() != "web" || got[0].Action != "start" || got[0].Timestamp().UnixNano() != 1700000000000000001 {
		t.Fatalf("unexpected first event: %+v", got[0])
	}
	if got[1].Status != "pull" || got[1].Name() != "alpine" || got[1].Timestamp().Unix() != 1700000001 {
		t.Fatalf("unexpected second event: %+v", got[1])
	}

	query := daemon.lastEventsQuery()
	if query.Get("since") != "1700000000" || query.Has("until") {
		t.Fatalf("unexpected time bounds: %v", query)
	}
	var decoded map[string][]string
	if err := json.Unmarshal([]byte(query.Get("filters")), &decoded); err != nil {
		t.Fatalf("filters are not JSON: %v", err)
	}
	if diff := cmp.Diff(map[string][]string{"type": {"container"}, "event": {"start", "die"}}, decoded); diff != "" {
		t.Fatalf("filters mismatch (-want +got):\n%s", diff)
	}
}

func TestEventsRejectsUnknownFilter(t *testing.T) {
	client, _ := newClient(t)
	_, err := client.Events(context.Background(), docker.EventsOptions{Filters: docker.EventFilter{"colour": {"red"}}})
	if !errors.Is(err, transport.ErrInvalidRequest) {
		t.Fatalf("error = %v, want ErrInvalidRequest", err)
	}
}

func TestJSONHelpers(t *testing.T) {
	client, _ := newClient(t)
	ctx := context.Background()

	type created struct {
		ID       string   `json:"Id"`
		Warnings []string `json:"Warnings"`
	}
	got, err := docker.PostJSON[created](ctx, client, "/containers/create?name=web", map[string]string{"Image": "alpine"})
	if err != nil {
		t.Fatalf("PostJSON: %v", err)
	}
	if diff := cmp.Diff(created{ID: "new-web", Warnings: []string{}}, got); diff != "" {
		t.Fatalf("created mismatch (-want +got):\n%s", diff)
	}

	if _, err := client.Post(ctx, "/containers/create", nil); !transport.IsAPIError(err, http.StatusBadRequest) {
		t.Fatalf("Post without body = %v, want 400", err)
	}
	if _, err := client.Delete(ctx, "/containers/web"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := client.Delete(ctx, "/containers/missing"); !transport.IsNotFound(err) {
		t.Fatalf("Delete missing = %v, want 404", err)
	}
	if _, err := client.Post(ctx, "/containers/create", make(chan int)); !errors.Is(err, transport.ErrInvalidRequest) {
		t.Fatalf("unencodable body = %v, want ErrInvalidRequest", err)
	}
}

func TestStreamPostInto(t *testing.T) {
	client, _ := newClient(t)

	type pullStatus struct {
		Status string `json:"status"`
	}
	stream, err := docker.StreamPostInto[pullStatus](context.Background(), client, "/images/create?fromImage=alpine", nil)
	if err != nil {
		t.Fatalf("StreamPostInto: %v", err)
	}
	var statuses []string
	for v, err := range stream.All() {
		if err != nil {
			t.Fatalf("stream: %v", err)
		}
		statuses = append(statuses, v.Status)
	}
	if diff := cmp.Diff([]string{"Pulling from library/alpine", "Download complete"}, statuses); diff != "" {
		t.Fatalf("statuses mismatch (-want +got):\n%s", diff)
	}
}

func TestAttachDemultiplexesOutput(t *testing.T) {
	client, _ := newClient(t)

	conn, err := client.Attach(context.Background(), "web", docker.AttachOptions{Stdout: true, Stderr: true})
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	defer conn.Close()

	var stdout, stderr bytes.Buffer
	if err := docker.CopyOutput(&stdout, &stderr, conn, false); err != nil {
		t.Fatalf("CopyOutput: %v", err)
	}
	if stdout.String() != "hello from stdout\n" || stderr.String() != "oops\n" {
		t.Fatalf("stdout=%q stderr=%q", stdout.String(), stderr.String())
	}
}

func TestAttachErrors(t *testing.T) {
	client, _ := newClient(t)

	if _, err := client.Attach(context.Background(), " ", docker.AttachOptions{}); !errors.Is(err, transport.ErrInvalidRequest) {
		t.Fatalf("empty id = %v, want ErrInvalidRequest", err)
	}
	_, err := client.Attach(context.Background(), "stopped", docker.AttachOptions{Stdout: true, Stderr: true})
	if !transport.IsAPIError(err, http.StatusConflict) {
		t.Fatalf("stopped container = %v, want 409", err)
	}
}

func TestNewFromConfigFollowsDockerEnvironment(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
	t.Setenv("DOCKER_CERT_PATH", "")
	t.Setenv("DOCKER_TLS_VERIFY", "")
	t.Setenv("DOCKER_HOST", "tcp://127.0.0.1:2375")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	client, err := docker.NewFromConfig(cfg, nil)
	if err != nil {
		t.Fatalf("NewFromConfig: %v", err)
	}
	if client.Transport().Kind() != transport.KindTCP || client.Transport().Host() != "http://127.0.0.1:2375" {
		t.Fatalf("unexpected transport %v %q", client.Transport().Kind(), client.Transport().Host())
	}

	material := testsupport.NewTLSMaterial(t)
	t.Setenv("DOCKER_HOST", "tcp://127.0.0.1:2376")
	t.Setenv("DOCKER_CERT_PATH", material.Dir)
	t.Setenv("DOCKER_TLS_VERIFY", "1")

	cfg, _, _, err = config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	client, err = docker.NewFromConfig(cfg, nil)
	if err != nil {
		t.Fatalf("NewFromConfig: %v", err)
	}
	if client.Transport().Kind() != transport.KindEncryptedTCP || client.Transport().Host() != "https://127.0.0.1:2376" {
		t.Fatalf("unexpected transport %v %q", client.Transport().Kind(), client.Transport().Host())
	}
}

func TestNewFromConfigRejectsNil(t *testing.T) {
	if _, err := docker.NewFromConfig(nil, nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}

func TestPostJSONWithHeadersAndStreamGet(t *testing.T) {
	client, _ := newClient(t)
	ctx := context.Background()

	type authStatus struct {
		Status string `json:"Status"`
	}
	header := http.Header{}
	header.Set("X-Registry-Auth", "e30=")
	got, err := docker.PostJSONWithHeaders[authStatus](ctx, client, "/auth", map[string]string{}, header)
	if err != nil {
		t.Fatalf("PostJSONWithHeaders: %v", err)
	}
	if got.Status != "e30=" {
		t.Fatalf("header not forwarded: %+v", got)
	}

	stream, err := client.StreamGet(ctx, "/containers/web/logs?stdout=1&follow=1")
	if err != nil {
		t.Fatalf("StreamGet: %v", err)
	}
	var logs []byte
	for chunk, err := range stream.All() {
		if err != nil {
			t.Fatalf("stream: %v", err)
		}
		logs = append(logs, chunk...)
	}
	if string(logs) != "line one\nline two\n" {
		t.Fatalf("logs = %q", logs)
	}
}
