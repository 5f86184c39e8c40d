package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"dockhand/internal/docker"
	"dockhand/internal/logging"
)

const (
	startEvent = `{"Type":"container","Action":"start","Actor":{"ID":"0123456789abcdef","Attributes":{"name":"web"}},"time":1700000000,"timeNano":1700000000000000000}`
	dieEvent   = `{"Type":"container","Action":"die","Actor":{"ID":"0123456789abcdef","Attributes":{"name":"web"}},"time":1700000005,"timeNano":1700000005000000000}`
)

func TestPingVersionInfoCommands(t *testing.T) {
	isolateEnv(t)
	host := startFakeDaemon(t, &fakeDaemon{})

	out, _, err := runCLI(t, host, "ping")
	if err != nil {
		t.Fatalf("ping: %v", err)
	}
	requireContains(t, out, "OK")
	requireContains(t, out, strings.Replace(host, "tcp://", "http://", 1))

	out, _, err = runCLI(t, host, "--json", "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	var version docker.Version
	if err := json.Unmarshal([]byte(out), &version); err != nil {
		t.Fatalf("version output is not JSON: %v\n%s", err, out)
	}
	if version.Version != "27.3.1" || version.Arch != "arm64" {
		t.Fatalf("unexpected version: %+v", version)
	}

	out, _, err = runCLI(t, host, "info")
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	requireContains(t, out, "builder")
	requireContains(t, out, "16MiB")
	requireContains(t, out, "2 (1 running, 0 paused, 1 stopped)")
}

func TestCommandsReportUnreachableDaemon(t *testing.T) {
	isolateEnv(t)
	socket := filepath.Join(t.TempDir(), "absent.sock")

	_, _, err := runCLI(t, "unix://"+socket, "ping")
	if err == nil {
		t.Fatal("expected error for missing socket")
	}
	requireContains(t, err.Error(), "not found; is the daemon running?")

	_, _, err = runCLI(t, "ftp://nowhere", "ping")
	if err == nil {
		t.Fatal("expected error for unsupported scheme")
	}
}

func TestEventsRecordsJournal(t *testing.T) {
	isolateEnv(t)
	daemon := &fakeDaemon{eventBatches: []string{startEvent + "\n" + dieEvent + "\n"}}
	host := startFakeDaemon(t, daemon)
	journal := filepath.Join(t.TempDir(), "events.db")

	out, _, err := runCLI(t, host, "events", "--until", "1700000010", "--filter", "container=web", "--journal", journal)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	requireContains(t, out, "2023-11-14T22:13:20Z Container start web (0123456789ab)")
	requireContains(t, out, "Container die web")

	calls := daemon.calls()
	if len(calls) != 1 {
		t.Fatalf("expected one events call, got %v", calls)
	}
	query, _ := url.ParseQuery(calls[0])
	if query.Get("until") != "1700000010" || query.Get("filters") != `{"container":["web"]}` {
		t.Fatalf("unexpected query: %v", query)
	}

	out, _, err = runCLI(t, host, "journal", "--journal", journal, "--limit", "1")
	if err != nil {
		t.Fatalf("journal: %v", err)
	}
	requireContains(t, out, "die")
	if strings.Contains(out, "start") {
		t.Fatalf("limit 1 should only show the newest event:\n%s", out)
	}
}

func TestEventsRejectsBadFlags(t *testing.T) {
	isolateEnv(t)
	host := startFakeDaemon(t, &fakeDaemon{})

	for _, args := range [][]string{
		{"events", "--filter", "novalue"},
		{"events", "--filter", "colour=red"},
		{"events", "--since", "yesterday"},
	} {
		if _, _, err := runCLI(t, host, args...); err == nil {
			t.Fatalf("expected error for %v", args)
		}
	}
}

func TestJournalMissing(t *testing.T) {
	isolateEnv(t)
	_, _, err := runCLI(t, "", "journal", "--journal", filepath.Join(t.TempDir(), "none.db"))
	if err == nil {
		t.Fatal("expected error for missing journal")
	}
	requireContains(t, err.Error(), "dockhand events --record")
}

func TestStreamEventsFollowReconnects(t *testing.T) {
	isolateEnv(t)
	daemon := &fakeDaemon{eventBatches: []string{
		startEvent + "\n",
		startEvent + "\n" + dieEvent + "\n",
	}}
	host := startFakeDaemon(t, daemon)

	client, err := docker.New(host, dockerOptions())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	errDone := errors.New("done")
	var actions []string
	err = streamEvents(context.Background(), client, docker.EventsOptions{}, true, time.Second, logging.NewNop(), func(ev docker.Event) error {
		actions = append(actions, ev.Action)
		if ev.Action == "die" {
			return errDone
		}
		return nil
	})
	if !errors.Is(err, errDone) {
		t.Fatalf("streamEvents = %v, want handler error", err)
	}
	if diff := cmp.Diff([]string{"start", "die"}, actions); diff != "" {
		t.Fatalf("actions mismatch (-want +got):\n%s", diff)
	}

	calls := daemon.calls()
	if len(calls) != 2 {
		t.Fatalf("expected a reconnect, got calls %v", calls)
	}
	query, _ := url.ParseQuery(calls[1])
	if query.Get("since") != "1700000000" {
		t.Fatalf("reconnect should resume from the last event, got %v", query)
	}
}

func TestParseTimeFlag(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tests := map[string]time.Time{
		"":                     {},
		"10m":                  now.Add(-10 * time.Minute),
		"1700000000":           time.Unix(1700000000, 0),
		"2024-04-30T08:00:00Z": time.Date(2024, 4, 30, 8, 0, 0, 0, time.UTC),
	}
	for input, want := range tests {
		got, err := parseTimeFlag(input, now)
		if err != nil {
			t.Fatalf("parseTimeFlag(%q): %v", input, err)
		}
		if !got.Equal(want) {
			t.Fatalf("parseTimeFlag(%q) = %v, want %v", input, got, want)
		}
	}
	if _, err := parseTimeFlag("last tuesday", now); err == nil {
		t.Fatal("expected error for unparseable time")
	}
}

func TestAttachCommand(t *testing.T) {
	isolateEnv(t)
	host := startFakeDaemon(t, &fakeDaemon{})

	out, errOut, err := runCLI(t, host, "attach", "web")
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if out != "listening on :8080\n" {
		t.Fatalf("stdout = %q", out)
	}
	requireContains(t, errOut, "warning: debug mode")

	if _, _, err := runCLI(t, host, "attach", "stopped"); err == nil || !strings.Contains(err.Error(), "not running") {
		t.Fatalf("attach stopped = %v", err)
	}
	if _, _, err := runCLI(t, host, "attach", "ghost"); err == nil || !strings.Contains(err.Error(), "No such container") {
		t.Fatalf("attach missing = %v", err)
	}
}

func TestDoctorCommand(t *testing.T) {
	isolateEnv(t)
	host := startFakeDaemon(t, &fakeDaemon{})

	out, _, err := runCLI(t, host, "doctor")
	if err != nil {
		t.Fatalf("doctor: %v\n%s", err, out)
	}
	requireContains(t, out, "Docker daemon")
	requireContains(t, out, "reachable (OK)")

	out, _, err = runCLI(t, "unix://"+filepath.Join(t.TempDir(), "absent.sock"), "doctor")
	if !errors.Is(err, errChecksFailed) {
		t.Fatalf("doctor with missing socket = %v", err)
	}
	requireContains(t, out, "FAIL")
}

func TestConfigInitAndShow(t *testing.T) {
	isolateEnv(t)
	target := filepath.Join(t.TempDir(), "dockhand.toml")

	out, _, err := runCLI(t, "", "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")

	if _, _, err := runCLI(t, "", "config", "init", "--path", target); err == nil {
		t.Fatal("expected error when config exists")
	}

	out, _, err = runCLI(t, "tcp://10.0.0.5:2375", "--config", target, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "tcp://10.0.0.5:2375")
}
