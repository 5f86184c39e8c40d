//go:build unix

package preflight

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dockhand/internal/testsupport"
)

func listenUnix(t *testing.T) string {
	t.Helper()
	path := filepath.Join(testsupport.SocketDir(t), "docker.sock")
	ln, err := net.Listen("unix", path)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })
	return path
}

func TestCheckSocketAccess_OK(t *testing.T) {
	result := CheckSocketAccess(listenUnix(t))
	if !result.Passed {
		t.Fatalf("expected pass for listening socket, got: %s", result.Detail)
	}
}

func TestCheckSocketAccess_NotExist(t *testing.T) {
	result := CheckSocketAccess(filepath.Join(t.TempDir(), "docker.sock"))
	if result.Passed || !strings.Contains(result.Detail, "does not exist") {
		t.Fatalf("expected missing socket failure, got: %+v", result)
	}
}

func TestCheckSocketAccess_NotSocket(t *testing.T) {
	f := filepath.Join(t.TempDir(), "docker.sock")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckSocketAccess(f)
	if result.Passed || !strings.Contains(result.Detail, "not a socket") {
		t.Fatalf("expected not-a-socket failure, got: %+v", result)
	}
}

func TestRunAllUnixHost(t *testing.T) {
	socket := listenUnix(t)
	cfg := testsupport.NewConfig(t, testsupport.WithHost("unix://"+socket))

	results := RunAll(context.Background(), cfg, stubPinger{body: "OK"})
	names := make([]string, 0, len(results))
	for _, r := range results {
		names = append(names, r.Name)
	}
	if strings.Join(names, ",") != "Docker socket,Event journal,Docker daemon" {
		t.Fatalf("unexpected checks: %v", names)
	}
	if Failed(results) {
		t.Fatalf("expected all checks to pass: %+v", results)
	}
}

func TestCheckJournalPath_ReadOnlyDir(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root bypasses directory permissions")
	}
	dir := t.TempDir()
	if err := os.Chmod(dir, 0o500); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chmod(dir, 0o700) })

	result := CheckJournalPath(filepath.Join(dir, "events.db"))
	if result.Passed || !strings.Contains(result.Detail, "insufficient permissions") {
		t.Fatalf("expected permission failure, got: %+v", result)
	}
}
