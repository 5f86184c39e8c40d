package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"dockhand/internal/transport"
)

const daemonCheckTimeout = 5 * time.Second

// CheckTLSMaterial loads the client certificate material the encrypted
// transport would use.
func CheckTLSMaterial(dir string, verify bool) Result {
	const name = "TLS material"

	if _, err := transport.LoadTLSConfig(dir, verify); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", dir, err)}
	}
	if !verify {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (loaded; daemon certificate not verified)", dir)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (loaded, verifying with %s)", dir, transport.CAFile)}
}

// CheckJournalPath verifies the journal directory is writable. A missing
// directory passes because the journal creates it on first use.
func CheckJournalPath(path string) Result {
	const name = "Event journal"

	dir := filepath.Dir(path)
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (will be created)", dir)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", dir, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", dir)}
	}
	if err := dirWritable(dir); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", dir, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", dir)}
}

// CheckDaemon performs one _ping round trip with a 5-second timeout and no
// retries.
func CheckDaemon(ctx context.Context, pinger Pinger) Result {
	const name = "Docker daemon"

	checkCtx, cancel := context.WithTimeout(ctx, daemonCheckTimeout)
	defer cancel()

	body, err := pinger.Ping(checkCtx)
	if err != nil {
		return Result{Name: name, Detail: summarizeDaemonError(err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("reachable (%s)", body)}
}

func summarizeDaemonError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "ping timed out (daemon unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "ping timed out (daemon unreachable)"
	}
	var apiErr *transport.APIError
	if errors.As(err, &apiErr) {
		return fmt.Sprintf("daemon answered %d: %s", apiErr.StatusCode, apiErr.Message())
	}
	return err.Error()
}
