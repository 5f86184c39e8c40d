package docker

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/docker/docker/pkg/stdcopy"

	"dockhand/internal/transport"
)

// AttachOptions selects which container streams an attach session carries.
type AttachOptions struct {
	Stdin  bool
	Stdout bool
	Stderr bool
	// Logs replays output produced before the session started.
	Logs       bool
	DetachKeys string
}

func (o AttachOptions) query() string {
	values := url.Values{}
	values.Set("stream", "1")
	if o.Stdin {
		values.Set("stdin", "1")
	}
	if o.Stdout {
		values.Set("stdout", "1")
	}
	if o.Stderr {
		values.Set("stderr", "1")
	}
	if o.Logs {
		values.Set("logs", "1")
	}
	if o.DetachKeys != "" {
		values.Set("detachKeys", o.DetachKeys)
	}
	return values.Encode()
}

// Attach upgrades a POST /containers/{id}/attach call into a raw duplex
// connection. For containers without a TTY the output is multiplexed with
// Docker's 8-byte frame headers; with a TTY it is the raw terminal stream.
func (c *Client) Attach(ctx context.Context, containerID string, opts AttachOptions) (*transport.HijackedConn, error) {
	containerID = strings.TrimSpace(containerID)
	if containerID == "" {
		return nil, fmt.Errorf("%w: container id is required", transport.ErrInvalidRequest)
	}
	path := "/containers/" + url.PathEscape(containerID) + "/attach?" + opts.query()
	return c.transport.Upgrade(ctx, transport.Request{Method: http.MethodPost, Path: path})
}

// CopyOutput copies an attach session's output to stdout and stderr until
// the daemon closes it. Without a TTY the stream is demultiplexed; with one
// everything goes to stdout.
func CopyOutput(stdout, stderr io.Writer, src io.Reader, tty bool) error {
	if tty {
		_, err := io.Copy(stdout, src)
		return err
	}
	_, err := stdcopy.StdCopy(stdout, stderr, src)
	return err
}
