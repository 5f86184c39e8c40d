package transport

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"dockhand/internal/logging"
)

// HijackedConn is the raw byte stream left after the daemon switched
// protocols. Bytes the daemon sent right after its 101 response are
// returned by Read before anything else on the connection.
type HijackedConn struct {
	net.Conn
	reader *bufio.Reader
}

func (c *HijackedConn) Read(p []byte) (int, error) {
	return c.reader.Read(p)
}

// CloseWrite half-closes the connection so the daemon sees end of input
// while output keeps flowing. It returns errors.ErrUnsupported when the
// underlying connection cannot be half-closed.
func (c *HijackedConn) CloseWrite() error {
	if cw, ok := c.Conn.(interface{ CloseWrite() error }); ok {
		return cw.CloseWrite()
	}
	return errors.ErrUnsupported
}

// Upgrade sends req on a dedicated connection with "Connection: Upgrade" and
// "Upgrade: tcp" and, when the daemon answers 101 Switching Protocols, hands
// the connection over. The connection never goes back to the pool; the
// caller must Close it.
//
// ctx bounds the handshake only. A non-2xx answer returns *APIError, any
// other status ErrUpgradeDeclined.
func (t *Transport) Upgrade(ctx context.Context, req Request) (*HijackedConn, error) {
	ctx, logger := t.requestLogger(ctx)
	httpReq, err := t.newHTTPRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Connection", "Upgrade")
	httpReq.Header.Set("Upgrade", "tcp")

	start := time.Now()
	conn, err := t.dialRaw(ctx)
	if err != nil {
		return nil, &TransportError{Op: req.op(), Err: err}
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })

	reader := bufio.NewReader(conn)
	resp, err := handshake(conn, reader, httpReq)
	if !stop() {
		_ = conn.Close()
		return nil, &TransportError{Op: req.op(), Err: ctx.Err()}
	}
	if err != nil {
		_ = conn.Close()
		return nil, &TransportError{Op: req.op(), Err: err}
	}

	logger.Debug("daemon answered upgrade",
		logging.String("method", httpReq.Method),
		logging.String("path", req.Path),
		logging.Int("status", resp.StatusCode),
		logging.Duration("duration", time.Since(start)))

	if resp.StatusCode == http.StatusSwitchingProtocols {
		return &HijackedConn{Conn: conn, reader: reader}, nil
	}
	defer conn.Close()
	if !isSuccess(resp.StatusCode) {
		apiErr := readAPIError(resp)
		_ = resp.Body.Close()
		return nil, apiErr
	}
	_ = resp.Body.Close()
	return nil, ErrUpgradeDeclined
}

func handshake(conn net.Conn, reader *bufio.Reader, req *http.Request) (*http.Response, error) {
	if err := req.Write(conn); err != nil {
		return nil, err
	}
	return http.ReadResponse(reader, req)
}
