package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"dockhand/internal/logging"
)

const (
	userAgent = "dockhand"
	// unixBaseURL is the authority used in request URLs sent over a socket;
	// the daemon ignores it.
	unixBaseURL = "http://docker"
	// maxErrorBody caps how much of a failed response is kept on APIError.
	maxErrorBody = 1 << 20
)

// Kind identifies the Transport variant.
type Kind int

const (
	KindUnix Kind = iota + 1
	KindTCP
	KindEncryptedTCP
)

func (k Kind) String() string {
	switch k {
	case KindUnix:
		return "unix"
	case KindTCP:
		return "tcp"
	case KindEncryptedTCP:
		return "tcp+tls"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Options carries the connection settings resolved by the caller.
type Options struct {
	// CertPath is a directory holding ca.pem, cert.pem and key.pem. A
	// non-empty value selects the encrypted TCP variant for network hosts.
	CertPath string
	// TLSVerify checks the daemon certificate against ca.pem. When false the
	// daemon certificate is not verified.
	TLSVerify bool
	Logger    *slog.Logger
}

// Request describes one call to the daemon. Path includes the query string.
type Request struct {
	Method      string
	Path        string
	Body        io.Reader
	ContentType string
	Header      http.Header
}

func (r Request) method() string {
	if r.Method == "" {
		return http.MethodGet
	}
	return r.Method
}

func (r Request) op() string {
	return r.method() + " " + r.Path
}

// Transport is a connection to one daemon. Its variant is fixed at
// construction. A Transport is safe for concurrent use.
type Transport struct {
	kind   Kind
	client *http.Client
	dialer *net.Dialer
	logger *slog.Logger

	// socketPath is set for KindUnix.
	socketPath string
	// host is the canonical scheme://host:port for KindTCP and KindEncryptedTCP.
	host string
	// tlsConfig is set for KindEncryptedTCP, and for KindTCP https hosts.
	tlsConfig *tls.Config
}

// Kind reports the variant chosen at construction.
func (t *Transport) Kind() Kind { return t.kind }

// SocketPath returns the Unix socket path, or "" for network variants.
func (t *Transport) SocketPath() string { return t.socketPath }

// Host returns the normalized scheme://host:port, or "" for the Unix variant.
func (t *Transport) Host() string { return t.host }

// String describes the daemon endpoint for logs and error messages.
func (t *Transport) String() string {
	switch t.kind {
	case KindUnix:
		return "unix://" + t.socketPath
	default:
		return t.host
	}
}

func (t *Transport) baseURL() string {
	switch t.kind {
	case KindUnix:
		return unixBaseURL
	default:
		return t.host
	}
}

// dialRaw opens a dedicated connection outside the client's pool.
func (t *Transport) dialRaw(ctx context.Context) (net.Conn, error) {
	switch t.kind {
	case KindUnix:
		return t.dialer.DialContext(ctx, "unix", t.socketPath)
	case KindTCP, KindEncryptedTCP:
		u, err := url.Parse(t.host)
		if err != nil {
			return nil, err
		}
		if t.tlsConfig == nil {
			return t.dialer.DialContext(ctx, "tcp", u.Host)
		}
		tlsDialer := &tls.Dialer{NetDialer: t.dialer, Config: t.tlsConfig}
		return tlsDialer.DialContext(ctx, "tcp", u.Host)
	default:
		return nil, fmt.Errorf("dial: unknown transport kind %v", t.kind)
	}
}

func newHTTPClient(rt *http.Transport) *http.Client {
	return &http.Client{
		Transport: rt,
		// Redirects are surfaced as API errors rather than followed.
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func newDialer() *net.Dialer {
	return &net.Dialer{KeepAlive: 30 * time.Second}
}

func (t *Transport) newHTTPRequest(ctx context.Context, req Request) (*http.Request, error) {
	path := req.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method(), t.baseURL()+path, req.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidRequest, req.op(), err)
	}
	for key, values := range req.Header {
		for _, value := range values {
			httpReq.Header.Add(key, value)
		}
	}
	if req.Body != nil && req.ContentType != "" {
		httpReq.Header.Set("Content-Type", req.ContentType)
	}
	if httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", userAgent)
	}
	return httpReq, nil
}

// requestLogger tags ctx with a fresh correlation id unless the caller
// already supplied one.
func (t *Transport) requestLogger(ctx context.Context) (context.Context, *slog.Logger) {
	if _, ok := logging.CorrelationIDFromContext(ctx); !ok {
		ctx = logging.WithCorrelationID(ctx, uuid.NewString())
	}
	return ctx, logging.WithContext(ctx, t.logger)
}

// roundTrip sends req through the pooled client. The caller owns the
// response body.
func (t *Transport) roundTrip(ctx context.Context, req Request) (*http.Response, error) {
	ctx, logger := t.requestLogger(ctx)
	httpReq, err := t.newHTTPRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := t.client.Do(httpReq)
	if err != nil {
		logger.Debug("daemon request failed",
			logging.String("method", httpReq.Method),
			logging.String("path", req.Path),
			logging.Duration("duration", time.Since(start)),
			logging.Error(err))
		return nil, &TransportError{Op: req.op(), Err: err}
	}
	logger.Debug("daemon responded",
		logging.String("method", httpReq.Method),
		logging.String("path", req.Path),
		logging.Int("status", resp.StatusCode),
		logging.Duration("duration", time.Since(start)))
	return resp, nil
}

func isSuccess(code int) bool {
	return code >= 200 && code < 300
}

// readAPIError drains at most maxErrorBody bytes of a failed response.
func readAPIError(resp *http.Response) *APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &APIError{StatusCode: resp.StatusCode, Body: string(body)}
}
