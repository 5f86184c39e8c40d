package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"dockhand/internal/logging"
)

const defaultPort = "80"

// New builds the Transport selected by target:
//
//   - unix:///path selects the Unix-socket variant;
//   - tcp://, http:// and https:// select encrypted TCP when opts.CertPath is
//     set, plain TCP otherwise.
//
// Network hosts are normalized to scheme://host:port with port 80 when none
// is given; tcp becomes http, and the encrypted variant always uses https.
// Every error returned by New is a construction error.
func New(target string, opts Options) (*Transport, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return nil, fmt.Errorf("%w: empty address", ErrInvalidHost)
	}
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidHost, target, err)
	}

	logger := logging.NewComponentLogger(opts.Logger, "transport")

	switch u.Scheme {
	case "unix":
		return newUnix(u.Host+u.Path, logger)
	case "tcp", "http", "https":
		hostPort, err := normalizeHostPort(u)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrInvalidHost, target, err)
		}
		if opts.CertPath != "" {
			return newEncryptedTCP(hostPort, opts, logger)
		}
		scheme := u.Scheme
		if scheme == "tcp" {
			scheme = "http"
		}
		return newTCP(scheme, hostPort, logger)
	case "":
		return nil, fmt.Errorf("%w: %q has no scheme", ErrInvalidHost, target)
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidHost, u.Scheme)
	}
}

func normalizeHostPort(u *url.URL) (string, error) {
	host := u.Hostname()
	if host == "" {
		return "", errors.New("missing host")
	}
	port := u.Port()
	if port == "" {
		port = defaultPort
	}
	n, err := strconv.Atoi(port)
	if err != nil || n <= 0 || n > 65535 {
		return "", fmt.Errorf("invalid port %q", port)
	}
	return net.JoinHostPort(host, port), nil
}

func newUnix(path string, logger *slog.Logger) (*Transport, error) {
	if !unixSocketsSupported {
		return nil, fmt.Errorf("%w: unix://%s", ErrUnixUnsupported, path)
	}
	if path == "" {
		return nil, fmt.Errorf("%w: empty unix socket path", ErrInvalidHost)
	}
	dialer := newDialer()
	rt := &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			return dialer.DialContext(ctx, "unix", path)
		},
		// Socket connections are never pooled.
		DisableKeepAlives: true,
	}
	return &Transport{
		kind:       KindUnix,
		client:     newHTTPClient(rt),
		dialer:     dialer,
		logger:     logger,
		socketPath: path,
	}, nil
}

func newTCP(scheme, hostPort string, logger *slog.Logger) (*Transport, error) {
	dialer := newDialer()
	rt := &http.Transport{
		DialContext: dialer.DialContext,
	}
	t := &Transport{
		kind:   KindTCP,
		client: newHTTPClient(rt),
		dialer: dialer,
		logger: logger,
		host:   scheme + "://" + hostPort,
	}
	if scheme == "https" {
		t.tlsConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		rt.TLSClientConfig = t.tlsConfig
	}
	return t, nil
}

func newEncryptedTCP(hostPort string, opts Options, logger *slog.Logger) (*Transport, error) {
	tlsConfig, err := LoadTLSConfig(opts.CertPath, opts.TLSVerify)
	if err != nil {
		return nil, err
	}
	if !opts.TLSVerify {
		logging.WarnWithContext(logger, "daemon certificate verification disabled",
			"tls_verify_disabled",
			logging.String("cert_path", opts.CertPath),
			logging.String(logging.FieldImpact, "the daemon's identity is not checked; traffic may be intercepted"),
			logging.String(logging.FieldErrorHint, "set DOCKER_TLS_VERIFY=1 and provide ca.pem"))
	}
	dialer := newDialer()
	rt := &http.Transport{
		DialContext:     dialer.DialContext,
		TLSClientConfig: tlsConfig,
	}
	return &Transport{
		kind:      KindEncryptedTCP,
		client:    newHTTPClient(rt),
		dialer:    dialer,
		logger:    logger,
		host:      "https://" + hostPort,
		tlsConfig: tlsConfig,
	}, nil
}
