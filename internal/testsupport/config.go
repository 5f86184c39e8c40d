package testsupport

import (
	"path/filepath"
	"testing"

	"dockhand/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Journal.Path = filepath.Join(base, "journal", "events.db")
	cfgVal.Logging.File = ""

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithHost points the test config at a daemon address.
func WithHost(host string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Docker.Host = host
	}
}

// WithTLS sets the certificate directory and verification flag.
func WithTLS(certPath string, verify bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Docker.CertPath = certPath
		b.cfg.Docker.TLSVerify = verify
	}
}

// WithReconnect enables event stream reconnection with the given backoff ceiling.
func WithReconnect(maxBackoffSeconds int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Events.Reconnect = true
		b.cfg.Events.MaxBackoffSeconds = maxBackoffSeconds
	}
}
