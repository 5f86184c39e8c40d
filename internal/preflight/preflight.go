package preflight

import (
	"context"
	"net/url"

	"dockhand/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Pinger is the daemon round trip CheckDaemon performs.
type Pinger interface {
	Ping(ctx context.Context) (string, error)
}

// RunAll executes the checks that apply to cfg. The socket check only runs
// for unix:// hosts and the TLS check only when a certificate directory is
// configured for a network host. A nil pinger skips the daemon check.
func RunAll(ctx context.Context, cfg *config.Config, pinger Pinger) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	u, err := url.Parse(cfg.Docker.Host)
	if err != nil {
		results = append(results, Result{Name: "Docker host", Detail: err.Error()})
	} else if u.Scheme == "unix" {
		results = append(results, CheckSocketAccess(u.Host+u.Path))
	} else if cfg.Docker.CertPath != "" {
		results = append(results, CheckTLSMaterial(cfg.Docker.CertPath, cfg.Docker.TLSVerify))
	}

	if cfg.Journal.Path != "" {
		results = append(results, CheckJournalPath(cfg.Journal.Path))
	}

	if pinger != nil {
		results = append(results, CheckDaemon(ctx, pinger))
	}

	return results
}

// Failed reports whether any result did not pass.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return true
		}
	}
	return false
}
