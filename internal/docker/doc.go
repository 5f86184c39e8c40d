// Package docker is the typed entry point dockhand commands use to talk to
// the daemon. It resolves a transport from configuration and wraps the
// handful of Engine API endpoints the CLI needs (ping, version, info, events,
// attach) plus generic text, JSON and streaming helpers for everything else.
//
// The package adds no retries or timeouts of its own; callers bound work with
// contexts and decide whether a failed stream is worth reopening.
package docker
