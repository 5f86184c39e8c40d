// Package preflight provides readiness checks for the pieces dockhand needs
// before it can talk to a daemon: the socket or certificate material behind
// DOCKER_HOST, the event journal directory, and the daemon itself.
//
// The `dockhand doctor` command runs RunAll and renders the results as a
// table. Checks never fix anything; they only report.
package preflight
