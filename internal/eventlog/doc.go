// Package eventlog keeps a local SQLite journal of daemon events.
//
// The events command records every event it receives so that `dockhand
// journal` can show recent activity after the live stream has gone. Only one
// recorder may hold a journal at a time; Open takes an exclusive file lock
// beside the database and fails with ErrLocked when another process owns it.
package eventlog
