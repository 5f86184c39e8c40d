package config

const (
	defaultHost                = "unix:///var/run/docker.sock"
	defaultCertPath            = "~/.docker"
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultJournalPath         = "~/.local/share/dockhand/events.db"
	defaultEventsReconnect     = false
	defaultEventsMaxBackoffSec = 30
)

const (
	envHost      = "DOCKER_HOST"
	envCertPath  = "DOCKER_CERT_PATH"
	envTLSVerify = "DOCKER_TLS_VERIFY"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Docker: Docker{
			Host: defaultHost,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Journal: Journal{
			Path: defaultJournalPath,
		},
		Events: Events{
			Reconnect:         defaultEventsReconnect,
			MaxBackoffSeconds: defaultEventsMaxBackoffSec,
		},
	}
}
