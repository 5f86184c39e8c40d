package config

import (
	"fmt"
	"strings"
)

// applyEnv overlays the Docker environment signals. lookup is os.LookupEnv
// outside of tests.
func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	if value, ok := lookup(envHost); ok && strings.TrimSpace(value) != "" {
		c.Docker.Host = value
	}
	if value, ok := lookup(envCertPath); ok && strings.TrimSpace(value) != "" {
		c.Docker.CertPath = value
	}
	// Docker treats any non-empty DOCKER_TLS_VERIFY as enabled, including "0".
	if value, ok := lookup(envTLSVerify); ok && value != "" {
		c.Docker.TLSVerify = true
	}
}

func (c *Config) normalize() error {
	c.Docker.Host = strings.TrimSpace(c.Docker.Host)
	if c.Docker.Host == "" {
		c.Docker.Host = defaultHost
	}

	var err error
	if strings.TrimSpace(c.Docker.CertPath) == "" && c.Docker.TLSVerify {
		c.Docker.CertPath = defaultCertPath
	}
	if strings.TrimSpace(c.Docker.CertPath) != "" {
		if c.Docker.CertPath, err = expandPath(strings.TrimSpace(c.Docker.CertPath)); err != nil {
			return fmt.Errorf("docker.cert_path: %w", err)
		}
	} else {
		c.Docker.CertPath = ""
	}

	if strings.TrimSpace(c.Journal.Path) == "" {
		c.Journal.Path = defaultJournalPath
	}
	if c.Journal.Path, err = expandPath(c.Journal.Path); err != nil {
		return fmt.Errorf("journal.path: %w", err)
	}

	if strings.TrimSpace(c.Logging.File) != "" {
		if c.Logging.File, err = expandPath(strings.TrimSpace(c.Logging.File)); err != nil {
			return fmt.Errorf("logging.file: %w", err)
		}
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}

	if c.Events.MaxBackoffSeconds <= 0 {
		c.Events.MaxBackoffSeconds = defaultEventsMaxBackoffSec
	}
	return nil
}
