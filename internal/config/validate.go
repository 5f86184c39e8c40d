package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateDocker(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateDocker() error {
	parsed, err := url.Parse(c.Docker.Host)
	if err != nil {
		return fmt.Errorf("docker.host: %w", err)
	}
	switch parsed.Scheme {
	case "unix", "tcp", "http", "https":
	case "":
		return fmt.Errorf("docker.host %q must include a scheme such as unix:// or tcp://", c.Docker.Host)
	default:
		return fmt.Errorf("docker.host: unsupported scheme %q", parsed.Scheme)
	}
	if parsed.Scheme == "unix" && parsed.Host+parsed.Path == "" {
		return errors.New("docker.host: unix socket path is empty")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
