package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"dockhand/internal/config"
	"dockhand/internal/docker"
	"dockhand/internal/logging"
	"dockhand/internal/transport"
)

type rootFlags struct {
	host     string
	config   string
	logLevel string
	json     bool
}

type commandContext struct {
	flags *rootFlags

	configOnce sync.Once
	config     *config.Config
	logger     *slog.Logger
	configErr  error
}

func newCommandContext(flags *rootFlags) *commandContext {
	return &commandContext{flags: flags}
}

// ensureConfig loads configuration once, applies the command-line overrides
// and builds the logger.
func (c *commandContext) ensureConfig(cmd *cobra.Command) (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(strings.TrimSpace(c.flags.config))
		if err != nil {
			c.configErr = err
			return
		}
		if host := strings.TrimSpace(c.flags.host); host != "" {
			cfg.Docker.Host = host
		}
		if level := strings.TrimSpace(c.flags.logLevel); level != "" {
			cfg.Logging.Level = strings.ToLower(level)
		}
		if err := cfg.Validate(); err != nil {
			c.configErr = err
			return
		}

		opts := logging.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format}
		if cfg.Logging.File != "" {
			opts.OutputPaths = []string{cfg.Logging.File}
		} else {
			opts.Writer = cmd.ErrOrStderr()
		}
		logger, err := logging.New(opts)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.logger = logger
	})
	return c.config, c.configErr
}

func (c *commandContext) jsonOutput() bool {
	return c.flags != nil && c.flags.json
}

func (c *commandContext) client(cmd *cobra.Command) (*docker.Client, error) {
	cfg, err := c.ensureConfig(cmd)
	if err != nil {
		return nil, err
	}
	return docker.NewFromConfig(cfg, c.logger)
}

// withClient runs fn with a client for the configured daemon and explains
// connection failures.
func (c *commandContext) withClient(cmd *cobra.Command, fn func(*docker.Client) error) error {
	client, err := c.client(cmd)
	if err != nil {
		return fmt.Errorf("docker host: %w", err)
	}
	return wrapDaemonError(fn(client), client.Transport())
}

func wrapDaemonError(err error, tr *transport.Transport) error {
	if err == nil || !transport.IsTransportError(err) {
		return err
	}
	switch {
	case errors.Is(err, syscall.ENOENT):
		return fmt.Errorf("connect to daemon: %s not found; is the daemon running? (%w)", tr, err)
	case errors.Is(err, syscall.ECONNREFUSED):
		return fmt.Errorf("connect to daemon: %s refused the connection; verify the daemon is running (%w)", tr, err)
	case errors.Is(err, syscall.EACCES):
		return fmt.Errorf("connect to daemon: permission denied on %s; run `dockhand doctor` (%w)", tr, err)
	default:
		return fmt.Errorf("connect to daemon at %s: %w", tr, err)
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
