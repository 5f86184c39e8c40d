package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"dockhand/internal/docker"
	"dockhand/internal/logging"
)

type containerSummary struct {
	ID    string `json:"Id"`
	Name  string `json:"Name"`
	State struct {
		Running bool `json:"Running"`
	} `json:"State"`
	Config struct {
		Tty       bool `json:"Tty"`
		OpenStdin bool `json:"OpenStdin"`
	} `json:"Config"`
}

func newAttachCommand(ctx *commandContext) *cobra.Command {
	var noStdin bool
	var detachKeys string

	cmd := &cobra.Command{
		Use:   "attach <container>",
		Short: "Attach local stdin, stdout and stderr to a running container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(client *docker.Client) error {
				summary, err := docker.GetJSON[containerSummary](cmd.Context(), client, "/containers/"+url.PathEscape(args[0])+"/json")
				if err != nil {
					return err
				}
				if !summary.State.Running {
					return fmt.Errorf("container %s is not running", args[0])
				}

				opts := docker.AttachOptions{
					Stdin:      summary.Config.OpenStdin && !noStdin,
					Stdout:     true,
					Stderr:     true,
					DetachKeys: detachKeys,
				}
				conn, err := client.Attach(cmd.Context(), summary.ID, opts)
				if err != nil {
					return err
				}
				defer conn.Close()

				ctx.logger.Debug("attached to container",
					logging.String("container", summary.Name),
					logging.Bool("tty", summary.Config.Tty),
					logging.Bool("stdin", opts.Stdin))

				session := attachSession{
					conn:   conn,
					stdin:  cmd.InOrStdin(),
					stdout: cmd.OutOrStdout(),
					stderr: cmd.ErrOrStderr(),
					tty:    summary.Config.Tty,
				}
				if !opts.Stdin {
					session.stdin = nil
				}
				return session.run(cmd.Context())
			})
		},
	}

	cmd.Flags().BoolVar(&noStdin, "no-stdin", false, "Do not forward local stdin")
	cmd.Flags().StringVar(&detachKeys, "detach-keys", "", "Key sequence for detaching (for example ctrl-p,ctrl-q)")
	return cmd
}

// halfCloser is the write side of an attach connection.
type halfCloser interface {
	io.ReadWriteCloser
	CloseWrite() error
}

type attachSession struct {
	conn   halfCloser
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	tty    bool
}

// run pumps the session until the container closes its output or ctx is
// cancelled. Reads from a terminal cannot be interrupted, so the stdin pump
// is not waited for once output ends.
func (s attachSession) run(ctx context.Context) error {
	if s.tty && s.stdin != nil {
		if f, ok := s.stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			state, err := term.MakeRaw(int(f.Fd()))
			if err != nil {
				return fmt.Errorf("set terminal raw mode: %w", err)
			}
			defer func() { _ = term.Restore(int(f.Fd()), state) }()
		}
	}

	sessionCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(sessionCtx)

	g.Go(func() error {
		defer cancel()
		return docker.CopyOutput(s.stdout, s.stderr, s.conn, s.tty)
	})
	g.Go(func() error {
		<-gctx.Done()
		if err := s.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			return err
		}
		return nil
	})
	if s.stdin != nil {
		go func() {
			if _, err := io.Copy(s.conn, s.stdin); err == nil {
				_ = s.conn.CloseWrite()
			}
		}()
	}

	err := g.Wait()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}
