package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"dockhand/internal/docker"
	"dockhand/internal/eventlog"
	"dockhand/internal/logging"
	"dockhand/internal/transport"
)

// errStreamEnded marks a follow-mode subscription the daemon closed on its own.
var errStreamEnded = errors.New("daemon closed the event stream")

type eventsFlags struct {
	since   string
	until   string
	filters []string
	journal string
	record  bool
	follow  bool
}

func newEventsCommand(ctx *commandContext) *cobra.Command {
	var flags eventsFlags

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Stream daemon events",
		Long: "Stream daemon events as they happen. With --until the stream ends at that time;\n" +
			"with --follow a dropped connection is reopened with exponential backoff.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig(cmd)
			if err != nil {
				return err
			}
			opts, err := flags.options(time.Now())
			if err != nil {
				return err
			}

			var journal *eventlog.Journal
			if path := flags.journalPath(cfg.Journal.Path); path != "" {
				journal, err = eventlog.Open(path)
				if err != nil {
					return err
				}
				defer journal.Close()
			}

			follow := flags.follow || (cfg.Events.Reconnect && !cmd.Flags().Changed("follow"))
			maxBackoff := time.Duration(cfg.Events.MaxBackoffSeconds) * time.Second
			printer := newEventPrinter(cmd.OutOrStdout(), ctx.jsonOutput())

			return ctx.withClient(cmd, func(client *docker.Client) error {
				return streamEvents(cmd.Context(), client, opts, follow, maxBackoff, ctx.logger, func(ev docker.Event) error {
					if journal != nil {
						if _, err := journal.Record(cmd.Context(), ev); err != nil {
							return err
						}
					}
					return printer.print(ev)
				})
			})
		},
	}

	cmd.Flags().StringVar(&flags.since, "since", "", "Show events since a time (RFC 3339, unix seconds, or a duration such as 10m)")
	cmd.Flags().StringVar(&flags.until, "until", "", "Stop at a time (same formats as --since)")
	cmd.Flags().StringArrayVarP(&flags.filters, "filter", "f", nil, "Filter events (key=value, repeatable)")
	cmd.Flags().StringVar(&flags.journal, "journal", "", "Record events into this journal database")
	cmd.Flags().BoolVar(&flags.record, "record", false, "Record events into the configured journal")
	cmd.Flags().BoolVar(&flags.follow, "follow", false, "Reconnect when the stream drops")
	return cmd
}

func (f eventsFlags) journalPath(configured string) string {
	if path := strings.TrimSpace(f.journal); path != "" {
		return path
	}
	if f.record {
		return configured
	}
	return ""
}

func (f eventsFlags) options(now time.Time) (docker.EventsOptions, error) {
	var opts docker.EventsOptions
	var err error
	if opts.Since, err = parseTimeFlag(f.since, now); err != nil {
		return opts, fmt.Errorf("--since: %w", err)
	}
	if opts.Until, err = parseTimeFlag(f.until, now); err != nil {
		return opts, fmt.Errorf("--until: %w", err)
	}
	if len(f.filters) > 0 {
		opts.Filters = docker.EventFilter{}
		for _, raw := range f.filters {
			key, value, ok := strings.Cut(raw, "=")
			key = strings.TrimSpace(key)
			if !ok || key == "" {
				return opts, fmt.Errorf("--filter %q: expected key=value", raw)
			}
			opts.Filters.Add(strings.ToLower(key), strings.TrimSpace(value))
		}
		if err := opts.Filters.Validate(); err != nil {
			return opts, err
		}
	}
	return opts, nil
}

// parseTimeFlag accepts RFC 3339, unix seconds, or a duration counted back
// from now.
func parseTimeFlag(value string, now time.Time) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if d, err := time.ParseDuration(value); err == nil {
		return now.Add(-d), nil
	}
	if secs, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.Unix(secs, 0), nil
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts, nil
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", value)
}

// streamEvents delivers events to handle. In follow mode transport failures
// and daemon-side stream ends reopen the subscription from the last event
// seen; API errors and handler errors stop immediately.
func streamEvents(ctx context.Context, client *docker.Client, opts docker.EventsOptions, follow bool, maxBackoff time.Duration, logger *slog.Logger, handle func(docker.Event) error) error {
	bounded := !opts.Until.IsZero()
	var lastNano int64

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = 0
	if maxBackoff > 0 {
		policy.MaxInterval = maxBackoff
	}

	permanent := func(err error) error {
		if follow {
			return backoff.Permanent(err)
		}
		return err
	}

	subscribe := func() error {
		current := opts
		if lastNano > 0 {
			current.Since = time.Unix(0, lastNano)
		}
		stream, err := client.Events(ctx, current)
		if err != nil {
			if transport.IsTransportError(err) {
				return err
			}
			return permanent(err)
		}
		defer stream.Close()

		for ev, err := range stream.All() {
			if err != nil {
				if transport.Classify(err) == transport.ClassDecode {
					return permanent(err)
				}
				return err
			}
			// Reconnects resume at second granularity, so skip what was already seen.
			if ev.TimeNano != 0 && ev.TimeNano <= lastNano {
				continue
			}
			lastNano = ev.TimeNano
			policy.Reset()
			if err := handle(ev); err != nil {
				return permanent(err)
			}
		}
		if follow && !bounded {
			return errStreamEnded
		}
		return nil
	}

	if !follow {
		return subscribe()
	}

	notify := func(err error, wait time.Duration) {
		logging.WarnWithContext(logger, "event stream interrupted; reconnecting", "events_reconnect",
			logging.Error(err),
			logging.Duration("retry_in", wait),
			logging.String(logging.FieldImpact, "events are delayed until the daemon is reachable"),
			logging.String(logging.FieldErrorHint, "check that the daemon is running"))
	}
	return backoff.RetryNotify(subscribe, backoff.WithContext(policy, ctx), notify)
}

type eventPrinter struct {
	out    io.Writer
	asJSON bool
	colors bool
	enc    *json.Encoder
}

func newEventPrinter(out io.Writer, asJSON bool) *eventPrinter {
	return &eventPrinter{out: out, asJSON: asJSON, colors: shouldColorize(out), enc: json.NewEncoder(out)}
}

func (p *eventPrinter) print(ev docker.Event) error {
	if p.asJSON {
		return p.enc.Encode(ev)
	}
	_, err := fmt.Fprintln(p.out, formatEvent(ev, p.colors))
	return err
}

func formatEvent(ev docker.Event, colors bool) string {
	kind := colorize(colors, titleLabel(ev.Type), eventColor(ev.Type))
	line := fmt.Sprintf("%s %s %s %s", ev.Timestamp().UTC().Format(time.RFC3339), kind, ev.Action, ev.Name())
	if ev.Actor.ID != "" && ev.Actor.ID != ev.Name() {
		id := ev.Actor.ID
		if len(id) > 12 {
			id = id[:12]
		}
		line += " (" + id + ")"
	}
	return line
}

func eventColor(kind string) text.Color {
	switch kind {
	case "container":
		return text.FgCyan
	case "image":
		return text.FgMagenta
	case "network":
		return text.FgBlue
	case "volume":
		return text.FgYellow
	default:
		return text.FgWhite
	}
}
