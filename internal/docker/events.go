package docker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"time"

	"dockhand/internal/logging"
	"dockhand/internal/transport"
)

// Actor identifies the object an event is about.
type Actor struct {
	ID         string            `json:"ID"`
	Attributes map[string]string `json:"Attributes,omitempty"`
}

// Event is one line of GET /events.
type Event struct {
	// Status, ID and From are the pre-1.22 fields the daemon still sends.
	Status string `json:"status,omitempty"`
	ID     string `json:"id,omitempty"`
	From   string `json:"from,omitempty"`

	Type     string `json:"Type"`
	Action   string `json:"Action"`
	Actor    Actor  `json:"Actor"`
	Scope    string `json:"scope,omitempty"`
	Time     int64  `json:"time"`
	TimeNano int64  `json:"timeNano"`
}

// Timestamp returns the event time, preferring the nanosecond field.
func (e Event) Timestamp() time.Time {
	if e.TimeNano != 0 {
		return time.Unix(0, e.TimeNano)
	}
	return time.Unix(e.Time, 0)
}

// Name returns the actor's "name" attribute, falling back to its ID.
func (e Event) Name() string {
	if name := e.Actor.Attributes["name"]; name != "" {
		return name
	}
	return e.Actor.ID
}

// eventFilterKeys are the filters the events endpoint accepts.
var eventFilterKeys = []string{"config", "container", "daemon", "event", "image", "label", "network", "node", "plugin", "scope", "secret", "service", "type", "volume"}

// EventFilter maps a filter key to the values it matches.
type EventFilter map[string][]string

// Add appends value under key.
func (f EventFilter) Add(key, value string) {
	f[key] = append(f[key], value)
}

// Validate rejects keys the daemon does not understand.
func (f EventFilter) Validate() error {
	for key := range f {
		if !slices.Contains(eventFilterKeys, key) {
			return fmt.Errorf("%w: unknown event filter %q", transport.ErrInvalidRequest, key)
		}
	}
	return nil
}

// EventsOptions bounds and filters an events subscription. A zero Until
// keeps the stream open until the caller closes it.
type EventsOptions struct {
	Since   time.Time
	Until   time.Time
	Filters EventFilter
}

func (o EventsOptions) query() (string, error) {
	values := url.Values{}
	if !o.Since.IsZero() {
		values.Set("since", strconv.FormatInt(o.Since.Unix(), 10))
	}
	if !o.Until.IsZero() {
		values.Set("until", strconv.FormatInt(o.Until.Unix(), 10))
	}
	if len(o.Filters) > 0 {
		if err := o.Filters.Validate(); err != nil {
			return "", err
		}
		data, err := json.Marshal(map[string][]string(o.Filters))
		if err != nil {
			return "", fmt.Errorf("%w: encode filters: %w", transport.ErrInvalidRequest, err)
		}
		values.Set("filters", string(data))
	}
	if len(values) == 0 {
		return "", nil
	}
	return "?" + values.Encode(), nil
}

// Events subscribes to the daemon event stream. Each line of the response is
// one Event.
func (c *Client) Events(ctx context.Context, opts EventsOptions) (*transport.LineStream[Event], error) {
	query, err := opts.query()
	if err != nil {
		return nil, err
	}
	c.logger.Debug("subscribing to daemon events",
		logging.String("query", query),
		logging.Bool("bounded", !opts.Until.IsZero()))
	return transport.OpenLineStream[Event](ctx, c.transport, transport.Request{Path: "/events" + query})
}
