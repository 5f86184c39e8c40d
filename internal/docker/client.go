package docker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"dockhand/internal/config"
	"dockhand/internal/logging"
	"dockhand/internal/transport"
)

const jsonContentType = "application/json"

// Client issues Engine API calls over one transport.
type Client struct {
	transport *transport.Transport
	logger    *slog.Logger
}

// New builds a client for target ("unix:///var/run/docker.sock",
// "tcp://host:2376", ...).
func New(target string, opts transport.Options) (*Client, error) {
	tr, err := transport.New(target, opts)
	if err != nil {
		return nil, err
	}
	return &Client{
		transport: tr,
		logger:    logging.NewComponentLogger(opts.Logger, "docker"),
	}, nil
}

// NewFromConfig builds a client from the resolved [docker] settings.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("docker client: config is required")
	}
	return New(cfg.Docker.Host, cfg.TransportOptions(logger))
}

// Transport exposes the underlying transport.
func (c *Client) Transport() *transport.Transport {
	return c.transport
}

// Get returns the body of GET path as text.
func (c *Client) Get(ctx context.Context, path string) (string, error) {
	return c.transport.Execute(ctx, transport.Request{Method: http.MethodGet, Path: path})
}

// Post sends body as JSON (nil sends no body) and returns the response text.
func (c *Client) Post(ctx context.Context, path string, body any) (string, error) {
	req, err := jsonRequest(http.MethodPost, path, body)
	if err != nil {
		return "", err
	}
	return c.transport.Execute(ctx, req)
}

// Put sends body as JSON (nil sends no body) and returns the response text.
func (c *Client) Put(ctx context.Context, path string, body any) (string, error) {
	req, err := jsonRequest(http.MethodPut, path, body)
	if err != nil {
		return "", err
	}
	return c.transport.Execute(ctx, req)
}

// Delete returns the body of DELETE path as text.
func (c *Client) Delete(ctx context.Context, path string) (string, error) {
	return c.transport.Execute(ctx, transport.Request{Method: http.MethodDelete, Path: path})
}

// GetJSON decodes the body of GET path into T.
func GetJSON[T any](ctx context.Context, c *Client, path string) (T, error) {
	return transport.ExecuteJSON[T](ctx, c.transport, transport.Request{Method: http.MethodGet, Path: path})
}

// PostJSON sends body as JSON and decodes the response into T.
func PostJSON[T any](ctx context.Context, c *Client, path string, body any) (T, error) {
	req, err := jsonRequest(http.MethodPost, path, body)
	if err != nil {
		var zero T
		return zero, err
	}
	return transport.ExecuteJSON[T](ctx, c.transport, req)
}

// PostJSONWithHeaders is PostJSON with extra request headers, such as
// X-Registry-Auth for image pulls.
func PostJSONWithHeaders[T any](ctx context.Context, c *Client, path string, body any, header http.Header) (T, error) {
	req, err := jsonRequest(http.MethodPost, path, body)
	if err != nil {
		var zero T
		return zero, err
	}
	req.Header = header
	return transport.ExecuteJSON[T](ctx, c.transport, req)
}

// DeleteJSON decodes the body of DELETE path into T.
func DeleteJSON[T any](ctx context.Context, c *Client, path string) (T, error) {
	return transport.ExecuteJSON[T](ctx, c.transport, transport.Request{Method: http.MethodDelete, Path: path})
}

// StreamGet returns the body of GET path as raw chunks.
func (c *Client) StreamGet(ctx context.Context, path string) (*transport.ChunkStream, error) {
	return c.transport.OpenChunks(ctx, transport.Request{Method: http.MethodGet, Path: path})
}

// StreamPost posts body and returns the response as raw chunks, for
// endpoints such as image pulls and builds that stream progress.
func (c *Client) StreamPost(ctx context.Context, path string, body any) (*transport.ChunkStream, error) {
	req, err := jsonRequest(http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}
	return c.transport.OpenChunks(ctx, req)
}

// StreamPostInto posts body and decodes the streamed response as JSON
// documents of T.
func StreamPostInto[T any](ctx context.Context, c *Client, path string, body any) (*transport.JSONStream[T], error) {
	req, err := jsonRequest(http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}
	return transport.OpenJSONStream[T](ctx, c.transport, req)
}

func jsonRequest(method, path string, body any) (transport.Request, error) {
	req := transport.Request{Method: method, Path: path}
	if body == nil {
		return req, nil
	}
	var reader io.Reader
	switch v := body.(type) {
	case []byte:
		reader = bytes.NewReader(v)
	case json.RawMessage:
		reader = bytes.NewReader(v)
	default:
		data, err := json.Marshal(body)
		if err != nil {
			return req, fmt.Errorf("%w: encode %s %s body: %w", transport.ErrInvalidRequest, method, path, err)
		}
		reader = bytes.NewReader(data)
	}
	req.Body = reader
	req.ContentType = jsonContentType
	return req, nil
}
