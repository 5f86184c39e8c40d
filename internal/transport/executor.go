package transport

import (
	"context"
	"encoding/json"
	"io"
)

// Execute sends req once and returns the whole response body as text.
// Non-2xx statuses return *APIError, network failures *TransportError.
func (t *Transport) Execute(ctx context.Context, req Request) (string, error) {
	resp, err := t.roundTrip(ctx, req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return "", readAPIError(resp)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &TransportError{Op: req.op(), Err: err}
	}
	return string(body), nil
}

// ExecuteJSON is Execute followed by decoding the body as one JSON document
// into T. A body that does not decode returns *DecodeError.
func ExecuteJSON[T any](ctx context.Context, t *Transport, req Request) (T, error) {
	var out T
	body, err := t.Execute(ctx, req)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		var zero T
		return zero, &DecodeError{Err: err}
	}
	return out, nil
}
