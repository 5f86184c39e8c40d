package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrInvalidHost reports a daemon address that cannot be parsed or uses an unknown scheme.
	ErrInvalidHost = errors.New("invalid docker host")
	// ErrUnixUnsupported reports a unix:// address on a build without Unix-socket support.
	ErrUnixUnsupported = errors.New("unix socket support is not available in this build")
	// ErrTLSMaterial reports missing or unusable certificate files.
	ErrTLSMaterial = errors.New("load tls material")
	// ErrKeyDecode reports a key.pem that does not hold exactly one RSA or PKCS#8 private key.
	ErrKeyDecode = errors.New("decode private key")
	// ErrInvalidRequest reports a request that cannot be turned into an HTTP request.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrUpgradeDeclined reports a successful response that did not switch protocols.
	ErrUpgradeDeclined = errors.New("daemon declined connection upgrade")
	// ErrStreamClosed is returned by Next after the consumer closed the stream.
	ErrStreamClosed = errors.New("stream closed")
)

// APIError is a non-2xx answer from the daemon.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	msg := e.Message()
	if msg == "" {
		return fmt.Sprintf("docker api returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("docker api returned status %d: %s", e.StatusCode, msg)
}

// Message returns the daemon's error text. Docker wraps it as
// {"message": "..."}; other bodies are returned trimmed.
func (e *APIError) Message() string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal([]byte(e.Body), &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	return strings.TrimSpace(e.Body)
}

// TransportError wraps network failures: refused connections, failed TLS
// handshakes, and I/O errors while a response is being read.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// DecodeError reports a response body or stream item that is not valid JSON
// for the requested type.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode response: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ErrorClass groups errors by who is at fault.
type ErrorClass string

const (
	ClassUnknown      ErrorClass = ""
	ClassConstruction ErrorClass = "construction"
	ClassTransport    ErrorClass = "transport"
	ClassAPI          ErrorClass = "api"
	ClassDecode       ErrorClass = "decode"
)

// Classify reports which error class err belongs to.
func Classify(err error) ErrorClass {
	if err == nil {
		return ClassUnknown
	}
	var (
		apiErr       *APIError
		transportErr *TransportError
		decodeErr    *DecodeError
	)
	switch {
	case errors.As(err, &apiErr):
		return ClassAPI
	case errors.As(err, &decodeErr):
		return ClassDecode
	case errors.As(err, &transportErr):
		return ClassTransport
	case errors.Is(err, ErrInvalidHost),
		errors.Is(err, ErrUnixUnsupported),
		errors.Is(err, ErrTLSMaterial),
		errors.Is(err, ErrKeyDecode),
		errors.Is(err, ErrInvalidRequest):
		return ClassConstruction
	default:
		return ClassUnknown
	}
}

// IsAPIError reports whether err is an APIError with the given status code.
// A zero code matches any status.
func IsAPIError(err error, code int) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return code == 0 || apiErr.StatusCode == code
}

// IsTransportError reports whether the daemon could not be reached or the
// connection failed.
func IsTransportError(err error) bool {
	var transportErr *TransportError
	return errors.As(err, &transportErr)
}

// IsNotFound reports a 404 from the daemon.
func IsNotFound(err error) bool {
	return IsAPIError(err, http.StatusNotFound)
}
