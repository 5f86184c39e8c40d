// Package transport carries requests from dockhand to the Docker daemon.
//
// A Transport is one of three fixed variants chosen once by New: a Unix-domain
// socket, plain TCP, or mutually authenticated TLS over TCP. On top of it the
// package offers one-shot exchanges (Execute, ExecuteJSON), lazily consumed
// response streams (OpenChunks, OpenJSONStream, OpenLineStream) and protocol
// upgrade to a raw duplex connection (Upgrade) for attach/exec sessions.
//
// Every streaming decoder is built on ChunkStream. Streams are pulled by the
// consumer: nothing is read from the network until Next is called, and Close
// cancels the in-flight request. The package performs no retries, applies no
// timeouts, and never reads the process environment; callers resolve
// DOCKER_HOST and friends (see internal/config) and pass them in Options.
//
// Errors fall into four classes reported by Classify: construction errors
// (bad host, missing TLS material), transport errors (*TransportError), API
// errors (*APIError, any non-2xx status) and decode errors (*DecodeError).
package transport
