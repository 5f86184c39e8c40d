package transport

import (
	"context"
	"errors"
	"io"
	"iter"
	"sync"
)

// chunkBufferSize bounds a single read. A flushed write from the daemon
// arrives as one chunk as long as it fits.
const chunkBufferSize = maxLineSize

// ChunkStream exposes a response body as the byte chunks read off the wire.
// Chunks are read only when Next is called. A ChunkStream is not
// restartable; once it returns an error every later call returns the same
// error.
type ChunkStream struct {
	body   io.ReadCloser
	cancel context.CancelFunc
	op     string
	buf    []byte

	mu     sync.Mutex
	err    error
	closed bool
	once   sync.Once
}

// OpenChunks sends req and returns a stream over the response body. The
// status is checked before any chunk is exposed: a non-2xx answer returns
// *APIError and no stream.
func (t *Transport) OpenChunks(ctx context.Context, req Request) (*ChunkStream, error) {
	ctx, cancel := context.WithCancel(ctx)
	resp, err := t.roundTrip(ctx, req)
	if err != nil {
		cancel()
		return nil, err
	}
	if !isSuccess(resp.StatusCode) {
		apiErr := readAPIError(resp)
		resp.Body.Close()
		cancel()
		return nil, apiErr
	}
	return &ChunkStream{
		body:   resp.Body,
		cancel: cancel,
		op:     req.op(),
		buf:    make([]byte, chunkBufferSize),
	}, nil
}

// Next returns the next chunk. It returns io.EOF when the body ends cleanly,
// *TransportError when the connection fails, and ErrStreamClosed after Close.
// The returned slice is owned by the caller.
func (s *ChunkStream) Next() ([]byte, error) {
	if err := s.terminal(); err != nil {
		return nil, err
	}
	for {
		n, err := s.body.Read(s.buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, s.buf[:n])
			if err != nil {
				s.fail(err)
			}
			return chunk, nil
		}
		if err != nil {
			return nil, s.fail(err)
		}
	}
}

// All ranges over the remaining chunks. The stream is closed when the loop
// ends, including when the consumer breaks out early. io.EOF is not yielded.
func (s *ChunkStream) All() iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		defer s.Close()
		for {
			chunk, err := s.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(chunk, nil) {
				return
			}
		}
	}
}

// Close cancels the request and releases the connection. It is safe to call
// more than once and from another goroutine to unblock a pending Next.
func (s *ChunkStream) Close() error {
	s.mu.Lock()
	s.closed = true
	if s.err == nil {
		s.err = ErrStreamClosed
	}
	s.mu.Unlock()
	s.release()
	return nil
}

func (s *ChunkStream) release() {
	s.once.Do(func() {
		s.cancel()
		_ = s.body.Close()
	})
}

func (s *ChunkStream) terminal() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// fail records the terminal error for the stream and releases the
// connection. Read errors caused by Close report ErrStreamClosed.
func (s *ChunkStream) fail(err error) error {
	s.mu.Lock()
	switch {
	case s.closed:
		s.err = ErrStreamClosed
	case errors.Is(err, io.EOF):
		s.err = io.EOF
	default:
		s.err = &TransportError{Op: s.op, Err: err}
	}
	stored := s.err
	s.mu.Unlock()
	s.release()
	return stored
}

// chunkReader presents a ChunkStream as an io.Reader, pulling one chunk at a
// time.
type chunkReader struct {
	stream  *ChunkStream
	pending []byte
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if len(r.pending) == 0 {
		chunk, err := r.stream.Next()
		if err != nil {
			return 0, err
		}
		r.pending = chunk
	}
	n := copy(p, r.pending)
	r.pending = r.pending[n:]
	return n, nil
}
