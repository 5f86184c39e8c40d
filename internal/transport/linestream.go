package transport

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"iter"
)

// maxLineSize bounds a single line of a LineStream.
const maxLineSize = 1 << 20

// LineStream decodes newline-delimited JSON from a ChunkStream. Lines may
// span chunks; only the unfinished line is buffered. Blank lines are
// skipped, a trailing "\r" is dropped, and a final line without a newline is
// still decoded.
type LineStream[T any] struct {
	chunks  *ChunkStream
	scanner *bufio.Scanner
	err     error
}

// NewLineStream wraps chunks. The LineStream takes ownership of chunks.
func NewLineStream[T any](chunks *ChunkStream) *LineStream[T] {
	scanner := bufio.NewScanner(&chunkReader{stream: chunks})
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &LineStream[T]{chunks: chunks, scanner: scanner}
}

// OpenLineStream opens a chunk stream for req and decodes one value of T per line.
func OpenLineStream[T any](ctx context.Context, t *Transport, req Request) (*LineStream[T], error) {
	chunks, err := t.OpenChunks(ctx, req)
	if err != nil {
		return nil, err
	}
	return NewLineStream[T](chunks), nil
}

// Next returns the value decoded from the next non-blank line. Errors are
// terminal; io.EOF marks a clean end.
func (s *LineStream[T]) Next() (T, error) {
	var zero T
	if s.err != nil {
		return zero, s.err
	}
	for s.scanner.Scan() {
		line := bytes.TrimSpace(s.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var v T
		if err := json.Unmarshal(line, &v); err != nil {
			return zero, s.fail(&DecodeError{Err: err})
		}
		return v, nil
	}

	err := s.scanner.Err()
	switch {
	case err == nil:
		err = io.EOF
	case errors.Is(err, bufio.ErrTooLong):
		err = &DecodeError{Err: err}
	}
	return zero, s.fail(err)
}

// All ranges over the remaining values and closes the stream when done.
func (s *LineStream[T]) All() iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		defer s.Close()
		for {
			v, err := s.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				var zero T
				yield(zero, err)
				return
			}
			if !yield(v, nil) {
				return
			}
		}
	}
}

// Close releases the underlying request.
func (s *LineStream[T]) Close() error {
	return s.chunks.Close()
}

func (s *LineStream[T]) fail(err error) error {
	s.err = err
	s.chunks.Close()
	return err
}
