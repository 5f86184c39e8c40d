package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"iter"
)

// JSONStream decodes each chunk of a ChunkStream as one or more
// back-to-back JSON documents.
//
// Values are not buffered across chunk boundaries: a document split over two
// chunks fails the first chunk with *DecodeError. Docker's streaming
// endpoints write whole documents per chunk, and the stream fails fast rather
// than guessing where a damaged document ends.
type JSONStream[T any] struct {
	chunks     *ChunkStream
	pending    []T
	pendingErr error
	err        error
}

// NewJSONStream wraps chunks. The JSONStream takes ownership of chunks.
func NewJSONStream[T any](chunks *ChunkStream) *JSONStream[T] {
	return &JSONStream[T]{chunks: chunks}
}

// OpenJSONStream opens a chunk stream for req and decodes it into values of T.
func OpenJSONStream[T any](ctx context.Context, t *Transport, req Request) (*JSONStream[T], error) {
	chunks, err := t.OpenChunks(ctx, req)
	if err != nil {
		return nil, err
	}
	return NewJSONStream[T](chunks), nil
}

// Next returns the next value in arrival order. After a decode error or the
// end of the stream, every call returns the same error; io.EOF marks a clean
// end.
func (s *JSONStream[T]) Next() (T, error) {
	var zero T
	for {
		if len(s.pending) > 0 {
			v := s.pending[0]
			s.pending[0] = zero
			s.pending = s.pending[1:]
			return v, nil
		}
		if s.pendingErr != nil {
			s.err, s.pendingErr = s.pendingErr, nil
			s.chunks.Close()
		}
		if s.err != nil {
			return zero, s.err
		}
		chunk, err := s.chunks.Next()
		if err != nil {
			s.err = err
			return zero, err
		}
		s.pending, s.pendingErr = decodeChunk[T](chunk)
	}
}

// All ranges over the remaining values and closes the stream when done.
func (s *JSONStream[T]) All() iter.Seq2[T, error] {
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
func (s *JSONStream[T]) Close() error {
	return s.chunks.Close()
}

// decodeChunk decodes every document in chunk. Values decoded before a
// failure are returned together with the error.
func decodeChunk[T any](chunk []byte) ([]T, error) {
	dec := json.NewDecoder(bytes.NewReader(chunk))
	var values []T
	for {
		var v T
		if err := dec.Decode(&v); err != nil {
			if errors.Is(err, io.EOF) {
				return values, nil
			}
			return values, &DecodeError{Err: err}
		}
		values = append(values, v)
	}
}
