package transport_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"dockhand/internal/transport"
)

func TestLineStreamReassemblesLinesAcrossChunks(t *testing.T) {
	step := make(chan struct{})
	tr, _ := newTCPTransport(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flushWrite(t, w, `{"a":1}`+"\n"+`{"b"`)
		<-step
		flushWrite(t, w, ":2}\r\n\n")
		flushWrite(t, w, `{"c":3}`)
	}))

	stream, err := transport.OpenLineStream[map[string]int](context.Background(), tr, transport.Request{Path: "/events"})
	if err != nil {
		t.Fatalf("OpenLineStream: %v", err)
	}
	defer stream.Close()

	first, err := stream.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	close(step)

	got := []map[string]int{first}
	for v, err := range stream.All() {
		if err != nil {
			t.Fatalf("All: %v", err)
		}
		got = append(got, v)
	}
	want := []map[string]int{{"a": 1}, {"b": 2}, {"c": 3}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
	if _, err := stream.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("Next after All = %v, want io.EOF", err)
	}
}

func TestLineStreamInvalidLine(t *testing.T) {
	tr, _ := newTCPTransport(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "{\"a\":1}\nnot json\n{\"a\":2}\n")
	}))

	stream, err := transport.OpenLineStream[map[string]int](context.Background(), tr, transport.Request{Path: "/events"})
	if err != nil {
		t.Fatalf("OpenLineStream: %v", err)
	}
	defer stream.Close()

	if _, err := stream.Next(); err != nil {
		t.Fatalf("first Next: %v", err)
	}
	_, err = stream.Next()
	var decodeErr *transport.DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("error = %v, want *DecodeError", err)
	}
	if _, again := stream.Next(); again != err {
		t.Fatalf("error is not sticky: %v then %v", err, again)
	}
}

func TestLineStreamRejectsOversizedLine(t *testing.T) {
	tr, _ := newTCPTransport(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"a":"`+strings.Repeat("x", 2<<20)+`"}`+"\n")
	}))

	stream, err := transport.OpenLineStream[map[string]string](context.Background(), tr, transport.Request{Path: "/events"})
	if err != nil {
		t.Fatalf("OpenLineStream: %v", err)
	}
	defer stream.Close()

	_, err = stream.Next()
	if transport.Classify(err) != transport.ClassDecode {
		t.Fatalf("error = %v, want decode error", err)
	}
}
