package transport_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"dockhand/internal/transport"
)

// newTCPTransport starts handler on loopback and returns a plain TCP
// transport pointed at it.
func newTCPTransport(t *testing.T, handler http.Handler) (*transport.Transport, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	tr, err := transport.New("tcp://"+strings.TrimPrefix(srv.URL, "http://"), transport.Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return tr, srv
}

// flushWrite writes one chunk and flushes it to the client.
func flushWrite(t *testing.T, w http.ResponseWriter, chunk string) {
	t.Helper()
	if _, err := w.Write([]byte(chunk)); err != nil {
		t.Errorf("write chunk: %v", err)
		return
	}
	w.(http.Flusher).Flush()
}
