package server

import (
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"word-guess/internal/config"
)

func newTestServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()
	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("skipping test; listen unavailable: %v", err)
	}
	ts := &httptest.Server{
		Listener: listener,
		Config:   &http.Server{Handler: handler},
	}
	ts.Start()
	return ts
}

// newTestApp starts an in-memory server with rate limiting off. tweak may
// adjust the config first.
func newTestApp(t *testing.T, tweak func(*config.Config), opts ...Option) (*Server, *httptest.Server) {
	t.Helper()
	cfg := config.Default()
	cfg.RateLimitPerSecond = 0
	if tweak != nil {
		tweak(&cfg)
	}
	srv := New(nil, cfg, opts...)
	t.Cleanup(srv.Close)
	ts := newTestServer(t, srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}
