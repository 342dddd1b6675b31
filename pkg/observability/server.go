package observability

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// Server serves the health and metrics endpoints for the pipeline.
// Start binds the listener before returning, so a bad port fails fast;
// serve errors after that are reported on Err.
type Server struct {
	httpServer *http.Server
	listener   net.Listener
	errc       chan error
	port       int
}

// NewServer creates a server for the given port. Port 0 picks a free
// port; Addr reports the bound address after Start.
func NewServer(port int) *Server {
	return &Server{port: port}
}

// Start binds the listener and begins serving in the background
func (s *Server) Start() error {
	InitMetrics()

	mux := http.NewServeMux()
	mux.HandleFunc("/health", HealthHandler())
	mux.HandleFunc("/health/live", LivenessHandler())
	mux.Handle("/metrics", MetricsHandler())

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("observability server: %w", err)
	}
	s.listener = listener

	s.httpServer = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.errc = make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.errc <- err
		}
		close(s.errc)
	}()
	return nil
}

// Addr returns the bound listen address, empty before Start
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Err reports a serve failure after Start. The channel closes when the
// server stops.
func (s *Server) Err() <-chan error {
	return s.errc
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
