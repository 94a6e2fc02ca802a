package web

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"
)

// Config holds server configuration
type Config struct {
	Port int
}

// Server runs an http handler until stopped.
type Server struct {
	handler    http.Handler
	httpServer *http.Server
	config     *Config
	listener   net.Listener
}

// NewServer creates a new HTTP server
func NewServer(cfg *Config, handler http.Handler) *Server {
	return &Server{
		handler: handler,
		config:  cfg,
	}
}

// Listen binds the port. Start calls it when it has not been called yet.
func (s *Server) Listen() error {
	if s.listener != nil {
		return nil
	}
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", s.config.Port))
	if err != nil {
		return err
	}
	s.listener = listener
	return nil
}

// Start serves requests until Stop is called.
func (s *Server) Start() error {
	if err := s.Listen(); err != nil {
		return err
	}

	s.httpServer = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	err := s.httpServer.Serve(s.listener)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop gracefully stops the server
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// BaseURL returns the server's base URL
func (s *Server) BaseURL() string {
	if s.listener != nil {
		return fmt.Sprintf("http://%s", s.listener.Addr().String())
	}
	return fmt.Sprintf("http://localhost:%d", s.config.Port)
}
