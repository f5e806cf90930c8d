// Package httpapi serves the admin surface: queueing and scheduling alerts,
// settings, history, permission state and the badge counter. Responses use
// a uniform {success, data, error, timestamp} envelope.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"alertd/pkg/logx"
)

type Config struct {
	Enabled bool
	Addr    string
}

type Server struct {
	mu  sync.Mutex
	cfg Config
	log logx.Logger

	handler *Handler
	srv     *http.Server
	ln      net.Listener
}

func NewServer(cfg Config, h *Handler, log logx.Logger) *Server {
	if log.IsZero() {
		log = logx.Nop()
	}
	if strings.TrimSpace(cfg.Addr) == "" {
		cfg.Addr = "127.0.0.1:8080"
	}
	return &Server{cfg: cfg, log: log.With(logx.String("comp", "httpapi")), handler: h}
}

// Start binds and serves in the background. Idempotent.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.cfg.Enabled || s.srv != nil {
		return nil
	}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Mount("/api/v1", s.handler.Routes())

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	s.ln = ln
	s.srv = &http.Server{
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func(srv *http.Server, ln net.Listener) {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("http server stopped", logx.Err(err))
		}
	}(s.srv, ln)

	s.log.Info("admin api listening", logx.String("addr", ln.Addr().String()))
	return nil
}

// Addr returns the bound address, or "" when not running.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

func (s *Server) Stop(ctx context.Context) {
	s.mu.Lock()
	srv := s.srv
	s.srv = nil
	s.ln = nil
	s.mu.Unlock()
	if srv == nil {
		return
	}
	_ = srv.Shutdown(ctx)
}
