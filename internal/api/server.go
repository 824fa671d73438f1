package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/scribesearch/scribe-agent/internal/cache"
	"github.com/scribesearch/scribe-agent/internal/export"
	"github.com/scribesearch/scribe-agent/internal/library"
	"github.com/scribesearch/scribe-agent/internal/search"
	"github.com/scribesearch/scribe-agent/internal/status"
	"github.com/scribesearch/scribe-agent/internal/ws"
)

type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

type ServerConfig struct {
	Port         int
	Library      *library.Service
	Syncer       *library.Syncer
	Status       *status.Manager
	Search       *search.Service
	Uploader     Uploader
	Exporter     *export.Writer
	Hub          *ws.Hub
	Repository   ConfigStore
	Cache        *cache.Store
	Logger       *slog.Logger
	StartTime    time.Time
	DefaultModel string
}

func NewServer(cfg ServerConfig) *Server {
	router := NewRouter(cfg)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf("127.0.0.1:%d", cfg.Port),
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 0,
			IdleTimeout:  60 * time.Second,
		},
		logger: cfg.Logger,
	}
}

func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Addr() string {
	return s.httpServer.Addr
}
