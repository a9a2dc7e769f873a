package web

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/driftshell/driftshell/internal/config"
	"github.com/driftshell/driftshell/internal/shell"
)

type Server struct {
	config  *config.Config
	handler *Handler
	server  *http.Server
	logger  *slog.Logger
}

// NewServer builds the UI bridge for sh. customPort overrides the configured
// port when positive.
func NewServer(cfg *config.Config, sh *shell.Shell, logger *slog.Logger, customPort int) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	handler := NewHandler(sh, logger)
	mux := http.NewServeMux()
	handler.SetupRoutes(mux)

	port := cfg.Web.Port
	if customPort > 0 {
		port = customPort
	}

	httpServer := &http.Server{
		Addr:        net.JoinHostPort(cfg.Web.Host, strconv.Itoa(port)),
		Handler:     mux,
		ReadTimeout: 10 * time.Second,
		// event streams lift this per request
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		config:  cfg,
		handler: handler,
		server:  httpServer,
		logger:  logger,
	}
}

func (s *Server) Start() error {
	s.logger.Info("starting UI bridge", "url", "http://"+s.server.Addr)
	return s.server.ListenAndServe()
}

// Serve accepts connections on l, for callers that bind their own listener
func (s *Server) Serve(l net.Listener) error {
	s.logger.Info("starting UI bridge", "url", "http://"+l.Addr().String())
	return s.server.Serve(l)
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down UI bridge")
	s.handler.closeStreams()
	return s.server.Shutdown(ctx)
}

func (s *Server) GetAddress() string {
	return s.server.Addr
}
