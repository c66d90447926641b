// Package api exposes the guard service over HTTP. The public surface
// is consumed by page-side clients sending heartbeats; the admin surface
// is JWT-protected and mutates configuration.
package api

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/kaigosha/sitewarden/internal/guard"
)

// Config holds the API server configuration.
type Config struct {
	ListenAddr      string
	AdminEnabled    bool
	AdminUsername   string
	AdminPassword   string
	JWTSecret       string
	TokenExpiration time.Duration
}

// Server is the HTTP API server.
type Server struct {
	config   Config
	guard    *guard.Guard
	auth     *AuthService
	server   *http.Server
	router   *mux.Router
	logger   zerolog.Logger
	listener net.Listener // Optional pre-created listener (for systemd socket activation)
}

// NewServer creates the API server and registers its routes.
func NewServer(cfg Config, g *guard.Guard, logger zerolog.Logger) (*Server, error) {
	s := &Server{
		config: cfg,
		guard:  g,
		router: mux.NewRouter(),
		logger: logger.With().Str("component", "api").Logger(),
	}

	if cfg.AdminEnabled {
		auth, err := NewAuthService(cfg.AdminUsername, cfg.AdminPassword, cfg.JWTSecret, cfg.TokenExpiration)
		if err != nil {
			return nil, err
		}
		s.auth = auth
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Use(LoggingMiddleware(s.logger))

	s.router.HandleFunc("/healthz", s.handleHealth).Methods("GET")

	v1 := s.router.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/heartbeat", s.handleHeartbeat).Methods("POST")
	v1.HandleFunc("/status", s.handleStatus).Methods("GET")
	v1.HandleFunc("/status/site", s.handleSiteStatus).Methods("GET")
	v1.HandleFunc("/break-glass", s.handleBreakGlass).Methods("POST")

	if s.auth == nil {
		return
	}

	v1.HandleFunc("/auth/login", s.handleLogin).Methods("POST")

	admin := v1.PathPrefix("/admin").Subrouter()
	admin.Use(AuthMiddleware(s.auth))
	admin.HandleFunc("/auth/change-password", s.handleChangePassword).Methods("POST")
	admin.HandleFunc("/settings", s.handleGetSettings).Methods("GET")
	admin.HandleFunc("/settings", s.handleUpdateSettings).Methods("PUT")
	admin.HandleFunc("/sites", s.handleAddSite).Methods("POST")
	admin.HandleFunc("/sites/{id}", s.handleUpdateSite).Methods("PUT")
	admin.HandleFunc("/sites/{id}", s.handleDeleteSite).Methods("DELETE")
	admin.HandleFunc("/break-glass/pin", s.handleSetPIN).Methods("PUT")
	admin.HandleFunc("/break-glass/pin", s.handleClearPIN).Methods("DELETE")
	admin.HandleFunc("/diagnostics", s.handleDiagnostics).Methods("GET")
	admin.HandleFunc("/diagnostics", s.handleClearDiagnostics).Methods("DELETE")
}

// Handler returns the configured router, used directly by tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// SetListener sets a pre-created listener for systemd socket activation.
func (s *Server) SetListener(ln net.Listener) {
	s.listener = ln
}

// Start starts the API server.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("Starting API server")
	go func() {
		var err error
		if s.listener != nil {
			s.logger.Debug().Msg("Using systemd socket-activated API listener")
			err = s.server.Serve(s.listener)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("API server error")
		}
	}()
	return nil
}

// Stop gracefully shuts down the API server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info().Msg("Stopping API server")
	return s.server.Shutdown(ctx)
}
