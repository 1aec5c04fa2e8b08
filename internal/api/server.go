package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// Config holds the API server configuration.
type Config struct {
	ListenAddr  string
	DefaultDays int
}

// Server is the local HTTP API used by the posture monitor and presentation layers.
type Server struct {
	config    Config
	tracker   Tracker
	server    *http.Server
	router    *mux.Router
	listener  net.Listener // Optional pre-created listener (for systemd socket activation)
	startTime time.Time
	logger    zerolog.Logger
}

// NewServer creates a new API server.
func NewServer(cfg Config, tracker Tracker, logger zerolog.Logger) *Server {
	s := &Server{
		config:    cfg,
		tracker:   tracker,
		router:    mux.NewRouter(),
		startTime: time.Now(),
		logger:    logger.With().Str("component", "api").Logger(),
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Use(LoggingMiddleware(s.logger))
	s.router.Use(maxBodyMiddleware(1 << 16))

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	statsHandler := NewStatsHandler(s.tracker, s.config.DefaultDays, s.logger)
	s.router.HandleFunc("/api/today", statsHandler.GetToday).Methods("GET")
	s.router.HandleFunc("/api/recent", statsHandler.GetRecent).Methods("GET")
	s.router.HandleFunc("/api/track", statsHandler.Track).Methods("POST")
	s.router.HandleFunc("/api/slouch", statsHandler.RecordSlouch).Methods("POST")
}

// SetListener sets a pre-created listener for systemd socket activation
func (s *Server) SetListener(ln net.Listener) {
	s.listener = ln
}

// Start starts the API server.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.config.ListenAddr).Msg("Starting API server")

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

// Stop gracefully stops the API server.
func (s *Server) Stop() error {
	s.logger.Info().Msg("Stopping API server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("api server shutdown: %w", err)
	}

	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	uptime := time.Since(s.startTime)
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "ok",
		"today":          s.tracker.Today().Key(),
		"uptime_seconds": int(uptime.Seconds()),
	})
}
