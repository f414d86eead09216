// Package api serves compliance reports, roster checks and record writes
// over HTTP.
package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/goodtune/frms/internal/compliance"
	"github.com/goodtune/frms/internal/policy"
	"github.com/goodtune/frms/internal/storage"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// Config holds the API server configuration.
type Config struct {
	ListenAddr string
}

// Server represents the API HTTP server.
type Server struct {
	config   Config
	service  *compliance.Service
	records  storage.RecordStore
	gate     *policy.Engine // nil when the roster gate is disabled
	server   *http.Server
	router   *mux.Router
	listener net.Listener // Optional pre-created listener (for systemd socket activation)
	logger   zerolog.Logger
}

// NewServer creates a new API server. gate may be nil.
func NewServer(cfg Config, service *compliance.Service, records storage.RecordStore, gate *policy.Engine, logger zerolog.Logger) *Server {
	router := mux.NewRouter()

	s := &Server{
		config:  cfg,
		service: service,
		records: records,
		gate:    gate,
		router:  router,
		logger:  logger.With().Str("component", "api").Logger(),
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Use(LoggingMiddleware(s.logger))

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	reports := newReportHandler(s.service, s.logger)
	s.router.HandleFunc("/api/pilots", reports.ListTracked).Methods("GET")
	s.router.HandleFunc("/api/pilots/{pilot}/report", reports.Get).Methods("GET")

	roster := newRosterHandler(s.service, s.gate, s.logger)
	s.router.HandleFunc("/api/roster/check", roster.Check).Methods("POST")

	records := newRecordHandler(s.records, s.logger)
	s.router.HandleFunc("/api/pilots/{pilot}/records", records.List).Methods("GET")
	s.router.HandleFunc("/api/pilots/{pilot}/records", records.Create).Methods("POST")
	s.router.HandleFunc("/api/records/{id}", records.Get).Methods("GET")
	s.router.HandleFunc("/api/records/{id}", records.Update).Methods("PUT")
	s.router.HandleFunc("/api/records/{id}", records.Delete).Methods("DELETE")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"tracked": len(s.service.Tracked()),
		"gate":    s.gate != nil,
	})
}

// SetListener sets a pre-created listener for systemd socket activation
func (s *Server) SetListener(ln net.Listener) {
	s.listener = ln
}

// Handler returns the server's HTTP handler
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the API server
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
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("API server error")
		}
	}()
	return nil
}

// Stop gracefully shuts down the API server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info().Msg("Stopping API server")
	return s.server.Shutdown(ctx)
}
