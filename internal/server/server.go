// Package server provides the HTTP server for the formcoach exercise feedback service.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/ayusman/formcoach/internal/exercise"
	"github.com/ayusman/formcoach/internal/metrics"
	"github.com/ayusman/formcoach/internal/server/api"
	"github.com/ayusman/formcoach/internal/session"
	"github.com/ayusman/formcoach/internal/store"
)

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Store     *store.Store
	Registry  *exercise.Registry

	// Session is the template every WebSocket session is created from.
	Session session.Config

	Metrics *metrics.Metrics

	// Enabled gates frame processing. Nil means always enabled.
	Enabled func() bool
}

// Server represents the HTTP server for the formcoach application.
type Server struct {
	config   Config
	mux      *http.ServeMux
	start    time.Time
	sessions *SessionHandler
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	if config.Registry == nil {
		config.Registry = exercise.NewRegistry()
	}
	if config.Session.Registry == nil {
		config.Session.Registry = config.Registry
	}
	if config.Session.Metrics == nil {
		config.Session.Metrics = config.Metrics
	}

	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	exercises := api.NewExerciseHandler(s.config.Registry, s.config.Store)
	s.mux.Handle("/api/exercises", exercises)
	s.mux.Handle("/api/exercises/", exercises)

	// Settings live in the database only
	if s.config.Store != nil {
		settings := api.NewSettingsHandler(s.config.Store)
		s.mux.Handle("/api/settings", settings)
		s.mux.Handle("/api/settings/", settings)
	}

	s.sessions = NewSessionHandler(s.config.Session, s.config.Enabled)
	s.mux.Handle("/ws", s.sessions)

	if s.config.Metrics != nil {
		s.mux.Handle("/metrics", s.config.Metrics.Handler())
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Connections returns the number of connected WebSocket clients.
func (s *Server) Connections() int {
	return s.sessions.Connections()
}

// CloseSessions closes every WebSocket connection and waits for the session
// handlers to finish. http.Server.Shutdown does not wait for hijacked
// connections, so callers shutting down must call this too.
func (s *Server) CloseSessions(ctx context.Context) error {
	return s.sessions.Shutdown(ctx)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(s.start)

	response := map[string]interface{}{
		"status":      "ok",
		"uptime":      uptime.String(),
		"connections": s.sessions.Connections(),
		"classifier":  s.config.Session.Classifier.Enabled(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}

// HTTPServer returns an *http.Server bound to addr, for callers that need
// graceful shutdown.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
