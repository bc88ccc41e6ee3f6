// Package server exposes the tasksync HTTP API: starting background syncs,
// polling their status, listing and updating tasks, and receiving webhook
// pushes from the integration platform.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"tasksync/integration"
	"tasksync/internal/config"
	"tasksync/store"
	"tasksync/syncjob"
)

// Server wires the stores, the integration source, and the sync job
// controller behind an HTTP mux
type Server struct {
	addr     string
	listener net.Listener
	server   *http.Server

	cfg         *config.Config
	source      integration.Source
	tasks       *store.TaskStore
	jobs        *store.SyncJobStore
	freelancers *store.FreelancerStore
	controller  *syncjob.Controller

	logger *log.Logger
}

// NewServer creates the API server
func NewServer(cfg *config.Config, source integration.Source, db *store.Database, controller *syncjob.Controller, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}

	return &Server{
		addr:        fmt.Sprintf(":%d", cfg.Server.Port),
		cfg:         cfg,
		source:      source,
		tasks:       store.NewTaskStore(db),
		jobs:        store.NewSyncJobStore(db),
		freelancers: store.NewFreelancerStore(db),
		controller:  controller,
		logger:      logger,
	}
}

// Handler builds the route table. Split out from Start so tests can drive
// the mux through httptest without a listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/integration/{connectionId}/sync-tasks", s.requireUser(s.handleStartSync))
	mux.HandleFunc("GET /api/integration/{connectionId}/sync-status", s.requireUser(s.handleSyncStatus))
	mux.HandleFunc("POST /api/integration/{connectionId}/webhook", s.handleWebhook)
	mux.HandleFunc("GET /api/tasks", s.requireUser(s.handleListTasks))
	mux.HandleFunc("GET /api/freelancers", s.requireUser(s.handleListFreelancers))
	mux.HandleFunc("PATCH /api/tasks/{id}", s.requireUser(s.handleUpdateTask))
	mux.HandleFunc("GET /health", s.handleHealth)

	return mux
}

// Start begins serving on the configured port
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln

	s.server = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	s.logger.Printf("API server listening on %s", ln.Addr())
	if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop gracefully shuts down: the HTTP server drains first, then the
// controller gets a chance to finalize running sync jobs.
func (s *Server) Stop() error {
	s.logger.Println("Stopping API server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
	}

	s.controller.Shutdown(15 * time.Second)

	s.logger.Println("API server stopped")
	return nil
}

// Addr returns the server's listening address
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeJSON writes a JSON response with the given status
func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError writes the standard error envelope
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// statusForKind maps sync error kinds onto HTTP statuses
func statusForKind(kind syncjob.Kind) int {
	switch kind {
	case syncjob.KindNotFound:
		return http.StatusNotFound
	case syncjob.KindUnauthorized:
		return http.StatusUnauthorized
	case syncjob.KindValidation:
		return http.StatusBadRequest
	case syncjob.KindConflict:
		return http.StatusConflict
	case syncjob.KindTimeout:
		return http.StatusGatewayTimeout
	case syncjob.KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
