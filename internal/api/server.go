// Package api provides the HTTP surface over the contact reconciliation
// engine: the endpoints UI surfaces call for permission state, sync,
// contact listing, and phone lookups.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/contact-sync/internal/contacts"
	"github.com/contact-sync/internal/logging"
	"github.com/contact-sync/internal/types"
)

// ContactService defines the engine operations the API depends on
type ContactService interface {
	State() types.SyncState
	HasPermission(ctx context.Context) bool
	RequestPermission(ctx context.Context) (bool, error)
	Reconcile(ctx context.Context) (*types.ReconcileResult, error)
	GetAll(ctx context.Context) []*types.ContactRecord
	LookupByPhone(phoneNumber string) *types.ContactRecord
	LookupByPhoneWait(ctx context.Context, phoneNumber string) (*types.ContactRecord, error)
	Clear(ctx context.Context) error
}

var _ ContactService = (*contacts.Service)(nil)

// Server represents the HTTP API server.
type Server struct {
	router     *mux.Router
	httpServer *http.Server
	service    ContactService
	config     *ServerConfig
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DefaultServerConfig returns sensible server timeouts
func DefaultServerConfig(host, port string) *ServerConfig {
	return &ServerConfig{
		Host:            host,
		Port:            port,
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    30 * time.Second,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// NewServer creates a new API server instance.
func NewServer(config *ServerConfig, service ContactService) *Server {
	s := &Server{
		router:  mux.NewRouter(),
		service: service,
		config:  config,
	}

	s.setupRouter()

	return s
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter() {
	s.router.Use(LoggingMiddleware)
	s.router.Use(RecoveryMiddleware)

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Host, s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	v1 := s.router.PathPrefix("/v1").Subrouter()

	v1.HandleFunc("/permission", s.handleGetPermission).Methods("GET")
	v1.HandleFunc("/permission/request", s.handleRequestPermission).Methods("POST")

	v1.HandleFunc("/reconcile", s.handleReconcile).Methods("POST")

	v1.HandleFunc("/contacts", s.handleGetContacts).Methods("GET")
	v1.HandleFunc("/contacts/lookup", s.handleLookup).Methods("GET")
	v1.HandleFunc("/contacts", s.handleClear).Methods("DELETE")
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "contact-sync",
		"state":   string(s.service.State()),
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	logging.GetGlobalLogger().Infof("Starting API server on %s", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.GetGlobalLogger().Info("Shutting down API server...")
	return s.httpServer.Shutdown(ctx)
}

// Router exposes the router for tests
func (s *Server) Router() http.Handler {
	return s.router
}
