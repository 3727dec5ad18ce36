package directoryserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/contact-sync/internal/logging"
	"github.com/contact-sync/internal/types"
)

// maxLookupBatch caps the number of phone numbers per lookup request.
// Clients batch at 50; the cap leaves headroom without allowing abuse.
const maxLookupBatch = 100

// Server is the directory lookup HTTP server
type Server struct {
	router     *mux.Router
	httpServer *http.Server
	repo       Repository
}

// NewServer creates a directory server backed by repo
func NewServer(host, port string, repo Repository) *Server {
	s := &Server{
		router: mux.NewRouter(),
		repo:   repo,
	}

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/v1/directory/lookup", s.handleLookup).Methods("POST")

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", host, port),
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// lookupRequest is the wire format for a batched lookup
type lookupRequest struct {
	PhoneNumbers []string `json:"phoneNumbers"`
}

// lookupResponse is the wire format for a lookup result. Unmatched numbers
// are simply absent.
type lookupResponse struct {
	Members []types.DirectoryMember `json:"members"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "directory",
	})
}

// handleLookup handles POST /v1/directory/lookup
func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	var req lookupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
		return
	}

	if len(req.PhoneNumbers) == 0 {
		writeJSON(w, http.StatusOK, &lookupResponse{Members: []types.DirectoryMember{}})
		return
	}
	if len(req.PhoneNumbers) > maxLookupBatch {
		writeError(w, http.StatusBadRequest, "BATCH_TOO_LARGE",
			fmt.Sprintf("at most %d phone numbers per request", maxLookupBatch))
		return
	}

	members, err := s.repo.LookupByPhones(r.Context(), req.PhoneNumbers)
	if err != nil {
		logging.FromContext(r.Context()).WithError(err).Error("Directory lookup failed")
		writeError(w, http.StatusInternalServerError, "LOOKUP_FAILED", "directory lookup failed")
		return
	}
	if members == nil {
		members = []types.DirectoryMember{}
	}

	writeJSON(w, http.StatusOK, &lookupResponse{Members: members})
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, statusCode int, code, message string) {
	writeJSON(w, statusCode, map[string]interface{}{
		"error": &types.ServiceError{Code: code, Message: message},
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	logging.GetGlobalLogger().Infof("Starting directory server on %s", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Router exposes the router for tests
func (s *Server) Router() http.Handler {
	return s.router
}
