package api

import (
	"net/http"
)

// handleGetPermission handles GET /v1/permission - current permission state
func (s *Server) handleGetPermission(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]bool{
		"granted": s.service.HasPermission(r.Context()),
	})
}

// handleRequestPermission handles POST /v1/permission/request - trigger the
// OS prompt when permission is still pending
func (s *Server) handleRequestPermission(w http.ResponseWriter, r *http.Request) {
	granted, err := s.service.RequestPermission(r.Context())
	if err != nil {
		respondCategorized(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{
		"granted": granted,
	})
}

// handleReconcile handles POST /v1/reconcile - run one reconciliation pass.
// Permission denial comes back as a categorized error so the caller can
// render the grant prompt instead of a retry affordance.
func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.Reconcile(r.Context())
	if err != nil {
		respondCategorized(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// handleGetContacts handles GET /v1/contacts - current contact array.
// May be empty while the initial snapshot load is still in flight.
func (s *Server) handleGetContacts(w http.ResponseWriter, r *http.Request) {
	contacts := s.service.GetAll(r.Context())

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"contacts": contacts,
		"count":    len(contacts),
	})
}

// handleLookup handles GET /v1/contacts/lookup?phone=... - resolve one
// phone number to a contact record. With wait=true the handler waits for
// the initial snapshot load instead of answering from an empty state.
func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	phoneParam := r.URL.Query().Get("phone")
	if phoneParam == "" {
		respondError(w, http.StatusBadRequest, "INVALID_PARAMETER", "phone query parameter required", nil)
		return
	}

	var record interface{}
	if r.URL.Query().Get("wait") == "true" {
		found, err := s.service.LookupByPhoneWait(r.Context(), phoneParam)
		if err != nil {
			respondCategorized(w, err)
			return
		}
		if found != nil {
			record = found
		}
	} else {
		if found := s.service.LookupByPhone(phoneParam); found != nil {
			record = found
		}
	}

	if record == nil {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "no contact matches that phone number", map[string]interface{}{
			"phone": phoneParam,
		})
		return
	}

	respondJSON(w, http.StatusOK, record)
}

// handleClear handles DELETE /v1/contacts - wipe persisted and in-memory
// state (logout / permission revocation)
func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Clear(r.Context()); err != nil {
		respondCategorized(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status": "cleared",
	})
}
