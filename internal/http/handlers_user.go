package http

import (
	"net/http"
	"strings"

	"jostrid/internal/core"
	"jostrid/internal/middleware/authn"
)

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.ListUsers(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	if users == nil {
		users = []core.User{}
	}
	respondJSON(w, http.StatusOK, users)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := s.store.GetUser(r.Context(), authn.UserID(r.Context()))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

type patchMeRequest struct {
	PhoneNumber *string `json:"phone_number"`
}

// handlePatchMe updates the caller's Swish phone number. An explicit null
// clears it.
func (s *Server) handlePatchMe(w http.ResponseWriter, r *http.Request) {
	var req patchMeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	if req.PhoneNumber != nil {
		trimmed := strings.TrimSpace(*req.PhoneNumber)
		if trimmed == "" {
			req.PhoneNumber = nil
		} else {
			req.PhoneNumber = &trimmed
		}
	}

	user, err := s.store.UpdateUserPhone(r.Context(), authn.UserID(r.Context()), req.PhoneNumber)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.store.ListCategories(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	if categories == nil {
		categories = []core.Category{}
	}
	respondJSON(w, http.StatusOK, categories)
}
