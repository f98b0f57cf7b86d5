package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"jostrid/internal/auth"
	"jostrid/internal/middleware/authn"
)

// handleOAuthLogin redirects the browser to the identity provider. The
// optional ?redirect= parameter is the in-app path to land on afterwards;
// absolute URLs are rejected to keep the redirect on our own frontend.
func (s *Server) handleOAuthLogin(w http.ResponseWriter, r *http.Request) {
	redirect := r.URL.Query().Get("redirect")
	if redirect == "" || !strings.HasPrefix(redirect, "/") || strings.HasPrefix(redirect, "//") {
		redirect = "/"
	}

	http.Redirect(w, r, s.oauth.Begin(redirect), http.StatusFound)
}

// handleOAuthCallback completes the login: code exchange, user upsert,
// session cookie, redirect back to the frontend.
func (s *Server) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	if errParam := r.URL.Query().Get("error"); errParam != "" {
		slog.WarnContext(r.Context(), "OAuth provider returned error", "error", errParam)
		respondError(w, http.StatusBadRequest, errors.New("login was denied"))
		return
	}

	state := r.URL.Query().Get("state")
	code := r.URL.Query().Get("code")
	if state == "" || code == "" {
		respondError(w, http.StatusBadRequest, errors.New("missing state or code"))
		return
	}

	result, err := s.oauth.Complete(r.Context(), state, code)
	if errors.Is(err, auth.ErrUnknownState) {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "OAuth callback failed", "error", err)
		respondError(w, http.StatusBadGateway, errors.New("login failed"))
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     authn.SessionCookie,
		Value:    result.Token,
		Path:     "/",
		MaxAge:   int(s.sessions.Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})

	slog.InfoContext(r.Context(), "User logged in",
		"user_id", result.User.ID,
		"email", result.User.Email)

	http.Redirect(w, r, s.frontend+result.Redirect, http.StatusFound)
}
