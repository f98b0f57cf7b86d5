package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"jostrid/internal/core"
	"jostrid/internal/storage"
)

// errorResponse is the JSON body for every non-2xx API response.
type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if body != nil {
		if err := json.NewEncoder(w).Encode(body); err != nil {
			slog.Error("Failed to encode response", "error", err)
		}
	}
}

func respondError(w http.ResponseWriter, status int, err error) {
	respondJSON(w, status, errorResponse{Error: err.Error()})
}

// respondDomainError maps domain and storage errors onto API status codes:
// unknown rows are 404, validation failures 422, everything else 500.
func respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		respondError(w, http.StatusNotFound, err)
	case isValidationError(err):
		respondError(w, http.StatusUnprocessableEntity, err)
	default:
		slog.ErrorContext(r.Context(), "Request failed", "error", err, "path", r.URL.Path)
		respondError(w, http.StatusInternalServerError, errors.New("internal error"))
	}
}

func isValidationError(err error) bool {
	for _, sentinel := range []error{
		core.ErrEmptyName,
		core.ErrInvalidTotal,
		core.ErrInvalidCurrency,
		core.ErrNoShares,
		core.ErrUnbalancedShares,
		core.ErrInvalidPayment,
		core.ErrUnknownPayer,
		core.ErrSamePayerReceiver,
		core.ErrNoParticipants,
		core.ErrNegativePercentage,
		core.ErrPercentageSum,
		core.ErrInvalidExpression,
		core.ErrDivisionByZero,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

// decodeJSON decodes a request body, rejecting unknown fields so typos fail
// loudly instead of silently dropping data.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// clientIP extracts the client address, honoring proxy headers.
func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return ip
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}
