package http

import (
	"log/slog"
	"net/http"
	"time"

	"jostrid/internal/amqp"
	"jostrid/internal/core"
	"jostrid/internal/middleware/authn"
)

// handleBalance folds the full expense collection into per-currency,
// per-user net balances and returns every triple, the caller's own row
// included. Positive means the user is owed money, negative that they owe.
func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	expenses, err := s.store.ListExpenses(r.Context(), 0, 0)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	entries := core.AggregateBalances(expenses).Entries()
	if entries == nil {
		entries = []core.BalanceEntry{}
	}
	respondJSON(w, http.StatusOK, entries)
}

type settlementRequest struct {
	PayerID    int64  `json:"payer_id"`
	ReceiverID int64  `json:"receiver_id"`
	Total      int64  `json:"total"`
	Currency   string `json:"currency"`
	Message    string `json:"message,omitempty"`
}

type settlementResponse struct {
	Expense  core.Expense `json:"expense"`
	SwishURL string       `json:"swish_url,omitempty"`
}

// handleSettlement registers a payment expense between two users. When the
// receiver has a phone number and the currency is SEK the response also
// carries a Swish deep link; deep-link failures never gate the record.
func (s *Server) handleSettlement(w http.ResponseWriter, r *http.Request) {
	var req settlementRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	payer, err := s.store.GetUser(r.Context(), req.PayerID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	receiver, err := s.store.GetUser(r.Context(), req.ReceiverID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	payment, err := core.NewPayment(payer, receiver, req.Total, req.Currency, time.Now().UTC())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	created, err := s.store.CreateExpense(r.Context(), payment)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	resp := settlementResponse{Expense: created}
	message := req.Message
	if message == "" {
		message = created.Name
	}
	if url, err := core.SwishURL(receiver, req.Total, req.Currency, message); err != nil {
		slog.InfoContext(r.Context(), "No Swish link for settlement",
			"expense_id", created.ID,
			"reason", err)
	} else {
		resp.SwishURL = url
	}

	s.invalidateSnapshots()
	s.publishEvent(r.Context(), amqp.ActionSettled, created.ID, authn.UserID(r.Context()))
	respondJSON(w, http.StatusCreated, resp)
}
