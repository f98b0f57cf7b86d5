package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"jostrid/internal/amqp"
	"jostrid/internal/core"
	"jostrid/internal/middleware/authn"
)

// expenseRequest is the wire shape for creating or replacing an expense.
// Payer and category arrive as IDs; the response carries them expanded.
type expenseRequest struct {
	ID         int64          `json:"id,omitempty"`
	Name       string         `json:"name"`
	Total      int64          `json:"total"`
	Currency   string         `json:"currency"`
	CreatedAt  *time.Time     `json:"created_at,omitempty"`
	PaidBy     int64          `json:"paid_by"`
	CategoryID *int64         `json:"category_id,omitempty"`
	IsPayment  bool           `json:"is_payment,omitempty"`
	Shares     []shareRequest `json:"shares"`
}

type shareRequest struct {
	UserID int64 `json:"user_id"`
	Share  int64 `json:"share"`
}

func (s *Server) expenseFromRequest(r *http.Request, req expenseRequest) (core.Expense, error) {
	payer, err := s.store.GetUser(r.Context(), req.PaidBy)
	if err != nil {
		return core.Expense{}, err
	}

	e := core.Expense{
		ID:        req.ID,
		Name:      req.Name,
		Total:     req.Total,
		Currency:  req.Currency,
		CreatedAt: time.Now().UTC(),
		PaidBy:    payer,
		IsPayment: req.IsPayment,
	}
	if req.CreatedAt != nil {
		e.CreatedAt = req.CreatedAt.UTC()
	}
	if req.CategoryID != nil {
		e.Category = &core.Category{ID: *req.CategoryID}
	}
	for _, sh := range req.Shares {
		e.Shares = append(e.Shares, core.Share{UserID: sh.UserID, Share: sh.Share})
	}

	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	return e, nil
}

// handleListExpenses serves the household-wide expense collection, newest
// first. Every member sees the same list.
func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	limit, offset := parseLimitOffset(r)

	key := snapshotKey(limit, offset)
	if cached, ok := s.snapshots.Get(key); ok {
		respondJSON(w, http.StatusOK, cached)
		return
	}

	expenses, err := s.store.ListExpenses(r.Context(), limit, offset)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	if expenses == nil {
		expenses = []core.Expense{}
	}

	s.snapshots.Set(key, expenses)
	respondJSON(w, http.StatusOK, expenses)
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	expense, err := s.store.GetExpense(r.Context(), id)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, expense)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	req.ID = 0

	expense, err := s.expenseFromRequest(r, req)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	created, err := s.store.CreateExpense(r.Context(), expense)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	s.invalidateSnapshots()
	s.publishEvent(r.Context(), amqp.ActionCreated, created.ID, authn.UserID(r.Context()))
	respondJSON(w, http.StatusCreated, created)
}

// handleUpsertExpense creates when the body has no id, otherwise replaces
// the stored expense and its shares.
func (s *Server) handleUpsertExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	expense, err := s.expenseFromRequest(r, req)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	var (
		stored core.Expense
		action = amqp.ActionUpdated
		status = http.StatusOK
	)
	if expense.ID == 0 {
		stored, err = s.store.CreateExpense(r.Context(), expense)
		action = amqp.ActionCreated
		status = http.StatusCreated
	} else {
		stored, err = s.store.UpdateExpense(r.Context(), expense)
	}
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	s.invalidateSnapshots()
	s.publishEvent(r.Context(), action, stored.ID, authn.UserID(r.Context()))
	respondJSON(w, status, stored)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	if err := s.store.DeleteExpense(r.Context(), id); err != nil {
		respondDomainError(w, r, err)
		return
	}

	s.invalidateSnapshots()
	s.publishEvent(r.Context(), amqp.ActionDeleted, id, authn.UserID(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}

// splitRequest creates an expense from a total expression and percentage
// weights; the server runs the share allocation.
type splitRequest struct {
	Name         string             `json:"name"`
	Total        string             `json:"total"`
	Currency     string             `json:"currency"`
	PaidBy       int64              `json:"paid_by"`
	CategoryID   *int64             `json:"category_id,omitempty"`
	Participants []splitParticipant `json:"participants"`
	Boundaries   []decimal.Decimal  `json:"boundaries,omitempty"`
}

type splitParticipant struct {
	UserID     int64            `json:"user_id"`
	Percentage *decimal.Decimal `json:"percentage,omitempty"`
}

func (s *Server) handleSplitExpense(w http.ResponseWriter, r *http.Request) {
	var req splitRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	total, err := core.EvaluateAmount(req.Total)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	participants, err := splitParticipants(req)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	shares, err := core.AllocateShares(total, req.PaidBy, participants)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	shareReqs := make([]shareRequest, len(shares))
	for i, sh := range shares {
		shareReqs[i] = shareRequest{UserID: sh.UserID, Share: sh.Share}
	}
	expense, err := s.expenseFromRequest(r, expenseRequest{
		Name:       req.Name,
		Total:      total,
		Currency:   req.Currency,
		PaidBy:     req.PaidBy,
		CategoryID: req.CategoryID,
		Shares:     shareReqs,
	})
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	created, err := s.store.CreateExpense(r.Context(), expense)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "Split expense created",
		"id", created.ID,
		"total", created.Total,
		"participants", len(created.Shares))

	s.invalidateSnapshots()
	s.publishEvent(r.Context(), amqp.ActionCreated, created.ID, authn.UserID(r.Context()))
	respondJSON(w, http.StatusCreated, created)
}

// splitParticipants resolves the percentage weights: explicit cumulative
// slider boundaries win, then explicit percentages, then an even split.
func splitParticipants(req splitRequest) ([]core.Participant, error) {
	if len(req.Participants) == 0 {
		return nil, core.ErrNoParticipants
	}

	n := len(req.Participants)
	participants := make([]core.Participant, n)
	for i, p := range req.Participants {
		participants[i].UserID = p.UserID
	}

	switch {
	case len(req.Boundaries) > 0:
		if len(req.Boundaries) != n-1 {
			return nil, errors.New("boundaries must have one entry per participant except the last")
		}
		for i, pct := range core.PercentagesFromBoundaries(req.Boundaries) {
			participants[i].Percentage = pct
		}
	case req.Participants[0].Percentage != nil:
		for i, p := range req.Participants {
			if p.Percentage == nil {
				return nil, errors.New("either all or no participants may carry a percentage")
			}
			participants[i].Percentage = *p.Percentage
		}
	default:
		for i, pct := range core.EvenPercentages(n) {
			participants[i].Percentage = pct
		}
	}
	return participants, nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

func parseLimitOffset(r *http.Request) (limit, offset int) {
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			offset = n
		}
	}
	return limit, offset
}
