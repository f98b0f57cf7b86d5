// Package http implements the JSON API for expenses, balances and
// settlements.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"jostrid/internal/auth"
	"jostrid/internal/cache"
	"jostrid/internal/config"
	"jostrid/internal/core"
	"jostrid/internal/metrics"
	"jostrid/internal/middleware/authn"
	"jostrid/internal/middleware/ratelimit"
	"jostrid/internal/middleware/trace"
	"jostrid/internal/storage"
)

// Store is the persistence surface the handlers need.
type Store interface {
	GetUser(ctx context.Context, id int64) (core.User, error)
	ListUsers(ctx context.Context) ([]core.User, error)
	UpdateUserPhone(ctx context.Context, id int64, phone *string) (core.User, error)

	ListCategories(ctx context.Context) ([]core.Category, error)

	CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
	UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
	DeleteExpense(ctx context.Context, id int64) error
	GetExpense(ctx context.Context, id int64) (core.Expense, error)
	ListExpenses(ctx context.Context, limit, offset int) ([]core.Expense, error)

	SaveImage(ctx context.Context, img storage.Image) (storage.Image, error)
	GetImage(ctx context.Context, id int64) (storage.Image, error)
	ListImagesForExpense(ctx context.Context, expenseID int64) ([]storage.Image, error)
}

// EventPublisher pushes expense mutation events to the message bus. A nil
// publisher disables eventing; publish failures never fail the mutation.
type EventPublisher interface {
	PublishExpenseEvent(ctx context.Context, action string, expenseID, actorID int64) error
}

type Server struct {
	http.Server

	store     Store
	events    EventPublisher
	oauth     *auth.OAuthService
	jwt       *auth.JWTManager
	sessions  time.Duration
	frontend  string

	// Cached expense-collection snapshots, keyed by page; invalidated on
	// every mutation so reads stay consistent with the last write.
	snapshots *cache.LRUCache[[]core.Expense]
	cacheMgr  *cache.Manager

	rateLimiter  *ratelimit.Limiter
	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(cfg *config.Config, store Store, events EventPublisher, oauthSvc *auth.OAuthService, jwtManager *auth.JWTManager) *Server {
	s := &Server{
		store:       store,
		events:      events,
		oauth:       oauthSvc,
		jwt:         jwtManager,
		sessions:    cfg.SessionLength,
		frontend:    cfg.FrontendURL,
		snapshots:   cache.NewLRUCache[[]core.Expense](256, cfg.SnapshotTTL),
		cacheMgr:    cache.NewManager(),
		rateLimiter: ratelimit.NewLimiter(ratelimit.DefaultConfig()),
	}
	s.cacheMgr.Register(s.snapshots)
	s.cacheMgr.StartCleanup(10 * time.Minute)

	s.Server = http.Server{
		Addr:    ":" + cfg.Port,
		Handler: s.routes(),
	}
	return s
}

func (s *Server) routes() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("GET /api/expense", s.handleListExpenses)
	api.HandleFunc("GET /api/expense/{id}", s.handleGetExpense)
	api.HandleFunc("POST /api/expense", s.handleCreateExpense)
	api.HandleFunc("PUT /api/expense", s.handleUpsertExpense)
	api.HandleFunc("DELETE /api/expense/{id}", s.handleDeleteExpense)
	api.HandleFunc("POST /api/expense/split", s.handleSplitExpense)

	api.HandleFunc("GET /api/balance", s.handleBalance)
	api.HandleFunc("POST /api/settlement", s.handleSettlement)

	api.HandleFunc("GET /api/user", s.handleListUsers)
	api.HandleFunc("GET /api/me", s.handleMe)
	api.HandleFunc("PATCH /api/me", s.handlePatchMe)
	api.HandleFunc("GET /api/expense_category", s.handleListCategories)

	api.HandleFunc("GET /api/image", s.handleListImages)
	api.HandleFunc("GET /api/image/{id}", s.handleGetImage)
	api.HandleFunc("POST /api/image/import", s.handleImportImage)

	// metrics.Route sits inside the auth gate: the gate rewraps the request
	// context, so the api mux's matched pattern has to be captured from
	// within.
	authed := authn.RequireAuth(s.jwt)(metrics.Route(api))

	mux := http.NewServeMux()
	mux.Handle("/api/", authed)
	mux.HandleFunc("GET /oauth/login", s.handleOAuthLogin)
	mux.HandleFunc("GET /oauth/callback", s.handleOAuthCallback)
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)
	mux.Handle("GET /metrics", metrics.Handler())

	handler := securityHeaders(mux)
	handler = s.rateLimiter.Middleware(clientIP)(handler)
	handler = metrics.Middleware(handler)
	handler = trace.Middleware(clientIP)(handler)
	return handler
}

// Shutdown stops the HTTP server and background cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheMgr.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func snapshotKey(limit, offset int) string {
	return "expenses:" + strconv.Itoa(limit) + ":" + strconv.Itoa(offset)
}

// invalidateSnapshots drops every cached page of the expense collection.
func (s *Server) invalidateSnapshots() {
	s.snapshots.DeletePrefix("expenses:")
}

// publishEvent emits a mutation event; failures are logged by the publisher
// and never surface to the client.
func (s *Server) publishEvent(ctx context.Context, action string, expenseID, actorID int64) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishExpenseEvent(ctx, action, expenseID, actorID); err != nil {
		logPublishFailure(ctx, action, expenseID, err)
	}
}

func logPublishFailure(ctx context.Context, action string, expenseID int64, err error) {
	slog.WarnContext(ctx, "Failed to publish expense event",
		"action", action,
		"expense_id", expenseID,
		"error", err)
}
