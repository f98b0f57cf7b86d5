package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

type testCtxKey struct{}

// An auth-style gate between two muxes rewraps the request context, so the
// inner mux matches on a shallow copy of the request. The route label must
// still be the inner method+pattern, not the outer prefix.
func TestMiddlewareRecordsNestedMuxRoute(t *testing.T) {
	inner := http.NewServeMux()
	inner.HandleFunc("GET /api/widget/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	gate := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), testCtxKey{}, "gated")
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}

	outer := http.NewServeMux()
	outer.Handle("/api/", gate(Route(inner)))

	handler := Middleware(outer)
	r := httptest.NewRequest(http.MethodGet, "/api/widget/7", nil)
	handler.ServeHTTP(httptest.NewRecorder(), r)

	got := testutil.ToFloat64(requestsTotal.WithLabelValues("GET", "GET /api/widget/{id}", "204"))
	if got != 1 {
		t.Fatalf("requests with inner route label = %v, want 1", got)
	}
	if coarse := testutil.ToFloat64(requestsTotal.WithLabelValues("GET", "/api/", "204")); coarse != 0 {
		t.Fatalf("requests collapsed onto the outer prefix = %v, want 0", coarse)
	}
}

func TestMiddlewareRecordsTopLevelRoute(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	handler := Middleware(mux)
	r := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	handler.ServeHTTP(httptest.NewRecorder(), r)

	if got := testutil.ToFloat64(requestsTotal.WithLabelValues("GET", "GET /healthz", "200")); got != 1 {
		t.Fatalf("requests with top-level route label = %v, want 1", got)
	}
}
