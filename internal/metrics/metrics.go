// Package metrics exposes Prometheus instrumentation for the HTTP API.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jostrid_http_requests_total",
			Help: "Number of HTTP requests served, by method, route and status code.",
		},
		[]string{"method", "route", "code"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "jostrid_http_request_duration_seconds",
			Help:    "HTTP request latency, by method and route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	expenseEventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jostrid_expense_events_published_total",
			Help: "Expense events published to the message bus, by action.",
		},
		[]string{"action"},
	)
)

// Handler returns the /metrics scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordEventPublished counts a published expense event.
func RecordEventPublished(action string) {
	expenseEventsPublished.WithLabelValues(action).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

type routeKey struct{}

// routeHolder carries the matched pattern out of nested muxes. Middleware
// between two muxes may rewrap the request context, in which case the inner
// mux sets Pattern on a shallow copy that the outer middleware never sees;
// the holder travels by pointer through the context and survives that.
type routeHolder struct {
	pattern string
}

// Route wraps an inner ServeMux and records its matched pattern into the
// holder installed by Middleware. Place it directly around any nested mux
// whose match should become the route label.
func Route(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)
		if h, ok := r.Context().Value(routeKey{}).(*routeHolder); ok {
			h.pattern = r.Pattern
		}
	})
}

// Middleware instruments a handler with request count and latency metrics.
// The route label comes from the ServeMux pattern so that path parameters
// do not explode label cardinality; nested mux patterns are picked up via
// Route.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		holder := &routeHolder{}
		r = r.WithContext(context.WithValue(r.Context(), routeKey{}, holder))

		next.ServeHTTP(rec, r)

		route := holder.pattern
		if route == "" {
			route = r.Pattern
		}
		if route == "" {
			route = "unmatched"
		}
		requestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		requestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
