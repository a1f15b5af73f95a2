// Package metrics provides Prometheus instrumentation for the leaderboard service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// LeaderboardRuns counts leaderboard computations by result
	// ("ok", "empty", "invalid", "error").
	LeaderboardRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prophets_leaderboard_runs_total",
		Help: "Total leaderboard computations",
	}, []string{"result"})

	// LeaderboardLatency tracks end-to-end computation time.
	LeaderboardLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "prophets_leaderboard_latency_seconds",
		Help:    "Leaderboard computation latency in seconds",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})

	// NormalizedRows counts trades entering aggregation, by source
	// ("amm", "taker", "maker").
	NormalizedRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prophets_normalized_rows_total",
		Help: "Trades normalized into the aggregation stream",
	}, []string{"source"})

	// RejectedRows counts data-integrity warnings by stage and reason.
	RejectedRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prophets_rejected_rows_total",
		Help: "Rows excluded or annotated because upstream data could not be reconciled",
	}, []string{"stage", "reason"})

	// InScopeMarkets is the number of markets used by the last computation.
	InScopeMarkets = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "prophets_in_scope_markets",
		Help: "Markets that passed the filter in the last computation",
	})

	// HTTPRequestsTotal counts HTTP requests by method, route, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prophets_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and route.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "prophets_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5, 10},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// Use the route pattern for path label to avoid high cardinality.
		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
