// Package metrics provides Prometheus instrumentation for the prediction
// engine.
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
	// WagersPlaced counts successfully committed wagers.
	WagersPlaced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crickpool_wagers_placed_total",
		Help: "Total number of wagers placed",
	})

	// WagerRejections counts rejected wager requests by reason code.
	WagerRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crickpool_wager_rejections_total",
		Help: "Wager requests rejected, by reason",
	}, []string{"reason"})

	// WagerLatency tracks end-to-end wager placement latency.
	WagerLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "crickpool_wager_latency_seconds",
		Help:    "Wager placement latency in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// WagerVolume tracks cumulative net stake pooled per market.
	WagerVolume = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crickpool_wager_volume_total",
		Help: "Cumulative net stake pooled",
	}, []string{"market_id"})

	// ReferralRewards counts instant referral rewards paid.
	ReferralRewards = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crickpool_referral_rewards_total",
		Help: "Instant referral rewards credited",
	})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "crickpool_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crickpool_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "crickpool_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
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

		// Label with the chi route pattern ("/markets/{marketID}") so
		// path parameters never blow up label cardinality.
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
