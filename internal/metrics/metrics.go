// Package metrics provides Prometheus instrumentation for the detection
// service.
package metrics

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts HTTP requests by method, route pattern, and
	// status bucket.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scrapeguard",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, route pattern, and status bucket.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes request latency by method and route.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "scrapeguard",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// ChallengesIssuedTotal counts issued challenges.
	ChallengesIssuedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "scrapeguard",
		Name:      "challenges_issued_total",
		Help:      "Total challenges issued.",
	})

	// VerdictsTotal counts detection verdicts by decision.
	VerdictsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scrapeguard",
			Name:      "verdicts_total",
			Help:      "Total detection verdicts by decision (allow, flag, block).",
		},
		[]string{"decision"},
	)

	// TokensIssuedTotal counts real tokens issued, split by suspicion flag.
	TokensIssuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scrapeguard",
			Name:      "tokens_issued_total",
			Help:      "Total real tokens issued by suspicion flag.",
		},
		[]string{"suspicious"},
	)

	// TokenValidationsTotal counts token validations by result.
	TokenValidationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scrapeguard",
			Name:      "token_validations_total",
			Help:      "Total token validations by result.",
		},
		[]string{"valid"},
	)

	// DetectionsTotal counts detection records written.
	DetectionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "scrapeguard",
		Name:      "detections_total",
		Help:      "Total detection records written.",
	})
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		ChallengesIssuedTotal,
		VerdictsTotal,
		TokensIssuedTotal,
		TokenValidationsTotal,
		DetectionsTotal,
	)
}

// Middleware records request metrics. Route patterns are read from the chi
// route context after the handler runs, which avoids cardinality explosions
// from raw paths.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		timer := prometheus.NewTimer(prometheus.ObserverFunc(func(v float64) {
			HTTPRequestDuration.WithLabelValues(r.Method, routePattern(r)).Observe(v)
		}))

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		timer.ObserveDuration()
		HTTPRequestsTotal.WithLabelValues(r.Method, routePattern(r), statusBucket(sw.status)).Inc()
	})
}

// Handler returns the Prometheus metrics handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// statusBucket groups HTTP status codes into buckets (2xx, 3xx, 4xx, 5xx).
func statusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
