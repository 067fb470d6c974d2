package obs

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Общие HTTP-метрики
var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets, // [0.005..10]
		},
		[]string{"method", "path", "status"},
	)

	ready = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "realm_ready",
		Help: "1 when the backing store answered the last readiness probe.",
	})
)

// Realm metrics.
var (
	credentialChecks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realm_credential_checks_total",
			Help: "Credential checks by result (accepted, rejected, error).",
		},
		[]string{"result"},
	)

	credentialRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realm_credential_rejections_total",
			Help: "Rejected credential checks by internal reason.",
		},
		[]string{"reason"},
	)

	authorizationLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realm_authorization_lookups_total",
			Help: "Authorization lookups by outcome (found, empty, error) and cache state.",
		},
		[]string{"outcome", "cache"},
	)
)

var initOnce sync.Once

// Init registers all collectors in the default registry. Repeated calls are no-ops.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			httpInFlight, httpRequestsTotal, httpRequestDuration, ready,
			credentialChecks, credentialRejections, authorizationLookups,
		)
	})
}

// Хэндлер Prometheus.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveCredentialCheck counts a Verify outcome. reason is only set for rejections.
func ObserveCredentialCheck(result, reason string) {
	credentialChecks.WithLabelValues(result).Inc()
	if reason != "" {
		credentialRejections.WithLabelValues(reason).Inc()
	}
}

// ObserveAuthorizationLookup counts a ResolveAuthorization outcome.
func ObserveAuthorizationLookup(outcome, cacheState string) {
	authorizationLookups.WithLabelValues(outcome, cacheState).Inc()
}

// SetReady mirrors the readiness probe into realm_ready.
func SetReady(ok bool) {
	if ok {
		ready.Set(1)
		return
	}
	ready.Set(0)
}

// ReadyGauge exposes realm_ready for inspection.
func ReadyGauge() prometheus.Gauge { return ready }

// CanonicalPath collapses identity codes out of request paths to keep label cardinality bounded.
func CanonicalPath(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "/"
	}
	parts := strings.Split(strings.Trim(path, "/"), "/")
	// /v1/auth/accounts/{code}/authorization
	if len(parts) == 5 && parts[0] == "v1" && parts[1] == "auth" && parts[2] == "accounts" && parts[4] == "authorization" {
		return "/v1/auth/accounts/:code/authorization"
	}
	return path
}

// Обёртка для измерения RPS/latency/в полёте.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := CanonicalPath(r.URL.Path)
		method := r.Method

		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: 200}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpInFlight.Dec()
	})
}

// statusWriter — локальная копия, чтобы знать код ответа.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
