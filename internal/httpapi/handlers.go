package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/Arthur-Pio/axelor-open-platform/internal/auth"
	"github.com/Arthur-Pio/axelor-open-platform/internal/obs"
)

const serviceName = "realm"

// Pinger is anything that can confirm its backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadyProbe checks readiness by pinging the persistence layer.
type ReadyProbe struct {
	DB Pinger
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return rp.DB.Ping(ctx)
}

type readinessChecker interface {
	Check(ctx context.Context) error
}

// CredentialVerifier checks a submitted secret for an identity code.
type CredentialVerifier interface {
	Verify(ctx context.Context, code string, secret auth.Secret) (auth.Accepted, error)
}

// AuthorizationResolver maps an identity code to its roles.
type AuthorizationResolver interface {
	ResolveAuthorization(ctx context.Context, code string) (auth.AuthorizationInfo, bool, error)
}

// SuccessRecorder is told about accepted credential checks.
type SuccessRecorder interface {
	LogAccepted(ctx context.Context, code string)
}

// Config tunes the HTTP surface.
type Config struct {
	Version       string
	RateBurst     int
	RatePerSecond float64
	MaxBodyBytes  int64
	// TrustedProxies may set X-Forwarded-For; everyone else is keyed by RemoteAddr.
	TrustedProxies []netip.Prefix
	Logger         *zerolog.Logger
}

// API is the HTTP layer.
type API struct {
	router    chi.Router
	verifier  CredentialVerifier
	resolver  AuthorizationResolver
	successes SuccessRecorder
	ready     readinessChecker
	limiter   *RateLimiter
	version   string
	logger    zerolog.Logger
}

// New wires the routes. successes may be nil.
func New(cfg Config, verifier CredentialVerifier, resolver AuthorizationResolver, successes SuccessRecorder, ready readinessChecker) *API {
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 10
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 5
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 64 << 10
	}
	if ready == nil {
		ready = ReadyProbe{}
	}
	logger := obs.WithComponent("httpapi")
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	a := &API{
		verifier:  verifier,
		resolver:  resolver,
		successes: successes,
		ready:     ready,
		limiter:   NewRateLimiter(cfg.RateBurst, cfg.RatePerSecond),
		version:   cfg.Version,
		logger:    logger,
	}

	r := chi.NewRouter()
	r.Use(RealIP(cfg.TrustedProxies), RequestID, Logging(logger), SecurityHeaders, CORS, Tenant)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})

	// health/ready/info
	r.Get("/healthz", a.Healthz)
	r.Get("/readyz", a.Ready)
	r.Get("/v1/info", a.Info)

	// Prometheus metrics
	r.Handle("/metrics", obs.Handler())

	r.Route("/v1/auth", func(r chi.Router) {
		r.With(a.limiter.Middleware, MaxBodyBytes(cfg.MaxBodyBytes)).Post("/verify", a.handleVerify)
		r.Get("/accounts/{code}/authorization", a.handleAuthorization)
	})
	a.router = r
	return a
}

// Handler returns the instrumented router.
func (a *API) Handler() http.Handler {
	return obs.Instrument(a.router)
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": serviceName,
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.ready.Check(r.Context()); err != nil {
		obs.SetReady(false)
		a.logger.Warn().Err(err).Msg("readiness check failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    serviceName,
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errors.New("request body too large")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

func isJSON(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	return ct == "" || strings.HasPrefix(strings.ToLower(ct), "application/json")
}
