package gate

import (
	"context"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/catequesis/catequesis-api/internal/activity"
	"github.com/catequesis/catequesis-api/internal/platform/httpx"
	"github.com/catequesis/catequesis-api/internal/ratelimit"
	"github.com/catequesis/catequesis-api/internal/shared"
)

// Middleware adapts gating chains to chi middleware. It owns the boundary
// concerns the pipeline stays free of: header parsing, response rendering,
// request-context enrichment of rejections and the activity decorator.
type Middleware struct {
	pipeline *Pipeline
	limiter  *ratelimit.Limiter
	recorder *activity.Recorder
	logger   *slog.Logger
	observe  func(Kind)
}

// MiddlewareConfig groups the Middleware dependencies.
type MiddlewareConfig struct {
	Pipeline *Pipeline
	// Limiter is the general API traffic concern; routes may override it.
	Limiter  *ratelimit.Limiter
	Recorder *activity.Recorder
	Logger   *slog.Logger
	// ObserveRejection, when set, is called once per rejection kind emitted.
	ObserveRejection func(Kind)
}

// NewMiddleware constructs a Middleware.
func NewMiddleware(cfg MiddlewareConfig) *Middleware {
	return &Middleware{
		pipeline: cfg.Pipeline,
		limiter:  cfg.Limiter,
		recorder: cfg.Recorder,
		logger:   cfg.Logger,
		observe:  cfg.ObserveRejection,
	}
}

type routeOptions struct {
	limiter      *ratelimit.Limiter
	parishLookup func(r *http.Request) ParishLookup
}

// ParishLookup is the preliminary tenant fetch for one request: it returns
// the parish the target resource belongs to, usually by reading a URL
// parameter and hitting the resource's repository.
type ParishLookup func(ctx context.Context) (uuid.UUID, error)

// RouteOption customizes gating for a single route.
type RouteOption func(*routeOptions)

// WithLimiter swaps the rate-limiting concern for this route (e.g. the
// stricter login limiter).
func WithLimiter(l *ratelimit.Limiter) RouteOption {
	return func(o *routeOptions) { o.limiter = l }
}

// WithParishLookup supplies the preliminary resource fetch for a
// parish-scoped item route.
func WithParishLookup(fn func(r *http.Request) ParishLookup) RouteOption {
	return func(o *routeOptions) { o.parishLookup = fn }
}

// Require gates a route that demands an authenticated principal.
func (m *Middleware) Require(policy RoutePolicy, opts ...RouteOption) func(http.Handler) http.Handler {
	o := m.routeOptions(opts)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			chain := m.pipeline.Authenticated(policy, o.limiter)
			m.serve(chain, o, next, w, r)
		})
	}
}

// Optional gates a route where an absent credential proceeds anonymously.
// This is a distinct entry point, not a flag on Require.
func (m *Middleware) Optional(policy RoutePolicy, opts ...RouteOption) func(http.Handler) http.Handler {
	o := m.routeOptions(opts)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			chain := m.pipeline.Anonymous(policy, o.limiter)
			m.serve(chain, o, next, w, r)
		})
	}
}

func (m *Middleware) routeOptions(opts []RouteOption) routeOptions {
	o := routeOptions{limiter: m.limiter}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (m *Middleware) serve(chain Chain, o routeOptions, next http.Handler, w http.ResponseWriter, r *http.Request) {
	st := &State{
		Bearer:   bearerFrom(r),
		ClientIP: clientIP(r),
		Now:      time.Now(),
	}
	if o.parishLookup != nil {
		st.LookupParish = o.parishLookup(r)
	}

	if rej := chain.Admit(r.Context(), st); rej != nil {
		m.renderRejection(w, r, rej)
		return
	}

	ctx := shared.ContextWithPrincipal(r.Context(), st.Principal)
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	next.ServeHTTP(rec, r.WithContext(ctx))

	// One record per admitted, successful, authenticated request. Failures
	// are already visible through error handling.
	if m.recorder != nil && st.Principal != nil && rec.status < http.StatusBadRequest {
		m.recorder.Record(activity.Record{
			ID:            uuid.New(),
			PrincipalID:   st.Principal.ID,
			PrincipalName: st.Principal.Name,
			Role:          st.Principal.Role,
			Action:        chain.Policy().Action,
			Method:        r.Method,
			Route:         r.URL.Path,
			OccurredAt:    time.Now().UTC(),
		})
	}
}

// renderRejection attaches request context and writes the envelope. The
// rejection kind is rendered exactly as produced, never reclassified.
func (m *Middleware) renderRejection(w http.ResponseWriter, r *http.Request, rej *Rejection) {
	if m.observe != nil {
		m.observe(rej.Kind)
	}
	m.logger.Warn("request rejected",
		slog.String("kind", string(rej.Kind)),
		slog.String("path", r.URL.Path),
		slog.String("method", r.Method))

	body := map[string]any{
		"success":   false,
		"error":     string(rej.Kind),
		"message":   rej.Message,
		"timestamp": time.Now().UTC(),
		"path":      r.URL.Path,
		"method":    r.Method,
	}
	if rej.Kind == KindRateLimited {
		seconds := int(math.Ceil(rej.RetryAfter.Seconds()))
		if seconds < 1 {
			seconds = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
		body["retry_after"] = seconds
	}
	httpx.JSON(w, rej.Kind.HTTPStatus(), body)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func bearerFrom(r *http.Request) string {
	const prefix = "Bearer "
	header := r.Header.Get("Authorization")
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):]
	}
	return ""
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
